// internal/matching/types.go
package matching

import (
	"sort"
	"strings"
)

// Gender is the therapist's stated gender.
type Gender string

const (
	GenderUnspecified Gender = ""
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderOther       Gender = "other"
)

// ParseGender maps free-form input to a Gender. Unknown values become GenderUnspecified.
func ParseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "mann", "maennlich", "männlich":
		return GenderMale
	case "female", "f", "frau", "weiblich":
		return GenderFemale
	case "other", "diverse", "divers", "non-binary":
		return GenderOther
	default:
		return GenderUnspecified
	}
}

// GenderPreference is the patient's requested therapist gender.
type GenderPreference string

const (
	PreferUnspecified GenderPreference = ""
	PreferMale        GenderPreference = "male"
	PreferFemale      GenderPreference = "female"
	PreferAny         GenderPreference = "any"
)

// ParseGenderPreference maps form input to a GenderPreference. Unknown values become
// PreferUnspecified, which behaves like PreferAny.
func ParseGenderPreference(s string) GenderPreference {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "mann":
		return PreferMale
	case "female", "f", "frau":
		return PreferFemale
	case "any", "egal", "no_preference", "keine_praeferenz":
		return PreferAny
	default:
		return PreferUnspecified
	}
}

// constrains reports whether the preference narrows the therapist set at all.
func (p GenderPreference) constrains() bool {
	return p == PreferMale || p == PreferFemale
}

// matches reports whether a constraining preference is satisfied by g.
func (p GenderPreference) matches(g Gender) bool {
	return p.constrains() && string(p) == string(g)
}

// SessionFormat is a way a session can be held.
type SessionFormat string

const (
	FormatOnline   SessionFormat = "online"
	FormatInPerson SessionFormat = "in_person"
)

// FormatSet is an immutable set of session formats. The zero value is empty.
type FormatSet struct {
	online   bool
	inPerson bool
}

// NewFormatSet builds a FormatSet from raw values. Unrecognized values are ignored.
func NewFormatSet(values ...string) FormatSet {
	var fs FormatSet
	for _, v := range values {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "online", "video", "remote":
			fs.online = true
		case "in_person", "in-person", "inperson", "vor_ort", "praxis":
			fs.inPerson = true
		}
	}
	return fs
}

// Has reports whether f is in the set.
func (fs FormatSet) Has(f SessionFormat) bool {
	switch f {
	case FormatOnline:
		return fs.online
	case FormatInPerson:
		return fs.inPerson
	}
	return false
}

// Empty reports whether no format is set.
func (fs FormatSet) Empty() bool {
	return !fs.online && !fs.inPerson
}

// Both reports whether the set holds online and in-person.
func (fs FormatSet) Both() bool {
	return fs.online && fs.inPerson
}

// Intersects reports whether the two sets share at least one format.
func (fs FormatSet) Intersects(other FormatSet) bool {
	return (fs.online && other.online) || (fs.inPerson && other.inPerson)
}

// Values returns the formats in a stable order.
func (fs FormatSet) Values() []SessionFormat {
	out := make([]SessionFormat, 0, 2)
	if fs.online {
		out = append(out, FormatOnline)
	}
	if fs.inPerson {
		out = append(out, FormatInPerson)
	}
	return out
}

// Strings returns the formats as raw strings in a stable order.
func (fs FormatSet) Strings() []string {
	vals := fs.Values()
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}

// TagSet is an immutable set of canonical (trimmed, lower-cased) tags.
type TagSet struct {
	tags map[string]struct{}
}

// NewTagSet normalizes and deduplicates values. Empty values are dropped.
func NewTagSet(values ...string) TagSet {
	ts := TagSet{tags: make(map[string]struct{}, len(values))}
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		ts.tags[v] = struct{}{}
	}
	return ts
}

// Len returns the number of tags.
func (ts TagSet) Len() int {
	return len(ts.tags)
}

// Has reports whether tag (already canonical) is present.
func (ts TagSet) Has(tag string) bool {
	_, ok := ts.tags[tag]
	return ok
}

// IntersectionCount returns |ts ∩ other|.
func (ts TagSet) IntersectionCount(other TagSet) int {
	small, large := ts, other
	if small.Len() > large.Len() {
		small, large = large, small
	}
	n := 0
	for tag := range small.tags {
		if large.Has(tag) {
			n++
		}
	}
	return n
}

// Values returns the tags sorted.
func (ts TagSet) Values() []string {
	out := make([]string, 0, len(ts.tags))
	for tag := range ts.tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// PatientPreferences is what a patient stated in the intake form.
type PatientPreferences struct {
	GenderPreference   GenderPreference
	SessionPreferences FormatSet
	City               string
	Schwerpunkte       TagSet
	Specializations    TagSet
}

// TherapistCandidate is a read-only snapshot of one therapist row plus the caller-supplied
// intro slot counts.
type TherapistCandidate struct {
	ID                  string
	AcceptingNew        bool
	HiddenFromDirectory bool
	Gender              Gender
	SessionPreferences  FormatSet
	City                string
	Schwerpunkte        TagSet
	Modalities          TagSet

	PhotoURL     string
	ApproachText string
	WhoComesToMe string

	CalUsername   string
	CalEventTypes []EventTypeKind

	IntroSlotsWithin7Days  int
	IntroSlotsWithin14Days int
}

// ScoredCandidate is one entry of a ranking result.
type ScoredCandidate struct {
	TherapistID   string         `json:"therapistId"`
	PlatformScore int            `json:"platformScore"`
	MatchScore    int            `json:"matchScore"`
	TotalScore    float64        `json:"totalScore"`
	Mismatches    MismatchReport `json:"mismatches"`
}
