// internal/matching/eventtypes.go
package matching

import "strings"

// EventTypeKind is the canonical kind of a booking-platform event type.
type EventTypeKind int

const (
	EventTypeUnknown EventTypeKind = iota
	EventTypeIntro
	EventTypeFullSession
)

func (k EventTypeKind) String() string {
	switch k {
	case EventTypeIntro:
		return "intro"
	case EventTypeFullSession:
		return "full_session"
	default:
		return "unknown"
	}
}

var eventTypeSlugs = map[string]EventTypeKind{
	"intro":           EventTypeIntro,
	"intro-call":      EventTypeIntro,
	"kennenlernen":    EventTypeIntro,
	"erstgespraech":   EventTypeIntro,
	"full-session":    EventTypeFullSession,
	"full_session":    EventTypeFullSession,
	"session":         EventTypeFullSession,
	"sitzung":         EventTypeFullSession,
	"therapiesitzung": EventTypeFullSession,
}

// CanonicalEventType maps a German or English event-type slug to its kind.
func CanonicalEventType(slug string) EventTypeKind {
	return eventTypeSlugs[strings.ToLower(strings.TrimSpace(slug))]
}

// CanonicalEventTypes maps every slug and drops unknown ones.
func CanonicalEventTypes(slugs []string) []EventTypeKind {
	out := make([]EventTypeKind, 0, len(slugs))
	for _, s := range slugs {
		if k := CanonicalEventType(s); k != EventTypeUnknown {
			out = append(out, k)
		}
	}
	return out
}

// HasFullBookingJourney reports whether the therapist has a booking-platform username and
// both an intro and a full-session event type. It gates booking UI and is not part of
// PlatformScore.
func HasFullBookingJourney(t *TherapistCandidate) bool {
	if t == nil || t.CalUsername == "" {
		return false
	}
	var intro, full bool
	for _, k := range t.CalEventTypes {
		switch k {
		case EventTypeIntro:
			intro = true
		case EventTypeFullSession:
			full = true
		}
	}
	return intro && full
}
