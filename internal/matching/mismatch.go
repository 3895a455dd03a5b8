// internal/matching/mismatch.go
package matching

// MismatchFlags are set only when the patient expressed a preference that the therapist
// does not satisfy.
type MismatchFlags struct {
	Schwerpunkte bool `json:"schwerpunkte"`
	Format       bool `json:"format"`
	Gender       bool `json:"gender"`
	Modality     bool `json:"modality"`
}

// MismatchReport explains a patient/therapist pair. It never feeds back into scoring.
type MismatchReport struct {
	SchwerpunkteOverlap int           `json:"schwerpunkteOverlap"`
	ModalityOverlap     int           `json:"modalityOverlap"`
	Mismatches          MismatchFlags `json:"mismatches"`
}

// Any reports whether at least one flag is set.
func (r MismatchReport) Any() bool {
	f := r.Mismatches
	return f.Schwerpunkte || f.Format || f.Gender || f.Modality
}

// ComputeMismatches builds the report for a pair. A nil patient yields no flags.
func ComputeMismatches(p *PatientPreferences, t *TherapistCandidate) MismatchReport {
	var r MismatchReport
	if p == nil || t == nil {
		return r
	}

	r.SchwerpunkteOverlap = t.Schwerpunkte.IntersectionCount(p.Schwerpunkte)
	r.ModalityOverlap = t.Modalities.IntersectionCount(p.Specializations)

	r.Mismatches.Schwerpunkte = p.Schwerpunkte.Len() > 0 && r.SchwerpunkteOverlap == 0
	r.Mismatches.Modality = p.Specializations.Len() > 0 && r.ModalityOverlap == 0
	r.Mismatches.Gender = p.GenderPreference.constrains() && !p.GenderPreference.matches(t.Gender)
	r.Mismatches.Format = !p.SessionPreferences.Empty() && !p.SessionPreferences.Intersects(t.SessionPreferences)
	return r
}

// Explanation is the admin view of a single candidate.
type Explanation struct {
	TherapistID    string         `json:"therapistId"`
	Eligible       bool           `json:"eligible"`
	PlatformScore  int            `json:"platformScore"`
	MatchScore     int            `json:"matchScore"`
	TotalScore     float64        `json:"totalScore"`
	HasFullJourney bool           `json:"hasFullJourney"`
	Report         MismatchReport `json:"report"`
}

// Explain evaluates every candidate, eligible or not, in input order.
func Explain(p *PatientPreferences, candidates []TherapistCandidate) []Explanation {
	out := make([]Explanation, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		s := Score(c, p)
		out = append(out, Explanation{
			TherapistID:    c.ID,
			Eligible:       IsEligible(c, p),
			PlatformScore:  s.PlatformScore,
			MatchScore:     s.MatchScore,
			TotalScore:     s.TotalScore,
			HasFullJourney: HasFullBookingJourney(c),
			Report:         s.Mismatches,
		})
	}
	return out
}
