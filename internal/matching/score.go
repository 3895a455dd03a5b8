// internal/matching/score.go
package matching

const (
	pointsPerSchwerpunkt = 15
	localityBonus        = 20
	modalityBonus        = 15
	genderBonus          = 10
)

// MatchScore rates the fit between one patient and one therapist. Components are additive
// and never negative; there is no upper cap.
func MatchScore(t *TherapistCandidate, p *PatientPreferences) int {
	if t == nil || p == nil {
		return 0
	}
	score := t.Schwerpunkte.IntersectionCount(p.Schwerpunkte) * pointsPerSchwerpunkt
	if localityApplies(t, p) {
		score += localityBonus
	}
	if t.Modalities.IntersectionCount(p.Specializations) > 0 {
		score += modalityBonus
	}
	if p.GenderPreference.matches(t.Gender) {
		score += genderBonus
	}
	return score
}

// localityApplies requires a format-flexible patient, an in-person therapist and an exact
// city match.
func localityApplies(t *TherapistCandidate, p *PatientPreferences) bool {
	return p.SessionPreferences.Both() &&
		t.SessionPreferences.Has(FormatInPerson) &&
		t.City != "" &&
		t.City == p.City
}
