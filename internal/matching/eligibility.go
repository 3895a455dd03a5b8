// internal/matching/eligibility.go
package matching

// IsEligible applies the hard filters in order and stops at the first failure.
// A nil patient only checks the therapist-intrinsic rules.
func IsEligible(t *TherapistCandidate, p *PatientPreferences) bool {
	if t == nil {
		return false
	}
	if !t.AcceptingNew {
		return false
	}
	if t.HiddenFromDirectory {
		return false
	}
	if p == nil {
		return true
	}
	if p.GenderPreference.constrains() && !p.GenderPreference.matches(t.Gender) {
		return false
	}
	// A patient open to both formats passes any therapist offering at least one.
	if !p.SessionPreferences.Empty() && !p.SessionPreferences.Intersects(t.SessionPreferences) {
		return false
	}
	return true
}
