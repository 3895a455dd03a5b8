// internal/matching/rank.go
package matching

import "sort"

const matchWeight = 1.5

// TotalScore combines both scores with the match score weighted 1.5x.
func TotalScore(matchScore, platformScore int) float64 {
	return float64(matchScore)*matchWeight + float64(platformScore)
}

// Score evaluates a single candidate. It does not check eligibility.
func Score(t *TherapistCandidate, p *PatientPreferences) ScoredCandidate {
	platform := PlatformScore(t, t.IntroSlotsWithin7Days, t.IntroSlotsWithin14Days)
	match := MatchScore(t, p)
	return ScoredCandidate{
		TherapistID:   t.ID,
		PlatformScore: platform,
		MatchScore:    match,
		TotalScore:    TotalScore(match, platform),
		Mismatches:    ComputeMismatches(p, t),
	}
}

// Rank drops ineligible candidates, scores the rest and sorts them by total score, then
// platform score, then therapist id. limit <= 0 returns every eligible candidate.
// The input slice is not modified.
func Rank(p *PatientPreferences, candidates []TherapistCandidate, limit int) []ScoredCandidate {
	scored := make([]ScoredCandidate, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if !IsEligible(c, p) {
			continue
		}
		scored = append(scored, Score(c, p))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if a.PlatformScore != b.PlatformScore {
			return a.PlatformScore > b.PlatformScore
		}
		return a.TherapistID < b.TherapistID
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
