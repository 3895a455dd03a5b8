// internal/workers/matching/match-therapists/models.go
package matchtherapists

import (
	"context"

	"matching-platform/internal/matching"
	"matching-platform/internal/recommend"
	"matching-platform/internal/store"
)

type Input struct {
	LeadID string `json:"leadId"`
}

type Output struct {
	MatchCount     int      `json:"matchCount"`
	TherapistIDs   []string `json:"therapistIds"`
	SelectionToken string   `json:"selectionToken,omitempty"`
	Evaluated      int      `json:"candidatesEvaluated"`
	Eligible       int      `json:"candidatesEligible"`
}

type Recommender interface {
	Recommend(ctx context.Context, patientID string, limit int) (*recommend.Recommendation, error)
}

type MatchWriter interface {
	CreateMatches(ctx context.Context, patientID string, ranked []matching.ScoredCandidate) ([]store.Match, error)
}

type StatusWriter interface {
	SetStatus(ctx context.Context, id, status string) error
}
