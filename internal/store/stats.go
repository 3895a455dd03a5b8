// internal/store/stats.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Stats is the admin dashboard summary for a time window.
type Stats struct {
	Since              time.Time `json:"since"`
	PatientLeads       int       `json:"patientLeads"`
	TherapistLeads     int       `json:"therapistLeads"`
	VerifiedLeads      int       `json:"verifiedLeads"`
	MatchesProposed    int       `json:"matchesProposed"`
	VerifiedTherapists int       `json:"verifiedTherapists"`
	AcceptingNew       int       `json:"acceptingNew"`
	Errors             int       `json:"errors"`
}

// LoadStats counts leads, matches and errors created since the given time, plus the current
// therapist pool.
func LoadStats(ctx context.Context, db *sql.DB, since time.Time) (*Stats, error) {
	s := Stats{Since: since}
	err := db.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM people WHERE type = 'patient' AND created_at >= $1),
			(SELECT count(*) FROM people WHERE type = 'therapist' AND created_at >= $1),
			(SELECT count(*) FROM people WHERE verified_at >= $1),
			(SELECT count(*) FROM matches WHERE created_at >= $1),
			(SELECT count(*) FROM therapists WHERE status = 'verified'),
			(SELECT count(*) FROM therapists WHERE status = 'verified' AND accepting_new),
			(SELECT count(*) FROM events WHERE level = 'error' AND created_at >= $1)`, since,
	).Scan(&s.PatientLeads, &s.TherapistLeads, &s.VerifiedLeads, &s.MatchesProposed,
		&s.VerifiedTherapists, &s.AcceptingNew, &s.Errors)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	return &s, nil
}
