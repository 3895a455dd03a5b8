// internal/store/matches.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"matching-platform/internal/matching"
)

const MatchStatusProposed = "proposed"

// Match is a persisted proposal of one therapist to one patient. SecureUUID is the token in
// the patient's selection link.
type Match struct {
	ID            string    `json:"id"`
	PatientID     string    `json:"patientId"`
	TherapistID   string    `json:"therapistId"`
	Status        string    `json:"status"`
	Rank          int       `json:"rank"`
	MatchScore    int       `json:"matchScore"`
	PlatformScore int       `json:"platformScore"`
	TotalScore    float64   `json:"totalScore"`
	SecureUUID    string    `json:"secureUuid"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Matches struct {
	db  *sql.DB
	now func() time.Time
}

func NewMatches(db *sql.DB) *Matches {
	return &Matches{db: db, now: time.Now}
}

// CreateMatches stores ranked candidates for a patient in one transaction, in rank order.
func (m *Matches) CreateMatches(ctx context.Context, patientID string, ranked []matching.ScoredCandidate) ([]Match, error) {
	if len(ranked) == 0 {
		return nil, nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO matches (id, patient_id, therapist_id, status, rank, match_score,
			platform_score, total_score, secure_uuid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	createdAt := m.now().UTC()
	out := make([]Match, 0, len(ranked))
	for i, c := range ranked {
		match := Match{
			ID:            uuid.NewString(),
			PatientID:     patientID,
			TherapistID:   c.TherapistID,
			Status:        MatchStatusProposed,
			Rank:          i + 1,
			MatchScore:    c.MatchScore,
			PlatformScore: c.PlatformScore,
			TotalScore:    c.TotalScore,
			SecureUUID:    uuid.NewString(),
			CreatedAt:     createdAt,
		}
		if _, err := stmt.ExecContext(ctx, match.ID, match.PatientID, match.TherapistID,
			match.Status, match.Rank, match.MatchScore, match.PlatformScore, match.TotalScore,
			match.SecureUUID, match.CreatedAt); err != nil {
			return nil, fmt.Errorf("insert match %d: %w", match.Rank, err)
		}
		out = append(out, match)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit matches: %w", err)
	}
	return out, nil
}

// ListForPatient returns a patient's matches in rank order.
func (m *Matches) ListForPatient(ctx context.Context, patientID string) ([]Match, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, patient_id, therapist_id, status, rank, match_score, platform_score,
			total_score, secure_uuid, created_at
		FROM matches WHERE patient_id = $1
		ORDER BY rank`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var match Match
		if err := rows.Scan(&match.ID, &match.PatientID, &match.TherapistID, &match.Status,
			&match.Rank, &match.MatchScore, &match.PlatformScore, &match.TotalScore,
			&match.SecureUUID, &match.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, match)
	}
	return out, rows.Err()
}
