// internal/store/therapists.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"matching-platform/internal/matching"
)

const TherapistStatusVerified = "verified"

// Therapist is one row of the therapists table.
type Therapist struct {
	ID                 string    `json:"id"`
	FirstName          string    `json:"firstName"`
	LastName           string    `json:"lastName"`
	Email              string    `json:"email,omitempty"`
	Gender             string    `json:"gender,omitempty"`
	City               string    `json:"city,omitempty"`
	Status             string    `json:"status"`
	AcceptingNew       bool      `json:"acceptingNew"`
	SessionPreferences []string  `json:"sessionPreferences"`
	Schwerpunkte       []string  `json:"schwerpunkte"`
	Modalities         []string  `json:"modalities"`
	PhotoURL           string    `json:"photoUrl,omitempty"`
	ApproachText       string    `json:"approachText,omitempty"`
	WhoComesToMe       string    `json:"whoComesToMe,omitempty"`
	CalUsername        string    `json:"calUsername,omitempty"`
	CalEventTypes      []string  `json:"calEventTypes"`
	Metadata           Metadata  `json:"metadata"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Metadata holds the known keys of therapists.metadata.
type Metadata struct {
	HideFromDirectory bool `json:"hide_from_directory,omitempty"`
}

// Candidate converts the row into a normalized matching input. Slot counts stay zero; they
// are filled in by the caller.
func (t *Therapist) Candidate() matching.TherapistCandidate {
	return matching.TherapistCandidate{
		ID:                  t.ID,
		AcceptingNew:        t.AcceptingNew,
		HiddenFromDirectory: t.Metadata.HideFromDirectory,
		Gender:              matching.ParseGender(t.Gender),
		SessionPreferences:  matching.NewFormatSet(t.SessionPreferences...),
		City:                normalizeCity(t.City),
		Schwerpunkte:        matching.NewTagSet(t.Schwerpunkte...),
		Modalities:          matching.NewTagSet(t.Modalities...),
		PhotoURL:            t.PhotoURL,
		ApproachText:        t.ApproachText,
		WhoComesToMe:        t.WhoComesToMe,
		CalUsername:         t.CalUsername,
		CalEventTypes:       matching.CanonicalEventTypes(t.CalEventTypes),
	}
}

type Therapists struct {
	db *sql.DB
}

func NewTherapists(db *sql.DB) *Therapists {
	return &Therapists{db: db}
}

const therapistColumns = `id, first_name, last_name, COALESCE(email, ''), COALESCE(gender, ''),
		COALESCE(city, ''), status, accepting_new, session_preferences, schwerpunkte, modalities,
		COALESCE(photo_url, ''), COALESCE(approach_text, ''), COALESCE(who_comes_to_me, ''),
		COALESCE(cal_username, ''), cal_event_types, metadata, created_at`

func scanTherapist(row interface{ Scan(...interface{}) error }) (*Therapist, error) {
	var (
		t        Therapist
		metadata []byte
	)
	err := row.Scan(&t.ID, &t.FirstName, &t.LastName, &t.Email, &t.Gender, &t.City, &t.Status,
		&t.AcceptingNew, pq.Array(&t.SessionPreferences), pq.Array(&t.Schwerpunkte),
		pq.Array(&t.Modalities), &t.PhotoURL, &t.ApproachText, &t.WhoComesToMe, &t.CalUsername,
		pq.Array(&t.CalEventTypes), &metadata, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		// A malformed bag reads as visible.
		_ = json.Unmarshal(metadata, &t.Metadata)
	}
	return &t, nil
}

// ListCandidates loads verified therapists as matching candidates. A non-empty ids slice
// restricts the result to those therapists.
func (s *Therapists) ListCandidates(ctx context.Context, ids []string) ([]matching.TherapistCandidate, error) {
	query := `SELECT ` + therapistColumns + ` FROM therapists WHERE status = $1`
	args := []interface{}{TherapistStatusVerified}
	if len(ids) > 0 {
		query += ` AND id = ANY($2)`
		args = append(args, pq.Array(ids))
	}
	query += ` ORDER BY id`

	therapists, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	out := make([]matching.TherapistCandidate, len(therapists))
	for i := range therapists {
		out[i] = therapists[i].Candidate()
	}
	return out, nil
}

func (s *Therapists) Get(ctx context.Context, id string) (*Therapist, error) {
	t, err := scanTherapist(s.db.QueryRowContext(ctx,
		`SELECT `+therapistColumns+` FROM therapists WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get therapist: %w", err)
	}
	return t, nil
}

// List pages through all therapists for the admin view, newest first.
func (s *Therapists) List(ctx context.Context, limit, offset int) ([]Therapist, error) {
	if limit <= 0 {
		limit = 50
	}
	therapists, err := s.query(ctx, `SELECT `+therapistColumns+` FROM therapists
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list therapists: %w", err)
	}
	return therapists, nil
}

func (s *Therapists) query(ctx context.Context, query string, args ...interface{}) ([]Therapist, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Therapist
	for rows.Next() {
		t, err := scanTherapist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
