// internal/store/people.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"matching-platform/internal/matching"
)

// Lead statuses.
const (
	StatusPreConfirmation = "pre_confirmation"
	StatusEmailConfirmed  = "email_confirmed"
	StatusPhoneConfirmed  = "phone_confirmed"
	StatusMatched         = "matched"
)

// Intake is the questionnaire part of a patient lead, stored in people.metadata.
type Intake struct {
	GenderPreference   string   `json:"gender_preference,omitempty"`
	SessionPreferences []string `json:"session_preferences,omitempty"`
	City               string   `json:"city,omitempty"`
	Schwerpunkte       []string `json:"schwerpunkte,omitempty"`
	Specializations    []string `json:"specializations,omitempty"`
}

// Preferences converts the raw intake into normalized matching preferences.
func (i Intake) Preferences() *matching.PatientPreferences {
	return &matching.PatientPreferences{
		GenderPreference:   matching.ParseGenderPreference(i.GenderPreference),
		SessionPreferences: matching.NewFormatSet(i.SessionPreferences...),
		City:               normalizeCity(i.City),
		Schwerpunkte:       matching.NewTagSet(i.Schwerpunkte...),
		Specializations:    matching.NewTagSet(i.Specializations...),
	}
}

type Lead struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	Name           string     `json:"name"`
	Email          string     `json:"email,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Status         string     `json:"status"`
	CampaignSource string     `json:"campaignSource,omitempty"`
	Gclid          string     `json:"gclid,omitempty"`
	Intake         Intake     `json:"intake"`
	CreatedAt      time.Time  `json:"createdAt"`
	VerifiedAt     *time.Time `json:"verifiedAt,omitempty"`
}

type People struct {
	db *sql.DB
}

func NewPeople(db *sql.DB) *People {
	return &People{db: db}
}

// CreateLead inserts a lead and returns its id. A second lead with the same email and type
// returns ErrDuplicateLead.
func (p *People) CreateLead(ctx context.Context, lead *Lead) (string, error) {
	metadata, err := json.Marshal(lead.Intake)
	if err != nil {
		return "", fmt.Errorf("encode intake: %w", err)
	}

	status := lead.Status
	if status == "" {
		status = StatusPreConfirmation
	}

	var id string
	err = p.db.QueryRowContext(ctx, `
		INSERT INTO people (type, name, email, phone, status, campaign_source, gclid, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		lead.Type, lead.Name, nullString(lead.Email), nullString(lead.Phone), status,
		nullString(lead.CampaignSource), nullString(lead.Gclid), metadata,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicateLead
		}
		return "", fmt.Errorf("insert lead: %w", err)
	}
	return id, nil
}

const leadColumns = `id, type, name, COALESCE(email, ''), COALESCE(phone, ''), status,
		COALESCE(campaign_source, ''), COALESCE(gclid, ''), metadata, created_at, verified_at`

func scanLead(row interface{ Scan(...interface{}) error }) (*Lead, error) {
	var (
		lead     Lead
		metadata []byte
		verified sql.NullTime
	)
	if err := row.Scan(&lead.ID, &lead.Type, &lead.Name, &lead.Email, &lead.Phone, &lead.Status,
		&lead.CampaignSource, &lead.Gclid, &metadata, &lead.CreatedAt, &verified); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		// Unknown or malformed metadata leaves the intake empty, which matching treats as
		// unconstrained.
		_ = json.Unmarshal(metadata, &lead.Intake)
	}
	if verified.Valid {
		t := verified.Time
		lead.VerifiedAt = &t
	}
	return &lead, nil
}

func (p *People) Get(ctx context.Context, id string) (*Lead, error) {
	lead, err := scanLead(p.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM people WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

// GetPatient loads a patient lead. Therapist leads are reported as not found.
func (p *People) GetPatient(ctx context.Context, id string) (*Lead, error) {
	lead, err := p.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead.Type != "patient" {
		return nil, ErrNotFound
	}
	return lead, nil
}

// MarkVerified records that the lead confirmed the given channel ("email" or "sms").
func (p *People) MarkVerified(ctx context.Context, id, channel string) error {
	status := StatusEmailConfirmed
	if channel == "sms" {
		status = StatusPhoneConfirmed
	}

	res, err := p.db.ExecContext(ctx, `
		UPDATE people SET status = $2, verified_at = COALESCE(verified_at, now())
		WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus moves a lead to a new status.
func (p *People) SetStatus(ctx context.Context, id, status string) error {
	if _, err := p.db.ExecContext(ctx, `UPDATE people SET status = $2 WHERE id = $1`, id, status); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

// ListLeads returns leads created at or after since, newest first.
func (p *People) ListLeads(ctx context.Context, since time.Time) ([]Lead, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+leadColumns+` FROM people
		WHERE created_at >= $1
		ORDER BY created_at DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var out []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, *lead)
	}
	return out, rows.Err()
}
