// internal/store/events.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event levels.
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Event is an analytics or error-log record.
type Event struct {
	ID         string                 `json:"id"`
	Level      string                 `json:"level"`
	Type       string                 `json:"type"`
	Source     string                 `json:"source"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
}

type Events struct {
	db *sql.DB
}

func NewEvents(db *sql.DB) *Events {
	return &Events{db: db}
}

// Insert stores an event, assigning an id and timestamp when missing.
func (e *Events) Insert(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if ev.Level == "" {
		ev.Level = LevelInfo
	}
	props, err := json.Marshal(ev.Properties)
	if err != nil {
		return fmt.Errorf("encode properties: %w", err)
	}
	if ev.Properties == nil {
		props = []byte("{}")
	}

	if _, err := e.db.ExecContext(ctx, `
		INSERT INTO events (id, level, type, source, properties, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ID, ev.Level, ev.Type, ev.Source, props, ev.CreatedAt); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListErrors returns the most recent error-level events.
func (e *Events) ListErrors(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := e.db.QueryContext(ctx, `
		SELECT id, level, type, source, properties, created_at
		FROM events WHERE level = $1
		ORDER BY created_at DESC LIMIT $2`, LevelError, limit)
	if err != nil {
		return nil, fmt.Errorf("list errors: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			ev    Event
			props []byte
		)
		if err := rows.Scan(&ev.ID, &ev.Level, &ev.Type, &ev.Source, &props, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if len(props) > 0 {
			_ = json.Unmarshal(props, &ev.Properties)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
