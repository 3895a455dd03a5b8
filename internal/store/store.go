// Package store is the postgres-backed people, therapist, match and event repository.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

var (
	ErrNotFound      = errors.New("NOT_FOUND")
	ErrDuplicateLead = errors.New("DUPLICATE_LEAD")
)

const uniqueViolation = "23505"

//go:embed schema.sql
var schemaSQL string

// Migrate creates missing tables and indexes.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// normalizeCity trims surrounding whitespace; city comparison stays exact.
func normalizeCity(s string) string {
	return strings.TrimSpace(s)
}
