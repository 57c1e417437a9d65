package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested row does not exist or is not
// owned by the caller.
var ErrNotFound = errors.New("not found")

// isUniqueViolation checks if an error is a unique constraint violation on
// either SQLite or Postgres.
func isUniqueViolation(err error) bool {
	return err != nil && (errContains(err, "UNIQUE constraint failed") ||
		errContains(err, "constraint failed: UNIQUE") ||
		errContains(err, "SQLSTATE 23505"))
}

// errContains checks whether an error's message contains the given substring.
func errContains(err error, substr string) bool {
	return err != nil && strings.Contains(err.Error(), substr)
}

// normalizeDate trims any time suffix from a date string (e.g. "2025-01-01T00:00:00Z" → "2025-01-01").
func normalizeDate(d string) string {
	if len(d) >= 10 {
		return d[:10]
	}
	return d
}

// newID returns a fresh row identifier.
func newID() string {
	return uuid.NewString()
}

// now is the clock used for stored timestamps. Tests may replace it.
var now = func() time.Time {
	return time.Now().UTC()
}
