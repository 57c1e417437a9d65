package models

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Fitness levels accepted by profiles and recommendations.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// ValidLevel reports whether s is a known fitness level.
func ValidLevel(s string) bool {
	switch s {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// Profile is the per-user record read when building recommendations.
type Profile struct {
	ID           string         `db:"id"`
	Username     string         `db:"username"`
	FitnessLevel string         `db:"fitness_level"`
	FitnessGoals sql.NullString `db:"fitness_goals"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// GetProfile retrieves a profile by user id. Returns ErrNotFound if absent.
func GetProfile(db *sqlx.DB, userID string) (*Profile, error) {
	p := &Profile{}
	err := db.Get(p, db.Rebind(
		`SELECT id, username, fitness_level, fitness_goals, created_at, updated_at
		 FROM profiles WHERE id = ?`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("models: get profile %s: %w", userID, err)
	}
	return p, nil
}

// UpsertProfile creates the profile or updates its editable fields.
func UpsertProfile(db *sqlx.DB, userID, username, level, goals string) (*Profile, error) {
	if !ValidLevel(level) {
		return nil, fmt.Errorf("models: upsert profile %s: invalid fitness level %q", userID, level)
	}

	var goalsVal sql.NullString
	if goals != "" {
		goalsVal = sql.NullString{String: goals, Valid: true}
	}

	ts := now()
	_, err := db.Exec(db.Rebind(
		`INSERT INTO profiles (id, username, fitness_level, fitness_goals, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   username = excluded.username,
		   fitness_level = excluded.fitness_level,
		   fitness_goals = excluded.fitness_goals,
		   updated_at = excluded.updated_at`),
		userID, username, level, goalsVal, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("models: upsert profile %s: %w", userID, err)
	}
	return GetProfile(db, userID)
}
