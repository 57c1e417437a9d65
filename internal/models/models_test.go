package models

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carpenike/fitrecs/internal/database"
)

// testDB creates a fresh in-memory SQLite database with migrations applied.
func testDB(t testing.TB) *sqlx.DB {
	t.Helper()

	db, err := database.Open(database.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := database.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// tickingClock replaces the package clock with one that advances a second
// per call, so rows inserted back to back get distinct timestamps.
func tickingClock(t testing.TB, start time.Time) {
	t.Helper()
	orig := now
	cur := start.UTC()
	now = func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
	t.Cleanup(func() { now = orig })
}

func seedProfile(t testing.TB, db *sqlx.DB, id string) *Profile {
	t.Helper()
	p, err := UpsertProfile(db, id, "user-"+id, LevelIntermediate, "get stronger")
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	return p
}

func intPtr(n int) *int { return &n }
