package recommend

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/carpenike/fitrecs/internal/database"
	"github.com/carpenike/fitrecs/internal/models"
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

func intPtr(n int) *int { return &n }

// validArguments returns tool arguments holding n well-formed plans.
func validArguments(n int) string {
	plans := make([]string, 0, n)
	for i := 0; i < n; i++ {
		plans = append(plans, fmt.Sprintf(`{
			"title": "Plan %d",
			"description": "Strength focus",
			"duration": "45 minutes",
			"difficulty": "intermediate",
			"exercises": [
				{"name": "Squat", "sets": "3", "reps": "8-10"},
				{"name": "Plank", "sets": "3", "reps": "45 seconds", "notes": "brace"}
			],
			"benefits": ["strength", "stability"]
		}`, i+1))
	}
	return `{"recommendations": [` + strings.Join(plans, ",") + `]}`
}

func completion(rating int, title, difficulty, notes string) *models.Completion {
	c := &models.Completion{Rating: rating}
	if title != "" {
		c.Recommendation = &models.SavedRecommendation{
			Recommendation: models.Recommendation{Title: title, Difficulty: difficulty},
		}
	}
	if notes != "" {
		c.Notes = sql.NullString{String: notes, Valid: true}
	}
	return c
}
