package models

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jmoiron/sqlx"

	"github.com/carpenike/fitrecs/internal/database"
)

// SeedDemoUser creates (or refreshes) a profile for userID and logs `days`
// worth of workouts ending today, cycling through the embedded demo
// sessions. Durations and calories are jittered so the history is not
// perfectly regular. Returns the number of workouts created.
func SeedDemoUser(db *sqlx.DB, userID string, days int, today time.Time, seed int64) (int, error) {
	catalog, err := database.ParseDemoHistory()
	if err != nil {
		return 0, err
	}
	if len(catalog.Sessions) == 0 {
		return 0, fmt.Errorf("models: seed demo user: no sessions in demo history")
	}

	faker := gofakeit.New(seed)

	if _, err := UpsertProfile(db, userID, faker.Username(), catalog.FitnessLevel, catalog.FitnessGoals); err != nil {
		return 0, fmt.Errorf("models: seed demo user: %w", err)
	}

	created := 0
	session := 0
	for offset := days - 1; offset >= 0; offset-- {
		// Rest roughly every third day.
		if faker.Number(0, 2) == 0 {
			continue
		}

		s := catalog.Sessions[session%len(catalog.Sessions)]
		session++

		date := today.AddDate(0, 0, -offset).Format(dateLayout)
		duration := s.Duration + faker.Number(-5, 5)
		calories := s.Calories + faker.Number(-30, 30)

		w, err := CreateWorkout(db, userID, date, duration, calories)
		if err != nil {
			return created, fmt.Errorf("models: seed demo user: %w", err)
		}
		for _, ex := range s.Exercises {
			_, err := AddExercise(db, w.ID, ExerciseRecord{
				Type:     ex.Type,
				Name:     ex.Name,
				Sets:     ex.Sets,
				Reps:     ex.Reps,
				Duration: ex.Duration,
				Weight:   ex.Weight,
			})
			if err != nil {
				return created, fmt.Errorf("models: seed demo user: %w", err)
			}
		}
		created++
	}
	return created, nil
}
