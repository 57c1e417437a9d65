package models

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/carpenike/fitrecs/internal/importers"
)

// ImportResult summarizes what a history import wrote.
type ImportResult struct {
	Format           importers.Format `json:"format"`
	WorkoutsCreated  int              `json:"workouts_created"`
	WorkoutsSkipped  int              `json:"workouts_skipped"`
	ExercisesCreated int              `json:"exercises_created"`
}

// ImportWorkouts writes parsed workouts for userID in a single transaction.
// A date that already has a workout for the user is skipped, so importing
// the same export twice is a no-op.
func ImportWorkouts(db *sqlx.DB, userID string, pf *importers.ParsedFile) (*ImportResult, error) {
	result := &ImportResult{Format: pf.Format}

	tx, err := db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("models: begin import tx: %w", err)
	}
	defer tx.Rollback()

	for _, pw := range pf.Workouts {
		exists, err := workoutExistsTx(tx, userID, pw.Date)
		if err != nil {
			return nil, fmt.Errorf("models: import check workout %s: %w", pw.Date, err)
		}
		summaries := pw.Exercises()
		if exists || len(summaries) == 0 {
			result.WorkoutsSkipped++
			continue
		}

		w := &WorkoutRecord{
			ID:            newID(),
			UserID:        userID,
			Date:          pw.Date,
			TotalDuration: pw.Duration,
			CreatedAt:     now(),
		}
		if _, err := tx.NamedExec(
			`INSERT INTO workouts (id, user_id, workout_date, total_duration, total_calories, created_at)
			 VALUES (:id, :user_id, :workout_date, :total_duration, :total_calories, :created_at)`, w); err != nil {
			return nil, fmt.Errorf("models: import workout %s: %w", pw.Date, err)
		}
		result.WorkoutsCreated++

		for i, es := range summaries {
			ex := &ExerciseRecord{
				ID:        newID(),
				WorkoutID: w.ID,
				Type:      es.Type,
				Name:      es.Name,
				Sets:      es.Sets,
				Reps:      es.Reps,
				Duration:  es.Duration,
				Weight:    es.Weight,
				Position:  i,
			}
			if _, err := tx.NamedExec(
				`INSERT INTO exercises (id, workout_id, type, name, sets, reps, duration, weight, position)
				 VALUES (:id, :workout_id, :type, :name, :sets, :reps, :duration, :weight, :position)`, ex); err != nil {
				return nil, fmt.Errorf("models: import exercise %q on %s: %w", es.Name, pw.Date, err)
			}
			result.ExercisesCreated++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("models: commit import: %w", err)
	}
	return result, nil
}

func workoutExistsTx(tx *sqlx.Tx, userID, date string) (bool, error) {
	var id string
	err := tx.Get(&id, tx.Rebind(`SELECT id FROM workouts WHERE user_id = ? AND workout_date = ? LIMIT 1`), userID, date)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
