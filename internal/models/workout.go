package models

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Query limits applied when collecting history for a generation request.
const (
	HistoryWorkoutLimit  = 10
	HistoryExerciseLimit = 20
)

// WorkoutRecord is one logged training session.
type WorkoutRecord struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	Date          string    `db:"workout_date"` // YYYY-MM-DD
	TotalDuration int       `db:"total_duration"`
	TotalCalories int       `db:"total_calories"`
	CreatedAt     time.Time `db:"created_at"`
}

// ExerciseRecord is one exercise within a workout. Strength work carries
// sets and reps; timed work carries a duration in minutes.
type ExerciseRecord struct {
	ID        string   `db:"id"`
	WorkoutID string   `db:"workout_id"`
	Type      string   `db:"type"`
	Name      string   `db:"name"`
	Sets      *int     `db:"sets"`
	Reps      *int     `db:"reps"`
	Duration  *int     `db:"duration"`
	Weight    *float64 `db:"weight"`
	Position  int      `db:"position"`
}

// CreateWorkout logs a workout for a user on a date.
func CreateWorkout(db *sqlx.DB, userID, date string, duration, calories int) (*WorkoutRecord, error) {
	w := &WorkoutRecord{
		ID:            newID(),
		UserID:        userID,
		Date:          normalizeDate(date),
		TotalDuration: duration,
		TotalCalories: calories,
		CreatedAt:     now(),
	}
	_, err := db.NamedExec(
		`INSERT INTO workouts (id, user_id, workout_date, total_duration, total_calories, created_at)
		 VALUES (:id, :user_id, :workout_date, :total_duration, :total_calories, :created_at)`, w)
	if err != nil {
		return nil, fmt.Errorf("models: create workout for user %s on %s: %w", userID, date, err)
	}
	return w, nil
}

// AddExercise appends an exercise to a workout. The exercise position is
// assigned from the current count.
func AddExercise(db *sqlx.DB, workoutID string, ex ExerciseRecord) (*ExerciseRecord, error) {
	var pos int
	if err := db.Get(&pos, db.Rebind(`SELECT COUNT(*) FROM exercises WHERE workout_id = ?`), workoutID); err != nil {
		return nil, fmt.Errorf("models: count exercises for workout %s: %w", workoutID, err)
	}

	ex.ID = newID()
	ex.WorkoutID = workoutID
	ex.Position = pos
	if ex.Type == "" {
		ex.Type = "strength"
	}

	_, err := db.NamedExec(
		`INSERT INTO exercises (id, workout_id, type, name, sets, reps, duration, weight, position)
		 VALUES (:id, :workout_id, :type, :name, :sets, :reps, :duration, :weight, :position)`, &ex)
	if err != nil {
		return nil, fmt.Errorf("models: add exercise %q to workout %s: %w", ex.Name, workoutID, err)
	}
	return &ex, nil
}

// RecentWorkouts returns up to limit workouts for a user, newest first.
func RecentWorkouts(db *sqlx.DB, userID string, limit int) ([]*WorkoutRecord, error) {
	if limit <= 0 {
		limit = HistoryWorkoutLimit
	}

	var workouts []*WorkoutRecord
	err := db.Select(&workouts, db.Rebind(
		`SELECT id, user_id, workout_date, total_duration, total_calories, created_at
		 FROM workouts WHERE user_id = ?
		 ORDER BY workout_date DESC, created_at DESC
		 LIMIT ?`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("models: recent workouts for user %s: %w", userID, err)
	}
	for _, w := range workouts {
		w.Date = normalizeDate(w.Date)
	}
	return workouts, nil
}

// RecentExercises returns up to limit exercises belonging to the given
// workouts, newest workout first and in logged order within a workout.
func RecentExercises(db *sqlx.DB, workoutIDs []string, limit int) ([]*ExerciseRecord, error) {
	if len(workoutIDs) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = HistoryExerciseLimit
	}

	query, args, err := sqlx.In(
		`SELECT e.id, e.workout_id, e.type, e.name, e.sets, e.reps, e.duration, e.weight, e.position
		 FROM exercises e
		 JOIN workouts w ON w.id = e.workout_id
		 WHERE e.workout_id IN (?)
		 ORDER BY w.workout_date DESC, w.created_at DESC, e.position
		 LIMIT ?`, workoutIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("models: build recent exercises query: %w", err)
	}

	var exercises []*ExerciseRecord
	if err := db.Select(&exercises, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("models: recent exercises: %w", err)
	}
	return exercises, nil
}

// WorkoutDatesSince returns the distinct workout dates for a user on or
// after since (YYYY-MM-DD), newest first.
func WorkoutDatesSince(db *sqlx.DB, userID, since string) ([]string, error) {
	var dates []string
	err := db.Select(&dates, db.Rebind(
		`SELECT DISTINCT workout_date FROM workouts
		 WHERE user_id = ? AND workout_date >= ?
		 ORDER BY workout_date DESC`), userID, since)
	if err != nil {
		return nil, fmt.Errorf("models: workout dates for user %s: %w", userID, err)
	}
	for i := range dates {
		dates[i] = normalizeDate(dates[i])
	}
	return dates, nil
}

// WeekTotals sums duration and calories for a user's workouts in [from, to].
func WeekTotals(db *sqlx.DB, userID, from, to string) (workouts, minutes, calories int, err error) {
	row := db.QueryRowx(db.Rebind(
		`SELECT COUNT(*), COALESCE(SUM(total_duration), 0), COALESCE(SUM(total_calories), 0)
		 FROM workouts WHERE user_id = ? AND workout_date >= ? AND workout_date <= ?`),
		userID, from, to)
	if err = row.Scan(&workouts, &minutes, &calories); err != nil {
		return 0, 0, 0, fmt.Errorf("models: week totals for user %s: %w", userID, err)
	}
	return workouts, minutes, calories, nil
}
