package models

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Dashboard is the activity summary shown on a user's home screen.
type Dashboard struct {
	CurrentStreak   int             `json:"current_streak"`
	LongestStreak   int             `json:"longest_streak"`
	WeekWorkouts    int             `json:"week_workouts"`
	WeekMinutes     int             `json:"week_minutes"`
	WeekCalories    int             `json:"week_calories"`
	AverageRating   float64         `json:"average_rating"`
	CompletionCount int             `json:"completion_count"`
	Weeks           []*WeeklyStreak `json:"weeks"`
}

// streakLookbackDays bounds how far back the streak calculation reads.
const streakLookbackDays = 365

// BuildDashboard assembles the dashboard for userID as of today.
func BuildDashboard(db *sqlx.DB, userID string, today time.Time) (*Dashboard, error) {
	today = today.UTC()
	d := &Dashboard{}

	since := today.AddDate(0, 0, -streakLookbackDays).Format(dateLayout)
	dates, err := WorkoutDatesSince(db, userID, since)
	if err != nil {
		return nil, fmt.Errorf("models: build dashboard: %w", err)
	}
	d.CurrentStreak, d.LongestStreak = ComputeStreaks(dates, today)

	monday := mondayOf(today)
	d.WeekWorkouts, d.WeekMinutes, d.WeekCalories, err = WeekTotals(db, userID,
		monday.Format(dateLayout), monday.AddDate(0, 0, 6).Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("models: build dashboard: %w", err)
	}

	d.AverageRating, d.CompletionCount, err = AverageRating(db, userID)
	if err != nil {
		return nil, fmt.Errorf("models: build dashboard: %w", err)
	}

	d.Weeks, err = WeeklyStreaks(db, userID, 8, DefaultWeeklyTarget, today)
	if err != nil {
		return nil, fmt.Errorf("models: build dashboard: %w", err)
	}
	return d, nil
}
