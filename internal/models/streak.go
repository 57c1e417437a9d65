package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
)

const dateLayout = "2006-01-02"

// DefaultWeeklyTarget is the number of workout days per week that counts a
// week as complete.
const DefaultWeeklyTarget = 3

// WeeklyStreak represents one week's workout activity for a user.
type WeeklyStreak struct {
	WeekStart   string `json:"week_start"` // Monday date (YYYY-MM-DD)
	WeekEnd     string `json:"week_end"`   // Sunday date (YYYY-MM-DD)
	WorkoutDays int    `json:"workout_days"`
	Target      int    `json:"target"`
}

// Status returns a classification for display: "complete", "partial", "missed", or "none".
func (ws *WeeklyStreak) Status() string {
	if ws.Target == 0 {
		return "none"
	}
	if ws.WorkoutDays >= ws.Target {
		return "complete"
	}
	if ws.WorkoutDays > 0 {
		return "partial"
	}
	return "missed"
}

// Label returns a short display label (e.g., "2/3").
func (ws *WeeklyStreak) Label() string {
	if ws.Target == 0 {
		return "—"
	}
	return fmt.Sprintf("%d/%d", ws.WorkoutDays, ws.Target)
}

// mondayOf returns the Monday (UTC midnight) of the week containing t.
func mondayOf(t time.Time) time.Time {
	weekday := t.Weekday()
	if weekday == time.Sunday {
		weekday = 7
	}
	m := t.AddDate(0, 0, -int(weekday-time.Monday))
	return time.Date(m.Year(), m.Month(), m.Day(), 0, 0, 0, 0, time.UTC)
}

// ComputeStreaks returns the current and longest run of consecutive workout
// days. The current streak counts only if the latest workout was today or
// yesterday. dates may be unsorted and contain duplicates.
func ComputeStreaks(dates []string, today time.Time) (current, longest int) {
	days := make([]time.Time, 0, len(dates))
	seen := make(map[string]bool, len(dates))
	for _, s := range dates {
		s = normalizeDate(s)
		if seen[s] {
			continue
		}
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			continue
		}
		seen[s] = true
		days = append(days, d)
	}
	if len(days) == 0 {
		return 0, 0
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	run := 1
	longest = 1
	for i := 1; i < len(days); i++ {
		if days[i-1].Sub(days[i]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	todayDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	gap := todayDate.Sub(days[0])
	if gap < 0 || gap > 24*time.Hour {
		return 0, longest
	}
	current = 1
	for i := 1; i < len(days); i++ {
		if days[i-1].Sub(days[i]) != 24*time.Hour {
			break
		}
		current++
	}
	return current, longest
}

// WeeklyStreaks returns workout-day counts for the last `weeks` weeks for a
// user. Each week runs Monday–Sunday. The current (possibly incomplete) week
// is included.
func WeeklyStreaks(db *sqlx.DB, userID string, weeks, target int, today time.Time) ([]*WeeklyStreak, error) {
	if weeks <= 0 {
		weeks = 8
	}
	if target <= 0 {
		target = DefaultWeeklyTarget
	}

	monday := mondayOf(today)
	startMonday := monday.AddDate(0, 0, -(weeks-1)*7)

	streaks := make([]*WeeklyStreak, weeks)
	for i := 0; i < weeks; i++ {
		weekStart := startMonday.AddDate(0, 0, i*7)
		streaks[i] = &WeeklyStreak{
			WeekStart: weekStart.Format(dateLayout),
			WeekEnd:   weekStart.AddDate(0, 0, 6).Format(dateLayout),
			Target:    target,
		}
	}

	dates, err := WorkoutDatesSince(db, userID, startMonday.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("models: weekly streaks: %w", err)
	}

	for _, s := range dates {
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			continue
		}
		weekIdx := int(d.Sub(startMonday).Hours()/24) / 7
		if weekIdx < 0 || weekIdx >= weeks {
			continue
		}
		streaks[weekIdx].WorkoutDays++
	}

	return streaks, nil
}
