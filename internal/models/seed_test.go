package models

import (
	"testing"
	"time"
)

func TestSeedDemoUser(t *testing.T) {
	db := testDB(t)
	today := time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)

	n, err := SeedDemoUser(db, "demo", 21, today, 42)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n == 0 || n > 21 {
		t.Fatalf("created = %d, want 1..21", n)
	}

	p, err := GetProfile(db, "demo")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if !ValidLevel(p.FitnessLevel) {
		t.Errorf("level = %q", p.FitnessLevel)
	}

	workouts, err := RecentWorkouts(db, "demo", HistoryWorkoutLimit)
	if err != nil {
		t.Fatalf("recent workouts: %v", err)
	}
	want := n
	if want > HistoryWorkoutLimit {
		want = HistoryWorkoutLimit
	}
	if len(workouts) != want {
		t.Errorf("workouts = %d, want %d", len(workouts), want)
	}

	var ids []string
	for _, w := range workouts {
		ids = append(ids, w.ID)
	}
	exs, err := RecentExercises(db, ids, HistoryExerciseLimit)
	if err != nil {
		t.Fatalf("recent exercises: %v", err)
	}
	if len(exs) == 0 {
		t.Error("expected seeded exercises")
	}
}
