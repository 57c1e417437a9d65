package models

import (
	"testing"

	"github.com/carpenike/fitrecs/internal/importers"
)

func TestImportWorkouts(t *testing.T) {
	db := testDB(t)
	seedProfile(t, db, "u1")

	w := 100.0
	pf := &importers.ParsedFile{
		Format: importers.FormatStrongCSV,
		Workouts: []importers.ParsedWorkout{
			{Date: "2026-03-01", Duration: 45, Sets: []importers.ParsedSet{
				{Exercise: "Squat", Reps: 5, Weight: &w},
				{Exercise: "Squat", Reps: 5, Weight: &w},
				{Exercise: "Plank", Seconds: 90},
			}},
			{Date: "2026-03-02", Sets: []importers.ParsedSet{
				{Exercise: "Squat", Reps: 10, Warmup: true},
			}},
		},
	}

	res, err := ImportWorkouts(db, "u1", pf)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.WorkoutsCreated != 1 || res.WorkoutsSkipped != 1 || res.ExercisesCreated != 2 {
		t.Errorf("result = %+v, want 1 created, 1 skipped, 2 exercises", res)
	}

	workouts, err := RecentWorkouts(db, "u1", HistoryWorkoutLimit)
	if err != nil {
		t.Fatalf("recent workouts: %v", err)
	}
	if len(workouts) != 1 || workouts[0].TotalDuration != 45 {
		t.Fatalf("workouts = %+v, want one 45 minute workout", workouts)
	}

	exs, err := RecentExercises(db, []string{workouts[0].ID}, HistoryExerciseLimit)
	if err != nil {
		t.Fatalf("recent exercises: %v", err)
	}
	if len(exs) != 2 {
		t.Fatalf("exercises = %d, want 2", len(exs))
	}
	byName := map[string]*ExerciseRecord{}
	for _, e := range exs {
		byName[e.Name] = e
	}
	if sq := byName["Squat"]; sq == nil || *sq.Sets != 2 || *sq.Reps != 5 || *sq.Weight != 100 {
		t.Errorf("squat = %+v, want 2x5 at 100", sq)
	}
	if pl := byName["Plank"]; pl == nil || pl.Type != "timed" || *pl.Duration != 2 {
		t.Errorf("plank = %+v, want timed 2min", pl)
	}
}

func TestImportWorkouts_SkipsExistingDates(t *testing.T) {
	db := testDB(t)
	seedProfile(t, db, "u1")

	if _, err := CreateWorkout(db, "u1", "2026-03-01", 30, 200); err != nil {
		t.Fatalf("create workout: %v", err)
	}

	pf := &importers.ParsedFile{Workouts: []importers.ParsedWorkout{
		{Date: "2026-03-01", Sets: []importers.ParsedSet{{Exercise: "Row", Reps: 8}}},
		{Date: "2026-03-03", Sets: []importers.ParsedSet{{Exercise: "Row", Reps: 8}}},
	}}

	res, err := ImportWorkouts(db, "u1", pf)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.WorkoutsCreated != 1 || res.WorkoutsSkipped != 1 {
		t.Errorf("result = %+v, want 1 created and 1 skipped", res)
	}

	again, err := ImportWorkouts(db, "u1", pf)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if again.WorkoutsCreated != 0 || again.WorkoutsSkipped != 2 {
		t.Errorf("second import = %+v, want all skipped", again)
	}
}

func TestImportWorkouts_UnknownUserRollsBack(t *testing.T) {
	db := testDB(t)
	seedProfile(t, db, "u1")

	pf := &importers.ParsedFile{Workouts: []importers.ParsedWorkout{
		{Date: "2026-03-01", Sets: []importers.ParsedSet{{Exercise: "Row", Reps: 8}}},
	}}
	if _, err := ImportWorkouts(db, "ghost", pf); err == nil {
		t.Fatal("expected foreign key error for unknown user")
	}

	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM workouts`); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("workouts = %d, want 0 after rollback", n)
	}
}
