package models

import (
	"testing"
	"time"
)

func TestCreateCompletion_RatingRange(t *testing.T) {
	db := testDB(t)
	for _, r := range []int{0, 6, -1} {
		if _, err := CreateCompletion(db, "u1", "", r, "", nil); err == nil {
			t.Errorf("rating %d should be rejected", r)
		}
	}
	if _, err := CreateCompletion(db, "u1", "", 5, "", nil); err != nil {
		t.Errorf("rating 5: %v", err)
	}
}

func TestRecentCompletions_JoinAndOrphans(t *testing.T) {
	db := testDB(t)
	tickingClock(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	kept, _ := SaveRecommendation(db, "u1", sampleRecommendation("Kept"))
	gone, _ := SaveRecommendation(db, "u1", sampleRecommendation("Gone"))

	if _, err := CreateCompletion(db, "u1", gone.ID, 2, "too long", CompletedExercises{{Position: 0, Name: "Squat"}}); err != nil {
		t.Fatalf("create completion: %v", err)
	}
	if _, err := CreateCompletion(db, "u1", kept.ID, 5, "", CompletedExercises{{Position: 1, Name: "Plank"}}); err != nil {
		t.Fatalf("create completion: %v", err)
	}

	if err := DeleteSavedRecommendation(db, "u1", gone.ID); err != nil {
		t.Fatalf("delete parent: %v", err)
	}

	list, err := RecentCompletions(db, "u1", FeedbackLimit)
	if err != nil {
		t.Fatalf("recent completions: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("completions = %d, want 2", len(list))
	}

	newest := list[0]
	if newest.Rating != 5 || newest.Title() != "Kept" {
		t.Errorf("newest = rating %d title %q, want 5 Kept", newest.Rating, newest.Title())
	}
	if newest.Recommendation.Difficulty != LevelIntermediate {
		t.Errorf("joined difficulty = %q", newest.Recommendation.Difficulty)
	}
	if len(newest.Exercises) != 1 || newest.Exercises[0].Position != 1 {
		t.Errorf("completed exercises = %+v", newest.Exercises)
	}

	orphan := list[1]
	if orphan.Recommendation != nil {
		t.Errorf("orphan parent = %+v, want nil", orphan.Recommendation)
	}
	if orphan.RecommendationID.Valid {
		t.Error("orphan recommendation_id should be null after parent delete")
	}
	if orphan.Title() != "Unknown" {
		t.Errorf("orphan title = %q, want Unknown", orphan.Title())
	}
	if orphan.Notes.String != "too long" {
		t.Errorf("orphan notes = %q", orphan.Notes.String)
	}
}

func TestRecentCompletions_Limit(t *testing.T) {
	db := testDB(t)
	tickingClock(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	for i := 0; i < 12; i++ {
		CreateCompletion(db, "u1", "", 3, "", nil)
	}

	recent, err := RecentCompletions(db, "u1", FeedbackLimit)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 10 {
		t.Errorf("recent = %d, want 10", len(recent))
	}

	all, err := ListCompletions(db, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 12 {
		t.Errorf("all = %d, want 12", len(all))
	}
}

func TestAverageRating(t *testing.T) {
	db := testDB(t)

	avg, n, err := AverageRating(db, "u1")
	if err != nil {
		t.Fatalf("average (empty): %v", err)
	}
	if avg != 0 || n != 0 {
		t.Errorf("empty average = (%v, %d), want (0, 0)", avg, n)
	}

	CreateCompletion(db, "u1", "", 5, "", nil)
	CreateCompletion(db, "u1", "", 2, "", nil)

	avg, n, err = AverageRating(db, "u1")
	if err != nil {
		t.Fatalf("average: %v", err)
	}
	if avg != 3.5 || n != 2 {
		t.Errorf("average = (%v, %d), want (3.5, 2)", avg, n)
	}
}
