package models

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// FeedbackLimit is the number of recent completions folded into a
// generation request.
const FeedbackLimit = 10

// CompletedExercise identifies one checked exercise of a completed plan.
type CompletedExercise struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
}

// CompletedExercises is stored as a JSON array.
type CompletedExercises []CompletedExercise

// Value implements driver.Valuer.
func (c CompletedExercises) Value() (driver.Value, error) {
	return jsonValue(c)
}

// Scan implements sql.Scanner.
func (c *CompletedExercises) Scan(src any) error {
	return jsonScan(src, c)
}

// Completion is a feedback record for a performed recommendation. It is
// insert-only and outlives the saved recommendation it refers to.
type Completion struct {
	ID               string             `db:"id"`
	UserID           string             `db:"user_id"`
	RecommendationID sql.NullString     `db:"recommendation_id"`
	Rating           int                `db:"rating"`
	Notes            sql.NullString     `db:"notes"`
	Exercises        CompletedExercises `db:"completed_exercises"`
	CompletedAt      time.Time          `db:"completed_at"`

	// Recommendation is the parent favorite, or nil when it was deleted
	// or was not loaded.
	Recommendation *SavedRecommendation `db:"-"`
}

// Title returns the parent recommendation title, or "Unknown" when the
// parent is gone.
func (c *Completion) Title() string {
	if c.Recommendation == nil {
		return "Unknown"
	}
	return c.Recommendation.Title
}

// CreateCompletion inserts a completion. Rating must be in 1..5.
func CreateCompletion(db *sqlx.DB, userID, recommendationID string, rating int, notes string, exercises CompletedExercises) (*Completion, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("models: create completion: rating %d out of range", rating)
	}

	c := &Completion{
		ID:          newID(),
		UserID:      userID,
		Rating:      rating,
		Exercises:   exercises,
		CompletedAt: now(),
	}
	if recommendationID != "" {
		c.RecommendationID = sql.NullString{String: recommendationID, Valid: true}
	}
	if notes != "" {
		c.Notes = sql.NullString{String: notes, Valid: true}
	}
	if c.Exercises == nil {
		c.Exercises = CompletedExercises{}
	}

	_, err := db.NamedExec(
		`INSERT INTO recommendation_completions
		   (id, user_id, recommendation_id, rating, notes, completed_exercises, completed_at)
		 VALUES (:id, :user_id, :recommendation_id, :rating, :notes, :completed_exercises, :completed_at)`, c)
	if err != nil {
		return nil, fmt.Errorf("models: create completion for user %s: %w", userID, err)
	}
	return c, nil
}

// completionRow is the flat shape of a completion LEFT JOINed with its
// optional parent.
type completionRow struct {
	Completion
	ParentID         sql.NullString `db:"parent_id"`
	ParentTitle      sql.NullString `db:"parent_title"`
	ParentDifficulty sql.NullString `db:"parent_difficulty"`
	ParentDuration   sql.NullString `db:"parent_duration"`
	ParentSavedAt    sql.NullTime   `db:"parent_saved_at"`
}

func (r *completionRow) toCompletion() *Completion {
	c := r.Completion
	if r.ParentID.Valid {
		c.Recommendation = &SavedRecommendation{
			ID:     r.ParentID.String,
			UserID: c.UserID,
			Recommendation: Recommendation{
				Title:      r.ParentTitle.String,
				Difficulty: r.ParentDifficulty.String,
				Duration:   r.ParentDuration.String,
			},
			SavedAt: r.ParentSavedAt.Time,
		}
	}
	return &c
}

// RecentCompletions returns up to limit completions for a user, newest first,
// each with its parent recommendation when it still exists.
func RecentCompletions(db *sqlx.DB, userID string, limit int) ([]*Completion, error) {
	if limit <= 0 {
		limit = FeedbackLimit
	}
	return listCompletions(db, userID, limit)
}

// ListCompletions returns a user's full feedback history, newest first.
func ListCompletions(db *sqlx.DB, userID string) ([]*Completion, error) {
	return listCompletions(db, userID, -1)
}

func listCompletions(db *sqlx.DB, userID string, limit int) ([]*Completion, error) {
	query := `SELECT c.id, c.user_id, c.recommendation_id, c.rating, c.notes,
	                 c.completed_exercises, c.completed_at,
	                 s.id AS parent_id, s.title AS parent_title,
	                 s.difficulty AS parent_difficulty, s.duration AS parent_duration,
	                 s.saved_at AS parent_saved_at
	          FROM recommendation_completions c
	          LEFT JOIN saved_recommendations s ON s.id = c.recommendation_id
	          WHERE c.user_id = ?
	          ORDER BY c.completed_at DESC, c.id`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []*completionRow
	if err := db.Select(&rows, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("models: list completions for user %s: %w", userID, err)
	}

	completions := make([]*Completion, 0, len(rows))
	for _, r := range rows {
		completions = append(completions, r.toCompletion())
	}
	return completions, nil
}

// AverageRating returns the mean rating over all of a user's completions
// and how many there are.
func AverageRating(db *sqlx.DB, userID string) (float64, int, error) {
	var out struct {
		Avg   float64 `db:"avg_rating"`
		Count int     `db:"n"`
	}
	err := db.Get(&out, db.Rebind(
		`SELECT CAST(COALESCE(AVG(rating), 0) AS DOUBLE PRECISION) AS avg_rating, COUNT(*) AS n
		 FROM recommendation_completions WHERE user_id = ?`), userID)
	if err != nil {
		return 0, 0, fmt.Errorf("models: average rating for user %s: %w", userID, err)
	}
	return out.Avg, out.Count, nil
}
