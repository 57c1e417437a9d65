package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// RecommendedExercise is one exercise inside a recommended plan. Sets and
// reps are free text ("3-4", "30 seconds").
type RecommendedExercise struct {
	Name  string `json:"name" validate:"required"`
	Sets  string `json:"sets" validate:"required"`
	Reps  string `json:"reps" validate:"required"`
	Notes string `json:"notes,omitempty"`
}

// Recommendation is the content of a generated workout plan.
type Recommendation struct {
	Title       string       `json:"title" db:"title" validate:"required"`
	Description string       `json:"description" db:"description"`
	Duration    string       `json:"duration" db:"duration"`
	Difficulty  string       `json:"difficulty" db:"difficulty" validate:"oneof=beginner intermediate advanced"`
	Exercises   ExerciseList `json:"exercises" db:"exercises" validate:"dive"`
	Benefits    StringList   `json:"benefits" db:"benefits"`
}

// SavedRecommendation is a persisted favorite. Saved rows are never updated;
// saving identical content twice yields two rows.
type SavedRecommendation struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	Recommendation
	SavedAt time.Time `json:"saved_at" db:"saved_at"`
}

// ExerciseList is stored as a JSON array.
type ExerciseList []RecommendedExercise

// Value implements driver.Valuer.
func (l ExerciseList) Value() (driver.Value, error) {
	return jsonValue(l)
}

// Scan implements sql.Scanner.
func (l *ExerciseList) Scan(src any) error {
	return jsonScan(src, l)
}

// StringList is stored as a JSON array.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	return jsonValue(l)
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	return jsonScan(src, l)
}

func jsonValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return "[]", nil
	}
	return string(b), nil
}

func jsonScan(src any, dst any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return fmt.Errorf("models: cannot scan %T into JSON column", src)
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}

const savedColumns = `id, user_id, title, description, duration, difficulty, exercises, benefits, saved_at`

// SaveRecommendation stores a copy of rec as a new favorite for userID.
func SaveRecommendation(db *sqlx.DB, userID string, rec Recommendation) (*SavedRecommendation, error) {
	s := &SavedRecommendation{
		ID:             newID(),
		UserID:         userID,
		Recommendation: rec,
		SavedAt:        now(),
	}
	if s.Exercises == nil {
		s.Exercises = ExerciseList{}
	}
	if s.Benefits == nil {
		s.Benefits = StringList{}
	}

	_, err := db.NamedExec(
		`INSERT INTO saved_recommendations (`+savedColumns+`)
		 VALUES (:id, :user_id, :title, :description, :duration, :difficulty, :exercises, :benefits, :saved_at)`, s)
	if err != nil {
		return nil, fmt.Errorf("models: save recommendation for user %s: %w", userID, err)
	}
	return s, nil
}

// ListSavedRecommendations returns a user's favorites, most recently saved first.
func ListSavedRecommendations(db *sqlx.DB, userID string) ([]*SavedRecommendation, error) {
	var saved []*SavedRecommendation
	err := db.Select(&saved, db.Rebind(
		`SELECT `+savedColumns+` FROM saved_recommendations
		 WHERE user_id = ? ORDER BY saved_at DESC, id`), userID)
	if err != nil {
		return nil, fmt.Errorf("models: list saved recommendations for user %s: %w", userID, err)
	}
	return saved, nil
}

// GetSavedRecommendation retrieves a favorite owned by userID. Returns
// ErrNotFound when it does not exist or belongs to another user.
func GetSavedRecommendation(db *sqlx.DB, userID, id string) (*SavedRecommendation, error) {
	s := &SavedRecommendation{}
	err := db.Get(s, db.Rebind(
		`SELECT `+savedColumns+` FROM saved_recommendations WHERE id = ? AND user_id = ?`), id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("models: get saved recommendation %s: %w", id, err)
	}
	return s, nil
}

// DeleteSavedRecommendation hard-deletes a favorite owned by userID.
// Completions that referenced it keep their row with a null reference.
func DeleteSavedRecommendation(db *sqlx.DB, userID, id string) error {
	result, err := db.Exec(db.Rebind(
		`DELETE FROM saved_recommendations WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return fmt.Errorf("models: delete saved recommendation %s: %w", id, err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
