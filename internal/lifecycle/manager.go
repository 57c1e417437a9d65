// Package lifecycle drives a recommendation from generation through saving
// to completion feedback.
package lifecycle

//go:generate mockgen -source=manager.go -destination=mock_deps_test.go -package=lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/carpenike/fitrecs/internal/models"
	"github.com/carpenike/fitrecs/internal/recommend"
)

// Validation and state errors.
var (
	ErrUnauthenticated  = errors.New("lifecycle: you must be logged in")
	ErrRatingRequired   = errors.New("lifecycle: please provide a rating")
	ErrRatingOutOfRange = errors.New("lifecycle: rating must be between 1 and 5")
	ErrNoCompletionOpen = errors.New("lifecycle: no completion in progress")
	ErrExerciseIndex    = errors.New("lifecycle: no exercise at that position")
	ErrItemIndex        = errors.New("lifecycle: no recommendation at that index")
)

// Generator produces recommendations for a user.
type Generator interface {
	Generate(ctx context.Context, userID string) (*recommend.Result, error)
}

// Notifier broadcasts a short message. Implementations must not block.
type Notifier interface {
	Notify(title, message string)
}

// CompletionObserver is told about each stored completion.
type CompletionObserver interface {
	ObserveCompletion(rating int)
}

// Manager implements the lifecycle operations. State is passed in by the
// caller and mutated in place; persistence goes through DB.
type Manager struct {
	DB        *sqlx.DB
	Generator Generator
	Notifier  Notifier
	Observer  CompletionObserver
	Log       logrus.FieldLogger
}

func (m *Manager) logger() logrus.FieldLogger {
	if m.Log == nil {
		return logrus.StandardLogger()
	}
	return m.Log
}

// Generate runs a generation and replaces the whole "new" list on success.
// On failure st is left untouched.
func (m *Manager) Generate(ctx context.Context, st *State, userID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	res, err := m.Generator.Generate(ctx, userID)
	if err != nil {
		return err
	}

	items := make([]Item, 0, len(res.Recommendations))
	for _, rec := range res.Recommendations {
		items = append(items, ephemeralItem(rec))
	}
	st.New = items
	return nil
}

// Favorites returns the user's saved recommendations, newest first.
func (m *Manager) Favorites(userID string) ([]Item, error) {
	saved, err := models.ListSavedRecommendations(m.DB, userID)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: list favorites: %w", err)
	}
	items := make([]Item, 0, len(saved))
	for _, s := range saved {
		items = append(items, savedItem(s))
	}
	return items, nil
}

// View assembles both lists and the open draft.
func (m *Manager) View(st *State, userID string) (*View, error) {
	favs, err := m.Favorites(userID)
	if err != nil {
		return nil, err
	}
	v := &View{New: st.New, Favorites: favs, Draft: st.Draft}
	if v.New == nil {
		v.New = []Item{}
	}
	return v, nil
}

// Save persists a copy of rec and returns the refreshed favorites list.
// Identical content may be saved any number of times.
func (m *Manager) Save(userID string, rec models.Recommendation) ([]Item, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if _, err := models.SaveRecommendation(m.DB, userID, rec); err != nil {
		return nil, fmt.Errorf("lifecycle: save: %w", err)
	}
	return m.Favorites(userID)
}

// SaveNew saves the index-th item of the "new" list. The item stays in the
// list.
func (m *Manager) SaveNew(st *State, userID string, index int) ([]Item, error) {
	if index < 0 || index >= len(st.New) {
		return nil, ErrItemIndex
	}
	return m.Save(userID, st.New[index].Recommendation)
}

// Remove hard-deletes a favorite and returns the refreshed list.
func (m *Manager) Remove(userID, savedID string) ([]Item, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if err := models.DeleteSavedRecommendation(m.DB, userID, savedID); err != nil {
		return nil, err
	}
	return m.Favorites(userID)
}

// OpenCompletion starts a fresh completion draft for a saved recommendation,
// discarding any draft already open.
func (m *Manager) OpenCompletion(st *State, userID, savedID string) (*Draft, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	saved, err := models.GetSavedRecommendation(m.DB, userID, savedID)
	if err != nil {
		return nil, err
	}

	d := &Draft{
		RecommendationID: saved.ID,
		Title:            saved.Title,
		Exercises:        make([]DraftExercise, 0, len(saved.Exercises)),
	}
	for i, ex := range saved.Exercises {
		d.Exercises = append(d.Exercises, DraftExercise{Position: i, Name: ex.Name})
	}
	st.Draft = d
	return d, nil
}

// ToggleExercise flips the completion mark of the exercise at position.
func (m *Manager) ToggleExercise(st *State, position int) (*Draft, error) {
	if st.Draft == nil {
		return nil, ErrNoCompletionOpen
	}
	if position < 0 || position >= len(st.Draft.Exercises) {
		return nil, ErrExerciseIndex
	}
	st.Draft.Exercises[position].Done = !st.Draft.Exercises[position].Done
	return st.Draft, nil
}

// SetRating sets the draft's star rating.
func (m *Manager) SetRating(st *State, rating int) (*Draft, error) {
	if st.Draft == nil {
		return nil, ErrNoCompletionOpen
	}
	if rating < 1 || rating > 5 {
		return nil, ErrRatingOutOfRange
	}
	st.Draft.Rating = rating
	return st.Draft, nil
}

// SetNotes sets the draft's free-text notes.
func (m *Manager) SetNotes(st *State, notes string) (*Draft, error) {
	if st.Draft == nil {
		return nil, ErrNoCompletionOpen
	}
	st.Draft.Notes = notes
	return st.Draft, nil
}

// SubmitCompletion stores the draft as a completion. The draft is cleared on
// success and kept on failure so the caller can retry.
func (m *Manager) SubmitCompletion(st *State, userID string) (*models.Completion, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	d := st.Draft
	if d == nil {
		return nil, ErrNoCompletionOpen
	}
	if d.Rating < 1 {
		return nil, ErrRatingRequired
	}
	if d.Rating > 5 {
		return nil, ErrRatingOutOfRange
	}

	c, err := models.CreateCompletion(m.DB, userID, d.RecommendationID, d.Rating, strings.TrimSpace(d.Notes), d.Completed())
	if err != nil {
		return nil, fmt.Errorf("lifecycle: submit completion: %w", err)
	}
	st.Draft = nil
	c.Recommendation = &models.SavedRecommendation{
		ID:             d.RecommendationID,
		UserID:         userID,
		Recommendation: models.Recommendation{Title: d.Title},
	}

	if m.Observer != nil {
		m.Observer.ObserveCompletion(c.Rating)
	}
	if m.Notifier != nil {
		m.Notifier.Notify("Workout completed",
			fmt.Sprintf("%q completed with a %d/5 rating (%d/%d exercises) at %s",
				d.Title, c.Rating, len(c.Exercises), len(d.Exercises), c.CompletedAt.Format(time.RFC3339)))
	}
	m.logger().WithFields(logrus.Fields{
		"user_id":           userID,
		"recommendation_id": d.RecommendationID,
		"rating":            c.Rating,
	}).Info("completion submitted")
	return c, nil
}
