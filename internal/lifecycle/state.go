package lifecycle

import (
	"time"

	"github.com/carpenike/fitrecs/internal/models"
)

// Kind tags a recommendation item.
type Kind string

const (
	// Ephemeral items were just generated and live only in the caller's
	// session.
	Ephemeral Kind = "ephemeral"
	// Saved items are persisted favorites.
	Saved Kind = "saved"
)

// Item is a recommendation in one of the two lists. SavedID and SavedAt are
// set only for Saved items.
type Item struct {
	Kind    Kind       `json:"kind"`
	SavedID string     `json:"id,omitempty"`
	SavedAt *time.Time `json:"saved_at,omitempty"`
	models.Recommendation
}

func ephemeralItem(rec models.Recommendation) Item {
	return Item{Kind: Ephemeral, Recommendation: rec}
}

func savedItem(s *models.SavedRecommendation) Item {
	at := s.SavedAt
	return Item{Kind: Saved, SavedID: s.ID, SavedAt: &at, Recommendation: s.Recommendation}
}

// DraftExercise is one row of the completion checklist. Position is the
// exercise's index in the plan, so duplicate names stay independent.
type DraftExercise struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	Done     bool   `json:"done"`
}

// Draft is the transient completion form for one saved recommendation.
type Draft struct {
	RecommendationID string          `json:"recommendation_id"`
	Title            string          `json:"title"`
	Exercises        []DraftExercise `json:"exercises"`
	Rating           int             `json:"rating"`
	Notes            string          `json:"notes"`
}

// Completed returns the checked exercises in plan order.
func (d *Draft) Completed() models.CompletedExercises {
	out := models.CompletedExercises{}
	for _, ex := range d.Exercises {
		if ex.Done {
			out = append(out, models.CompletedExercise{Position: ex.Position, Name: ex.Name})
		}
	}
	return out
}

// State is the per-caller lifecycle state kept between requests.
type State struct {
	New   []Item `json:"new"`
	Draft *Draft `json:"draft"`
}

// View is the full picture returned to clients.
type View struct {
	New       []Item `json:"new"`
	Favorites []Item `json:"favorites"`
	Draft     *Draft `json:"draft"`
}
