package recommend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/carpenike/fitrecs/internal/models"
)

// Placeholders substituted when a user has no history.
const (
	NoWorkoutHistory  = "No workout history"
	NoExerciseDetails = "No exercise details"
	GoalsNotSpecified = "Not specified"
)

// ErrProfileFetch marks a failure to load the user's profile. It is the only
// history lookup that aborts a generation request.
var ErrProfileFetch = errors.New("recommend: fetch user profile")

// History is the per-user training context sent to the model.
type History struct {
	Profile   *models.Profile
	Workouts  []*models.WorkoutRecord
	Exercises []*models.ExerciseRecord
}

// LoadHistory fetches the profile, the most recent workouts and the
// exercises belonging to them. Workout and exercise lookups that fail are
// logged and treated as empty.
func LoadHistory(db *sqlx.DB, userID string, log logrus.FieldLogger) (*History, error) {
	profile, err := models.GetProfile(db, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileFetch, err)
	}

	h := &History{Profile: profile}

	h.Workouts, err = models.RecentWorkouts(db, userID, models.HistoryWorkoutLimit)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("workouts fetch failed, continuing without history")
		h.Workouts = nil
		return h, nil
	}

	ids := make([]string, 0, len(h.Workouts))
	for _, w := range h.Workouts {
		ids = append(ids, w.ID)
	}
	h.Exercises, err = models.RecentExercises(db, ids, models.HistoryExerciseLimit)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("exercises fetch failed, continuing without details")
		h.Exercises = nil
	}
	return h, nil
}

// Goals returns the profile goals or the "not specified" placeholder.
func (h *History) Goals() string {
	if h.Profile == nil || !h.Profile.FitnessGoals.Valid || strings.TrimSpace(h.Profile.FitnessGoals.String) == "" {
		return GoalsNotSpecified
	}
	return h.Profile.FitnessGoals.String
}

// WorkoutBlock renders one line per workout, newest first.
func (h *History) WorkoutBlock() string {
	if len(h.Workouts) == 0 {
		return NoWorkoutHistory
	}
	lines := make([]string, 0, len(h.Workouts))
	for _, w := range h.Workouts {
		lines = append(lines, fmt.Sprintf("Date: %s, Duration: %dmin, Calories: %d", w.Date, w.TotalDuration, w.TotalCalories))
	}
	return strings.Join(lines, "\n")
}

// ExerciseBlock renders one line per exercise.
func (h *History) ExerciseBlock() string {
	if len(h.Exercises) == 0 {
		return NoExerciseDetails
	}
	lines := make([]string, 0, len(h.Exercises))
	for _, e := range h.Exercises {
		lines = append(lines, FormatExercise(e))
	}
	return strings.Join(lines, "\n")
}

// FormatExercise renders "Name (type): SxR", or "Name (type): Nmin" when
// the exercise has no sets.
func FormatExercise(e *models.ExerciseRecord) string {
	if e.Sets != nil && *e.Sets > 0 {
		return fmt.Sprintf("%s (%s): %dx%d", e.Name, e.Type, *e.Sets, deref(e.Reps))
	}
	return fmt.Sprintf("%s (%s): %dmin", e.Name, e.Type, deref(e.Duration))
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
