package handlers

import (
	"encoding/gob"
	"errors"
	"net/http"
	"strconv"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/carpenike/fitrecs/internal/lifecycle"
	"github.com/carpenike/fitrecs/internal/middleware"
	"github.com/carpenike/fitrecs/internal/models"
	"github.com/carpenike/fitrecs/internal/recommend"
)

// lifecycleSessionKey is the session key holding a caller's lifecycle state.
const lifecycleSessionKey = "lifecycle"

// sessionState binds lifecycle state to the user it was built for, so a
// session reused by another credential starts clean.
type sessionState struct {
	UserID string
	State  lifecycle.State
}

func init() {
	gob.Register(sessionState{})
}

// Recommendations serves the recommendation lifecycle API.
type Recommendations struct {
	Manager  *lifecycle.Manager
	Sessions *scs.SessionManager
	Log      logrus.FieldLogger
}

func (h *Recommendations) load(r *http.Request, userID string) *lifecycle.State {
	ss, ok := h.Sessions.Get(r.Context(), lifecycleSessionKey).(sessionState)
	if !ok || ss.UserID != userID {
		return &lifecycle.State{}
	}
	return &ss.State
}

func (h *Recommendations) store(r *http.Request, userID string, st *lifecycle.State) {
	h.Sessions.Put(r.Context(), lifecycleSessionKey, sessionState{UserID: userID, State: *st})
}

// lifecycleError maps lifecycle and model errors to a status and message.
func lifecycleError(err error) (int, string) {
	switch {
	case errors.Is(err, lifecycle.ErrUnauthenticated):
		return http.StatusUnauthorized, "You must be logged in"
	case errors.Is(err, lifecycle.ErrRatingRequired):
		return http.StatusBadRequest, "Please provide a rating"
	case errors.Is(err, lifecycle.ErrRatingOutOfRange):
		return http.StatusBadRequest, "Rating must be between 1 and 5"
	case errors.Is(err, lifecycle.ErrNoCompletionOpen):
		return http.StatusConflict, "No completion in progress"
	case errors.Is(err, lifecycle.ErrExerciseIndex):
		return http.StatusBadRequest, "No exercise at that position"
	case errors.Is(err, lifecycle.ErrItemIndex):
		return http.StatusBadRequest, "No recommendation at that index"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "Recommendation not found"
	}
	return http.StatusInternalServerError, "Internal server error"
}

func (h *Recommendations) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := lifecycleError(err)
	entry := logger(h.Log).WithError(err).WithFields(logrus.Fields{
		"op":      op,
		"user_id": middleware.UserIDFromContext(r.Context()),
	})
	if status >= http.StatusInternalServerError {
		entry.Error("recommendation lifecycle")
	} else {
		entry.Debug("recommendation lifecycle")
	}
	writeError(w, status, msg)
}

// View returns the new list, the favorites and the open draft.
func (h *Recommendations) View(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	v, err := h.Manager.View(h.load(r, userID), userID)
	if err != nil {
		h.fail(w, r, "view", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Generate replaces the new list with a fresh generation.
func (h *Recommendations) Generate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	st := h.load(r, userID)

	if err := h.Manager.Generate(r.Context(), st, userID); err != nil {
		status, msg := recommend.Classify(err)
		logger(h.Log).WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"status":  status,
		}).Warn("generate recommendations failed")
		writeError(w, status, msg)
		return
	}
	h.store(r, userID, st)

	v, err := h.Manager.View(st, userID)
	if err != nil {
		h.fail(w, r, "generate", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type saveRequest struct {
	Index          *int                   `json:"index" validate:"omitempty,min=0"`
	Recommendation *models.Recommendation `json:"recommendation" validate:"omitempty"`
}

type favoritesResponse struct {
	Favorites []lifecycle.Item `json:"favorites"`
}

// Save stores a recommendation as a favorite, either one of the new list by
// index or one supplied in the body.
func (h *Recommendations) Save(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req saveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if (req.Index == nil) == (req.Recommendation == nil) {
		writeError(w, http.StatusBadRequest, "Provide exactly one of index or recommendation")
		return
	}

	var (
		favs []lifecycle.Item
		err  error
	)
	if req.Index != nil {
		favs, err = h.Manager.SaveNew(h.load(r, userID), userID, *req.Index)
	} else {
		favs, err = h.Manager.Save(userID, *req.Recommendation)
	}
	if err != nil {
		h.fail(w, r, "save", err)
		return
	}
	writeJSON(w, http.StatusCreated, favoritesResponse{Favorites: favs})
}

// Remove deletes one of the caller's favorites.
func (h *Recommendations) Remove(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	favs, err := h.Manager.Remove(userID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "remove", err)
		return
	}
	writeJSON(w, http.StatusOK, favoritesResponse{Favorites: favs})
}

// OpenCompletion starts a fresh completion draft for a favorite.
func (h *Recommendations) OpenCompletion(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	st := h.load(r, userID)

	d, err := h.Manager.OpenCompletion(st, userID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "open completion", err)
		return
	}
	h.store(r, userID, st)
	writeJSON(w, http.StatusOK, d)
}

type draftUpdateRequest struct {
	Rating *int    `json:"rating"`
	Notes  *string `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateCompletion edits the rating and notes of the open draft.
func (h *Recommendations) UpdateCompletion(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	st := h.load(r, userID)

	var req draftUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	d := st.Draft
	var err error
	if req.Rating != nil {
		if d, err = h.Manager.SetRating(st, *req.Rating); err != nil {
			h.fail(w, r, "set rating", err)
			return
		}
	}
	if req.Notes != nil {
		if d, err = h.Manager.SetNotes(st, *req.Notes); err != nil {
			h.fail(w, r, "set notes", err)
			return
		}
	}
	if d == nil {
		h.fail(w, r, "update completion", lifecycle.ErrNoCompletionOpen)
		return
	}
	h.store(r, userID, st)
	writeJSON(w, http.StatusOK, d)
}

// ToggleExercise flips the done flag of one exercise in the open draft.
func (h *Recommendations) ToggleExercise(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	st := h.load(r, userID)

	pos, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid exercise position")
		return
	}

	d, err := h.Manager.ToggleExercise(st, pos)
	if err != nil {
		h.fail(w, r, "toggle exercise", err)
		return
	}
	h.store(r, userID, st)
	writeJSON(w, http.StatusOK, d)
}

// SubmitCompletion stores the open draft as a completion.
func (h *Recommendations) SubmitCompletion(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	st := h.load(r, userID)

	c, err := h.Manager.SubmitCompletion(st, userID)
	if err != nil {
		h.fail(w, r, "submit completion", err)
		return
	}
	h.store(r, userID, st)
	writeJSON(w, http.StatusCreated, newCompletionResponse(c))
}
