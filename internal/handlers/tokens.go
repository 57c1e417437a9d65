package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/carpenike/fitrecs/internal/middleware"
	"github.com/carpenike/fitrecs/internal/models"
)

// Tokens manages the caller's API tokens.
type Tokens struct {
	DB     *sqlx.DB
	Hasher *models.TokenHasher
	Log    logrus.FieldLogger
}

type tokenResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Active     bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
	Token      string     `json:"token,omitempty"`
}

func newTokenResponse(t *models.APIToken) tokenResponse {
	resp := tokenResponse{
		ID:        t.ID,
		Name:      t.Name,
		Active:    t.Active && !t.IsExpired(),
		CreatedAt: t.CreatedAt,
	}
	if t.LastUsedAt.Valid {
		ts := t.LastUsedAt.Time
		resp.LastUsedAt = &ts
	}
	if t.ExpiresAt.Valid {
		ts := t.ExpiresAt.Time
		resp.ExpiresAt = &ts
	}
	return resp
}

type createTokenRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	ExpiresInDays int    `json:"expires_in_days" validate:"min=0,max=3650"`
}

// Create issues a token. The plaintext is in this response only.
func (h *Tokens) Create(w http.ResponseWriter, r *http.Request) {
	var req createTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, plaintext, err := models.CreateAPIToken(h.DB, h.Hasher,
		middleware.UserIDFromContext(r.Context()), req.Name, req.ExpiresInDays)
	if err != nil {
		serverError(w, logger(h.Log), "create api token", err)
		return
	}
	resp := newTokenResponse(t)
	resp.Token = plaintext
	writeJSON(w, http.StatusCreated, resp)
}

// List returns the caller's tokens without secrets.
func (h *Tokens) List(w http.ResponseWriter, r *http.Request) {
	tokens, err := models.ListAPITokens(h.DB, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		serverError(w, logger(h.Log), "list api tokens", err)
		return
	}
	out := make([]tokenResponse, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, newTokenResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": out})
}

// Revoke deactivates a token but keeps its row.
func (h *Tokens) Revoke(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "revoke api token", models.RevokeAPIToken)
}

// Delete removes a token.
func (h *Tokens) Delete(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "delete api token", models.DeleteAPIToken)
}

func (h *Tokens) mutate(w http.ResponseWriter, r *http.Request, op string, fn func(*sqlx.DB, string, string) error) {
	err := fn(h.DB, middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Token not found")
		return
	}
	if err != nil {
		serverError(w, logger(h.Log), op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
