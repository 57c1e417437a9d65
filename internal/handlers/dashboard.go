package handlers

import (
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/carpenike/fitrecs/internal/middleware"
	"github.com/carpenike/fitrecs/internal/models"
)

// Dashboard serves streaks and weekly totals.
type Dashboard struct {
	DB    *sqlx.DB
	Clock func() time.Time
	Log   logrus.FieldLogger
}

func (h *Dashboard) Show(w http.ResponseWriter, r *http.Request) {
	now := time.Now
	if h.Clock != nil {
		now = h.Clock
	}
	d, err := models.BuildDashboard(h.DB, middleware.UserIDFromContext(r.Context()), now())
	if err != nil {
		serverError(w, logger(h.Log), "build dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
