package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/carpenike/fitrecs/internal/llm"
	"github.com/carpenike/fitrecs/internal/recommend"
	"github.com/carpenike/fitrecs/internal/scheduler"
)

// NotifyTester sends a synchronous test notification.
type NotifyTester interface {
	Enabled() bool
	TestConnection() error
}

// System serves health and diagnostics endpoints.
type System struct {
	DB        *sqlx.DB
	Providers recommend.ProviderFactory
	Scheduler *scheduler.Scheduler
	Notifier  NotifyTester
	Log       logrus.FieldLogger
}

type healthResponse struct {
	Status      string            `json:"status"`
	Database    string            `json:"database"`
	Maintenance *scheduler.Status `json:"maintenance,omitempty"`
}

// Health reports process and database liveness.
func (h *System) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "ok"}
	if h.Scheduler != nil {
		st := h.Scheduler.Status()
		resp.Maintenance = &st
	}
	if err := h.DB.PingContext(ctx); err != nil {
		logger(h.Log).WithError(err).Warn("health: database ping failed")
		resp.Status, resp.Database = "degraded", "unreachable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type pingResponse struct {
	Provider string `json:"provider"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// PingLLM checks connectivity to the configured model provider.
func (h *System) PingLLM(w http.ResponseWriter, r *http.Request) {
	p, err := h.Providers()
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "AI provider is not configured")
			return
		}
		serverError(w, logger(h.Log), "create llm provider", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		logger(h.Log).WithError(err).WithField("provider", p.Name()).Warn("llm ping failed")
		msg := "Provider unreachable"
		if apiErr, ok := llm.AsAPIError(err); ok {
			msg = apiErr.UserMessage()
		}
		writeJSON(w, http.StatusBadGateway, pingResponse{Provider: p.Name(), Error: msg})
		return
	}
	writeJSON(w, http.StatusOK, pingResponse{Provider: p.Name(), OK: true})
}

// TestNotifications sends a test message to every broadcast URL.
func (h *System) TestNotifications(w http.ResponseWriter, r *http.Request) {
	if h.Notifier == nil || !h.Notifier.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "Notifications are not configured")
		return
	}
	if err := h.Notifier.TestConnection(); err != nil {
		logger(h.Log).WithError(err).Warn("notification test failed")
		writeError(w, http.StatusBadGateway, "Notification test failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
