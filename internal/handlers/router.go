package handlers

import (
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/carpenike/fitrecs/internal/metrics"
	"github.com/carpenike/fitrecs/internal/middleware"
)

// RouterDeps are the collaborators the HTTP surface is built from.
type RouterDeps struct {
	Sessions *scs.SessionManager
	Auth     *middleware.Authenticator
	Limiter  middleware.Limiter
	ClientIP *middleware.ClientIP
	Metrics  *metrics.Manager
	Gatherer prometheus.Gatherer
	Log      logrus.FieldLogger

	Functions       *Functions
	Recommendations *Recommendations
	Completions     *Completions
	Tokens          *Tokens
	Imports         *Imports
	Dashboard       *Dashboard
	System          *System
}

// NewRouter wires every route.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.PanicRecovery(d.Metrics, d.Log))
	r.Use(middleware.RequestLogger(d.Log))
	if d.Metrics != nil {
		r.Use(middleware.RequestMetrics(d.Metrics))
	}
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Cors())

	r.Get("/health", d.System.Health)
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	limit := func(next http.Handler) http.Handler { return next }
	if d.Limiter != nil {
		limit = middleware.RateLimit(d.Limiter, d.ClientIP, d.Log)
	}

	r.With(d.Auth.OptionalAuth, limit).
		Post("/functions/v1/generate-workout-recommendations", d.Functions.GenerateRecommendations)

	r.Route("/api", func(r chi.Router) {
		r.Use(d.Auth.RequireAuth)

		r.Get("/dashboard", d.Dashboard.Show)
		r.Get("/llm/ping", d.System.PingLLM)
		r.Post("/notify/test", d.System.TestNotifications)
		r.Post("/workouts/import", d.Imports.Upload)

		r.Route("/tokens", func(r chi.Router) {
			r.Get("/", d.Tokens.List)
			r.Post("/", d.Tokens.Create)
			r.Post("/{id}/revoke", d.Tokens.Revoke)
			r.Delete("/{id}", d.Tokens.Delete)
		})

		r.Route("/recommendations", func(r chi.Router) {
			r.Use(d.Sessions.LoadAndSave)

			r.Get("/", d.Recommendations.View)
			r.With(limit).Post("/generate", d.Recommendations.Generate)
			r.Post("/saved", d.Recommendations.Save)
			r.Delete("/saved/{id}", d.Recommendations.Remove)
			r.Post("/saved/{id}/completion", d.Recommendations.OpenCompletion)
			r.Patch("/completion", d.Recommendations.UpdateCompletion)
			r.Post("/completion/exercises/{position}/toggle", d.Recommendations.ToggleExercise)
			r.Post("/completion/submit", d.Recommendations.SubmitCompletion)
			r.Get("/completions", d.Completions.List)
			r.Get("/completions/export.xlsx", d.Completions.Export)
		})
	})

	return r
}
