package recommend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/carpenike/fitrecs/internal/llm"
	"github.com/carpenike/fitrecs/internal/models"
)

// ErrUserIDRequired is returned when a generation request carries no user id.
var ErrUserIDRequired = errors.New("recommend: user id is required")

// Generation outcomes reported to an Observer.
const (
	OutcomeSuccess     = "success"
	OutcomeRateLimited = "rate_limited"
	OutcomeQuota       = "quota_exhausted"
	OutcomeMalformed   = "malformed"
	OutcomeError       = "error"
)

// ProviderFactory returns the provider to use for one request. It returns
// llm.ErrNotConfigured when no credential is available.
type ProviderFactory func() (llm.Provider, error)

// Observer receives the outcome and latency of each model call.
type Observer interface {
	ObserveGeneration(outcome string, d time.Duration)
}

// Result is a successful generation.
type Result struct {
	Recommendations []models.Recommendation
	Model           string
	TokensUsed      int
	Duration        time.Duration
}

// Generator runs the history → prompt → model → parse pipeline.
type Generator struct {
	DB       *sqlx.DB
	Provider ProviderFactory
	Options  llm.Options
	Timeout  time.Duration
	Log      logrus.FieldLogger
	Observer Observer
}

func (g *Generator) logger() logrus.FieldLogger {
	if g.Log == nil {
		return logrus.StandardLogger()
	}
	return g.Log
}

// Generate produces 3–5 recommendations for userID. Exactly one model call
// is made; nothing is retried.
func (g *Generator) Generate(ctx context.Context, userID string) (*Result, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	provider, err := g.Provider()
	if err != nil {
		return nil, fmt.Errorf("recommend: provider: %w", err)
	}

	log := g.logger().WithFields(logrus.Fields{"user_id": userID, "provider": provider.Name()})

	var (
		history     *History
		completions []*models.Completion
	)
	eg, _ := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		history, err = LoadHistory(g.DB, userID, log)
		return err
	})
	eg.Go(func() error {
		var err error
		completions, err = models.RecentCompletions(g.DB, userID, models.FeedbackLimit)
		if err != nil {
			log.WithError(err).Warn("feedback fetch failed, continuing without feedback")
			completions = nil
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		log.WithError(err).Error("profile fetch failed")
		return nil, err
	}

	feedback := Summarize(completions)

	callCtx := ctx
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := provider.Generate(callCtx, llm.Request{
		SystemPrompt: SystemPrompt,
		UserPrompt:   BuildUserPrompt(history, feedback),
		Tool:         Tool(),
		Options:      g.Options,
	})
	if err != nil {
		g.observe(outcomeOf(err), time.Since(start))
		if apiErr, ok := llm.AsAPIError(err); ok {
			log.WithFields(logrus.Fields{"status": apiErr.StatusCode, "body": apiErr.Message}).Error("AI gateway error")
		} else {
			log.WithError(err).Error("AI request failed")
		}
		return nil, fmt.Errorf("recommend: call model: %w", err)
	}

	recs, err := ParseResponse(resp)
	if err != nil {
		g.observe(OutcomeMalformed, resp.Duration)
		log.WithError(err).WithField("stop_reason", resp.StopReason).Error("invalid AI response")
		return nil, err
	}

	g.observe(OutcomeSuccess, resp.Duration)
	log.WithFields(logrus.Fields{
		"model":       resp.Model,
		"tokens":      resp.TokensUsed,
		"duration_ms": resp.Duration.Milliseconds(),
		"count":       len(recs),
		"feedback":    feedback.Count,
	}).Info("recommendations generated")

	return &Result{
		Recommendations: recs,
		Model:           resp.Model,
		TokensUsed:      resp.TokensUsed,
		Duration:        resp.Duration,
	}, nil
}

func (g *Generator) observe(outcome string, d time.Duration) {
	if g.Observer != nil {
		g.Observer.ObserveGeneration(outcome, d)
	}
}

func outcomeOf(err error) string {
	if errors.Is(err, llm.ErrMalformedResponse) {
		return OutcomeMalformed
	}
	if apiErr, ok := llm.AsAPIError(err); ok {
		switch {
		case apiErr.RateLimited():
			return OutcomeRateLimited
		case apiErr.QuotaExhausted():
			return OutcomeQuota
		}
	}
	return OutcomeError
}

// Classify maps a generation error to the HTTP status and the single
// user-facing message reported for it.
func Classify(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, ErrUserIDRequired):
		return http.StatusBadRequest, "User ID is required"
	case errors.Is(err, llm.ErrNotConfigured):
		return http.StatusInternalServerError, "AI provider is not configured"
	case errors.Is(err, ErrProfileFetch):
		return http.StatusInternalServerError, "Failed to fetch user profile"
	case errors.Is(err, ErrMalformedResponse), errors.Is(err, llm.ErrMalformedResponse):
		return http.StatusInternalServerError, "Invalid AI response format"
	}
	if apiErr, ok := llm.AsAPIError(err); ok {
		switch {
		case apiErr.RateLimited():
			return http.StatusTooManyRequests, apiErr.UserMessage()
		case apiErr.QuotaExhausted():
			return http.StatusPaymentRequired, apiErr.UserMessage()
		}
	}
	return http.StatusInternalServerError, "Failed to generate recommendations"
}
