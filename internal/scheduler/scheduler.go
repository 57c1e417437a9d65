// Package scheduler runs periodic database maintenance.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/carpenike/fitrecs/internal/models"
)

// Status holds the result of the last maintenance run.
type Status struct {
	LastRun       time.Time `json:"last_run"`
	NextRun       time.Time `json:"next_run"`
	TokensDeleted int64     `json:"tokens_deleted"`
	Interval      string    `json:"interval"`
	RetentionDays int       `json:"retention_days"`
}

// Config controls how often maintenance runs and how long expired rows are kept.
type Config struct {
	Interval      time.Duration
	RetentionDays int
}

// Scheduler runs maintenance tasks in the background.
type Scheduler struct {
	db    *sqlx.DB
	cfg   Config
	log   logrus.FieldLogger
	cron  *gocron.Scheduler
	job   *gocron.Job
	clock func() time.Time

	mu     sync.RWMutex
	status Status
}

// New creates a scheduler for db. A non-positive interval defaults to 24h.
func New(db *sqlx.DB, cfg Config, log logrus.FieldLogger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.RetentionDays < 0 {
		cfg.RetentionDays = 0
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{
		db:    db,
		cfg:   cfg,
		log:   log.WithField("component", "scheduler"),
		cron:  gocron.NewScheduler(time.UTC),
		clock: time.Now,
	}
}

// Start schedules maintenance and runs the first pass immediately.
func (s *Scheduler) Start() error {
	job, err := s.cron.Every(s.cfg.Interval).Do(s.RunMaintenance)
	if err != nil {
		return fmt.Errorf("scheduler: schedule maintenance: %w", err)
	}
	s.job = job
	s.cron.StartAsync()
	s.log.WithField("interval", s.cfg.Interval.String()).Info("background scheduler started")
	return nil
}

// Stop shuts down the scheduler and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Status returns the result of the last maintenance run.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// RunMaintenance executes all periodic cleanup tasks once.
func (s *Scheduler) RunMaintenance() {
	now := s.clock().UTC()
	s.log.Debug("running scheduled maintenance")

	tokensDeleted := s.pruneExpiredTokens(now)

	next := now.Add(s.cfg.Interval)
	if s.job != nil && !s.job.NextRun().IsZero() {
		next = s.job.NextRun()
	}

	s.mu.Lock()
	s.status = Status{
		LastRun:       now,
		NextRun:       next,
		TokensDeleted: tokensDeleted,
		Interval:      s.cfg.Interval.String(),
		RetentionDays: s.cfg.RetentionDays,
	}
	s.mu.Unlock()
}

// pruneExpiredTokens removes API tokens that expired more than the retention
// period ago.
func (s *Scheduler) pruneExpiredTokens(now time.Time) int64 {
	cutoff := now.AddDate(0, 0, -s.cfg.RetentionDays)
	deleted, err := models.PruneExpiredAPITokens(s.db, cutoff)
	if err != nil {
		s.log.WithError(err).Warn("maintenance: prune expired api tokens")
		return 0
	}
	if deleted > 0 {
		s.log.WithField("deleted", deleted).Info("maintenance: pruned expired api tokens")
	}
	return deleted
}
