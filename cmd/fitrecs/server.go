package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/carpenike/fitrecs/internal/config"
	"github.com/carpenike/fitrecs/internal/database"
	"github.com/carpenike/fitrecs/internal/handlers"
	"github.com/carpenike/fitrecs/internal/lifecycle"
	"github.com/carpenike/fitrecs/internal/llm"
	"github.com/carpenike/fitrecs/internal/metrics"
	"github.com/carpenike/fitrecs/internal/middleware"
	"github.com/carpenike/fitrecs/internal/models"
	"github.com/carpenike/fitrecs/internal/notify"
	"github.com/carpenike/fitrecs/internal/recommend"
	"github.com/carpenike/fitrecs/internal/scheduler"
)

// serve runs the HTTP server until ctx is cancelled, then shuts everything
// down and returns the combined shutdown errors.
func serve(ctx context.Context, cfg *config.Config, log *logrus.Logger) (err error) {
	db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, db.Close()) }()

	if err := database.RunMigrations(db); err != nil {
		return err
	}
	log.WithField("driver", db.DriverName()).Info("database ready")

	if cfg.TokenSecret == "" {
		log.Warnf("%sTOKEN_SECRET not set, using a development secret for API tokens", config.EnvPrefix)
	}
	hasher, err := models.NewTokenHasher(cfg.SecretOrDefault(cfg.TokenSecret))
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		log.Warnf("%sJWT_SECRET not set, only API tokens will authenticate", config.EnvPrefix)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metricsManager := metrics.NewManager("fitrecs", "server", reg)

	providers := func() (llm.Provider, error) {
		return llm.NewProvider(llm.Config{
			Provider: cfg.LLMProvider,
			Model:    cfg.LLMModel,
			APIKey:   cfg.LLMAPIKey,
			BaseURL:  cfg.LLMBaseURL,
			Timeout:  cfg.LLMTimeout,
		})
	}
	if _, err := providers(); err != nil {
		log.WithError(err).Warn("llm provider unavailable, generation will fail until configured")
	}

	generator := &recommend.Generator{
		DB:       db,
		Provider: providers,
		Options:  llm.Options{Temperature: cfg.LLMTemperature, MaxTokens: cfg.LLMMaxTokens},
		Timeout:  cfg.GenerationTimeout,
		Log:      log.WithField("component", "recommend"),
		Observer: metricsManager,
	}

	broadcaster := notify.NewBroadcaster(cfg.NotifyURLs, log.WithField("component", "notify"))
	defer broadcaster.Wait()

	manager := &lifecycle.Manager{
		DB:        db,
		Generator: generator,
		Notifier:  broadcaster,
		Observer:  metricsManager,
		Log:       log.WithField("component", "lifecycle"),
	}

	sessions := scs.New()
	sessions.Lifetime = cfg.SessionTTL
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.SameSite = http.SameSiteLaxMode
	sessions.Cookie.Secure = cfg.SecureCookies
	if database.IsSQLite(db) {
		store := sqlite3store.New(db.DB)
		defer store.StopCleanup()
		sessions.Store = store
	}

	limiter, closeLimiter, err := newLimiter(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeLimiter()) }()

	sched := scheduler.New(db, scheduler.Config{
		Interval:      cfg.MaintenanceInterval,
		RetentionDays: cfg.TokenRetentionDays,
	}, log)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	router := handlers.NewRouter(handlers.RouterDeps{
		Sessions: sessions,
		Auth: &middleware.Authenticator{
			JWTSecret: []byte(cfg.JWTSecret),
			DB:        db,
			Hasher:    hasher,
			Log:       log,
		},
		Limiter:  limiter,
		ClientIP: middleware.NewClientIP(cfg.TrustedProxies...),
		Metrics:  metricsManager,
		Gatherer: reg,
		Log:      log,

		Functions:       &handlers.Functions{Generator: generator, Log: log},
		Recommendations: &handlers.Recommendations{Manager: manager, Sessions: sessions, Log: log},
		Completions:     &handlers.Completions{DB: db, Log: log},
		Tokens:          &handlers.Tokens{DB: db, Hasher: hasher, Log: log},
		Imports:         &handlers.Imports{DB: db, Log: log},
		Dashboard:       &handlers.Dashboard{DB: db, Log: log},
		System: &handlers.System{
			DB:        db,
			Providers: providers,
			Scheduler: sched,
			Notifier:  broadcaster,
			Log:       log,
		},
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Generation waits on the model, so writes get the generation
		// timeout plus headroom.
		WriteTimeout: cfg.GenerationTimeout + 30*time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("FitRecs listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		log.Warn("shutdown signal received, draining requests")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// newLimiter builds the generation rate limiter: Redis-backed when an
// address is configured, in-memory otherwise, none when the rate is 0.
func newLimiter(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (middleware.Limiter, func() error, error) {
	noop := func() error { return nil }
	if cfg.GenerateRatePerMinute == 0 {
		log.Warn("generation rate limiting disabled")
		return nil, noop, nil
	}

	if cfg.RedisAddr == "" {
		l := middleware.NewMemoryLimiter(cfg.GenerateRatePerMinute, time.Minute)
		return l, func() error { l.Stop(); return nil }, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, noop, multierr.Append(fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err), rdb.Close())
	}
	log.WithField("addr", cfg.RedisAddr).Info("using redis rate limiter")

	l := middleware.NewRedisLimiter(redis_rate.NewLimiter(rdb), "fitrecs:generate", cfg.GenerateRatePerMinute, time.Minute)
	return l, rdb.Close, nil
}
