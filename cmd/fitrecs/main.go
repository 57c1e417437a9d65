package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/carpenike/fitrecs/internal/config"
	"github.com/carpenike/fitrecs/internal/database"
	"github.com/carpenike/fitrecs/internal/logging"
	"github.com/carpenike/fitrecs/internal/models"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	seedDemo := flag.String("seed-demo", "", "seed demo workout history for this user id and exit")
	seedDays := flag.Int("seed-days", 28, "days of history to seed with -seed-demo")
	flag.Parse()

	cfg, err := config.Load(context.Background(), *env, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %s\n", err)
		os.Exit(1)
	}

	log := logrus.StandardLogger()
	flush := logging.Setup(log, logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    cfg.LogFormatJSON,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        cfg.SentryDSN,
		SentryServerName: "fitrecs",
	})

	log.Warnf("---->> running in [%s] environment", cfg.Environment)

	if *seedDemo != "" {
		err = seed(cfg, *seedDemo, *seedDays, log)
	} else {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		err = serve(ctx, cfg, log)
		stop()
	}
	if err != nil {
		log.Errorf("fitrecs: %s", err)
		flush()
		os.Exit(1)
	}
	flush()
}

// seed fills a user's history with synthetic workouts for local testing.
func seed(cfg *config.Config, userID string, days int, log logrus.FieldLogger) error {
	db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		return err
	}

	n, err := models.SeedDemoUser(db, userID, days, time.Now(), time.Now().UnixNano())
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"user_id": userID, "workouts": n}).Info("demo history seeded")
	return nil
}
