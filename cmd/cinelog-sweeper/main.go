package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/cinelog/cinelog/pkg/auth"
	"github.com/cinelog/cinelog/pkg/config"
	"github.com/cinelog/cinelog/pkg/jobs"
	"github.com/cinelog/cinelog/pkg/storage/postgres"
)

var (
	schedule = flag.String("schedule", "30 3 * * *", "Cron schedule for the token sweep (default: 03:30 UTC)")
	runOnce  = flag.Bool("run-once", false, "Run a single sweep and exit")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	db, err := postgres.Connect(ctx, cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	store := postgres.New(db, cfg.Storage)
	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	sweeper := jobs.NewSweeper(store, issuer, logger, nil)

	if *runOnce {
		swept, err := sweeper.Sweep(ctx)
		if err != nil {
			logger.Fatalf("Sweep failed: %v", err)
		}
		logger.Infof("Sweep completed, removed %d tokens", swept)
		return
	}

	c := cron.New()
	_, err = c.AddFunc(*schedule, func() {
		swept, err := sweeper.Sweep(context.Background())
		if err != nil {
			logger.WithError(err).Error("Scheduled sweep failed")
			return
		}
		logger.WithField("swept", swept).Info("Scheduled sweep completed")
	})
	if err != nil {
		logger.Fatalf("Failed to schedule sweep: %v", err)
	}

	c.Start()
	logger.Infof("Token sweeper started, schedule: %s", *schedule)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down token sweeper")
	<-c.Stop().Done()
}
