// Command worker runs the Temporal worker for the account deletion saga.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/parksafe/parksafe/internal/adapters/nats"
	"github.com/parksafe/parksafe/internal/adapters/postgres"
	"github.com/parksafe/parksafe/internal/core/ports"
	"github.com/parksafe/parksafe/internal/core/usecases"
	"github.com/parksafe/parksafe/internal/pkg/auth"
	"github.com/parksafe/parksafe/internal/pkg/config"
	"github.com/parksafe/parksafe/internal/pkg/logging"
	"github.com/parksafe/parksafe/internal/workflows"
)

func main() {
	cfg, err := config.Load("parksafe-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("parksafe-worker", logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// NATS, for the account-deleted event
	var pub ports.EventPublisher
	nc, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, deletion events not broadcast", "error", err)
	} else {
		defer nc.Close()
		pub = nc
	}

	profileRepo := postgres.NewProfileRepo(db)
	feedbackRepo := postgres.NewFeedbackRepo(db)
	tokens := auth.New(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	accounts := usecases.NewAccountService(profileRepo, feedbackRepo, tokens, pub)

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.AccountDeletionWorkflow)
	w.RegisterActivity(&workflows.DeletionActivities{
		Accounts: accounts,
	})

	slog.Info("deletion worker started", "taskQueue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
