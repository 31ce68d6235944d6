package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/parksafe/parksafe/internal/adapters/http"
	natsadapter "github.com/parksafe/parksafe/internal/adapters/nats"
	"github.com/parksafe/parksafe/internal/adapters/postgres"
	temporaladapter "github.com/parksafe/parksafe/internal/adapters/temporal"
	"github.com/parksafe/parksafe/internal/adapters/valkey"
	"github.com/parksafe/parksafe/internal/core/ports"
	"github.com/parksafe/parksafe/internal/core/usecases"
	"github.com/parksafe/parksafe/internal/pkg/auth"
	"github.com/parksafe/parksafe/internal/pkg/config"
	"github.com/parksafe/parksafe/internal/pkg/logging"
	"github.com/parksafe/parksafe/internal/pkg/metrics"
	"github.com/parksafe/parksafe/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("parksafe-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("parksafe-api", logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache. cacheSvc stays nil when valkey is down so the services skip
	// caching instead of panicking on a typed-nil interface.
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS
	var pub ports.EventPublisher
	nc, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer nc.Close()
		pub = nc
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Repos
	spotRepo := postgres.NewSpotRepo(db)
	stationRepo := postgres.NewStationRepo(db)
	profileRepo := postgres.NewProfileRepo(db)
	feedbackRepo := postgres.NewFeedbackRepo(db)

	// Use cases
	tokens := auth.New(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	markerSvc := usecases.NewMarkerService(spotRepo, stationRepo, cacheSvc, pub)
	accountSvc := usecases.NewAccountService(profileRepo, feedbackRepo, tokens, pub)
	feedbackSvc := usecases.NewFeedbackService(feedbackRepo)

	// Workflow engine for account deletion (optional)
	var scheduler *temporaladapter.Scheduler
	if cfg.Temporal.Enabled {
		scheduler, err = temporaladapter.New(cfg.Temporal.HostPort, cfg.Temporal.Namespace, cfg.Temporal.TaskQueue)
		if err != nil {
			slog.Warn("temporal unavailable, deletions run synchronously", "error", err)
		} else {
			defer scheduler.Close()
		}
	}

	deps := &http.Dependencies{
		Markers:  markerSvc,
		Accounts: accountSvc,
		Feedback: feedbackSvc,
		Auth:     tokens,
		NATS:     natsConn,
		DB:       db,
		Cache:    cache,
	}
	if scheduler != nil {
		deps.Scheduler = scheduler
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "ParkSafe API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.parksafe.hu",
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Export pgx pool stats for Prometheus
	go func() {
		t := time.NewTicker(15 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				metrics.UpdateDBPoolMetrics(db.Pool.Stat())
			}
		}
	}()

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
