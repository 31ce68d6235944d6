// Command availability consumes crowd-sourced availability reports from
// JetStream and applies them to the marker tables. Applied flips are
// re-broadcast as marker-updated events for the WebSocket relay.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	natsadapter "github.com/parksafe/parksafe/internal/adapters/nats"
	"github.com/parksafe/parksafe/internal/adapters/postgres"
	"github.com/parksafe/parksafe/internal/adapters/valkey"
	"github.com/parksafe/parksafe/internal/core/domain"
	"github.com/parksafe/parksafe/internal/core/ports"
	"github.com/parksafe/parksafe/internal/core/usecases"
	"github.com/parksafe/parksafe/internal/pkg/config"
	"github.com/parksafe/parksafe/internal/pkg/logging"
	"github.com/parksafe/parksafe/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("parksafe-availability")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("parksafe-availability", logLevel, "json")

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

	// Cache, for invalidating marker dumps when availability flips
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, cache invalidation disabled", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// The daemon is pointless without NATS, so both ends are fatal.
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer pub.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	spotRepo := postgres.NewSpotRepo(db)
	stationRepo := postgres.NewStationRepo(db)
	markers := usecases.NewMarkerService(spotRepo, stationRepo, cacheSvc, pub)

	tracer := otel.Tracer("parksafe/availability")
	err = sub.SubscribeAvailabilityReports(ctx, func(ctx context.Context, report *domain.AvailabilityReport) error {
		ctx, span := tracer.Start(ctx, telemetry.SpanApplyAvailability)
		defer span.End()
		span.SetAttributes(
			attribute.String(telemetry.AttrMarkerID, report.MarkerID),
			attribute.String(telemetry.AttrMarkerKind, string(report.Kind)),
			attribute.Float64(telemetry.AttrReportLatency, time.Since(report.At).Seconds()),
		)

		if err := markers.ApplyAvailability(ctx, report); err != nil {
			// Unknown markers stay unknown on redelivery, drop instead of Nak
			if errors.Is(err, ports.ErrNotFound) {
				slog.Warn("report for unknown marker dropped", "marker_id", report.MarkerID)
				return nil
			}
			slog.Warn("apply availability", "marker_id", report.MarkerID, "error", err)
			return err
		}
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	slog.Info("availability processor started", "nats", cfg.NATS.URL)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutting down availability processor", "signal", sig.String())
	cancel()
}
