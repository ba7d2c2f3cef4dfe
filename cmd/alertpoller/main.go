package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	natsadapter "github.com/safezone-app/safezone/internal/adapters/nats"
	"github.com/safezone-app/safezone/internal/adapters/postgres"
	"github.com/safezone-app/safezone/internal/adapters/upstream"
	"github.com/safezone-app/safezone/internal/core/ports"
	"github.com/safezone-app/safezone/internal/core/usecases"
	"github.com/safezone-app/safezone/internal/pkg/config"
	"github.com/safezone-app/safezone/internal/pkg/logging"
	"github.com/safezone-app/safezone/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("safezone-alertpoller")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	if cfg.Upstream.AlertsURL == "" {
		log.Fatalf("upstream.alerts_url is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, alerts will be stored but not published", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	api := upstream.NewAPI(upstream.NewClient(cfg.Upstream.Timeout()), upstream.Endpoints{
		Alerts: cfg.Upstream.AlertsURL,
	})
	alerts := usecases.NewAlertService(postgres.NewAlertRepo(db), nil, nil, publisher, cfg.Alerts.ActiveWindow())
	poller := usecases.NewAlertPoller(api, alerts, cfg.Alerts.PollInterval())

	slog.Info("alert poller started", "interval", cfg.Alerts.PollInterval())
	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("poller: %v", err)
	}
	slog.Info("alert poller stopped")
}
