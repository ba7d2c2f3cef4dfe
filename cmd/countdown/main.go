package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/safezone-app/safezone/internal/adapters/nats"
	"github.com/safezone-app/safezone/internal/adapters/postgres"
	"github.com/safezone-app/safezone/internal/core/domain"
	"github.com/safezone-app/safezone/internal/core/usecases"
	"github.com/safezone-app/safezone/internal/pkg/config"
	"github.com/safezone-app/safezone/internal/pkg/logging"
	"github.com/safezone-app/safezone/internal/workflows"
)

// durableName is the JetStream consumer shared by countdown replicas.
const durableName = "safezone-countdown"

func main() {
	cfg, err := config.Load("safezone-countdown")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer pub.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, durableName)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.ShelterCountdownWorkflow)
	w.RegisterActivity(&workflows.CountdownActivities{Publisher: pub})
	if err := w.Start(); err != nil {
		log.Fatalf("worker: %v", err)
	}
	defer w.Stop()

	zones := usecases.NewZoneService(postgres.NewZoneRepo(db), cfg.Geo.ZoneRadiusKm)
	if _, err := zones.Refresh(ctx); err != nil {
		log.Fatalf("load zones: %v", err)
	}
	countdowns := usecases.NewCountdownService(zones, workflows.NewScheduler(c, cfg.Temporal.TaskQueue))

	err = sub.SubscribeAlerts(ctx, func(ctx context.Context, alert *domain.Alert) error {
		n, err := countdowns.Schedule(ctx, alert)
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "countdowns scheduled", "alert_id", alert.ID, "count", n)
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe alerts: %v", err)
	}

	slog.Info("countdown worker started", "task_queue", cfg.Temporal.TaskQueue)
	<-ctx.Done()
	slog.Info("countdown worker stopping")
}
