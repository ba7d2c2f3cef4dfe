package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/safezone-app/safezone/internal/adapters/postgres"
	"github.com/safezone-app/safezone/internal/adapters/upstream"
	"github.com/safezone-app/safezone/internal/core/usecases"
	"github.com/safezone-app/safezone/internal/pkg/config"
	"github.com/safezone-app/safezone/internal/pkg/geospatial"
	"github.com/safezone-app/safezone/internal/pkg/logging"
	"github.com/safezone-app/safezone/internal/pkg/telemetry"
)

// Usage: ingestor [zones,shelters,hospitals]
// With no argument every configured source is ingested.
func main() {
	cfg, err := config.Load("safezone-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

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

	projector, err := geospatial.NewProjector(cfg.Geo.Calibration.Calibration())
	if err != nil {
		log.Fatalf("projector: %v", err)
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	api := upstream.NewAPI(upstream.NewClient(cfg.Upstream.Timeout()), upstream.Endpoints{
		Zones:     cfg.Upstream.ZonesURL,
		Shelters:  cfg.Upstream.SheltersURL,
		Hospitals: cfg.Upstream.HospitalsURL,
	})

	svc := usecases.NewIngestService(api,
		postgres.NewZoneRepo(db),
		postgres.NewShelterRepo(db),
		postgres.NewHospitalRepo(db),
		projector,
	)

	notConfigured := func(err error) bool { return errors.Is(err, upstream.ErrNotConfigured) }

	if len(os.Args) < 2 {
		if err := svc.RunAll(ctx, notConfigured); err != nil {
			slog.Error("ingestion finished with errors", "error", err)
			os.Exit(1)
		}
		slog.Info("ingestion complete")
		return
	}

	steps := map[string]func(context.Context) (int, error){
		"zones":     svc.IngestZones,
		"shelters":  svc.IngestShelters,
		"hospitals": svc.IngestHospitals,
	}
	failed := false
	for _, name := range strings.Split(os.Args[1], ",") {
		name = strings.TrimSpace(name)
		run, ok := steps[name]
		if !ok {
			log.Fatalf("unknown source %q (want zones, shelters or hospitals)", name)
		}
		n, err := run(ctx)
		if err != nil {
			slog.Error("ingest failed", "source", name, "error", err)
			failed = true
			continue
		}
		slog.Info("ingested", "source", name, "records", n)
	}
	if failed {
		os.Exit(1)
	}
}
