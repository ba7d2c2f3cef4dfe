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
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/safezone-app/safezone/internal/adapters/http"
	natsadapter "github.com/safezone-app/safezone/internal/adapters/nats"
	"github.com/safezone-app/safezone/internal/adapters/postgres"
	"github.com/safezone-app/safezone/internal/adapters/valkey"
	"github.com/safezone-app/safezone/internal/core/ports"
	"github.com/safezone-app/safezone/internal/core/usecases"
	"github.com/safezone-app/safezone/internal/pkg/config"
	"github.com/safezone-app/safezone/internal/pkg/geospatial"
	"github.com/safezone-app/safezone/internal/pkg/logging"
	"github.com/safezone-app/safezone/internal/pkg/telemetry"
)

// zoneRefreshInterval is how often the API reloads the zone snapshot.
const zoneRefreshInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load("safezone-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	// Cache and session deadlines; without valkey deadlines stay in memory.
	var (
		cacheSvc  ports.CacheService
		deadlines ports.DeadlineStore = usecases.NewMemoryDeadlines()
		cachePing http.Pinger
	)
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, using in-memory deadlines", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
		cachePing = cache
		deadlines = cache.Deadlines(time.Minute)
	}

	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Raw NATS connection for the WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Drain()
	}

	zoneSvc := usecases.NewZoneService(postgres.NewZoneRepo(db), cfg.Geo.ZoneRadiusKm)
	if _, err := zoneSvc.Refresh(ctx); err != nil {
		slog.Warn("initial zone load failed", "error", err)
	}
	go refreshZones(ctx, zoneSvc)

	deps := &http.Dependencies{
		Zones:            zoneSvc,
		Shelters:         usecases.NewShelterService(postgres.NewShelterRepo(db), projector, cacheSvc, cfg.Geo.ShelterSearchKm),
		Hospitals:        usecases.NewHospitalService(postgres.NewHospitalRepo(db), cacheSvc),
		Alerts:           usecases.NewAlertService(postgres.NewAlertRepo(db), zoneSvc, deadlines, publisher, cfg.Alerts.ActiveWindow()),
		Projector:        projector,
		HospitalRadiusKm: cfg.Geo.HospitalRadiusKm,
		NATS:             natsConn,
		DB:               db,
		Cache:            cachePing,
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "SafeZone API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, " + http.SessionHeader,
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

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

	slog.Info("shutdown signal received, draining connections", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func refreshZones(ctx context.Context, zones *usecases.ZoneService) {
	ticker := time.NewTicker(zoneRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := zones.Refresh(ctx); err != nil {
				slog.Warn("zone refresh failed", "error", err)
			}
		}
	}
}
