package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/safezone-app/safezone/internal/pkg/metrics"
)

// requestTimeout bounds every v1 handler.
const requestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Post("/geo/project", timeout.NewWithContext(ProjectHandler(deps), requestTimeout))
	v1.Get("/geo/distance", timeout.NewWithContext(DistanceHandler(deps), requestTimeout))
	v1.Get("/zones", timeout.NewWithContext(ListZonesHandler(deps), requestTimeout))
	v1.Get("/zones/resolve", timeout.NewWithContext(ResolveZoneHandler(deps), requestTimeout))
	v1.Get("/zones/:code", timeout.NewWithContext(GetZoneHandler(deps), requestTimeout))
	v1.Get("/shelters/nearest", timeout.NewWithContext(NearestSheltersHandler(deps), requestTimeout))
	v1.Get("/hospitals/nearby", timeout.NewWithContext(NearbyHospitalsHandler(deps), requestTimeout))
	v1.Get("/alerts", timeout.NewWithContext(AlertHistoryHandler(deps), requestTimeout))
	v1.Get("/status", timeout.NewWithContext(StatusHandler(deps), requestTimeout))

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app, deps.DocsPath)

	if deps.NATS != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
	}
}
