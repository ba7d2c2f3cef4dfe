package http

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Version is reported by the liveness check; set with -ldflags at build time.
var Version = "dev"

const readyTimeout = 3 * time.Second

var errDisconnected = errors.New("disconnected")

// HealthHandler reports that the process is up. It never touches a dependency.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": Version,
		})
	}
}

// readiness collects per-dependency results for the ready check.
type readiness struct {
	checks map[string]string
	ready  bool
}

// required marks the service unready when err is non-nil.
func (r *readiness) required(name string, err error) {
	if err != nil {
		r.checks[name] = "error: " + err.Error()
		r.ready = false
		return
	}
	r.checks[name] = "ok"
}

// optional only fails when the dependency is wired but unhealthy.
func (r *readiness) optional(name string, wired bool, check func() error) {
	if !wired {
		r.checks[name] = "not configured"
		return
	}
	r.required(name, check())
}

// ReadyHandler answers 200 once the service can resolve alert zones: the
// database answers and at least one zone is loaded. NATS and the cache are
// optional, but fail the check when wired and down.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
		defer cancel()

		r := &readiness{checks: make(map[string]string), ready: true}

		if deps.DB == nil {
			r.checks["database"] = "not configured"
			r.ready = false
		} else {
			r.required("database", deps.DB.Ping(ctx))
		}

		r.checkZones(ctx, deps)

		r.optional("nats", deps.NATS != nil, func() error {
			if !deps.NATS.IsConnected() {
				return errDisconnected
			}
			return nil
		})
		r.optional("cache", deps.Cache != nil, func() error { return deps.Cache.Ping(ctx) })

		status, code := "ready", fiber.StatusOK
		if !r.ready {
			status, code = "not ready", fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": r.checks,
		})
	}
}

func (r *readiness) checkZones(ctx context.Context, deps *Dependencies) {
	if deps.Zones == nil {
		r.checks["zones"] = "not configured"
		r.ready = false
		return
	}
	n, err := deps.Zones.Count(ctx)
	switch {
	case err != nil:
		r.required("zones", err)
	case n == 0:
		r.checks["zones"] = "none loaded"
		r.ready = false
	default:
		r.checks["zones"] = strconv.Itoa(n) + " loaded"
	}
}
