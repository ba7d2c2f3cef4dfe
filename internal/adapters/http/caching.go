package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control on GET responses by endpoint unless
// the handler already chose one. Errors are never cached.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}
		if c.Response().StatusCode() >= 400 {
			c.Set(fiber.HeaderCacheControl, "no-store")
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "no-cache"
		case path == "/metrics":
			ttl = "no-cache"
		case path == "/v1/status" || path == "/v1/zones/resolve":
			ttl = "no-store" // per-caller and time-dependent
		case strings.HasPrefix(path, "/v1/zones"):
			ttl = "public, max-age=3600" // reference data, reloaded daily
		case strings.HasPrefix(path, "/v1/shelters"), strings.HasPrefix(path, "/v1/hospitals"):
			ttl = "public, max-age=300"
		case strings.HasPrefix(path, "/v1/alerts"):
			ttl = "public, max-age=5"
		case strings.HasPrefix(path, "/docs"):
			ttl = "public, max-age=3600"
		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=60"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}
		return err
	}
}
