package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Adds sensible defaults if not already set by the handler.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		// Only set on GET requests
		if c.Method() != "GET" {
			return err
		}

		// Don't override if already set
		if existing := c.Get("Cache-Control"); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		// Default cache times by endpoint pattern
		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10" // Very short for system checks

		case path == "/metrics":
			ttl = "no-cache" // Metrics are real-time

		case path == "/graphql":
			ttl = "private, max-age=0" // GraphQL varies wildly

		case strings.HasPrefix(path, "/v1/me") || strings.HasPrefix(path, "/v1/auth"):
			ttl = "private, no-store" // Account data never goes into shared caches

		case strings.HasPrefix(path, "/v1/markers/nearby"):
			ttl = "public, max-age=60" // Availability changes quickly

		case strings.HasPrefix(path, "/v1/markers/clustered"):
			ttl = "public, max-age=60" // Viewport queries

		case strings.HasPrefix(path, "/v1/markers"):
			ttl = "public, max-age=300" // Full marker dumps

		case strings.HasSuffix(path, "/nearby"):
			ttl = "public, max-age=60" // Per-kind nearby aliases

		case strings.HasPrefix(path, "/v1/directions/"):
			ttl = "public, max-age=3600" // Deep links follow marker locations, nearly static

		case strings.Contains(path, "/parking-spots/") || strings.Contains(path, "/repair-stations/"):
			ttl = "public, max-age=600" // 10 min for single markers

		case path == "/v1/stats":
			ttl = "public, max-age=60" // Map stats: 1 min

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=300" // 5 min default for API endpoints
		}

		if ttl != "" {
			c.Set("Cache-Control", ttl)
		}

		return err
	}
}
