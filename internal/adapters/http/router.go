package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/parksafe/parksafe/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// Sunset headers for the per-kind dump endpoints old app builds use
	app.Use(DeprecationMiddleware([]DeprecatedRoute{
		{
			Path:        "/v1/parking-spots/all",
			SunsetDate:  time.Date(2027, time.March, 1, 0, 0, 0, 0, time.UTC),
			Alternative: "/v1/markers?kinds=parking",
		},
		{
			Path:        "/v1/repair-stations/all",
			SunsetDate:  time.Date(2027, time.March, 1, 0, 0, 0, 0, time.UTC),
			Alternative: "/v1/markers?kinds=repair_station,bicycle_service",
		},
	}))

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout — fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1 — 15s per-request timeout
	v1 := app.Group("/v1")
	v1.Get("/markers/nearby", timeout.NewWithContext(NearbyMarkersHandler(deps), 15*time.Second))
	v1.Get("/markers/clustered", timeout.NewWithContext(ClusteredMarkersHandler(deps), 15*time.Second))
	v1.Get("/markers", timeout.NewWithContext(AllMarkersHandler(deps), 15*time.Second))
	// Literal routes register before /:id (fiber matches in registration order)
	v1.Get("/parking-spots/all", timeout.NewWithContext(AllParkingSpotsHandler(deps), 15*time.Second))
	v1.Get("/parking-spots/nearby", timeout.NewWithContext(NearbyParkingSpotsHandler(deps), 15*time.Second))
	v1.Get("/parking-spots/:id", timeout.NewWithContext(GetParkingSpotHandler(deps), 15*time.Second))
	v1.Get("/parking-spots", timeout.NewWithContext(ListParkingSpotsHandler(deps), 15*time.Second))
	v1.Get("/repair-stations/all", timeout.NewWithContext(AllRepairStationsHandler(deps), 15*time.Second))
	v1.Get("/repair-stations/nearby", timeout.NewWithContext(NearbyRepairStationsHandler(deps), 15*time.Second))
	v1.Get("/repair-stations/:id", timeout.NewWithContext(GetRepairStationHandler(deps), 15*time.Second))
	v1.Get("/repair-stations", timeout.NewWithContext(ListRepairStationsHandler(deps), 15*time.Second))
	v1.Get("/directions/:kind/:id", timeout.NewWithContext(DirectionsHandler(deps), 15*time.Second))
	v1.Get("/stats", timeout.NewWithContext(MapStatsHandler(deps), 15*time.Second))
	v1.Get("/usernames/available", timeout.NewWithContext(UsernameAvailableHandler(deps), 15*time.Second))

	// Accounts
	v1.Post("/auth/register", timeout.NewWithContext(RegisterHandler(deps), 15*time.Second))
	v1.Post("/auth/login", timeout.NewWithContext(LoginHandler(deps), 15*time.Second))

	authed := v1.Group("", AuthRequired(deps))
	authed.Get("/me", timeout.NewWithContext(MeHandler(deps), 15*time.Second))
	authed.Patch("/me", timeout.NewWithContext(UpdateProfileHandler(deps), 15*time.Second))
	authed.Delete("/me", timeout.NewWithContext(DeleteAccountHandler(deps), 15*time.Second))
	authed.Get("/me/feedback", timeout.NewWithContext(ListMyFeedbackHandler(deps), 15*time.Second))
	authed.Post("/feedback", timeout.NewWithContext(SubmitFeedbackHandler(deps), 15*time.Second))
	authed.Post("/markers/availability", timeout.NewWithContext(ReportAvailabilityHandler(deps), 15*time.Second))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps)))
}
