package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthFunc reports the health of one dependency.
type HealthFunc func(ctx context.Context) error

// RegisterRoutes mounts the lookup API, /health and /metrics. Each entry of
// checks is probed on /health; any failure answers 503.
func RegisterRoutes(app *fiber.App, h *Handler, checks map[string]HealthFunc, middleware ...fiber.Handler) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/health", func(c *fiber.Ctx) error {
		healthCtx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		results := map[string]string{"snapshot": "ok"}
		status := "ok"
		code := fiber.StatusOK
		for name, check := range checks {
			if err := check(healthCtx); err != nil {
				results[name] = err.Error()
				status = "degraded"
				code = fiber.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		return c.Status(code).JSON(fiber.Map{
			"status":      status,
			"checks":      results,
			"snapshot_id": h.snap.ID.String(),
		})
	})

	v1 := app.Group("/api/v1", middleware...)
	v1.Get("/products", h.ListProducts)
	v1.Get("/products/:name", h.GetProduct)
	v1.Get("/tickers/:name", h.GetTicker)
	v1.Get("/tickers/:name/fill", h.QuoteFill)
	v1.Get("/sessions/:tz", h.ListSessions)
	v1.Get("/sessions/:tz/:product", h.GetSession)
	v1.Get("/stats", h.Stats)
}
