// Package adminapi is the optional, read-only HTTP surface an operator can
// enable to observe a running proxy: health, Prometheus exposition, and a
// dump of the active ruleset. It never touches the SOCKS data path.
// Grounded on the teacher's fiber-based HTTP layer and on
// pkg/metrics.Handler's fasthttpadaptor/promhttp pairing, reused here
// verbatim for the /metrics route.
package adminapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shpaker/soxyproxy/pkg/logger"
	"github.com/shpaker/soxyproxy/pkg/metrics"
	"github.com/shpaker/soxyproxy/pkg/ruleset"
)

// Server is the admin HTTP surface's fiber app plus its log/ruleset
// collaborators.
type Server struct {
	app *fiber.App
}

// New builds the admin surface. rs is a snapshot of the active ruleset
// (rulesets are immutable once loaded, so no locking is required).
func New(rs *ruleset.Ruleset, log *logger.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(func(c *fiber.Ctx) error {
		err := c.Next()
		if log != nil {
			log.LogRequest(c.Method(), c.Path(), c.IP(), c.Response().StatusCode(), 0)
		}
		return err
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	app.Get("/metrics", metrics.Handler())

	app.Get("/ruleset", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"rules": rs.Describe()})
	})

	return &Server{app: app}
}

// ListenAndServe blocks serving the admin surface on address.
func (s *Server) ListenAndServe(address string) error {
	return s.app.Listen(address)
}

// Shutdown gracefully stops the admin surface.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
