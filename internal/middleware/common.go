package middleware

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// Config carries the dependencies of the shared middleware chain.
type Config struct {
	Logger *zerolog.Logger
}

// Register installs the portal-wide middleware chain: panic recovery first,
// then correlation IDs so every later log line can carry one, request metrics
// and logging, and finally CORS scoped to the methods and headers the portal
// routes actually accept.
func Register(app *fiber.App, cfg Config) {
	requestLogger := zerolog.New(io.Discard)
	if cfg.Logger != nil {
		requestLogger = *cfg.Logger
	}

	app.Use(recover.New())
	app.Use(CorrelationID())
	app.Use(Observability(requestLogger))
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Correlation-ID",
		// No PATCH routes exist; keeping the preflight surface to what the
		// router registers.
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
}
