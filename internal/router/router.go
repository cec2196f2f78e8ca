package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/admitgate/admitgate-api/internal/config"
	"github.com/admitgate/admitgate-api/internal/handler"
	"github.com/admitgate/admitgate-api/internal/middleware"
	"github.com/admitgate/admitgate-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	HealthHandler           *handler.HealthHandler
	AuthHandler             *handler.AuthHandler
	CatalogHandler          *handler.CatalogHandler
	ApplicationHandler      *handler.ApplicationHandler
	DocumentHandler         *handler.DocumentHandler
	AdminApplicationHandler *handler.AdminApplicationHandler
	AdminUserHandler        *handler.AdminUserHandler
	AdminAuditHandler       *handler.AdminAuditHandler
	JWTMiddleware           fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	if deps.HealthHandler != nil {
		deps.HealthHandler.Register(app)
	}
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		// Login stays throttled per source IP.
		deps.AuthHandler.RegisterPublic(app, middleware.RateLimit("login", 10, time.Minute))
	}

	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})

	if deps.CatalogHandler != nil {
		deps.CatalogHandler.Register(api)
	}

	protected := api.Group("", jwtMiddleware)
	if deps.AuthHandler != nil {
		deps.AuthHandler.RegisterProtected(protected)
	}

	if deps.ApplicationHandler != nil {
		applications := protected.Group("/applications")
		deps.ApplicationHandler.Register(applications)

		if deps.DocumentHandler != nil {
			deps.DocumentHandler.RegisterApplicationRoutes(applications)
			deps.DocumentHandler.RegisterDocumentRoutes(protected.Group("/documents"))
		}
	}

	admin := protected.Group("/admin")
	if deps.AdminApplicationHandler != nil {
		deps.AdminApplicationHandler.Register(admin.Group("/applications"))
	}
	if deps.AdminUserHandler != nil {
		deps.AdminUserHandler.Register(admin.Group("/users"))
		deps.AdminUserHandler.RegisterSubAdmins(admin.Group("/sub-admins"))
	}
	if deps.AdminAuditHandler != nil {
		deps.AdminAuditHandler.Register(admin.Group("/audit-logs"))
	}
}
