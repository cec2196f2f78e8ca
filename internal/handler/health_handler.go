package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/admitgate/admitgate-api/internal/utils"
)

// HealthHandler exposes the liveness probe.
type HealthHandler struct{}

// NewHealthHandler constructs the handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Register wires the health route.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/health", h.health)
}

func (h *HealthHandler) health(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "ok", fiber.Map{"status": "healthy"})
}
