package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/admitgate/admitgate-api/internal/service"
	"github.com/admitgate/admitgate-api/internal/utils"
)

// CatalogHandler serves the read-only university and program catalog.
type CatalogHandler struct {
	service service.CatalogService
	logger  zerolog.Logger
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(service service.CatalogService, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		logger:  logger.With().Str("component", "catalog_handler").Logger(),
	}
}

// Register wires catalog routes.
func (h *CatalogHandler) Register(router fiber.Router) {
	router.Get("/universities", h.universities)
	router.Get("/programs", h.programs)
	router.Get("/programs/:id", h.programDisplay)
}

func (h *CatalogHandler) universities(c *fiber.Ctx) error {
	result, err := h.service.Universities(c.UserContext())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list universities")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list universities")
	}

	return utils.SendSuccess(c, "universities retrieved", result)
}

func (h *CatalogHandler) programs(c *fiber.Ctx) error {
	universityID, err := parseQueryUint(c, "university_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid university id")
	}

	result, err := h.service.Programs(c.UserContext(), universityID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list programs")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list programs")
	}

	return utils.SendSuccess(c, "programs retrieved", result)
}

func (h *CatalogHandler) programDisplay(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid program id")
	}

	result, err := h.service.ProgramDisplay(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, service.ErrProgramNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "program not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load program")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load program")
	}

	return utils.SendSuccess(c, "program retrieved", result)
}
