package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/admitgate/admitgate-api/internal/dto"
	"github.com/admitgate/admitgate-api/internal/service"
	"github.com/admitgate/admitgate-api/internal/utils"
)

// AdminApplicationHandler serves the staff review surface for applications.
type AdminApplicationHandler struct {
	service service.ApplicationService
	logger  zerolog.Logger
}

// NewAdminApplicationHandler constructs the handler.
func NewAdminApplicationHandler(service service.ApplicationService, logger zerolog.Logger) *AdminApplicationHandler {
	return &AdminApplicationHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_application_handler").Logger(),
	}
}

// Register wires the admin application routes.
func (h *AdminApplicationHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Put("/:id/status", h.updateStatus)
}

func (h *AdminApplicationHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "pageSize")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}
	userID, err := parseQueryUint(c, "user_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	req := dto.AdminApplicationListRequest{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
		UserID:   userID,
		Search:   strings.TrimSpace(c.Query("search")),
	}

	result, err := h.service.ListAdmin(c.UserContext(), identityFromContext(c), req)
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			return utils.SendError(c, fiber.StatusForbidden, "not allowed")
		}
		if errors.Is(err, service.ErrInvalidStatus) {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid status filter")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list applications")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list applications")
	}

	return utils.SendSuccess(c, "applications retrieved", result)
}

func (h *AdminApplicationHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid application id")
	}

	result, err := h.service.Get(c.UserContext(), identityFromContext(c), id)
	if err != nil {
		return h.sendError(c, err, "failed to load application")
	}

	return utils.SendSuccess(c, "application retrieved", result)
}

func (h *AdminApplicationHandler) updateStatus(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid application id")
	}

	var payload dto.StatusUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Transition(c.UserContext(), identityFromContext(c), id, payload, requestMeta(c))
	if err != nil {
		switch {
		case isValidationError(err), errors.Is(err, service.ErrInvalidStatus):
			return utils.SendError(c, fiber.StatusBadRequest, "invalid status payload")
		case errors.Is(err, service.ErrIllegalTransition):
			return utils.SendError(c, fiber.StatusConflict, "status transition not allowed")
		default:
			return h.sendError(c, err, "failed to update application status")
		}
	}

	return utils.SendSuccess(c, "application status updated", result)
}

func (h *AdminApplicationHandler) sendError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, service.ErrApplicationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "application not found")
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "not allowed")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
