package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/admitgate/admitgate-api/internal/dto"
	"github.com/admitgate/admitgate-api/internal/models"
	"github.com/admitgate/admitgate-api/internal/service"
	"github.com/admitgate/admitgate-api/internal/utils"
)

// ApplicationHandler serves the applicant-facing application endpoints.
type ApplicationHandler struct {
	service service.ApplicationService
	logger  zerolog.Logger
}

// NewApplicationHandler constructs the handler.
func NewApplicationHandler(service service.ApplicationService, logger zerolog.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		service: service,
		logger:  logger.With().Str("component", "application_handler").Logger(),
	}
}

// Register wires the owner application routes.
func (h *ApplicationHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Post("/:id/submit", h.submit)
}

func (h *ApplicationHandler) create(c *fiber.Ctx) error {
	var payload dto.ApplicationCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Create(c.UserContext(), identityFromContext(c), payload)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid application payload")
		}
		if errors.Is(err, service.ErrForbidden) {
			return utils.SendError(c, fiber.StatusForbidden, "not allowed to create applications")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to create application")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to create application")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "application created", result)
}

func (h *ApplicationHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "pageSize")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	result, err := h.service.ListOwn(c.UserContext(), identityFromContext(c), page, pageSize)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list applications")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list applications")
	}

	return utils.SendSuccess(c, "applications retrieved", result)
}

func (h *ApplicationHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid application id")
	}

	result, err := h.service.Get(c.UserContext(), identityFromContext(c), id)
	if err != nil {
		return h.sendApplicationError(c, err, "failed to load application")
	}

	return utils.SendSuccess(c, "application retrieved", result)
}

func (h *ApplicationHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid application id")
	}

	var payload dto.ApplicationUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Update(c.UserContext(), identityFromContext(c), id, payload)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid application payload")
		}
		if errors.Is(err, service.ErrApplicationLocked) {
			return utils.SendError(c, fiber.StatusConflict, "application can no longer be edited")
		}
		return h.sendApplicationError(c, err, "failed to update application")
	}

	return utils.SendSuccess(c, "application updated", result)
}

func (h *ApplicationHandler) submit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid application id")
	}

	payload := dto.StatusUpdateRequest{Status: string(models.StatusSubmitted)}
	result, err := h.service.Transition(c.UserContext(), identityFromContext(c), id, payload, requestMeta(c))
	if err != nil {
		if errors.Is(err, service.ErrIllegalTransition) {
			return utils.SendError(c, fiber.StatusConflict, "application has already been submitted")
		}
		return h.sendApplicationError(c, err, "failed to submit application")
	}

	return utils.SendSuccess(c, "application submitted", result)
}

func (h *ApplicationHandler) sendApplicationError(c *fiber.Ctx, err error, fallback string) error {
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
