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

// AdminUserHandler serves account management for staff.
type AdminUserHandler struct {
	service service.UserService
	logger  zerolog.Logger
}

// NewAdminUserHandler constructs the handler.
func NewAdminUserHandler(service service.UserService, logger zerolog.Logger) *AdminUserHandler {
	return &AdminUserHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_user_handler").Logger(),
	}
}

// Register wires user management routes under the admin group.
func (h *AdminUserHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.createAgent)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Put("/:id/status", h.setStatus)
	router.Delete("/:id", h.remove)
}

// RegisterSubAdmins wires the sub-admin provisioning route.
func (h *AdminUserHandler) RegisterSubAdmins(router fiber.Router) {
	router.Post("", h.createSubAdmin)
}

func (h *AdminUserHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "pageSize")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	req := dto.AdminUserListRequest{
		Page:     page,
		PageSize: pageSize,
		Role:     strings.TrimSpace(c.Query("role")),
		Search:   strings.TrimSpace(c.Query("search")),
	}

	result, err := h.service.List(c.UserContext(), identityFromContext(c), req)
	if err != nil {
		return h.sendError(c, err, "failed to list users")
	}

	return utils.SendSuccess(c, "users retrieved", result)
}

func (h *AdminUserHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	result, err := h.service.Get(c.UserContext(), identityFromContext(c), id)
	if err != nil {
		return h.sendError(c, err, "failed to load user")
	}

	return utils.SendSuccess(c, "user retrieved", result)
}

func (h *AdminUserHandler) createAgent(c *fiber.Ctx) error {
	var payload dto.AdminUserCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.CreateAgent(c.UserContext(), identityFromContext(c), payload, requestMeta(c))
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			return utils.SendError(c, fiber.StatusConflict, "email already registered")
		}
		return h.sendError(c, err, "failed to create agent")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "agent created", result)
}

func (h *AdminUserHandler) createSubAdmin(c *fiber.Ctx) error {
	var payload dto.AdminSubAdminCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.CreateSubAdmin(c.UserContext(), identityFromContext(c), payload, requestMeta(c))
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			return utils.SendError(c, fiber.StatusConflict, "email already registered")
		}
		return h.sendError(c, err, "failed to create sub-admin")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "sub-admin created", result)
}

func (h *AdminUserHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	var payload dto.AdminUserUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Update(c.UserContext(), identityFromContext(c), id, payload, requestMeta(c))
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			return utils.SendError(c, fiber.StatusConflict, "email already registered")
		}
		return h.sendError(c, err, "failed to update user")
	}

	return utils.SendSuccess(c, "user updated", result)
}

func (h *AdminUserHandler) setStatus(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	var payload dto.AdminUserStatusRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if payload.Active == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "active flag is required")
	}

	result, err := h.service.SetActive(c.UserContext(), identityFromContext(c), id, *payload.Active, requestMeta(c))
	if err != nil {
		return h.sendError(c, err, "failed to update user status")
	}

	return utils.SendSuccess(c, "user status updated", result)
}

func (h *AdminUserHandler) remove(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	if err := h.service.Delete(c.UserContext(), identityFromContext(c), id, requestMeta(c)); err != nil {
		return h.sendError(c, err, "failed to delete user")
	}

	return utils.SendSuccess(c, "user deleted", nil)
}

func (h *AdminUserHandler) sendError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "user not found")
	case errors.Is(err, service.ErrAdminProtected):
		return utils.SendError(c, fiber.StatusForbidden, "admin accounts cannot be modified")
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "not allowed")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
