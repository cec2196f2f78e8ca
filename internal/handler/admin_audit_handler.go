package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/admitgate/admitgate-api/internal/authz"
	"github.com/admitgate/admitgate-api/internal/dto"
	"github.com/admitgate/admitgate-api/internal/service"
	"github.com/admitgate/admitgate-api/internal/utils"
)

// AdminAuditHandler exposes the read-only audit trail to full admins.
type AdminAuditHandler struct {
	service service.AuditService
	logger  zerolog.Logger
}

// NewAdminAuditHandler constructs the handler.
func NewAdminAuditHandler(service service.AuditService, logger zerolog.Logger) *AdminAuditHandler {
	return &AdminAuditHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_audit_handler").Logger(),
	}
}

// Register wires the audit trail route.
func (h *AdminAuditHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *AdminAuditHandler) list(c *fiber.Ctx) error {
	actor := identityFromContext(c)
	if !authz.Can(actor, authz.ActionAuditView, authz.Resource{Type: authz.ResourceAuditLog}) {
		return utils.SendError(c, fiber.StatusForbidden, "not allowed")
	}

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
	resourceID, err := parseQueryUint(c, "resource_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid resource id")
	}

	req := dto.AuditLogListRequest{
		Page:         page,
		PageSize:     pageSize,
		UserID:       userID,
		ResourceType: strings.TrimSpace(c.Query("resource_type")),
		ResourceID:   resourceID,
		Action:       strings.TrimSpace(c.Query("action")),
	}

	result, err := h.service.List(c.UserContext(), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list audit entries")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list audit entries")
	}

	return utils.SendSuccess(c, "audit entries retrieved", result)
}
