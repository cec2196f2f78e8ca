package handler

import (
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/admitgate/admitgate-api/internal/service"
	"github.com/admitgate/admitgate-api/internal/utils"
)

// DocumentHandler serves document upload and retrieval for applications.
type DocumentHandler struct {
	service service.DocumentService
	logger  zerolog.Logger
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(service service.DocumentService, logger zerolog.Logger) *DocumentHandler {
	return &DocumentHandler{
		service: service,
		logger:  logger.With().Str("component", "document_handler").Logger(),
	}
}

// RegisterApplicationRoutes wires document routes nested under applications.
func (h *DocumentHandler) RegisterApplicationRoutes(router fiber.Router) {
	router.Post("/:id/documents", h.attach)
	router.Get("/:id/documents", h.list)
}

// RegisterDocumentRoutes wires top-level document routes.
func (h *DocumentHandler) RegisterDocumentRoutes(router fiber.Router) {
	router.Delete("/:id", h.remove)
}

func (h *DocumentHandler) attach(c *fiber.Ctx) error {
	applicationID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid application id")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	documentType := strings.TrimSpace(c.FormValue("document_type"))
	if documentType == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "document type is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "unable to read uploaded file")
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "unable to read uploaded file")
	}

	result, err := h.service.Attach(c.UserContext(), identityFromContext(c), applicationID, documentType, fileHeader.Filename, content)
	if err != nil {
		return h.sendDocumentError(c, err, "failed to attach document")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "document attached", result)
}

func (h *DocumentHandler) list(c *fiber.Ctx) error {
	applicationID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid application id")
	}

	result, err := h.service.List(c.UserContext(), identityFromContext(c), applicationID)
	if err != nil {
		return h.sendDocumentError(c, err, "failed to list documents")
	}

	return utils.SendSuccess(c, "documents retrieved", result)
}

func (h *DocumentHandler) remove(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid document id")
	}

	if err := h.service.Delete(c.UserContext(), identityFromContext(c), id); err != nil {
		return h.sendDocumentError(c, err, "failed to delete document")
	}

	return utils.SendSuccess(c, "document deleted", nil)
}

func (h *DocumentHandler) sendDocumentError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, service.ErrApplicationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "application not found")
	case errors.Is(err, service.ErrDocumentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "document not found")
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "not allowed")
	case errors.Is(err, service.ErrDocumentInvalid):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid document payload")
	case errors.Is(err, service.ErrStorageUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "document storage is unavailable")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
