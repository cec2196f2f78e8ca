package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/admitgate/admitgate-api/internal/dto"
	"github.com/admitgate/admitgate-api/internal/service"
	"github.com/admitgate/admitgate-api/internal/utils"
)

// AuthHandler handles login, registration and the current-user probe.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterPublic wires the unauthenticated auth routes. The login limiter is
// applied before the handler when provided.
func (h *AuthHandler) RegisterPublic(router fiber.Router, loginLimiter fiber.Handler) {
	if loginLimiter != nil {
		router.Post("/login", loginLimiter, h.login)
	} else {
		router.Post("/login", h.login)
	}
	router.Post("/register", h.register)
}

// RegisterProtected wires routes behind the session middleware.
func (h *AuthHandler) RegisterProtected(router fiber.Router) {
	router.Get("/user", h.currentUser)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Login(c.UserContext(), payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, "invalid login payload")
		case errors.Is(err, service.ErrInvalidCredentials):
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, service.ErrAccountInactive):
			return utils.SendError(c, fiber.StatusForbidden, "account is deactivated")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("login failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to log in")
		}
	}

	return utils.SendSuccess(c, "logged in", result)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var payload dto.RegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Register(c.UserContext(), payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, "invalid registration payload")
		case errors.Is(err, service.ErrEmailTaken):
			return utils.SendError(c, fiber.StatusConflict, "email already registered")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("registration failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to register")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "account created", result)
}

func (h *AuthHandler) currentUser(c *fiber.Ctx) error {
	result, err := h.service.CurrentUser(c.UserContext(), userIDFromContext(c))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid session")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load current user")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load user")
	}

	return utils.SendSuccess(c, "user retrieved", result)
}
