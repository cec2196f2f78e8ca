package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/admitgate/admitgate-api/internal/config"
	"github.com/admitgate/admitgate-api/internal/dto"
	"github.com/admitgate/admitgate-api/internal/handler"
	"github.com/admitgate/admitgate-api/internal/middleware"
	"github.com/admitgate/admitgate-api/internal/models"
	"github.com/admitgate/admitgate-api/internal/repository"
	"github.com/admitgate/admitgate-api/internal/router"
	"github.com/admitgate/admitgate-api/internal/service"
	"github.com/admitgate/admitgate-api/internal/session"
)

const testSecret = "handler-test-secret"

type portalFixture struct {
	app *fiber.App
	db  *gorm.DB
}

func setupPortal(t *testing.T) *portalFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.University{},
		&models.Program{},
		&models.Application{},
		&models.ApplicationStatusHistory{},
		&models.Document{},
		&models.AuditLog{},
	))

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)

	catalogService := service.NewCatalogService(catalogRepo, nil, time.Minute, logger)
	auditService := service.NewAuditService(auditRepo, logger)
	authService := service.NewAuthService(userRepo, validate, testSecret, time.Hour, logger)
	applicationService := service.NewApplicationService(applicationRepo, validate, nil, logger)
	userService := service.NewUserService(userRepo, auditService, nil, validate, logger)

	app := fiber.New()
	cfg := config.Config{AppName: "portal-test"}
	router.Register(app, cfg, router.Dependencies{
		HealthHandler:           handler.NewHealthHandler(),
		AuthHandler:             handler.NewAuthHandler(authService, logger),
		CatalogHandler:          handler.NewCatalogHandler(catalogService, logger),
		ApplicationHandler:      handler.NewApplicationHandler(applicationService, logger),
		AdminApplicationHandler: handler.NewAdminApplicationHandler(applicationService, logger),
		AdminUserHandler:        handler.NewAdminUserHandler(userService, logger),
		AdminAuditHandler:       handler.NewAdminAuditHandler(auditService, logger),
		JWTMiddleware:           middleware.JWTProtected(testSecret),
	})

	return &portalFixture{app: app, db: db}
}

func (f *portalFixture) seedUser(t *testing.T, email string, role models.Role) (models.User, string) {
	t.Helper()

	user := models.User{Email: email, FullName: "Test User", Role: role, PasswordHash: "x", Active: true}
	require.NoError(t, f.db.Create(&user).Error)

	token, err := session.New(user, testSecret, time.Hour)
	require.NoError(t, err)
	return user, token
}

func (f *portalFixture) request(t *testing.T, method, path, token string, payload interface{}) *http.Response {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response, data interface{}) string {
	t.Helper()

	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	if data != nil && len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, data))
	}
	return envelope.Message
}

func createPayload() dto.ApplicationCreateRequest {
	return dto.ApplicationCreateRequest{
		ProgramID:    1,
		StudentName:  "Amina Hassan",
		StudentEmail: "amina@example.com",
	}
}

func TestApplicationRoutes_RequireAuthentication(t *testing.T) {
	fixture := setupPortal(t)

	resp := fixture.request(t, http.MethodPost, "/api/applications", "", createPayload())
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// Nothing was written.
	var count int64
	require.NoError(t, fixture.db.Model(&models.Application{}).Count(&count).Error)
	require.EqualValues(t, 0, count)

	resp = fixture.request(t, http.MethodGet, "/api/applications", "bogus-token", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = fixture.request(t, http.MethodPut, "/api/admin/applications/1/status", "",
		dto.StatusUpdateRequest{Status: string(models.StatusApproved)})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestApplicationRoutes_ForeignOwnerGets404(t *testing.T) {
	fixture := setupPortal(t)
	_, agentAToken := fixture.seedUser(t, "agent-a@example.com", models.RoleAgent)
	_, agentBToken := fixture.seedUser(t, "agent-b@example.com", models.RoleAgent)

	resp := fixture.request(t, http.MethodPost, "/api/applications", agentAToken, createPayload())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created dto.ApplicationResponse
	decodeEnvelope(t, resp, &created)

	resp = fixture.request(t, http.MethodGet, fmt.Sprintf("/api/applications/%d", created.ID), agentBToken, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = fixture.request(t, http.MethodPost, fmt.Sprintf("/api/applications/%d/submit", created.ID), agentBToken, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	// The application is untouched and no audit entry was written.
	var reloaded models.Application
	require.NoError(t, fixture.db.First(&reloaded, created.ID).Error)
	require.Equal(t, models.StatusDraft, reloaded.Status)

	var auditCount int64
	require.NoError(t, fixture.db.Model(&models.AuditLog{}).Count(&auditCount).Error)
	require.EqualValues(t, 0, auditCount)
}

func TestApplicationRoutes_SubmitAndApproveFlow(t *testing.T) {
	fixture := setupPortal(t)
	agent, agentToken := fixture.seedUser(t, "agent@example.com", models.RoleAgent)
	_, adminToken := fixture.seedUser(t, "admin@example.com", models.RoleAdmin)

	resp := fixture.request(t, http.MethodPost, "/api/applications", agentToken, createPayload())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created dto.ApplicationResponse
	decodeEnvelope(t, resp, &created)
	require.Equal(t, agent.ID, created.OwnerID)

	resp = fixture.request(t, http.MethodPost, fmt.Sprintf("/api/applications/%d/submit", created.ID), agentToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var submitted dto.ApplicationResponse
	decodeEnvelope(t, resp, &submitted)
	require.Equal(t, models.StatusSubmitted, submitted.Status)
	require.Len(t, submitted.StatusHistory, 2)

	// A second submit conflicts.
	resp = fixture.request(t, http.MethodPost, fmt.Sprintf("/api/applications/%d/submit", created.ID), agentToken, nil)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	// The owner cannot reach the review endpoint's semantics.
	resp = fixture.request(t, http.MethodPut, fmt.Sprintf("/api/admin/applications/%d/status", created.ID), agentToken,
		dto.StatusUpdateRequest{Status: string(models.StatusApproved)})
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = fixture.request(t, http.MethodPut, fmt.Sprintf("/api/admin/applications/%d/status", created.ID), adminToken,
		dto.StatusUpdateRequest{Status: string(models.StatusApproved), ConditionalOfferTerms: "IELTS 6.5"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var approved dto.ApplicationResponse
	decodeEnvelope(t, resp, &approved)
	require.Equal(t, models.StatusApproved, approved.Status)
	require.Equal(t, "IELTS 6.5", approved.ConditionalOfferTerms)

	// The transition left an audit entry behind.
	var audits []models.AuditLog
	require.NoError(t, fixture.db.Find(&audits).Error)
	require.Len(t, audits, 2)
}

func TestAdminRoutes_AgentCannotList(t *testing.T) {
	fixture := setupPortal(t)
	_, agentToken := fixture.seedUser(t, "agent@example.com", models.RoleAgent)

	resp := fixture.request(t, http.MethodGet, "/api/admin/applications", agentToken, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = fixture.request(t, http.MethodGet, "/api/admin/audit-logs", agentToken, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAdminRoutes_SubAdminScope(t *testing.T) {
	fixture := setupPortal(t)
	_, subAdminToken := fixture.seedUser(t, "sub@example.com", models.RoleSubAdmin)

	// Applications are within the sub-admin subset.
	resp := fixture.request(t, http.MethodGet, "/api/admin/applications", subAdminToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Account management and the audit trail are not.
	resp = fixture.request(t, http.MethodPost, "/api/admin/users", subAdminToken,
		dto.AdminUserCreateRequest{Email: "x@example.com", FullName: "X"})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = fixture.request(t, http.MethodGet, "/api/admin/audit-logs", subAdminToken, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestHealthAndLogin(t *testing.T) {
	fixture := setupPortal(t)

	resp := fixture.request(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Register then log in through the HTTP surface.
	resp = fixture.request(t, http.MethodPost, "/register", "", dto.RegisterRequest{
		Username: "student@example.com", Password: "s3cret-pass", FullName: "Omar",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = fixture.request(t, http.MethodPost, "/login", "", dto.LoginRequest{
		Username: "student@example.com", Password: "s3cret-pass",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var auth dto.AuthResponse
	decodeEnvelope(t, resp, &auth)
	require.NotEmpty(t, auth.Token)

	resp = fixture.request(t, http.MethodGet, "/api/user", auth.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}
