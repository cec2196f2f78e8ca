package service_test

import (
	"context"
	"io"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/admitgate/admitgate-api/internal/authz"
	"github.com/admitgate/admitgate-api/internal/dto"
	"github.com/admitgate/admitgate-api/internal/models"
	"github.com/admitgate/admitgate-api/internal/repository"
	"github.com/admitgate/admitgate-api/internal/service"
)

func setupUserService(t *testing.T) (service.UserService, *gorm.DB, *recordingDispatcher) {
	t.Helper()

	db := newTestDB(t)
	dispatcher := &recordingDispatcher{}
	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	audit := service.NewAuditService(repository.NewAuditLogRepository(db), logger)
	svc := service.NewUserService(repository.NewUserRepository(db), audit, dispatcher, validate, logger)
	return svc, db, dispatcher
}

func subAdminIdentity(id uint) authz.Identity {
	return authz.Identity{ID: id, Role: models.RoleSubAdmin, Active: true}
}

func seedUser(t *testing.T, db *gorm.DB, email string, role models.Role) models.User {
	t.Helper()

	user := models.User{Email: email, FullName: "Seed User", Role: role, PasswordHash: "x", Active: true}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestUserService_CreateAgentForcesRoleAndAudits(t *testing.T) {
	svc, db, dispatcher := setupUserService(t)
	admin := seedUser(t, db, "admin@example.com", models.RoleAdmin)

	resp, err := svc.CreateAgent(context.Background(), adminIdentity(admin.ID), dto.AdminUserCreateRequest{
		Email:    "Agent@Example.com",
		FullName: "Gulf Education Partners",
	}, service.RequestMeta{IPAddress: "198.51.100.4"})
	require.NoError(t, err)
	require.Equal(t, models.RoleAgent, resp.Role)
	require.Equal(t, "agent@example.com", resp.Email)
	require.True(t, resp.Active)

	var audits []models.AuditLog
	require.NoError(t, db.Find(&audits).Error)
	require.Len(t, audits, 1)
	require.Equal(t, models.AuditActionCreateUser, audits[0].Action)
	require.Equal(t, admin.ID, audits[0].ActorID)
	require.Equal(t, "agent", audits[0].NewData["role"])
	require.Equal(t, "198.51.100.4", audits[0].IPAddress)

	kinds := dispatcher.kinds()
	require.Equal(t, []service.EventKind{service.EventUserCreated}, kinds)
	require.NotEmpty(t, dispatcher.events[0].TempPassword)
}

func TestUserService_CreateSubAdminRequiresFullAdmin(t *testing.T) {
	svc, db, _ := setupUserService(t)
	subAdmin := seedUser(t, db, "sub@example.com", models.RoleSubAdmin)

	_, err := svc.CreateSubAdmin(context.Background(),
		subAdminIdentity(subAdmin.ID),
		dto.AdminSubAdminCreateRequest{Email: "new@example.com", FullName: "New Staff", Password: "long-enough"},
		service.RequestMeta{})
	require.ErrorIs(t, err, service.ErrForbidden)
}

func TestUserService_AdminCannotMutateOtherAdmin(t *testing.T) {
	svc, db, _ := setupUserService(t)
	admin := seedUser(t, db, "admin@example.com", models.RoleAdmin)
	peer := seedUser(t, db, "peer@example.com", models.RoleAdmin)

	_, err := svc.Update(context.Background(), adminIdentity(admin.ID), peer.ID,
		dto.AdminUserUpdateRequest{FullName: "Hijacked"}, service.RequestMeta{})
	require.ErrorIs(t, err, service.ErrAdminProtected)

	_, err = svc.SetActive(context.Background(), adminIdentity(admin.ID), peer.ID, false, service.RequestMeta{})
	require.ErrorIs(t, err, service.ErrAdminProtected)

	err = svc.Delete(context.Background(), adminIdentity(admin.ID), peer.ID, service.RequestMeta{})
	require.ErrorIs(t, err, service.ErrAdminProtected)

	// The denials left no audit entries behind, and the peer is untouched.
	var auditCount int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&auditCount).Error)
	require.EqualValues(t, 0, auditCount)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, peer.ID).Error)
	require.True(t, reloaded.Active)
	require.Equal(t, "Seed User", reloaded.FullName)
}

func TestUserService_AdminMaySelfServe(t *testing.T) {
	svc, db, _ := setupUserService(t)
	admin := seedUser(t, db, "admin@example.com", models.RoleAdmin)

	resp, err := svc.Update(context.Background(), adminIdentity(admin.ID), admin.ID,
		dto.AdminUserUpdateRequest{FullName: "Renamed Admin"}, service.RequestMeta{})
	require.NoError(t, err)
	require.Equal(t, "Renamed Admin", resp.FullName)

	// Even self-deletion is off the table for admin accounts.
	err = svc.Delete(context.Background(), adminIdentity(admin.ID), admin.ID, service.RequestMeta{})
	require.ErrorIs(t, err, service.ErrAdminProtected)
}

func TestUserService_DeactivateAgentAudited(t *testing.T) {
	svc, db, _ := setupUserService(t)
	admin := seedUser(t, db, "admin@example.com", models.RoleAdmin)
	agent := seedUser(t, db, "agent@example.com", models.RoleAgent)

	resp, err := svc.SetActive(context.Background(), adminIdentity(admin.ID), agent.ID, false, service.RequestMeta{})
	require.NoError(t, err)
	require.False(t, resp.Active)

	var audits []models.AuditLog
	require.NoError(t, db.Find(&audits).Error)
	require.Len(t, audits, 1)
	require.Equal(t, models.AuditActionUpdateUserStatus, audits[0].Action)
	require.Equal(t, true, audits[0].PreviousData["active"])
	require.Equal(t, false, audits[0].NewData["active"])
}

func TestUserService_DeleteAgent(t *testing.T) {
	svc, db, _ := setupUserService(t)
	admin := seedUser(t, db, "admin@example.com", models.RoleAdmin)
	agent := seedUser(t, db, "agent@example.com", models.RoleAgent)

	require.NoError(t, svc.Delete(context.Background(), adminIdentity(admin.ID), agent.ID, service.RequestMeta{}))

	err := db.First(&models.User{}, agent.ID).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var audits []models.AuditLog
	require.NoError(t, db.Find(&audits).Error)
	require.Len(t, audits, 1)
	require.Equal(t, models.AuditActionDeleteUser, audits[0].Action)
}

func TestUserService_SubAdminCannotManageUsers(t *testing.T) {
	svc, db, _ := setupUserService(t)
	subAdmin := seedUser(t, db, "sub@example.com", models.RoleSubAdmin)
	agent := seedUser(t, db, "agent@example.com", models.RoleAgent)

	actor := subAdminIdentity(subAdmin.ID)

	_, err := svc.CreateAgent(context.Background(), actor, dto.AdminUserCreateRequest{
		Email: "x@example.com", FullName: "X",
	}, service.RequestMeta{})
	require.ErrorIs(t, err, service.ErrForbidden)

	_, err = svc.SetActive(context.Background(), actor, agent.ID, false, service.RequestMeta{})
	require.ErrorIs(t, err, service.ErrForbidden)

	// Viewing stays within the sub-admin subset.
	_, err = svc.Get(context.Background(), actor, agent.ID)
	require.NoError(t, err)
}
