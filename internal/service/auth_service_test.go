package service_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/admitgate/admitgate-api/internal/dto"
	"github.com/admitgate/admitgate-api/internal/models"
	"github.com/admitgate/admitgate-api/internal/repository"
	"github.com/admitgate/admitgate-api/internal/service"
	"github.com/admitgate/admitgate-api/internal/session"
)

func setupAuthService(t *testing.T) (service.AuthService, repository.UserRepository) {
	t.Helper()

	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	validate := validator.New(validator.WithRequiredStructEnabled())

	svc := service.NewAuthService(users, validate, "test-secret", time.Hour, zerolog.New(io.Discard))
	return svc, users
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc, _ := setupAuthService(t)

	registered, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "Student@Example.com",
		Password: "s3cret-pass",
		FullName: "Omar Al Farsi",
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleStudent, registered.User.Role)
	require.Equal(t, "student@example.com", registered.User.Email)
	require.NotEmpty(t, registered.Token)

	claims, err := session.Parse(registered.Token, "test-secret")
	require.NoError(t, err)
	require.Equal(t, registered.User.ID, claims.UserID)
	require.Equal(t, models.RoleStudent, claims.Role)

	loggedIn, err := svc.Login(context.Background(), dto.LoginRequest{
		Username: "student@example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	require.Equal(t, registered.User.ID, loggedIn.User.ID)
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	svc, _ := setupAuthService(t)

	payload := dto.RegisterRequest{Username: "dupe@example.com", Password: "s3cret-pass", FullName: "First"}
	_, err := svc.Register(context.Background(), payload)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), payload)
	require.ErrorIs(t, err, service.ErrEmailTaken)
}

func TestAuthService_LoginWrongPassword(t *testing.T) {
	svc, _ := setupAuthService(t)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "student@example.com", Password: "s3cret-pass", FullName: "Omar",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), dto.LoginRequest{
		Username: "student@example.com", Password: "wrong-pass",
	})
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestAuthService_LoginUnknownEmailIndistinguishable(t *testing.T) {
	svc, _ := setupAuthService(t)

	_, err := svc.Login(context.Background(), dto.LoginRequest{
		Username: "nobody@example.com", Password: "whatever-pass",
	})
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestAuthService_LoginInactiveAccount(t *testing.T) {
	svc, users := setupAuthService(t)

	registered, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "student@example.com", Password: "s3cret-pass", FullName: "Omar",
	})
	require.NoError(t, err)

	user, err := users.GetByID(context.Background(), registered.User.ID)
	require.NoError(t, err)
	user.Active = false
	require.NoError(t, users.Update(context.Background(), &user))

	// Wrong password on a deactivated account still reads as bad credentials.
	_, err = svc.Login(context.Background(), dto.LoginRequest{
		Username: "student@example.com", Password: "wrong-pass",
	})
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), dto.LoginRequest{
		Username: "student@example.com", Password: "s3cret-pass",
	})
	require.ErrorIs(t, err, service.ErrAccountInactive)
}

func TestAuthService_CurrentUser(t *testing.T) {
	svc, _ := setupAuthService(t)

	registered, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "student@example.com", Password: "s3cret-pass", FullName: "Omar",
	})
	require.NoError(t, err)

	current, err := svc.CurrentUser(context.Background(), registered.User.ID)
	require.NoError(t, err)
	require.Equal(t, "student@example.com", current.Email)

	_, err = svc.CurrentUser(context.Background(), 9999)
	require.ErrorIs(t, err, service.ErrUserNotFound)
}
