package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/admitgate/admitgate-api/internal/dto"
	"github.com/admitgate/admitgate-api/internal/models"
	"github.com/admitgate/admitgate-api/internal/repository"
	"github.com/admitgate/admitgate-api/internal/session"
)

var (
	// ErrInvalidCredentials covers both an unknown username and a password
	// mismatch, indistinguishably.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive indicates valid credentials against a deactivated
	// account. Only ever returned after the password has been verified.
	ErrAccountInactive = errors.New("account is inactive")
	// ErrEmailTaken indicates the registration email is already in use.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound indicates the account does not exist.
	ErrUserNotFound = errors.New("user not found")
)

const bcryptCost = 12

// dummyHash keeps the credential check doing bcrypt work even when the
// username is unknown, so response timing does not reveal which emails exist.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("admitgate-timing-pad"), bcryptCost)

// AuthService authenticates credentials and issues session tokens.
type AuthService interface {
	Login(ctx context.Context, payload dto.LoginRequest) (dto.AuthResponse, error)
	Register(ctx context.Context, payload dto.RegisterRequest) (dto.AuthResponse, error)
	CurrentUser(ctx context.Context, userID uint) (dto.UserResponse, error)
}

type authService struct {
	users      repository.UserRepository
	validator  *validator.Validate
	logger     zerolog.Logger
	secret     string
	sessionTTL time.Duration
}

// NewAuthService constructs the authentication service.
func NewAuthService(users repository.UserRepository, validator *validator.Validate, secret string, sessionTTL time.Duration, logger zerolog.Logger) AuthService {
	return &authService{
		users:      users,
		validator:  validator,
		logger:     logger.With().Str("component", "auth_service").Logger(),
		secret:     secret,
		sessionTTL: sessionTTL,
	}
}

func (s *authService) Login(ctx context.Context, payload dto.LoginRequest) (dto.AuthResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AuthResponse{}, err
	}

	user, err := s.users.GetByEmail(ctx, payload.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(payload.Password))
			return dto.AuthResponse{}, ErrInvalidCredentials
		}
		return dto.AuthResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
		return dto.AuthResponse{}, ErrInvalidCredentials
	}

	// The inactive message is only revealed once the caller has proven they
	// hold the credentials.
	if !user.Active {
		return dto.AuthResponse{}, ErrAccountInactive
	}

	token, err := session.New(user, s.secret, s.sessionTTL)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to sign session token")
		return dto.AuthResponse{}, err
	}

	return dto.AuthResponse{User: dto.NewUserResponse(user), Token: token}, nil
}

func (s *authService) Register(ctx context.Context, payload dto.RegisterRequest) (dto.AuthResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AuthResponse{}, err
	}

	email := strings.ToLower(strings.TrimSpace(payload.Username))
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return dto.AuthResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.AuthResponse{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcryptCost)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	user := models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(payload.FullName),
		Phone:        strings.TrimSpace(payload.Phone),
		Role:         models.RoleStudent,
		Active:       true,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		return dto.AuthResponse{}, err
	}

	token, err := session.New(user, s.secret, s.sessionTTL)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("student account registered")
	return dto.AuthResponse{User: dto.NewUserResponse(user), Token: token}, nil
}

func (s *authService) CurrentUser(ctx context.Context, userID uint) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}
