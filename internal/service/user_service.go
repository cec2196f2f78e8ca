package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/admitgate/admitgate-api/internal/authz"
	"github.com/admitgate/admitgate-api/internal/dto"
	"github.com/admitgate/admitgate-api/internal/models"
	"github.com/admitgate/admitgate-api/internal/repository"
)

// ErrAdminProtected indicates an attempt to mutate another admin account.
var ErrAdminProtected = errors.New("admin accounts cannot be modified by other admins")

// UserService exposes admin-facing account management. Every mutation is
// audited; an audit write failure fails the operation.
type UserService interface {
	List(ctx context.Context, actor authz.Identity, req dto.AdminUserListRequest) (dto.UserListResponse, error)
	Get(ctx context.Context, actor authz.Identity, id uint) (dto.UserResponse, error)
	CreateAgent(ctx context.Context, actor authz.Identity, payload dto.AdminUserCreateRequest, meta RequestMeta) (dto.UserResponse, error)
	CreateSubAdmin(ctx context.Context, actor authz.Identity, payload dto.AdminSubAdminCreateRequest, meta RequestMeta) (dto.UserResponse, error)
	Update(ctx context.Context, actor authz.Identity, id uint, payload dto.AdminUserUpdateRequest, meta RequestMeta) (dto.UserResponse, error)
	SetActive(ctx context.Context, actor authz.Identity, id uint, active bool, meta RequestMeta) (dto.UserResponse, error)
	Delete(ctx context.Context, actor authz.Identity, id uint, meta RequestMeta) error
}

type userService struct {
	users      repository.UserRepository
	audit      AuditRecorder
	dispatcher NotificationDispatcher
	validator  *validator.Validate
	logger     zerolog.Logger
}

// NewUserService constructs the user management service.
func NewUserService(users repository.UserRepository, audit AuditRecorder, dispatcher NotificationDispatcher, validator *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		users:      users,
		audit:      audit,
		dispatcher: dispatcher,
		validator:  validator,
		logger:     logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) List(ctx context.Context, actor authz.Identity, req dto.AdminUserListRequest) (dto.UserListResponse, error) {
	if !authz.Can(actor, authz.ActionUserView, authz.Resource{Type: authz.ResourceUser}) {
		return dto.UserListResponse{}, ErrForbidden
	}

	filter := repository.UserFilter{
		Page:     req.Page,
		PageSize: req.PageSize,
		Search:   req.Search,
	}
	if req.Role != "" {
		role, ok := models.ParseRole(req.Role)
		if !ok {
			return dto.UserListResponse{}, errors.New("unknown role filter")
		}
		filter.Role = role
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return dto.UserListResponse{}, err
	}

	items := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		items = append(items, dto.NewUserResponse(user))
	}

	pagination := dto.PaginationMeta{
		Page:       maxInt(req.Page, 1),
		PageSize:   req.PageSize,
		TotalItems: total,
		TotalPages: 1,
	}
	if req.PageSize > 0 {
		pagination.TotalPages = int(math.Ceil(float64(total) / float64(req.PageSize)))
	}

	return dto.UserListResponse{Items: items, Pagination: pagination}, nil
}

func (s *userService) Get(ctx context.Context, actor authz.Identity, id uint) (dto.UserResponse, error) {
	if !authz.Can(actor, authz.ActionUserView, authz.Resource{Type: authz.ResourceUser}) {
		return dto.UserResponse{}, ErrForbidden
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}

// CreateAgent provisions an agent account with a generated temporary password.
// The role is forced to agent regardless of the payload.
func (s *userService) CreateAgent(ctx context.Context, actor authz.Identity, payload dto.AdminUserCreateRequest, meta RequestMeta) (dto.UserResponse, error) {
	if !authz.Can(actor, authz.ActionUserCreate, authz.Resource{Type: authz.ResourceUser}) {
		return dto.UserResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	tempPassword := uuid.NewString()
	user, err := s.provision(ctx, actor, models.User{
		Email:    strings.ToLower(strings.TrimSpace(payload.Email)),
		FullName: strings.TrimSpace(payload.FullName),
		Phone:    strings.TrimSpace(payload.Phone),
		Role:     models.RoleAgent,
		Active:   true,
	}, tempPassword, meta)
	if err != nil {
		return dto.UserResponse{}, err
	}

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(Event{Kind: EventUserCreated, User: &user, TempPassword: tempPassword})
	}

	return dto.NewUserResponse(user), nil
}

func (s *userService) CreateSubAdmin(ctx context.Context, actor authz.Identity, payload dto.AdminSubAdminCreateRequest, meta RequestMeta) (dto.UserResponse, error) {
	// Only full admins provision staff.
	if actor.Role != models.RoleAdmin || !authz.Can(actor, authz.ActionUserCreate, authz.Resource{Type: authz.ResourceUser}) {
		return dto.UserResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	user, err := s.provision(ctx, actor, models.User{
		Email:    strings.ToLower(strings.TrimSpace(payload.Email)),
		FullName: strings.TrimSpace(payload.FullName),
		Role:     models.RoleSubAdmin,
		Active:   true,
	}, payload.Password, meta)
	if err != nil {
		return dto.UserResponse{}, err
	}

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(Event{Kind: EventSubAdminWelcome, User: &user})
	}

	return dto.NewUserResponse(user), nil
}

func (s *userService) Update(ctx context.Context, actor authz.Identity, id uint, payload dto.AdminUserUpdateRequest, meta RequestMeta) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return dto.UserResponse{}, err
	}
	if !authz.Can(actor, authz.ActionUserUpdate, authz.UserResource(user.ID, user.Role)) {
		if user.Role == models.RoleAdmin {
			return dto.UserResponse{}, ErrAdminProtected
		}
		return dto.UserResponse{}, ErrForbidden
	}

	previous := map[string]interface{}{"email": user.Email, "full_name": user.FullName, "phone": user.Phone}

	if payload.Email != "" {
		user.Email = strings.ToLower(strings.TrimSpace(payload.Email))
	}
	if payload.FullName != "" {
		user.FullName = strings.TrimSpace(payload.FullName)
	}
	if payload.Phone != "" {
		user.Phone = strings.TrimSpace(payload.Phone)
	}
	// Role is never updatable through this path.

	if err := s.users.Update(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}

	if err := s.recordAudit(ctx, actor, models.AuditActionUpdateUser, user.ID, previous, map[string]interface{}{
		"email": user.Email, "full_name": user.FullName, "phone": user.Phone,
	}, meta); err != nil {
		return dto.UserResponse{}, err
	}

	return dto.NewUserResponse(user), nil
}

func (s *userService) SetActive(ctx context.Context, actor authz.Identity, id uint, active bool, meta RequestMeta) (dto.UserResponse, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return dto.UserResponse{}, err
	}
	if !authz.Can(actor, authz.ActionUserSetStatus, authz.UserResource(user.ID, user.Role)) {
		if user.Role == models.RoleAdmin {
			return dto.UserResponse{}, ErrAdminProtected
		}
		return dto.UserResponse{}, ErrForbidden
	}

	previous := user.Active
	user.Active = active
	if err := s.users.Update(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}

	if err := s.recordAudit(ctx, actor, models.AuditActionUpdateUserStatus, user.ID,
		map[string]interface{}{"active": previous},
		map[string]interface{}{"active": active}, meta); err != nil {
		return dto.UserResponse{}, err
	}

	return dto.NewUserResponse(user), nil
}

func (s *userService) Delete(ctx context.Context, actor authz.Identity, id uint, meta RequestMeta) error {
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !authz.Can(actor, authz.ActionUserDelete, authz.UserResource(user.ID, user.Role)) {
		if user.Role == models.RoleAdmin {
			return ErrAdminProtected
		}
		return ErrForbidden
	}
	// Admin accounts are never hard-deleted, not even one's own.
	if user.Role == models.RoleAdmin {
		return ErrAdminProtected
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}

	return s.recordAudit(ctx, actor, models.AuditActionDeleteUser, id,
		map[string]interface{}{"email": user.Email, "role": string(user.Role)}, nil, meta)
}

func (s *userService) provision(ctx context.Context, actor authz.Identity, user models.User, password string, meta RequestMeta) (models.User, error) {
	if _, err := s.users.GetByEmail(ctx, user.Email); err == nil {
		return models.User{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return models.User{}, err
	}
	user.PasswordHash = string(hash)

	if err := s.users.Create(ctx, &user); err != nil {
		return models.User{}, err
	}

	if err := s.recordAudit(ctx, actor, models.AuditActionCreateUser, user.ID, nil, map[string]interface{}{
		"email": user.Email, "role": string(user.Role),
	}, meta); err != nil {
		return models.User{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Str("role", string(user.Role)).Msg("account provisioned")
	return user, nil
}

func (s *userService) recordAudit(ctx context.Context, actor authz.Identity, action string, resourceID uint, previous, next map[string]interface{}, meta RequestMeta) error {
	id := resourceID
	return s.audit.Record(ctx, AuditEntry{
		ActorID:      actor.ID,
		Action:       action,
		ResourceType: string(authz.ResourceUser),
		ResourceID:   &id,
		PreviousData: previous,
		NewData:      next,
		Meta:         meta,
	})
}

func (s *userService) load(ctx context.Context, id uint) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
