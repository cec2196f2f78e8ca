package dto

import (
	"time"

	"github.com/admitgate/admitgate-api/internal/models"
)

// LoginRequest carries credentials for session issuance.
type LoginRequest struct {
	Username string `json:"username" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest creates a new student account.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required,max=255"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
}

// UserResponse is the non-secret projection of an account returned to callers.
type UserResponse struct {
	ID        uint        `json:"id"`
	Email     string      `json:"email"`
	FullName  string      `json:"full_name"`
	Phone     string      `json:"phone"`
	Role      models.Role `json:"role"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewUserResponse maps a user model to its response form. The password hash
// never crosses this boundary.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Phone:     user.Phone,
		Role:      user.Role,
		Active:    user.Active,
		CreatedAt: user.CreatedAt,
	}
}

// AuthResponse bundles the identity with its session token.
type AuthResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}
