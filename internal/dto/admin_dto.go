package dto

import (
	"time"

	"github.com/admitgate/admitgate-api/internal/models"
)

// AdminUserCreateRequest provisions an agent account. The role is forced to
// agent server-side regardless of the payload.
type AdminUserCreateRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,max=255"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
}

// AdminSubAdminCreateRequest provisions a sub-admin account.
type AdminSubAdminCreateRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,max=255"`
	Password string `json:"password" validate:"required,min=8"`
}

// AdminUserUpdateRequest edits account fields. Role changes are not accepted
// through this payload.
type AdminUserUpdateRequest struct {
	Email    string `json:"email" validate:"omitempty,email"`
	FullName string `json:"full_name" validate:"omitempty,max=255"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
}

// AdminUserStatusRequest toggles the active flag.
type AdminUserStatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// AdminUserListRequest filters the user listing.
type AdminUserListRequest struct {
	Page     int
	PageSize int
	Role     string
	Search   string
}

// UserListResponse wraps a page of users.
type UserListResponse struct {
	Items      []UserResponse `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// AuditLogListRequest filters the audit trail.
type AuditLogListRequest struct {
	Page         int
	PageSize     int
	UserID       uint
	ResourceType string
	ResourceID   uint
	Action       string
}

// AuditLogResponse is one immutable audit entry.
type AuditLogResponse struct {
	ID           uint                   `json:"id"`
	ActorID      uint                   `json:"actor_id"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   *uint                  `json:"resource_id"`
	PreviousData map[string]interface{} `json:"previous_data"`
	NewData      map[string]interface{} `json:"new_data"`
	IPAddress    string                 `json:"ip_address,omitempty"`
	UserAgent    string                 `json:"user_agent,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// NewAuditLogResponse maps an audit entry to its response form.
func NewAuditLogResponse(entry models.AuditLog) AuditLogResponse {
	return AuditLogResponse{
		ID:           entry.ID,
		ActorID:      entry.ActorID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		PreviousData: entry.PreviousData,
		NewData:      entry.NewData,
		IPAddress:    entry.IPAddress,
		UserAgent:    entry.UserAgent,
		CreatedAt:    entry.CreatedAt,
	}
}

// AuditLogListResponse wraps a page of audit entries, newest first.
type AuditLogListResponse struct {
	Items      []AuditLogResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}
