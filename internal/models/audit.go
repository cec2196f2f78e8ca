package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audit actions recorded by the portal.
const (
	AuditActionUpdateApplicationStatus = "update-application-status"
	AuditActionCreateUser              = "create-user"
	AuditActionUpdateUser              = "update-user"
	AuditActionUpdateUserStatus        = "update-user-status"
	AuditActionDeleteUser              = "delete-user"
)

// AuditLog is one immutable entry in the append-only audit trail. Entries are
// never updated or deleted once written.
type AuditLog struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	ActorID      uint              `gorm:"not null;index" json:"actor_id"`
	Action       string            `gorm:"size:64;not null;index" json:"action"`
	ResourceType string            `gorm:"size:64;not null;index" json:"resource_type"`
	ResourceID   *uint             `gorm:"index" json:"resource_id"`
	PreviousData datatypes.JSONMap `gorm:"type:json" json:"previous_data"`
	NewData      datatypes.JSONMap `gorm:"type:json" json:"new_data"`
	IPAddress    string            `gorm:"size:64" json:"ip_address"`
	UserAgent    string            `gorm:"size:255" json:"user_agent"`
	CreatedAt    time.Time         `json:"created_at"`
}
