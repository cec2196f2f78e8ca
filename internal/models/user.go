package models

import (
	"strings"
	"time"
)

// Role identifies the permission tier an account belongs to.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSubAdmin Role = "sub-admin"
	RoleAgent    Role = "agent"
	RoleStudent  Role = "student"
)

// ParseRole normalizes a raw role string into a Role, reporting whether it is known.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch role {
	case RoleAdmin, RoleSubAdmin, RoleAgent, RoleStudent:
		return role, true
	default:
		return "", false
	}
}

// IsStaff reports whether the role carries administrative access.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleSubAdmin
}

// User represents an authenticated portal account.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	FullName     string    `gorm:"size:255" json:"full_name"`
	Phone        string    `gorm:"size:32" json:"phone"`
	Role         Role      `gorm:"size:32;not null;index" json:"role"`
	Active       bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
