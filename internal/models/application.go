package models

import (
	"strings"
	"time"
)

// ApplicationStatus enumerates the lifecycle states of a program application.
type ApplicationStatus string

const (
	StatusDraft       ApplicationStatus = "draft"
	StatusSubmitted   ApplicationStatus = "submitted"
	StatusUnderReview ApplicationStatus = "under-review"
	StatusApproved    ApplicationStatus = "approved"
	StatusRejected    ApplicationStatus = "rejected"
	StatusIncomplete  ApplicationStatus = "incomplete"
)

// ParseApplicationStatus normalizes a raw status string, reporting whether it is a known status.
func ParseApplicationStatus(raw string) (ApplicationStatus, bool) {
	status := ApplicationStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case StatusDraft, StatusSubmitted, StatusUnderReview, StatusApproved, StatusRejected, StatusIncomplete:
		return status, true
	default:
		return "", false
	}
}

// CanTransition reports whether moving an application from one status to another is legal.
// A draft can only be submitted; once submitted, every review state is reachable from every
// other, but nothing returns to draft.
func CanTransition(from, to ApplicationStatus) bool {
	if _, ok := ParseApplicationStatus(string(to)); !ok {
		return false
	}
	if to == StatusDraft || from == to {
		return false
	}
	if from == StatusDraft {
		return to == StatusSubmitted
	}
	return true
}

// Application is a student's submission to a university program.
type Application struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	OwnerID   uint `gorm:"not null;index" json:"owner_id"`
	ProgramID uint `gorm:"not null;index" json:"program_id"`

	StudentName  string `gorm:"size:255;not null" json:"student_name"`
	StudentEmail string `gorm:"size:255;not null" json:"student_email"`
	Phone        string `gorm:"size:32" json:"phone"`
	DateOfBirth  string `gorm:"size:16" json:"date_of_birth"`
	Nationality  string `gorm:"size:64" json:"nationality"`
	Gender       string `gorm:"size:16" json:"gender"`

	Qualification  string  `gorm:"size:128" json:"qualification"`
	Institution    string  `gorm:"size:255" json:"institution"`
	GraduationYear int     `json:"graduation_year"`
	CGPA           float64 `json:"cgpa"`
	IntakeDate     string  `gorm:"size:16" json:"intake_date"`
	Notes          string  `gorm:"type:text" json:"notes"`

	Status                ApplicationStatus `gorm:"size:32;not null;index" json:"status"`
	AdminNotes            string            `gorm:"type:text" json:"admin_notes"`
	RejectionReason       string            `gorm:"type:text" json:"rejection_reason"`
	ConditionalOfferTerms string            `gorm:"type:text" json:"conditional_offer_terms"`

	StatusHistory []ApplicationStatusHistory `gorm:"foreignKey:ApplicationID" json:"status_history"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Editable reports whether the owner may still modify application fields.
func (a Application) Editable() bool {
	return a.Status == StatusDraft || a.Status == StatusIncomplete
}

// ApplicationStatusHistory is one append-only entry in an application's transition trail.
type ApplicationStatusHistory struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	ApplicationID uint              `gorm:"not null;index" json:"application_id"`
	FromStatus    ApplicationStatus `gorm:"size:32;not null" json:"from_status"`
	ToStatus      ApplicationStatus `gorm:"size:32;not null" json:"to_status"`
	Notes         string            `gorm:"type:text" json:"notes"`
	ChangedBy     uint              `gorm:"not null" json:"changed_by"`
	CreatedAt     time.Time         `json:"created_at"`
}
