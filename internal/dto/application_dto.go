package dto

import (
	"time"

	"github.com/admitgate/admitgate-api/internal/models"
)

// ApplicationCreateRequest opens a new application in draft, or directly in
// submitted when Submit is set.
type ApplicationCreateRequest struct {
	ProgramID      uint    `json:"program_id" validate:"required"`
	StudentName    string  `json:"student_name" validate:"required,max=255"`
	StudentEmail   string  `json:"student_email" validate:"required,email"`
	Phone          string  `json:"phone" validate:"omitempty,max=32"`
	DateOfBirth    string  `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Nationality    string  `json:"nationality" validate:"omitempty,max=64"`
	Gender         string  `json:"gender" validate:"omitempty,oneof=male female"`
	Qualification  string  `json:"qualification" validate:"omitempty,max=128"`
	Institution    string  `json:"institution" validate:"omitempty,max=255"`
	GraduationYear int     `json:"graduation_year" validate:"omitempty,min=1950,max=2100"`
	CGPA           float64 `json:"cgpa" validate:"omitempty,min=0,max=4"`
	IntakeDate     string  `json:"intake_date" validate:"omitempty,datetime=2006-01-02"`
	Notes          string  `json:"notes"`
	Submit         bool    `json:"submit"`
}

// ApplicationUpdateRequest edits owner-updatable fields while the application
// is still editable. The status field is deliberately absent.
type ApplicationUpdateRequest struct {
	StudentName    string  `json:"student_name" validate:"omitempty,max=255"`
	StudentEmail   string  `json:"student_email" validate:"omitempty,email"`
	Phone          string  `json:"phone" validate:"omitempty,max=32"`
	DateOfBirth    string  `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Nationality    string  `json:"nationality" validate:"omitempty,max=64"`
	Gender         string  `json:"gender" validate:"omitempty,oneof=male female"`
	Qualification  string  `json:"qualification" validate:"omitempty,max=128"`
	Institution    string  `json:"institution" validate:"omitempty,max=255"`
	GraduationYear int     `json:"graduation_year" validate:"omitempty,min=1950,max=2100"`
	CGPA           float64 `json:"cgpa" validate:"omitempty,min=0,max=4"`
	IntakeDate     string  `json:"intake_date" validate:"omitempty,datetime=2006-01-02"`
	Notes          string  `json:"notes"`
}

// StatusUpdateRequest drives a status transition.
type StatusUpdateRequest struct {
	Status                string `json:"status" validate:"required"`
	Notes                 string `json:"notes"`
	RejectionReason       string `json:"rejection_reason"`
	ConditionalOfferTerms string `json:"conditional_offer_terms"`
}

// AdminApplicationListRequest filters the admin application listing.
type AdminApplicationListRequest struct {
	Page     int
	PageSize int
	Status   string
	UserID   uint
	Search   string
}

// StatusHistoryResponse is one entry of an application's transition trail.
type StatusHistoryResponse struct {
	FromStatus models.ApplicationStatus `json:"from_status"`
	ToStatus   models.ApplicationStatus `json:"to_status"`
	Notes      string                   `json:"notes"`
	ChangedBy  uint                     `json:"changed_by"`
	Timestamp  time.Time                `json:"timestamp"`
}

// ApplicationResponse is the full representation returned to callers.
type ApplicationResponse struct {
	ID                    uint                     `json:"id"`
	OwnerID               uint                     `json:"owner_id"`
	ProgramID             uint                     `json:"program_id"`
	StudentName           string                   `json:"student_name"`
	StudentEmail          string                   `json:"student_email"`
	Phone                 string                   `json:"phone"`
	DateOfBirth           string                   `json:"date_of_birth"`
	Nationality           string                   `json:"nationality"`
	Gender                string                   `json:"gender"`
	Qualification         string                   `json:"qualification"`
	Institution           string                   `json:"institution"`
	GraduationYear        int                      `json:"graduation_year"`
	CGPA                  float64                  `json:"cgpa"`
	IntakeDate            string                   `json:"intake_date"`
	Notes                 string                   `json:"notes"`
	Status                models.ApplicationStatus `json:"status"`
	AdminNotes            string                   `json:"admin_notes"`
	RejectionReason       string                   `json:"rejection_reason"`
	ConditionalOfferTerms string                   `json:"conditional_offer_terms"`
	StatusHistory         []StatusHistoryResponse  `json:"status_history"`
	CreatedAt             time.Time                `json:"created_at"`
	UpdatedAt             time.Time                `json:"updated_at"`
}

// NewApplicationResponse maps an application model to its response form.
func NewApplicationResponse(app models.Application) ApplicationResponse {
	history := make([]StatusHistoryResponse, 0, len(app.StatusHistory))
	for _, entry := range app.StatusHistory {
		history = append(history, StatusHistoryResponse{
			FromStatus: entry.FromStatus,
			ToStatus:   entry.ToStatus,
			Notes:      entry.Notes,
			ChangedBy:  entry.ChangedBy,
			Timestamp:  entry.CreatedAt,
		})
	}

	return ApplicationResponse{
		ID:                    app.ID,
		OwnerID:               app.OwnerID,
		ProgramID:             app.ProgramID,
		StudentName:           app.StudentName,
		StudentEmail:          app.StudentEmail,
		Phone:                 app.Phone,
		DateOfBirth:           app.DateOfBirth,
		Nationality:           app.Nationality,
		Gender:                app.Gender,
		Qualification:         app.Qualification,
		Institution:           app.Institution,
		GraduationYear:        app.GraduationYear,
		CGPA:                  app.CGPA,
		IntakeDate:            app.IntakeDate,
		Notes:                 app.Notes,
		Status:                app.Status,
		AdminNotes:            app.AdminNotes,
		RejectionReason:       app.RejectionReason,
		ConditionalOfferTerms: app.ConditionalOfferTerms,
		StatusHistory:         history,
		CreatedAt:             app.CreatedAt,
		UpdatedAt:             app.UpdatedAt,
	}
}

// ApplicationListResponse wraps a page of applications.
type ApplicationListResponse struct {
	Items      []ApplicationResponse `json:"items"`
	Pagination PaginationMeta        `json:"pagination"`
}
