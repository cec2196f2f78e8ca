package dto

import "github.com/admitgate/admitgate-api/internal/models"

// UniversityResponse is one catalog institution.
type UniversityResponse struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Emirate string `json:"emirate"`
	City    string `json:"city"`
	Website string `json:"website"`
}

// NewUniversityResponse maps a university model to its response form.
func NewUniversityResponse(u models.University) UniversityResponse {
	return UniversityResponse{
		ID:      u.ID,
		Name:    u.Name,
		Emirate: u.Emirate,
		City:    u.City,
		Website: u.Website,
	}
}

// ProgramResponse is one catalog program.
type ProgramResponse struct {
	ID            uint   `json:"id"`
	UniversityID  uint   `json:"university_id"`
	Name          string `json:"name"`
	Degree        string `json:"degree"`
	DurationYears int    `json:"duration_years"`
	TuitionAED    int    `json:"tuition_aed"`
}

// NewProgramResponse maps a program model to its response form.
func NewProgramResponse(p models.Program) ProgramResponse {
	return ProgramResponse{
		ID:            p.ID,
		UniversityID:  p.UniversityID,
		Name:          p.Name,
		Degree:        p.Degree,
		DurationYears: p.DurationYears,
		TuitionAED:    p.TuitionAED,
	}
}
