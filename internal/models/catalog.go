package models

import "time"

// University represents an institution in the read-only catalog.
type University struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Emirate   string    `gorm:"size:64" json:"emirate"`
	City      string    `gorm:"size:128" json:"city"`
	Website   string    `gorm:"size:255" json:"website"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Programs []Program `gorm:"foreignKey:UniversityID" json:"programs,omitempty"`
}

// Program is a degree program offered by a university.
type Program struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UniversityID  uint       `gorm:"not null;index" json:"university_id"`
	Name          string     `gorm:"size:255;not null" json:"name"`
	Degree        string     `gorm:"size:64" json:"degree"`
	DurationYears int        `json:"duration_years"`
	TuitionAED    int        `json:"tuition_aed"`
	Active        bool       `gorm:"not null;default:true" json:"active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	University    University `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"university"`
}
