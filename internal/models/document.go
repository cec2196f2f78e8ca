package models

import "time"

// Document is a file attached to an application. Its presence never influences
// the application status.
type Document struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ApplicationID    uint      `gorm:"not null;index" json:"application_id"`
	DocumentType     string    `gorm:"size:64;not null" json:"document_type"`
	OriginalFilename string    `gorm:"size:255;not null" json:"original_filename"`
	Size             int64     `gorm:"not null" json:"size"`
	MimeType         string    `gorm:"size:128" json:"mime_type"`
	BlobRef          string    `gorm:"size:512" json:"blob_ref"`
	CreatedAt        time.Time `json:"created_at"`
}
