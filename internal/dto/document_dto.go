package dto

import (
	"time"

	"github.com/admitgate/admitgate-api/internal/models"
)

// DocumentResponse describes an attached document.
type DocumentResponse struct {
	ID               uint      `json:"id"`
	ApplicationID    uint      `json:"application_id"`
	DocumentType     string    `json:"document_type"`
	OriginalFilename string    `json:"original_filename"`
	Size             int64     `json:"size"`
	MimeType         string    `json:"mime_type"`
	BlobRef          string    `json:"blob_ref"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewDocumentResponse maps a document model to its response form.
func NewDocumentResponse(doc models.Document) DocumentResponse {
	return DocumentResponse{
		ID:               doc.ID,
		ApplicationID:    doc.ApplicationID,
		DocumentType:     doc.DocumentType,
		OriginalFilename: doc.OriginalFilename,
		Size:             doc.Size,
		MimeType:         doc.MimeType,
		BlobRef:          doc.BlobRef,
		CreatedAt:        doc.CreatedAt,
	}
}
