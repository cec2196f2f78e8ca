package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/admitgate/admitgate-api/internal/authz"
	"github.com/admitgate/admitgate-api/internal/dto"
	"github.com/admitgate/admitgate-api/internal/models"
	"github.com/admitgate/admitgate-api/internal/repository"
)

var (
	// ErrDocumentNotFound indicates the document does not exist or is not
	// visible to the caller.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrDocumentInvalid indicates the upload payload was rejected before
	// storage.
	ErrDocumentInvalid = errors.New("invalid document")
	// ErrStorageUnavailable indicates no blob storage provider is configured.
	ErrStorageUnavailable = errors.New("document storage unavailable")
)

// maxDocumentSize caps uploads at 10 MiB.
const maxDocumentSize = 10 << 20

// FileUploader stores a blob with an external provider and returns its reference.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// DocumentService manages files attached to applications. Attachments never
// influence application status.
type DocumentService interface {
	Attach(ctx context.Context, actor authz.Identity, applicationID uint, documentType, filename string, content []byte) (dto.DocumentResponse, error)
	List(ctx context.Context, actor authz.Identity, applicationID uint) ([]dto.DocumentResponse, error)
	Delete(ctx context.Context, actor authz.Identity, id uint) error
}

type documentService struct {
	documents    repository.DocumentRepository
	applications repository.ApplicationRepository
	uploader     FileUploader
	logger       zerolog.Logger
}

// NewDocumentService constructs the document service.
func NewDocumentService(documents repository.DocumentRepository, applications repository.ApplicationRepository, uploader FileUploader, logger zerolog.Logger) DocumentService {
	return &documentService{
		documents:    documents,
		applications: applications,
		uploader:     uploader,
		logger:       logger.With().Str("component", "document_service").Logger(),
	}
}

func (s *documentService) Attach(ctx context.Context, actor authz.Identity, applicationID uint, documentType, filename string, content []byte) (dto.DocumentResponse, error) {
	app, err := s.loadApplication(ctx, applicationID)
	if err != nil {
		return dto.DocumentResponse{}, err
	}
	if !authz.Can(actor, authz.ActionDocumentAttach, authz.DocumentResource(app.OwnerID)) {
		return dto.DocumentResponse{}, s.denied(actor)
	}

	if len(content) == 0 {
		return dto.DocumentResponse{}, fmt.Errorf("%w: content must not be empty", ErrDocumentInvalid)
	}
	if len(content) > maxDocumentSize {
		return dto.DocumentResponse{}, fmt.Errorf("%w: exceeds the %d byte limit", ErrDocumentInvalid, maxDocumentSize)
	}
	documentType = strings.TrimSpace(documentType)
	if documentType == "" {
		return dto.DocumentResponse{}, fmt.Errorf("%w: document type is required", ErrDocumentInvalid)
	}

	detected := mimetype.Detect(content)

	if s.uploader == nil {
		s.logger.Error().Uint("application_id", applicationID).Msg("no storage provider configured, rejecting upload")
		return dto.DocumentResponse{}, ErrStorageUnavailable
	}

	blobRef, err := s.uploader.Upload(ctx, filename, bytes.NewReader(content))
	if err != nil {
		s.logger.Error().Err(err).Uint("application_id", applicationID).Msg("document upload failed")
		return dto.DocumentResponse{}, err
	}

	doc := models.Document{
		ApplicationID:    app.ID,
		DocumentType:     documentType,
		OriginalFilename: filename,
		Size:             int64(len(content)),
		MimeType:         detected.String(),
		BlobRef:          blobRef,
	}
	if err := s.documents.Create(ctx, &doc); err != nil {
		return dto.DocumentResponse{}, err
	}

	return dto.NewDocumentResponse(doc), nil
}

func (s *documentService) List(ctx context.Context, actor authz.Identity, applicationID uint) ([]dto.DocumentResponse, error) {
	app, err := s.loadApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !authz.Can(actor, authz.ActionDocumentView, authz.DocumentResource(app.OwnerID)) {
		return nil, s.denied(actor)
	}

	docs, err := s.documents.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		responses = append(responses, dto.NewDocumentResponse(doc))
	}
	return responses, nil
}

func (s *documentService) Delete(ctx context.Context, actor authz.Identity, id uint) error {
	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDocumentNotFound
		}
		return err
	}

	app, err := s.loadApplication(ctx, doc.ApplicationID)
	if err != nil {
		return err
	}
	if !authz.Can(actor, authz.ActionDocumentDelete, authz.DocumentResource(app.OwnerID)) {
		if actor.Role.IsStaff() {
			return ErrForbidden
		}
		return ErrDocumentNotFound
	}

	return s.documents.Delete(ctx, id)
}

func (s *documentService) loadApplication(ctx context.Context, id uint) (models.Application, error) {
	app, err := s.applications.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Application{}, ErrApplicationNotFound
		}
		return models.Application{}, err
	}
	return app, nil
}

func (s *documentService) denied(actor authz.Identity) error {
	if actor.Role.IsStaff() {
		return ErrForbidden
	}
	return ErrApplicationNotFound
}
