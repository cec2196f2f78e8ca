package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/admitgate/admitgate-api/internal/models"
)

// DocumentRepository handles persistence for application documents.
type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id uint) (models.Document, error)
	ListByApplication(ctx context.Context, applicationID uint) ([]models.Document, error)
	Delete(ctx context.Context, id uint) error
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository constructs a document repository backed by GORM.
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *models.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *documentRepository) GetByID(ctx context.Context, id uint) (models.Document, error) {
	var doc models.Document
	if err := r.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		return models.Document{}, err
	}
	return doc, nil
}

func (r *documentRepository) ListByApplication(ctx context.Context, applicationID uint) ([]models.Document, error) {
	var docs []models.Document
	if err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at DESC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *documentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Document{}, id).Error
}
