package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/admitgate/admitgate-api/internal/models"
)

// CatalogRepository provides read-only access to the universities/programs catalog.
type CatalogRepository interface {
	ListUniversities(ctx context.Context) ([]models.University, error)
	ListPrograms(ctx context.Context, universityID uint) ([]models.Program, error)
	GetProgram(ctx context.Context, id uint) (models.Program, error)
}

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository constructs a catalog repository backed by GORM.
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListUniversities(ctx context.Context) ([]models.University, error) {
	var universities []models.University
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("name ASC").
		Find(&universities).Error; err != nil {
		return nil, err
	}
	return universities, nil
}

func (r *catalogRepository) ListPrograms(ctx context.Context, universityID uint) ([]models.Program, error) {
	query := r.db.WithContext(ctx).Where("active = ?", true)
	if universityID > 0 {
		query = query.Where("university_id = ?", universityID)
	}

	var programs []models.Program
	if err := query.Order("name ASC").Find(&programs).Error; err != nil {
		return nil, err
	}
	return programs, nil
}

func (r *catalogRepository) GetProgram(ctx context.Context, id uint) (models.Program, error) {
	var program models.Program
	if err := r.db.WithContext(ctx).Preload("University").First(&program, id).Error; err != nil {
		return models.Program{}, err
	}
	return program, nil
}
