package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/admitgate/admitgate-api/internal/models"
)

// ApplicationFilter narrows application listing queries.
type ApplicationFilter struct {
	Page     int
	PageSize int
	Status   models.ApplicationStatus
	OwnerID  *uint
	Search   string
}

// TransitionMutator inspects the freshly locked application row and applies the
// status change to it, returning the history entry and the audit entry that
// must commit atomically with it.
type TransitionMutator func(app *models.Application) (*models.ApplicationStatusHistory, *models.AuditLog, error)

// ApplicationRepository provides access to applications and owns the
// serialization of status transitions.
type ApplicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id uint) (models.Application, error)
	List(ctx context.Context, filter ApplicationFilter) ([]models.Application, int64, error)
	Update(ctx context.Context, app *models.Application) error
	Transition(ctx context.Context, id uint, mutate TransitionMutator) (models.Application, error)
}

type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository constructs an application repository backed by GORM.
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(ctx context.Context, app *models.Application) error {
	return r.db.WithContext(ctx).Create(app).Error
}

func (r *applicationRepository) GetByID(ctx context.Context, id uint) (models.Application, error) {
	var app models.Application
	err := r.db.WithContext(ctx).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&app, id).Error
	if err != nil {
		return models.Application{}, err
	}
	return app, nil
}

func (r *applicationRepository) List(ctx context.Context, filter ApplicationFilter) ([]models.Application, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Application{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(student_name) LIKE ? OR LOWER(student_email) LIKE ?", pattern, pattern)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var apps []models.Application
	if err := query.Order("created_at DESC").Find(&apps).Error; err != nil {
		return nil, 0, err
	}

	return apps, total, nil
}

func (r *applicationRepository) Update(ctx context.Context, app *models.Application) error {
	return r.db.WithContext(ctx).Save(app).Error
}

// Transition applies a status change atomically: the row is locked and
// re-read, the mutator validates against the fresh status, then the updated
// row, the history append and the audit entry commit together. A failed audit
// write rolls the whole transition back. Concurrent transitions on the same
// application serialize on the row lock; each retains its own history entry.
func (r *applicationRepository) Transition(ctx context.Context, id uint, mutate TransitionMutator) (models.Application, error) {
	var result models.Application

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lookup := tx
		// sqlite (used in tests) serializes writers on its own and does not
		// speak FOR UPDATE.
		if tx.Dialector.Name() == "postgres" {
			lookup = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var app models.Application
		if err := lookup.First(&app, id).Error; err != nil {
			return err
		}

		history, audit, err := mutate(&app)
		if err != nil {
			return err
		}

		if err := tx.Save(&app).Error; err != nil {
			return err
		}
		if history != nil {
			history.ApplicationID = app.ID
			if err := tx.Create(history).Error; err != nil {
				return err
			}
		}
		if audit != nil {
			if err := tx.Create(audit).Error; err != nil {
				return err
			}
		}

		result = app
		return nil
	})
	if err != nil {
		return models.Application{}, err
	}

	return r.GetByID(ctx, result.ID)
}
