package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/admitgate/admitgate-api/internal/dto"
	"github.com/admitgate/admitgate-api/internal/models"
	"github.com/admitgate/admitgate-api/internal/repository"
)

// RequestMeta carries caller network details into audit entries.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// AuditEntry captures the details of one administrative mutation.
type AuditEntry struct {
	ActorID      uint
	Action       string
	ResourceType string
	ResourceID   *uint
	PreviousData map[string]interface{}
	NewData      map[string]interface{}
	Meta         RequestMeta
}

// AuditRecorder records administrative mutations. A record failure must fail
// the mutation that triggered it; callers are not allowed to swallow it.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// AuditService exposes the append-only audit trail.
type AuditService interface {
	AuditRecorder
	List(ctx context.Context, req dto.AuditLogListRequest) (dto.AuditLogListResponse, error)
}

type auditService struct {
	repo   repository.AuditLogRepository
	logger zerolog.Logger
}

// NewAuditService constructs the audit service.
func NewAuditService(repo repository.AuditLogRepository, logger zerolog.Logger) AuditService {
	return &auditService{
		repo:   repo,
		logger: logger.With().Str("component", "audit_service").Logger(),
	}
}

func (s *auditService) Record(ctx context.Context, entry AuditEntry) error {
	if strings.TrimSpace(entry.Action) == "" {
		return fmt.Errorf("audit action is required")
	}
	if strings.TrimSpace(entry.ResourceType) == "" {
		return fmt.Errorf("audit resource type is required")
	}

	model := models.AuditLog{
		ActorID:      entry.ActorID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		PreviousData: datatypes.JSONMap(entry.PreviousData),
		NewData:      datatypes.JSONMap(entry.NewData),
		IPAddress:    entry.Meta.IPAddress,
		UserAgent:    entry.Meta.UserAgent,
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("action", entry.Action).Msg("failed to persist audit entry")
		return fmt.Errorf("audit write failed: %w", err)
	}

	return nil
}

func (s *auditService) List(ctx context.Context, req dto.AuditLogListRequest) (dto.AuditLogListResponse, error) {
	filter := repository.AuditLogFilter{
		Page:         req.Page,
		PageSize:     req.PageSize,
		ResourceType: strings.TrimSpace(req.ResourceType),
		Action:       strings.TrimSpace(req.Action),
	}
	if req.UserID > 0 {
		filter.ActorID = &req.UserID
	}
	if req.ResourceID > 0 {
		filter.ResourceID = &req.ResourceID
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.AuditLogListResponse{}, err
	}

	items := make([]dto.AuditLogResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewAuditLogResponse(entry))
	}

	pagination := dto.PaginationMeta{
		Page:       maxInt(req.Page, 1),
		PageSize:   req.PageSize,
		TotalItems: total,
		TotalPages: 1,
	}
	if req.PageSize > 0 {
		pagination.TotalPages = int(math.Ceil(float64(total) / float64(req.PageSize)))
	}

	return dto.AuditLogListResponse{Items: items, Pagination: pagination}, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
