package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/admitgate/admitgate-api/internal/authz"
	"github.com/admitgate/admitgate-api/internal/dto"
	"github.com/admitgate/admitgate-api/internal/models"
	"github.com/admitgate/admitgate-api/internal/observability"
	"github.com/admitgate/admitgate-api/internal/repository"
)

var (
	// ErrApplicationNotFound indicates the application does not exist or is not
	// visible to the caller.
	ErrApplicationNotFound = errors.New("application not found")
	// ErrForbidden indicates the policy denied the action.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidStatus indicates the requested status is not a member of the enum.
	ErrInvalidStatus = errors.New("invalid application status")
	// ErrIllegalTransition indicates the requested status change violates the
	// transition table.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrApplicationLocked indicates the application is past owner editing.
	ErrApplicationLocked = errors.New("application can no longer be edited")
)

// ApplicationService owns the application lifecycle, including the status
// state machine. Status mutations only happen through Transition.
type ApplicationService interface {
	Create(ctx context.Context, actor authz.Identity, payload dto.ApplicationCreateRequest) (dto.ApplicationResponse, error)
	Get(ctx context.Context, actor authz.Identity, id uint) (dto.ApplicationResponse, error)
	ListOwn(ctx context.Context, actor authz.Identity, page, pageSize int) (dto.ApplicationListResponse, error)
	ListAdmin(ctx context.Context, actor authz.Identity, req dto.AdminApplicationListRequest) (dto.ApplicationListResponse, error)
	Update(ctx context.Context, actor authz.Identity, id uint, payload dto.ApplicationUpdateRequest) (dto.ApplicationResponse, error)
	Transition(ctx context.Context, actor authz.Identity, id uint, payload dto.StatusUpdateRequest, meta RequestMeta) (dto.ApplicationResponse, error)
}

type applicationService struct {
	repo       repository.ApplicationRepository
	validator  *validator.Validate
	dispatcher NotificationDispatcher
	logger     zerolog.Logger
}

// NewApplicationService constructs the application service. The dispatcher may
// be nil; transitions then commit without notification fan-out.
func NewApplicationService(repo repository.ApplicationRepository, validator *validator.Validate, dispatcher NotificationDispatcher, logger zerolog.Logger) ApplicationService {
	return &applicationService{
		repo:       repo,
		validator:  validator,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "application_service").Logger(),
	}
}

func (s *applicationService) Create(ctx context.Context, actor authz.Identity, payload dto.ApplicationCreateRequest) (dto.ApplicationResponse, error) {
	if !authz.Can(actor, authz.ActionApplicationCreate, authz.ApplicationResource(actor.ID)) {
		return dto.ApplicationResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApplicationResponse{}, err
	}

	status := models.StatusDraft
	if payload.Submit {
		status = models.StatusSubmitted
	}

	app := models.Application{
		OwnerID:        actor.ID,
		ProgramID:      payload.ProgramID,
		StudentName:    strings.TrimSpace(payload.StudentName),
		StudentEmail:   strings.ToLower(strings.TrimSpace(payload.StudentEmail)),
		Phone:          strings.TrimSpace(payload.Phone),
		DateOfBirth:    payload.DateOfBirth,
		Nationality:    strings.TrimSpace(payload.Nationality),
		Gender:         payload.Gender,
		Qualification:  strings.TrimSpace(payload.Qualification),
		Institution:    strings.TrimSpace(payload.Institution),
		GraduationYear: payload.GraduationYear,
		CGPA:           payload.CGPA,
		IntakeDate:     payload.IntakeDate,
		Notes:          payload.Notes,
		Status:         status,
		// Seed history so the trail always starts at the initial status and
		// its last entry matches the current status from day one.
		StatusHistory: []models.ApplicationStatusHistory{
			{ToStatus: status, ChangedBy: actor.ID},
		},
	}

	if err := s.repo.Create(ctx, &app); err != nil {
		s.logger.Error().Err(err).Msg("failed to create application")
		return dto.ApplicationResponse{}, err
	}

	if status == models.StatusSubmitted && s.dispatcher != nil {
		s.dispatcher.Dispatch(Event{Kind: EventSubmitted, Application: &app})
	}

	return dto.NewApplicationResponse(app), nil
}

func (s *applicationService) Get(ctx context.Context, actor authz.Identity, id uint) (dto.ApplicationResponse, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return dto.ApplicationResponse{}, err
	}

	if !authz.Can(actor, authz.ActionApplicationView, authz.ApplicationResource(app.OwnerID)) {
		// Non-owners learn nothing, not even existence.
		return dto.ApplicationResponse{}, s.denied(actor)
	}

	return dto.NewApplicationResponse(app), nil
}

func (s *applicationService) ListOwn(ctx context.Context, actor authz.Identity, page, pageSize int) (dto.ApplicationListResponse, error) {
	if !authz.Can(actor, authz.ActionApplicationView, authz.ApplicationResource(actor.ID)) {
		return dto.ApplicationListResponse{}, ErrForbidden
	}

	owner := actor.ID
	filter := repository.ApplicationFilter{Page: page, PageSize: pageSize, OwnerID: &owner}
	return s.list(ctx, filter)
}

func (s *applicationService) ListAdmin(ctx context.Context, actor authz.Identity, req dto.AdminApplicationListRequest) (dto.ApplicationListResponse, error) {
	if !authz.Can(actor, authz.ActionApplicationView, authz.Resource{Type: authz.ResourceApplication}) || !actor.Role.IsStaff() {
		return dto.ApplicationListResponse{}, ErrForbidden
	}

	filter := repository.ApplicationFilter{
		Page:     req.Page,
		PageSize: req.PageSize,
		Search:   req.Search,
	}
	if req.Status != "" {
		status, ok := models.ParseApplicationStatus(req.Status)
		if !ok {
			return dto.ApplicationListResponse{}, ErrInvalidStatus
		}
		filter.Status = status
	}
	if req.UserID > 0 {
		owner := req.UserID
		filter.OwnerID = &owner
	}

	return s.list(ctx, filter)
}

func (s *applicationService) Update(ctx context.Context, actor authz.Identity, id uint, payload dto.ApplicationUpdateRequest) (dto.ApplicationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApplicationResponse{}, err
	}

	app, err := s.load(ctx, id)
	if err != nil {
		return dto.ApplicationResponse{}, err
	}
	if !authz.Can(actor, authz.ActionApplicationUpdate, authz.ApplicationResource(app.OwnerID)) {
		return dto.ApplicationResponse{}, s.denied(actor)
	}
	if !app.Editable() {
		return dto.ApplicationResponse{}, ErrApplicationLocked
	}

	applyUpdate(&app, payload)

	if err := s.repo.Update(ctx, &app); err != nil {
		s.logger.Error().Err(err).Uint("application_id", id).Msg("failed to update application")
		return dto.ApplicationResponse{}, err
	}

	return dto.NewApplicationResponse(app), nil
}

// Transition validates and applies a status change. History append, status
// update and the audit entry commit in one transaction; the notification event
// is emitted only after the transaction commits and never fails the call.
func (s *applicationService) Transition(ctx context.Context, actor authz.Identity, id uint, payload dto.StatusUpdateRequest, meta RequestMeta) (dto.ApplicationResponse, error) {
	tracer := otel.Tracer("github.com/admitgate/admitgate-api/internal/service/application")
	ctx, span := tracer.Start(ctx, "application.transition")
	span.SetAttributes(
		attribute.Int64("application.id", int64(id)),
		attribute.Int64("application.actor_id", int64(actor.ID)),
	)
	defer span.End()

	toStatus, ok := models.ParseApplicationStatus(payload.Status)
	if !ok {
		span.SetStatus(codes.Error, "invalid_status")
		return dto.ApplicationResponse{}, ErrInvalidStatus
	}
	span.SetAttributes(attribute.String("application.to_status", string(toStatus)))

	app, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		return dto.ApplicationResponse{}, err
	}

	// Ownership and role checks happen before anything is written; a denied
	// attempt leaves no history entry and no audit entry behind.
	if !authz.Can(actor, transitionAction(app.Status, toStatus), authz.ApplicationResource(app.OwnerID)) {
		span.SetStatus(codes.Error, "policy_denied")
		return dto.ApplicationResponse{}, s.denied(actor)
	}

	var fromStatus models.ApplicationStatus
	updated, err := s.repo.Transition(ctx, id, func(app *models.Application) (*models.ApplicationStatusHistory, *models.AuditLog, error) {
		fromStatus = app.Status
		// The check above classified the action against a possibly stale
		// read. The locked row is authoritative: the role check and the
		// transition table must both see the same from-status.
		if !authz.Can(actor, transitionAction(app.Status, toStatus), authz.ApplicationResource(app.OwnerID)) {
			return nil, nil, s.denied(actor)
		}
		if !models.CanTransition(app.Status, toStatus) {
			return nil, nil, ErrIllegalTransition
		}

		app.Status = toStatus
		if payload.Notes != "" {
			app.AdminNotes = payload.Notes
		}
		switch toStatus {
		case models.StatusRejected:
			app.RejectionReason = payload.RejectionReason
		case models.StatusApproved:
			app.ConditionalOfferTerms = payload.ConditionalOfferTerms
		}

		history := &models.ApplicationStatusHistory{
			FromStatus: fromStatus,
			ToStatus:   toStatus,
			Notes:      payload.Notes,
			ChangedBy:  actor.ID,
		}
		resourceID := app.ID
		audit := &models.AuditLog{
			ActorID:      actor.ID,
			Action:       models.AuditActionUpdateApplicationStatus,
			ResourceType: string(authz.ResourceApplication),
			ResourceID:   &resourceID,
			PreviousData: datatypes.JSONMap{"status": string(fromStatus)},
			NewData:      datatypes.JSONMap{"status": string(toStatus)},
			IPAddress:    meta.IPAddress,
			UserAgent:    meta.UserAgent,
		}
		return history, audit, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition_failed")
		return dto.ApplicationResponse{}, err
	}

	observability.ApplicationTransitions().WithLabelValues(string(fromStatus), string(toStatus)).Inc()

	if s.dispatcher != nil {
		if kind, ok := eventKindForStatus(toStatus); ok {
			snapshot := updated
			s.dispatcher.Dispatch(Event{Kind: kind, Application: &snapshot})
		}
	}

	span.SetStatus(codes.Ok, "transitioned")
	return dto.NewApplicationResponse(updated), nil
}

func (s *applicationService) list(ctx context.Context, filter repository.ApplicationFilter) (dto.ApplicationListResponse, error) {
	apps, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ApplicationListResponse{}, err
	}

	items := make([]dto.ApplicationResponse, 0, len(apps))
	for _, app := range apps {
		items = append(items, dto.NewApplicationResponse(app))
	}

	pagination := dto.PaginationMeta{
		Page:       maxInt(filter.Page, 1),
		PageSize:   filter.PageSize,
		TotalItems: total,
		TotalPages: 1,
	}
	if filter.PageSize > 0 {
		pagination.TotalPages = int(math.Ceil(float64(total) / float64(filter.PageSize)))
	}

	return dto.ApplicationListResponse{Items: items, Pagination: pagination}, nil
}

func (s *applicationService) load(ctx context.Context, id uint) (models.Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Application{}, ErrApplicationNotFound
		}
		return models.Application{}, err
	}
	return app, nil
}

/// denied maps a policy denial to the caller-facing error: staff see 403, while
// owners probing foreign IDs get the same 404 as a missing record.
func (s *applicationService) denied(actor authz.Identity) error {
	if actor.Role.IsStaff() {
		return ErrForbidden
	}
	return ErrApplicationNotFound
}

// transitionAction distinguishes the one transition owners may perform
// (submitting a draft) from staff-only status changes.
func transitionAction(from, to models.ApplicationStatus) authz.Action {
	if from == models.StatusDraft && to == models.StatusSubmitted {
		return authz.ActionApplicationSubmit
	}
	return authz.ActionApplicationTransition
}

func eventKindForStatus(status models.ApplicationStatus) (EventKind, bool) {
	switch status {
	case models.StatusSubmitted:
		return EventSubmitted, true
	case models.StatusUnderReview:
		return EventUnderReview, true
	case models.StatusApproved:
		return EventApproved, true
	case models.StatusRejected:
		return EventRejected, true
	case models.StatusIncomplete:
		return EventIncomplete, true
	default:
		return "", false
	}
}

func applyUpdate(app *models.Application, payload dto.ApplicationUpdateRequest) {
	if payload.StudentName != "" {
		app.StudentName = strings.TrimSpace(payload.StudentName)
	}
	if payload.StudentEmail != "" {
		app.StudentEmail = strings.ToLower(strings.TrimSpace(payload.StudentEmail))
	}
	if payload.Phone != "" {
		app.Phone = strings.TrimSpace(payload.Phone)
	}
	if payload.DateOfBirth != "" {
		app.DateOfBirth = payload.DateOfBirth
	}
	if payload.Nationality != "" {
		app.Nationality = strings.TrimSpace(payload.Nationality)
	}
	if payload.Gender != "" {
		app.Gender = payload.Gender
	}
	if payload.Qualification != "" {
		app.Qualification = strings.TrimSpace(payload.Qualification)
	}
	if payload.Institution != "" {
		app.Institution = strings.TrimSpace(payload.Institution)
	}
	if payload.GraduationYear != 0 {
		app.GraduationYear = payload.GraduationYear
	}
	if payload.CGPA != 0 {
		app.CGPA = payload.CGPA
	}
	if payload.IntakeDate != "" {
		app.IntakeDate = payload.IntakeDate
	}
	if payload.Notes != "" {
		app.Notes = payload.Notes
	}
}
