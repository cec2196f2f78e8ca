package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/admitgate/admitgate-api/internal/models"
	"github.com/admitgate/admitgate-api/internal/observability"
	"github.com/admitgate/admitgate-api/internal/repository"
)

const notificationQueueSize = 64

// EventKind identifies the lifecycle or administrative event being announced.
type EventKind string

const (
	EventSubmitted       EventKind = "submitted"
	EventUnderReview     EventKind = "under-review"
	EventApproved        EventKind = "approved"
	EventRejected        EventKind = "rejected"
	EventIncomplete      EventKind = "incomplete"
	EventUserCreated     EventKind = "user_created"
	EventSubAdminWelcome EventKind = "sub_admin_welcome"
)

// Event is the transient notification payload handed off by the state machine
// after a transition commits. It is never persisted.
type Event struct {
	Kind         EventKind
	Application  *models.Application
	User         *models.User
	TempPassword string
}

// Recipients are the resolved targets for one event.
type Recipients struct {
	Student string
	Owner   string
	Admins  []string
}

// EmailSender delivers a single rendered message. Implementations must treat
// each call independently.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender is the fallback sender used when no mail provider is configured:
// deliveries are logged and reported successful.
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender constructs the logging sender.
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "mail_log_sender").Logger()}
}

// Send logs the message instead of delivering it.
func (l *LogSender) Send(_ context.Context, to, subject, _ string) error {
	l.logger.Info().Str("to", to).Str("subject", subject).Msg("mail provider not configured, message logged only")
	return nil
}

// ProgramNameResolver resolves program/university display names for message
// rendering. Resolution failures degrade to empty names, never to a dropped
// notification.
type ProgramNameResolver interface {
	ProgramDisplay(ctx context.Context, programID uint) (ProgramDisplay, error)
}

// NotificationDispatcher fans lifecycle events out to the affected parties.
// Dispatch never blocks the caller and never reports an error: by the time an
// event exists, its transition has already committed.
type NotificationDispatcher interface {
	Dispatch(event Event)
	Start(ctx context.Context)
}

type notificationDispatcher struct {
	users       repository.UserRepository
	resolver    ProgramNameResolver
	sender      EmailSender
	nats        *nats.Conn
	natsSubject string
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
	queue       chan Event
}

// NewNotificationDispatcher constructs the dispatcher. The NATS connection is
// optional; when present, every event is additionally published for other
// nodes to observe.
func NewNotificationDispatcher(users repository.UserRepository, resolver ProgramNameResolver, sender EmailSender, natsConn *nats.Conn, logger zerolog.Logger) NotificationDispatcher {
	return &notificationDispatcher{
		users:       users,
		resolver:    resolver,
		sender:      sender,
		nats:        natsConn,
		natsSubject: "admitgate.notifications",
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "notification_dispatcher").Logger(),
		tracer:      otel.Tracer("github.com/admitgate/admitgate-api/internal/service/notification"),
		queue:       make(chan Event, notificationQueueSize),
	}
}

// Start launches the delivery worker. It returns immediately; the worker stops
// when ctx is cancelled.
func (d *notificationDispatcher) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-d.queue:
				d.process(ctx, event)
			}
		}
	}()
}

// Dispatch enqueues the event. With the queue full the event is processed on
// its own goroutine instead of being dropped.
func (d *notificationDispatcher) Dispatch(event Event) {
	select {
	case d.queue <- event:
	default:
		d.logger.Warn().Str("kind", string(event.Kind)).Msg("notification queue full, delivering out of band")
		go d.process(context.Background(), event)
	}
}

func (d *notificationDispatcher) process(ctx context.Context, event Event) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	ctx, span := d.tracer.Start(ctx, "notification.dispatch")
	span.SetAttributes(attribute.String("notification.kind", string(event.Kind)))
	defer span.End()

	switch event.Kind {
	case EventUserCreated, EventSubAdminWelcome:
		d.deliverAccountEvent(ctx, event)
	default:
		d.deliverLifecycleEvent(ctx, event)
	}

	d.publish(event)
}

func (d *notificationDispatcher) deliverLifecycleEvent(ctx context.Context, event Event) {
	if event.Application == nil {
		d.logger.Error().Str("kind", string(event.Kind)).Msg("lifecycle event without application snapshot")
		return
	}

	recipients := d.resolveRecipients(ctx, *event.Application)
	data := d.templateData(ctx, event)

	if recipients.Student != "" {
		d.deliver(ctx, event.Kind, audienceStudent, recipients.Student, data)
	}
	if recipients.Owner != "" && recipients.Owner != recipients.Student {
		d.deliver(ctx, event.Kind, audienceOwner, recipients.Owner, data)
	}
	for _, admin := range recipients.Admins {
		d.deliver(ctx, event.Kind, audienceAdmin, admin, data)
	}
}

func (d *notificationDispatcher) deliverAccountEvent(ctx context.Context, event Event) {
	if event.User == nil {
		d.logger.Error().Str("kind", string(event.Kind)).Msg("account event without user")
		return
	}

	data := templateData{
		FullName:     event.User.FullName,
		Email:        event.User.Email,
		TempPassword: event.TempPassword,
	}
	d.deliver(ctx, event.Kind, audienceOwner, event.User.Email, data)
}

// resolveRecipients gathers the student email from the application itself, the
// owning account's email, and every admin and sub-admin. A lookup failure for
// one group never blocks the others.
func (d *notificationDispatcher) resolveRecipients(ctx context.Context, app models.Application) Recipients {
	recipients := Recipients{Student: app.StudentEmail}

	owner, err := d.users.GetByID(ctx, app.OwnerID)
	if err != nil {
		d.logger.Warn().Err(err).Uint("owner_id", app.OwnerID).Msg("failed to resolve application owner")
	} else {
		recipients.Owner = owner.Email
	}

	staff, err := d.users.ListByRoles(ctx, models.RoleAdmin, models.RoleSubAdmin)
	if err != nil {
		d.logger.Warn().Err(err).Msg("failed to resolve admin recipients")
	}
	for _, member := range staff {
		recipients.Admins = append(recipients.Admins, member.Email)
	}

	return recipients
}

func (d *notificationDispatcher) templateData(ctx context.Context, event Event) templateData {
	app := event.Application
	data := templateData{
		ApplicationID:   app.ID,
		StudentName:     app.StudentName,
		Status:          string(app.Status),
		Notes:           d.sanitizer.Sanitize(app.AdminNotes),
		RejectionReason: d.sanitizer.Sanitize(app.RejectionReason),
		OfferTerms:      d.sanitizer.Sanitize(app.ConditionalOfferTerms),
	}

	if d.resolver != nil {
		display, err := d.resolver.ProgramDisplay(ctx, app.ProgramID)
		if err != nil {
			d.logger.Warn().Err(err).Uint("program_id", app.ProgramID).Msg("failed to resolve program display name")
		} else {
			data.Program = display.Program
			data.University = display.University
		}
	}

	return data
}

// deliver renders and sends one message. Failures are logged and counted;
// they never propagate.
func (d *notificationDispatcher) deliver(ctx context.Context, kind EventKind, audience string, to string, data templateData) {
	subject, body, err := renderMessage(kind, audience, data)
	if err != nil {
		d.logger.Error().Err(err).Str("kind", string(kind)).Str("audience", audience).Msg("failed to render notification")
		observability.NotificationDeliveries().WithLabelValues(string(kind), "render_error").Inc()
		return
	}

	if err := d.sender.Send(ctx, to, subject, body); err != nil {
		d.logger.Warn().Err(err).Str("kind", string(kind)).Str("to", to).Msg("notification delivery failed")
		observability.NotificationDeliveries().WithLabelValues(string(kind), "error").Inc()
		return
	}

	observability.NotificationDeliveries().WithLabelValues(string(kind), "sent").Inc()
}

func (d *notificationDispatcher) publish(event Event) {
	if d.nats == nil {
		return
	}

	summary := map[string]interface{}{"kind": event.Kind}
	if event.Application != nil {
		summary["application_id"] = event.Application.ID
		summary["status"] = event.Application.Status
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := d.nats.Publish(d.natsSubject, payload); err != nil {
		d.logger.Warn().Err(err).Msg("failed to publish notification event")
	}
}
