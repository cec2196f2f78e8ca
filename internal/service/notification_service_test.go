package service_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/admitgate/admitgate-api/internal/models"
	"github.com/admitgate/admitgate-api/internal/repository"
	"github.com/admitgate/admitgate-api/internal/service"
)

type capturingSender struct {
	mu      sync.Mutex
	sent    []sentMail
	failFor map[string]bool
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

func (s *capturingSender) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[to] {
		return errors.New("mailbox unavailable")
	}
	s.sent = append(s.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (s *capturingSender) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sent))
	for _, mail := range s.sent {
		out = append(out, mail.To)
	}
	return out
}

type staticResolver struct{}

func (staticResolver) ProgramDisplay(context.Context, uint) (service.ProgramDisplay, error) {
	return service.ProgramDisplay{Program: "BSc Computer Science", University: "Khalifa University"}, nil
}

func setupDispatcher(t *testing.T, sender *capturingSender) (service.NotificationDispatcher, repository.UserRepository) {
	t.Helper()

	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	for _, u := range []models.User{
		{Email: "admin@example.com", Role: models.RoleAdmin, PasswordHash: "x", Active: true},
		{Email: "sub@example.com", Role: models.RoleSubAdmin, PasswordHash: "x", Active: true},
		{Email: "owner@example.com", Role: models.RoleAgent, PasswordHash: "x", Active: true},
	} {
		user := u
		require.NoError(t, db.Create(&user).Error)
	}

	dispatcher := service.NewNotificationDispatcher(users, staticResolver{}, sender, nil, zerolog.New(io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	dispatcher.Start(ctx)

	return dispatcher, users
}

func ownerID(t *testing.T, users repository.UserRepository) uint {
	t.Helper()
	owner, err := users.GetByEmail(context.Background(), "owner@example.com")
	require.NoError(t, err)
	return owner.ID
}

func TestNotificationDispatcher_FansOutToAllParties(t *testing.T) {
	sender := &capturingSender{}
	dispatcher, users := setupDispatcher(t, sender)

	dispatcher.Dispatch(service.Event{
		Kind: service.EventSubmitted,
		Application: &models.Application{
			OwnerID:      ownerID(t, users),
			StudentName:  "Amina Hassan",
			StudentEmail: "amina@example.com",
			Status:       models.StatusSubmitted,
		},
	})

	require.Eventually(t, func() bool {
		return len(sender.recipients()) == 4
	}, 2*time.Second, 10*time.Millisecond)

	require.ElementsMatch(t,
		[]string{"amina@example.com", "owner@example.com", "admin@example.com", "sub@example.com"},
		sender.recipients())
}

func TestNotificationDispatcher_OneFailureDoesNotBlockOthers(t *testing.T) {
	sender := &capturingSender{failFor: map[string]bool{"amina@example.com": true}}
	dispatcher, users := setupDispatcher(t, sender)

	dispatcher.Dispatch(service.Event{
		Kind: service.EventApproved,
		Application: &models.Application{
			OwnerID:               ownerID(t, users),
			StudentName:           "Amina Hassan",
			StudentEmail:          "amina@example.com",
			Status:                models.StatusApproved,
			ConditionalOfferTerms: "IELTS 6.5 before enrolment",
		},
	})

	require.Eventually(t, func() bool {
		return len(sender.recipients()) == 3
	}, 2*time.Second, 10*time.Millisecond)

	require.NotContains(t, sender.recipients(), "amina@example.com")
	require.Contains(t, sender.recipients(), "owner@example.com")
}

func TestNotificationDispatcher_NotesAreSanitized(t *testing.T) {
	sender := &capturingSender{}
	dispatcher, users := setupDispatcher(t, sender)

	dispatcher.Dispatch(service.Event{
		Kind: service.EventIncomplete,
		Application: &models.Application{
			OwnerID:      ownerID(t, users),
			StudentName:  "Amina Hassan",
			StudentEmail: "amina@example.com",
			Status:       models.StatusIncomplete,
			AdminNotes:   `<script>alert("x")</script>transcript missing`,
		},
	})

	require.Eventually(t, func() bool {
		return len(sender.recipients()) == 4
	}, 2*time.Second, 10*time.Millisecond)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	for _, mail := range sender.sent {
		require.NotContains(t, mail.Body, "<script>")
	}
}

func TestNotificationDispatcher_AccountEventGoesToNewUserOnly(t *testing.T) {
	sender := &capturingSender{}
	dispatcher, _ := setupDispatcher(t, sender)

	dispatcher.Dispatch(service.Event{
		Kind:         service.EventUserCreated,
		User:         &models.User{Email: "newagent@example.com", FullName: "New Agent"},
		TempPassword: "temp-pass-123",
	})

	require.Eventually(t, func() bool {
		return len(sender.recipients()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Equal(t, "newagent@example.com", sender.sent[0].To)
	require.Contains(t, sender.sent[0].Body, "temp-pass-123")
}

func TestRenderMessage_ApprovedStudentIncludesOfferTerms(t *testing.T) {
	subject, body, err := service.RenderMessageForTest(service.EventApproved, "student", service.TemplateDataForTest(
		"Amina Hassan", "BSc Computer Science", "Khalifa University", "IELTS 6.5 before enrolment"))
	require.NoError(t, err)
	require.NotEmpty(t, subject)
	require.Contains(t, body, "IELTS 6.5 before enrolment")
}
