package service_test

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/admitgate/admitgate-api/internal/repository"
	"github.com/admitgate/admitgate-api/internal/service"
)

type fakeUploader struct {
	uploads int
	fail    bool
}

func (u *fakeUploader) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	if u.fail {
		return "", fmt.Errorf("provider rejected %s", name)
	}
	u.uploads++
	return "blob/" + name, nil
}

func setupDocumentService(t *testing.T, uploader service.FileUploader) (service.DocumentService, uint) {
	t.Helper()

	db := newTestDB(t)
	logger := zerolog.New(io.Discard)

	appRepo := repository.NewApplicationRepository(db)
	appService := service.NewApplicationService(appRepo,
		validator.New(validator.WithRequiredStructEnabled()), nil, logger)
	created, err := appService.Create(context.Background(), agentIdentity(7), createRequest())
	require.NoError(t, err)

	svc := service.NewDocumentService(repository.NewDocumentRepository(db), appRepo, uploader, logger)
	return svc, created.ID
}

func TestDocumentService_AttachStoresBlobAndRecord(t *testing.T) {
	uploader := &fakeUploader{}
	svc, appID := setupDocumentService(t, uploader)

	doc, err := svc.Attach(context.Background(), agentIdentity(7), appID,
		"passport", "passport.pdf", []byte("%PDF-1.4 test"))
	require.NoError(t, err)
	require.Equal(t, "passport", doc.DocumentType)
	require.Equal(t, "blob/passport.pdf", doc.BlobRef)
	require.Equal(t, 1, uploader.uploads)

	listed, err := svc.List(context.Background(), agentIdentity(7), appID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestDocumentService_AttachWithoutUploaderFailsCleanly(t *testing.T) {
	svc, appID := setupDocumentService(t, nil)

	_, err := svc.Attach(context.Background(), agentIdentity(7), appID,
		"passport", "passport.pdf", []byte("%PDF-1.4 test"))
	require.ErrorIs(t, err, service.ErrStorageUnavailable)

	// Nothing was recorded.
	listed, err := svc.List(context.Background(), agentIdentity(7), appID)
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestDocumentService_AttachRejectsBadPayloads(t *testing.T) {
	svc, appID := setupDocumentService(t, &fakeUploader{})
	owner := agentIdentity(7)

	_, err := svc.Attach(context.Background(), owner, appID, "passport", "empty.pdf", nil)
	require.ErrorIs(t, err, service.ErrDocumentInvalid)

	_, err = svc.Attach(context.Background(), owner, appID, "  ", "passport.pdf", []byte("data"))
	require.ErrorIs(t, err, service.ErrDocumentInvalid)
}

func TestDocumentService_ForeignOwnerSeesNotFound(t *testing.T) {
	svc, appID := setupDocumentService(t, &fakeUploader{})

	_, err := svc.Attach(context.Background(), agentIdentity(8), appID,
		"passport", "passport.pdf", []byte("data"))
	require.ErrorIs(t, err, service.ErrApplicationNotFound)
}
