package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/admitgate/admitgate-api/internal/models"
	"github.com/admitgate/admitgate-api/internal/repository"
)

func TestAuditLogRepository_CreateAndList(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewAuditLogRepository(db)

	appID := uint(12)
	entries := []models.AuditLog{
		{ActorID: 1, Action: models.AuditActionUpdateApplicationStatus, ResourceType: "application", ResourceID: &appID,
			PreviousData: datatypes.JSONMap{"status": "submitted"}, NewData: datatypes.JSONMap{"status": "approved"}},
		{ActorID: 1, Action: models.AuditActionCreateUser, ResourceType: "user"},
		{ActorID: 2, Action: models.AuditActionUpdateUserStatus, ResourceType: "user"},
	}
	for i := range entries {
		require.NoError(t, repo.Create(context.Background(), &entries[i]))
	}

	all, total, err := repo.List(context.Background(), repository.AuditLogFilter{})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, all, 3)
	// Newest first.
	require.Equal(t, models.AuditActionUpdateUserStatus, all[0].Action)

	actor := uint(1)
	byActor, total, err := repo.List(context.Background(), repository.AuditLogFilter{ActorID: &actor})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, byActor, 2)

	byResource, _, err := repo.List(context.Background(), repository.AuditLogFilter{ResourceType: "application", ResourceID: &appID})
	require.NoError(t, err)
	require.Len(t, byResource, 1)
	require.Equal(t, "approved", byResource[0].NewData["status"])

	paged, total, err := repo.List(context.Background(), repository.AuditLogFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, paged, 1)
}
