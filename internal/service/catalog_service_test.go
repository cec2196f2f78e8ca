package service_test

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/admitgate/admitgate-api/internal/models"
	"github.com/admitgate/admitgate-api/internal/repository"
	"github.com/admitgate/admitgate-api/internal/service"
)

func setupCatalog(t *testing.T) (service.CatalogService, *gorm.DB, *miniredis.Miniredis) {
	t.Helper()

	db := newTestDB(t)

	university := models.University{Name: "Khalifa University", Emirate: "Abu Dhabi", Active: true}
	require.NoError(t, db.Create(&university).Error)
	program := models.Program{UniversityID: university.ID, Name: "BSc Computer Science", Degree: "BSc", Active: true}
	require.NoError(t, db.Create(&program).Error)
	inactive := models.Program{UniversityID: university.ID, Name: "Retired Program", Active: false}
	require.NoError(t, db.Create(&inactive).Error)

	mini := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	svc := service.NewCatalogService(repository.NewCatalogRepository(db), cache, time.Minute, zerolog.New(io.Discard))
	return svc, db, mini
}

func TestCatalogService_ListingsSkipInactive(t *testing.T) {
	svc, _, _ := setupCatalog(t)

	universities, err := svc.Universities(context.Background())
	require.NoError(t, err)
	require.Len(t, universities, 1)
	require.Equal(t, "Khalifa University", universities[0].Name)

	programs, err := svc.Programs(context.Background(), universities[0].ID)
	require.NoError(t, err)
	require.Len(t, programs, 1)
	require.Equal(t, "BSc Computer Science", programs[0].Name)
}

func TestCatalogService_ProgramDisplayCached(t *testing.T) {
	svc, db, mini := setupCatalog(t)

	var program models.Program
	require.NoError(t, db.Where("active = ?", true).First(&program).Error)

	display, err := svc.ProgramDisplay(context.Background(), program.ID)
	require.NoError(t, err)
	require.Equal(t, "BSc Computer Science", display.Program)
	require.Equal(t, "Khalifa University", display.University)

	require.True(t, mini.Exists(fmt.Sprintf("catalog:program-display:%d", program.ID)))

	// A database rename is invisible until the cache entry expires.
	require.NoError(t, db.Model(&models.Program{}).Where("id = ?", program.ID).Update("name", "Renamed").Error)

	cached, err := svc.ProgramDisplay(context.Background(), program.ID)
	require.NoError(t, err)
	require.Equal(t, "BSc Computer Science", cached.Program)

	mini.FastForward(2 * time.Minute)

	fresh, err := svc.ProgramDisplay(context.Background(), program.ID)
	require.NoError(t, err)
	require.Equal(t, "Renamed", fresh.Program)
}

func TestCatalogService_ProgramDisplayUnknown(t *testing.T) {
	svc, _, _ := setupCatalog(t)

	_, err := svc.ProgramDisplay(context.Background(), 9999)
	require.ErrorIs(t, err, service.ErrProgramNotFound)
}
