package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/admitgate/admitgate-api/internal/dto"
	"github.com/admitgate/admitgate-api/internal/repository"
)

// ErrProgramNotFound indicates the requested program is not in the catalog.
var ErrProgramNotFound = errors.New("program not found")

// ProgramDisplay carries the display names rendered into notifications.
type ProgramDisplay struct {
	Program    string `json:"program"`
	University string `json:"university"`
}

// CatalogService exposes the read-only universities/programs catalog.
type CatalogService interface {
	Universities(ctx context.Context) ([]dto.UniversityResponse, error)
	Programs(ctx context.Context, universityID uint) ([]dto.ProgramResponse, error)
	ProgramDisplay(ctx context.Context, programID uint) (ProgramDisplay, error)
}

type catalogService struct {
	repo     repository.CatalogRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewCatalogService constructs the catalog service. The redis client is
// optional; without it display-name lookups always hit the database.
func NewCatalogService(repo repository.CatalogRepository, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) CatalogService {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &catalogService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger.With().Str("component", "catalog_service").Logger(),
	}
}

func (s *catalogService) Universities(ctx context.Context) ([]dto.UniversityResponse, error) {
	universities, err := s.repo.ListUniversities(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.UniversityResponse, 0, len(universities))
	for _, u := range universities {
		responses = append(responses, dto.NewUniversityResponse(u))
	}
	return responses, nil
}

func (s *catalogService) Programs(ctx context.Context, universityID uint) ([]dto.ProgramResponse, error) {
	programs, err := s.repo.ListPrograms(ctx, universityID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ProgramResponse, 0, len(programs))
	for _, p := range programs {
		responses = append(responses, dto.NewProgramResponse(p))
	}
	return responses, nil
}

// ProgramDisplay resolves the program and university names for a program,
// serving from the cache when possible. Cache failures fall through to the
// database.
func (s *catalogService) ProgramDisplay(ctx context.Context, programID uint) (ProgramDisplay, error) {
	key := fmt.Sprintf("catalog:program-display:%d", programID)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key).Result()
		if err == nil {
			var display ProgramDisplay
			if err := json.Unmarshal([]byte(cached), &display); err == nil {
				return display, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("catalog cache read failed")
		}
	}

	program, err := s.repo.GetProgram(ctx, programID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProgramDisplay{}, ErrProgramNotFound
		}
		return ProgramDisplay{}, err
	}

	display := ProgramDisplay{
		Program:    program.Name,
		University: program.University.Name,
	}

	if s.cache != nil {
		if payload, err := json.Marshal(display); err == nil {
			if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("catalog cache write failed")
			}
		}
	}

	return display, nil
}
