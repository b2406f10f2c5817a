package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/ladder-system/models"
	"github.com/Dosada05/ladder-system/repositories"
)

const (
	minDeadlineHours = 1
	maxDeadlineHours = 168 // одна неделя
	minDatesLimit    = 1
	maxDatesLimit    = 10
)

// ConfigService хранит системную конфигурацию вызовов. Если администратор
// ещё ничего не менял, действует конфигурация по умолчанию.
type ConfigService interface {
	// GetChallengeConfig returns the active config, falling back to the
	// built-in default when nothing has been stored yet.
	GetChallengeConfig(ctx context.Context) (models.ChallengeConfig, error)
	Get(ctx context.Context) (*models.SystemConfig, error)
	Update(ctx context.Context, config models.ChallengeConfig, updatedBy string) (*models.SystemConfig, error)
	ResetToDefault(ctx context.Context, updatedBy string) (*models.SystemConfig, error)
}

type configService struct {
	configRepo repositories.SystemConfigRepository
	now        func() time.Time
}

func NewConfigService(configRepo repositories.SystemConfigRepository) ConfigService {
	return &configService{
		configRepo: configRepo,
		now:        time.Now,
	}
}

func (s *configService) GetChallengeConfig(ctx context.Context) (models.ChallengeConfig, error) {
	stored, err := s.configRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrSystemConfigNotFound) {
			return models.DefaultChallengeConfig(), nil
		}
		return models.ChallengeConfig{}, fmt.Errorf("failed to load system config: %w", err)
	}
	return stored.ChallengeConfig, nil
}

func (s *configService) Get(ctx context.Context) (*models.SystemConfig, error) {
	stored, err := s.configRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrSystemConfigNotFound) {
			return &models.SystemConfig{ChallengeConfig: models.DefaultChallengeConfig()}, nil
		}
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}
	return stored, nil
}

func (s *configService) Update(ctx context.Context, config models.ChallengeConfig, updatedBy string) (*models.SystemConfig, error) {
	if err := validateChallengeConfig(config); err != nil {
		return nil, err
	}

	updated := &models.SystemConfig{
		ChallengeConfig: config,
		UpdatedAt:       s.now(),
		UpdatedBy:       updatedBy,
	}
	if err := s.configRepo.Upsert(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to save system config: %w", err)
	}
	return updated, nil
}

func (s *configService) ResetToDefault(ctx context.Context, updatedBy string) (*models.SystemConfig, error) {
	return s.Update(ctx, models.DefaultChallengeConfig(), updatedBy)
}

func validateChallengeConfig(config models.ChallengeConfig) error {
	hours := map[string]int{
		"response_time_hours": config.ResponseTimeHours,
		"dates_time_hours":    config.DatesTimeHours,
		"final_time_hours":    config.FinalTimeHours,
	}
	for field, value := range hours {
		if value < minDeadlineHours || value > maxDeadlineHours {
			return fmt.Errorf("%w: %s must be between %d and %d, got %d",
				ErrInvalidChallengeConfig, field, minDeadlineHours, maxDeadlineHours, value)
		}
	}
	if config.MinProposedDates < minDatesLimit || config.MinProposedDates > maxDatesLimit {
		return fmt.Errorf("%w: min_proposed_dates must be between %d and %d, got %d",
			ErrInvalidChallengeConfig, minDatesLimit, maxDatesLimit, config.MinProposedDates)
	}
	return nil
}
