package services

import (
	"context"
	"testing"
	"time"

	"github.com/Dosada05/ladder-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetChallengeConfigFallsBackToDefault(t *testing.T) {
	svc := NewConfigService(&fakeConfigRepo{})

	config, err := svc.GetChallengeConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultChallengeConfig(), config)
}

func TestUpdateConfigRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := &fakeConfigRepo{}
	svc := NewConfigService(repo).(*configService)
	svc.now = func() time.Time { return testMonday }

	custom := models.ChallengeConfig{
		ResponseTimeHours:  48,
		DatesTimeHours:     12,
		FinalTimeHours:     6,
		RequireWeekendDate: false,
		MinProposedDates:   5,
	}
	updated, err := svc.Update(ctx, custom, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", updated.UpdatedBy)
	assert.Equal(t, testMonday, updated.UpdatedAt)

	active, err := svc.GetChallengeConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, custom, active)
}

func TestUpdateConfigValidation(t *testing.T) {
	valid := models.DefaultChallengeConfig()

	tests := []struct {
		name   string
		mutate func(*models.ChallengeConfig)
	}{
		{"нулевой дедлайн ответа", func(c *models.ChallengeConfig) { c.ResponseTimeHours = 0 }},
		{"дедлайн ответа больше недели", func(c *models.ChallengeConfig) { c.ResponseTimeHours = 169 }},
		{"нулевой дедлайн дат", func(c *models.ChallengeConfig) { c.DatesTimeHours = 0 }},
		{"отрицательный финальный дедлайн", func(c *models.ChallengeConfig) { c.FinalTimeHours = -1 }},
		{"ноль предлагаемых дат", func(c *models.ChallengeConfig) { c.MinProposedDates = 0 }},
		{"слишком много предлагаемых дат", func(c *models.ChallengeConfig) { c.MinProposedDates = 11 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeConfigRepo{}
			svc := NewConfigService(repo)

			config := valid
			tt.mutate(&config)
			_, err := svc.Update(context.Background(), config, "admin@example.com")
			assert.ErrorIs(t, err, ErrInvalidChallengeConfig)

			// Невалидная конфигурация не сохраняется.
			active, getErr := svc.GetChallengeConfig(context.Background())
			require.NoError(t, getErr)
			assert.Equal(t, models.DefaultChallengeConfig(), active)
		})
	}
}

func TestResetToDefault(t *testing.T) {
	ctx := context.Background()
	repo := &fakeConfigRepo{}
	svc := NewConfigService(repo)

	custom := models.DefaultChallengeConfig()
	custom.ResponseTimeHours = 72
	_, err := svc.Update(ctx, custom, "admin@example.com")
	require.NoError(t, err)

	reset, err := svc.ResetToDefault(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultChallengeConfig(), reset.ChallengeConfig)

	active, err := svc.GetChallengeConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultChallengeConfig(), active)
}
