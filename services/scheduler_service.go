package services

import (
	"context"
	"log/slog"
	"time"
)

// SchedulerService периодически проверяет дедлайны вызовов. Оба обхода
// идемпотентны, поэтому перезапуск сервиса или ручной запуск безопасны.
type SchedulerService interface {
	// Run blocks until ctx is cancelled, sweeping on every tick.
	Run(ctx context.Context, interval time.Duration)
	// RunOnce performs a single sweep pass. Used by the admin trigger endpoint.
	RunOnce(ctx context.Context) SweepReport
}

type SweepReport struct {
	Expired          int  `json:"expired"`
	GameTimesReached int  `json:"game_times_reached"`
	Failed           bool `json:"failed"`
}

type schedulerService struct {
	challenges ChallengeService
	logger     *slog.Logger
}

func NewSchedulerService(challenges ChallengeService, logger *slog.Logger) SchedulerService {
	return &schedulerService{challenges: challenges, logger: logger}
}

func (s *schedulerService) Run(ctx context.Context, interval time.Duration) {
	s.logger.Info("deadline scheduler started", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("deadline scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

func (s *schedulerService) RunOnce(ctx context.Context) SweepReport {
	var report SweepReport

	expired, err := s.challenges.SweepExpired(ctx)
	if err != nil {
		// Ошибка чтения: пропускаем тик, следующий попробует снова.
		s.logger.Error("expired sweep failed", slog.Any("error", err))
		report.Failed = true
	}
	report.Expired = expired

	reached, err := s.challenges.SweepGameTimes(ctx)
	if err != nil {
		s.logger.Error("game time sweep failed", slog.Any("error", err))
		report.Failed = true
	}
	report.GameTimesReached = reached

	if report.Expired > 0 || report.GameTimesReached > 0 {
		s.logger.Info("sweep finished",
			slog.Int("expired", report.Expired),
			slog.Int("game_times_reached", report.GameTimesReached))
	}
	return report
}
