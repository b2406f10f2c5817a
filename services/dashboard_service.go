package services

import (
	"context"

	"github.com/Dosada05/ladder-system/models"
	"github.com/Dosada05/ladder-system/repositories"
	"golang.org/x/sync/errgroup"
)

type DashboardService interface {
	GetStats(ctx context.Context) (models.DashboardStats, error)
}

type dashboardService struct {
	userRepo      repositories.UserRepository
	pairRepo      repositories.PairRepository
	challengeRepo repositories.ChallengeRepository
}

func NewDashboardService(
	userRepo repositories.UserRepository,
	pairRepo repositories.PairRepository,
	challengeRepo repositories.ChallengeRepository,
) DashboardService {
	return &dashboardService{
		userRepo:      userRepo,
		pairRepo:      pairRepo,
		challengeRepo: challengeRepo,
	}
}

func (s *dashboardService) GetStats(ctx context.Context) (models.DashboardStats, error) {
	var stats models.DashboardStats

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.PairsTotal, err = s.pairRepo.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.UsersTotal, err = s.userRepo.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.ChallengesTotal, err = s.challengeRepo.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.ActiveChallenges, err = s.challengeRepo.CountByStatus(gctx, models.ActiveChallengeStatuses)
		return err
	})
	g.Go(func() (err error) {
		stats.CompletedChallenges, err = s.challengeRepo.CountByStatus(gctx, []models.ChallengeStatus{models.StatusCompleted})
		return err
	})
	g.Go(func() (err error) {
		stats.DisputedChallenges, err = s.challengeRepo.CountByStatus(gctx, []models.ChallengeStatus{models.StatusDisputedResult})
		return err
	})

	if err := g.Wait(); err != nil {
		return models.DashboardStats{}, err
	}
	return stats, nil
}
