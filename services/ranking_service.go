package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Dosada05/ladder-system/db"
	"github.com/Dosada05/ladder-system/models"
	"github.com/Dosada05/ladder-system/repositories"
)

// RankingService владеет всеми мутациями позиций и статистики пар.
//
// Reorganization is an asymmetric cascade, not a swap: the prevailing pair
// takes over the displaced pair's position, the displaced pair drops exactly
// one rank, and every pair between them moves down by one. The whole cascade
// is applied in a single transaction; a partial write would break the
// uniqueness/contiguity invariant of the ladder.
type RankingService interface {
	// ApplyGameResult reorganizes the ladder for a confirmed result and
	// updates both pairs' game statistics.
	ApplyGameResult(ctx context.Context, result *models.GameResult) error
	// ApplyForfeit reorganizes the ladder when the displaced pair declined a
	// challenge or let its response deadline pass. Only the declined counter
	// changes; game statistics are untouched.
	ApplyForfeit(ctx context.Context, prevailingID, displacedID string) error
	// RecordChallengeOpened increments the sent/received counters.
	RecordChallengeOpened(ctx context.Context, challengerID, challengedID string) error
	// RecordChallengeAccepted increments the challenged pair's accepted counter.
	RecordChallengeAccepted(ctx context.Context, pairID string) error
}

type rankingService struct {
	txManager db.TxManager
	pairRepo  repositories.PairRepository
	now       func() time.Time
}

func NewRankingService(txManager db.TxManager, pairRepo repositories.PairRepository) RankingService {
	return &rankingService{
		txManager: txManager,
		pairRepo:  pairRepo,
		now:       time.Now,
	}
}

// reorgPlan описывает каскад перестановки, вычисленный из двух позиций.
type reorgPlan struct {
	noop             bool
	shiftFrom        int // inclusive
	shiftTo          int // exclusive
	newPrevailingPos int
}

// planReorganization computes the cascade for prevailing/displaced positions.
// Shifting [displacedPos, prevailingPos) down by one lands the displaced pair
// at displacedPos+1 and frees displacedPos for the prevailing pair.
func planReorganization(prevailingPos, displacedPos int) reorgPlan {
	if prevailingPos < displacedPos {
		// Рейтинг уже отражает исход.
		return reorgPlan{noop: true}
	}
	return reorgPlan{
		shiftFrom:        displacedPos,
		shiftTo:          prevailingPos,
		newPrevailingPos: displacedPos,
	}
}

func (s *rankingService) ApplyGameResult(ctx context.Context, result *models.GameResult) error {
	now := s.now()
	return s.txManager.WithTx(ctx, func(exec repositories.SQLExecutor) error {
		winner, loser, err := s.lockBoth(ctx, exec, result.WinnerID, result.LoserID)
		if err != nil {
			return err
		}

		if err := s.reorganize(ctx, exec, winner, loser); err != nil {
			return err
		}

		winner.Stats = statsAfterVictory(winner.Stats, now)
		loser.Stats = statsAfterDefeat(loser.Stats, now)

		if err := s.pairRepo.UpdateStats(ctx, exec, winner.ID, winner.Stats); err != nil {
			return fmt.Errorf("failed to update winner stats: %w", err)
		}
		if err := s.pairRepo.UpdateStats(ctx, exec, loser.ID, loser.Stats); err != nil {
			return fmt.Errorf("failed to update loser stats: %w", err)
		}
		return nil
	})
}

func (s *rankingService) ApplyForfeit(ctx context.Context, prevailingID, displacedID string) error {
	return s.txManager.WithTx(ctx, func(exec repositories.SQLExecutor) error {
		prevailing, displaced, err := s.lockBoth(ctx, exec, prevailingID, displacedID)
		if err != nil {
			return err
		}

		if err := s.reorganize(ctx, exec, prevailing, displaced); err != nil {
			return err
		}

		displaced.Stats.ChallengesDeclined++
		if err := s.pairRepo.UpdateStats(ctx, exec, displaced.ID, displaced.Stats); err != nil {
			return fmt.Errorf("failed to update declined counter: %w", err)
		}
		return nil
	})
}

func (s *rankingService) RecordChallengeOpened(ctx context.Context, challengerID, challengedID string) error {
	return s.txManager.WithTx(ctx, func(exec repositories.SQLExecutor) error {
		challenger, challenged, err := s.lockBoth(ctx, exec, challengerID, challengedID)
		if err != nil {
			return err
		}

		challenger.Stats.ChallengesSent++
		challenged.Stats.ChallengesReceived++

		if err := s.pairRepo.UpdateStats(ctx, exec, challenger.ID, challenger.Stats); err != nil {
			return fmt.Errorf("failed to update sent counter: %w", err)
		}
		if err := s.pairRepo.UpdateStats(ctx, exec, challenged.ID, challenged.Stats); err != nil {
			return fmt.Errorf("failed to update received counter: %w", err)
		}
		return nil
	})
}

func (s *rankingService) RecordChallengeAccepted(ctx context.Context, pairID string) error {
	return s.txManager.WithTx(ctx, func(exec repositories.SQLExecutor) error {
		pair, err := s.pairRepo.GetByIDForUpdate(ctx, exec, pairID)
		if err != nil {
			return s.mapPairError(err, pairID)
		}
		pair.Stats.ChallengesAccepted++
		if err := s.pairRepo.UpdateStats(ctx, exec, pair.ID, pair.Stats); err != nil {
			return fmt.Errorf("failed to update accepted counter: %w", err)
		}
		return nil
	})
}

// reorganize applies the position cascade. Both pairs must already be locked.
func (s *rankingService) reorganize(ctx context.Context, exec repositories.SQLExecutor, prevailing, displaced *models.Pair) error {
	plan := planReorganization(prevailing.Position, displaced.Position)
	if plan.noop {
		return nil
	}

	// Позиция 0 используется как временная внутри транзакции, чтобы не
	// нарушить уникальный индекс во время сдвига окна.
	if err := s.pairRepo.UpdatePosition(ctx, exec, prevailing.ID, 0); err != nil {
		return fmt.Errorf("failed to park prevailing pair %s: %w", prevailing.ID, err)
	}
	if err := s.pairRepo.ShiftPositions(ctx, exec, plan.shiftFrom, plan.shiftTo, 1); err != nil {
		return err
	}
	if err := s.pairRepo.UpdatePosition(ctx, exec, prevailing.ID, plan.newPrevailingPos); err != nil {
		return fmt.Errorf("failed to place prevailing pair %s at %d: %w", prevailing.ID, plan.newPrevailingPos, err)
	}

	prevailing.Position = plan.newPrevailingPos
	displaced.Position = plan.shiftFrom + 1
	return nil
}

// lockBoth reads both pairs with row locks in a deterministic order, so two
// concurrent reorganizations cannot deadlock on each other.
func (s *rankingService) lockBoth(ctx context.Context, exec repositories.SQLExecutor, firstID, secondID string) (*models.Pair, *models.Pair, error) {
	aID, bID := firstID, secondID
	if bID < aID {
		aID, bID = bID, aID
	}

	a, err := s.pairRepo.GetByIDForUpdate(ctx, exec, aID)
	if err != nil {
		return nil, nil, s.mapPairError(err, aID)
	}
	b, err := s.pairRepo.GetByIDForUpdate(ctx, exec, bID)
	if err != nil {
		return nil, nil, s.mapPairError(err, bID)
	}

	if a.ID == firstID {
		return a, b, nil
	}
	return b, a, nil
}

func (s *rankingService) mapPairError(err error, id string) error {
	if errors.Is(err, repositories.ErrPairNotFound) {
		return fmt.Errorf("%w: %s", ErrPairNotFound, id)
	}
	return fmt.Errorf("failed to get pair %s: %w", id, err)
}

func statsAfterVictory(stats models.PairStats, now time.Time) models.PairStats {
	stats.TotalGames++
	stats.Victories++
	if stats.CurrentStreak > 0 {
		stats.CurrentStreak++
	} else {
		stats.CurrentStreak = 1
	}
	if stats.CurrentStreak > stats.BestStreak {
		stats.BestStreak = stats.CurrentStreak
	}
	stats.WinRate = winRate(stats.Victories, stats.TotalGames)
	stats.LastGameDate = &now
	return stats
}

func statsAfterDefeat(stats models.PairStats, now time.Time) models.PairStats {
	stats.TotalGames++
	stats.Defeats++
	if stats.CurrentStreak < 0 {
		stats.CurrentStreak--
	} else {
		stats.CurrentStreak = -1
	}
	stats.WinRate = winRate(stats.Victories, stats.TotalGames)
	stats.LastGameDate = &now
	return stats
}

func winRate(victories, totalGames int) int {
	if totalGames == 0 {
		return 0
	}
	return int(math.Round(float64(victories) / float64(totalGames) * 100))
}
