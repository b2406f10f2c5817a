package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/ladder-system/models"
	"github.com/Dosada05/ladder-system/repositories"
)

// challengeReachBack — на сколько позиций выше себя пара может бросить вызов.
const challengeReachBack = 2

// EligibilityService decides whether one pair may open a challenge against
// another. All checks fail closed: a store error blocks the challenge instead
// of allowing one that could violate the single-active-challenge invariant.
type EligibilityService interface {
	CanChallenge(ctx context.Context, challengerID, challengedID string) error
}

type eligibilityService struct {
	pairRepo      repositories.PairRepository
	challengeRepo repositories.ChallengeRepository
}

func NewEligibilityService(
	pairRepo repositories.PairRepository,
	challengeRepo repositories.ChallengeRepository,
) EligibilityService {
	return &eligibilityService{
		pairRepo:      pairRepo,
		challengeRepo: challengeRepo,
	}
}

func (s *eligibilityService) CanChallenge(ctx context.Context, challengerID, challengedID string) error {
	if challengerID == challengedID {
		return ErrSelfChallenge
	}

	challenger, err := s.lookupPair(ctx, challengerID)
	if err != nil {
		return err
	}
	challenged, err := s.lookupPair(ctx, challengedID)
	if err != nil {
		return err
	}

	if err := s.checkNoActiveChallenge(ctx, challenger); err != nil {
		return err
	}
	if err := s.checkNoActiveChallenge(ctx, challenged); err != nil {
		return err
	}

	// Позиции читаются из поля position пары — единый источник правды.
	if challenger.Position <= 0 || challenged.Position <= 0 {
		return fmt.Errorf("%w: challenger at %d, challenged at %d",
			ErrPairNotRanked, challenger.Position, challenged.Position)
	}

	if challenged.Position >= challenger.Position {
		return fmt.Errorf("%w: %s is ranked at %d, at or below %d",
			ErrChallengedBelow, challenged.DisplayName(), challenged.Position, challenger.Position)
	}

	floor := challenger.Position - challengeReachBack
	if floor < 1 {
		floor = 1
	}
	if challenged.Position < floor {
		return fmt.Errorf("%w: only pairs at positions %d to %d can be challenged, %s is at %d",
			ErrRankingWindow, floor, challenger.Position-1, challenged.DisplayName(), challenged.Position)
	}

	return nil
}

func (s *eligibilityService) lookupPair(ctx context.Context, id string) (*models.Pair, error) {
	pair, err := s.pairRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPairNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPairNotFound, id)
		}
		return nil, fmt.Errorf("failed to get pair %s: %w", id, err)
	}
	return pair, nil
}

// checkNoActiveChallenge returns ErrChallengeActive naming the blocking
// opponent if the pair already participates in an active challenge.
func (s *eligibilityService) checkNoActiveChallenge(ctx context.Context, pair *models.Pair) error {
	challenges, err := s.challengeRepo.ListByParticipant(ctx, pair.ID)
	if err != nil {
		return fmt.Errorf("failed to list challenges of pair %s: %w", pair.ID, err)
	}

	for _, challenge := range challenges {
		if !challenge.Status.IsActive() {
			continue
		}
		opponentName := challenge.ChallengedName
		if challenge.ChallengedID == pair.ID {
			opponentName = challenge.ChallengerName
		}
		return fmt.Errorf("%w: %s is already in a challenge against %s",
			ErrChallengeActive, pair.DisplayName(), opponentName)
	}
	return nil
}
