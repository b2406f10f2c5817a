package services

import (
	"context"
	"testing"
	"time"

	"github.com/Dosada05/ladder-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEligibilityForTest(challengeRepo *fakeChallengeRepo, pairs ...*models.Pair) EligibilityService {
	if challengeRepo == nil {
		challengeRepo = newFakeChallengeRepo()
	}
	return NewEligibilityService(newFakePairRepo(pairs...), challengeRepo)
}

func TestCanChallengeWindow(t *testing.T) {
	pairs := []*models.Pair{
		ladderPair("p1", 1),
		ladderPair("p2", 2),
		ladderPair("p3", 3),
		ladderPair("p4", 4),
		ladderPair("p5", 5),
		ladderPair("p6", 6),
	}

	tests := []struct {
		name       string
		challenger string
		challenged string
		wantErr    error
	}{
		{name: "one above", challenger: "p5", challenged: "p4"},
		{name: "two above", challenger: "p5", challenged: "p3"},
		{name: "three above is out of reach", challenger: "p5", challenged: "p2", wantErr: ErrRankingWindow},
		{name: "below is not challengeable", challenger: "p5", challenged: "p6", wantErr: ErrChallengedBelow},
		{name: "same position target", challenger: "p5", challenged: "p5", wantErr: ErrSelfChallenge},
		{name: "second place may challenge leader", challenger: "p2", challenged: "p1"},
		{name: "leader has no one to challenge", challenger: "p1", challenged: "p2", wantErr: ErrChallengedBelow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newEligibilityForTest(nil, pairs...)
			err := svc.CanChallenge(context.Background(), tt.challenger, tt.challenged)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCanChallengeUnknownPair(t *testing.T) {
	svc := newEligibilityForTest(nil, ladderPair("p1", 1), ladderPair("p2", 2))

	err := svc.CanChallenge(context.Background(), "p2", "ghost")
	assert.ErrorIs(t, err, ErrPairNotFound)

	err = svc.CanChallenge(context.Background(), "ghost", "p1")
	assert.ErrorIs(t, err, ErrPairNotFound)
}

func TestCanChallengeBlockedByActiveChallenge(t *testing.T) {
	challengeRepo := newFakeChallengeRepo()
	require.NoError(t, challengeRepo.Create(context.Background(), &models.Challenge{
		ID:             "ch-1",
		ChallengerID:   "p3",
		ChallengedID:   "p2",
		ChallengerName: "p3-p1 / p3-p2",
		ChallengedName: "p2-p1 / p2-p2",
		Status:         models.StatusScheduled,
		CreatedAt:      time.Now(),
	}))

	pairs := []*models.Pair{
		ladderPair("p1", 1),
		ladderPair("p2", 2),
		ladderPair("p3", 3),
		ladderPair("p4", 4),
	}

	svc := newEligibilityForTest(challengeRepo, pairs...)

	// Занят сам вызывающий.
	err := svc.CanChallenge(context.Background(), "p3", "p1")
	assert.ErrorIs(t, err, ErrChallengeActive)

	// Занят вызываемый.
	err = svc.CanChallenge(context.Background(), "p4", "p2")
	assert.ErrorIs(t, err, ErrChallengeActive)

	// Пара занята и как вызывающая сторона другого вызова.
	err = svc.CanChallenge(context.Background(), "p4", "p3")
	assert.ErrorIs(t, err, ErrChallengeActive)
}

func TestCanChallengeCompletedChallengeDoesNotBlock(t *testing.T) {
	challengeRepo := newFakeChallengeRepo()
	require.NoError(t, challengeRepo.Create(context.Background(), &models.Challenge{
		ID:           "ch-done",
		ChallengerID: "p3",
		ChallengedID: "p2",
		Status:       models.StatusCompleted,
		CreatedAt:    time.Now(),
	}))

	svc := newEligibilityForTest(challengeRepo,
		ladderPair("p1", 1), ladderPair("p2", 2), ladderPair("p3", 3))

	assert.NoError(t, svc.CanChallenge(context.Background(), "p3", "p2"))
}

func TestCanChallengeUnrankedPair(t *testing.T) {
	svc := newEligibilityForTest(nil, ladderPair("p1", 1), ladderPair("p0", 0))

	err := svc.CanChallenge(context.Background(), "p0", "p1")
	assert.ErrorIs(t, err, ErrPairNotRanked)
}
