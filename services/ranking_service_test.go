package services

import (
	"context"
	"testing"
	"time"

	"github.com/Dosada05/ladder-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ladderPair(id string, position int) *models.Pair {
	return &models.Pair{
		ID:               id,
		Player1Name:      id + "-p1",
		Player2Name:      id + "-p2",
		ResponsiblePhone: "+7000" + id,
		Position:         position,
	}
}

func newRankingForTest(pairs ...*models.Pair) (*rankingService, *fakePairRepo) {
	repo := newFakePairRepo(pairs...)
	svc := NewRankingService(fakeTxManager{}, repo).(*rankingService)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestApplyGameResultCascade(t *testing.T) {
	// D=1, B=2, C=3, A=4; пара A выигрывает у пары B.
	svc, repo := newRankingForTest(
		ladderPair("D", 1),
		ladderPair("B", 2),
		ladderPair("C", 3),
		ladderPair("A", 4),
	)

	err := svc.ApplyGameResult(context.Background(), &models.GameResult{
		WinnerID: "A",
		LoserID:  "B",
	})
	require.NoError(t, err)

	// A занимает позицию B, B опускается ровно на одну, C сдвигается следом.
	assert.Equal(t, 2, repo.positionOf("A"))
	assert.Equal(t, 3, repo.positionOf("B"))
	assert.Equal(t, 4, repo.positionOf("C"))
	assert.Equal(t, 1, repo.positionOf("D"))
}

func TestApplyGameResultAdjacentPositions(t *testing.T) {
	svc, repo := newRankingForTest(ladderPair("B", 1), ladderPair("A", 2))

	err := svc.ApplyGameResult(context.Background(), &models.GameResult{
		WinnerID: "A",
		LoserID:  "B",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, repo.positionOf("A"))
	assert.Equal(t, 2, repo.positionOf("B"))
}

func TestApplyGameResultNoopWhenWinnerAlreadyAbove(t *testing.T) {
	svc, repo := newRankingForTest(
		ladderPair("A", 1),
		ladderPair("B", 2),
		ladderPair("C", 3),
	)

	err := svc.ApplyGameResult(context.Background(), &models.GameResult{
		WinnerID: "A",
		LoserID:  "C",
	})
	require.NoError(t, err)

	// Позиции не меняются, но статистика игр записывается.
	assert.Equal(t, 1, repo.positionOf("A"))
	assert.Equal(t, 3, repo.positionOf("C"))

	winner, err := repo.GetByID(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, 1, winner.Stats.Victories)
	assert.Equal(t, 1, winner.Stats.TotalGames)
}

func TestApplyGameResultUpdatesStats(t *testing.T) {
	svc, repo := newRankingForTest(ladderPair("B", 1), ladderPair("A", 2))

	err := svc.ApplyGameResult(context.Background(), &models.GameResult{
		WinnerID: "A",
		LoserID:  "B",
	})
	require.NoError(t, err)

	winner, _ := repo.GetByID(context.Background(), "A")
	loser, _ := repo.GetByID(context.Background(), "B")

	assert.Equal(t, 1, winner.Stats.Victories)
	assert.Equal(t, 1, winner.Stats.CurrentStreak)
	assert.Equal(t, 1, winner.Stats.BestStreak)
	assert.Equal(t, 100, winner.Stats.WinRate)
	require.NotNil(t, winner.Stats.LastGameDate)

	assert.Equal(t, 1, loser.Stats.Defeats)
	assert.Equal(t, -1, loser.Stats.CurrentStreak)
	assert.Equal(t, 0, loser.Stats.WinRate)
}

func TestApplyForfeitCascadesAndCountsDecline(t *testing.T) {
	svc, repo := newRankingForTest(
		ladderPair("B", 1),
		ladderPair("C", 2),
		ladderPair("A", 3),
	)

	err := svc.ApplyForfeit(context.Background(), "A", "B")
	require.NoError(t, err)

	assert.Equal(t, 1, repo.positionOf("A"))
	assert.Equal(t, 2, repo.positionOf("B"))
	assert.Equal(t, 3, repo.positionOf("C"))

	displaced, _ := repo.GetByID(context.Background(), "B")
	assert.Equal(t, 1, displaced.Stats.ChallengesDeclined)
	// Отказ не считается сыгранной игрой.
	assert.Equal(t, 0, displaced.Stats.TotalGames)
}

func TestApplyForfeitUnknownPair(t *testing.T) {
	svc, _ := newRankingForTest(ladderPair("A", 1))

	err := svc.ApplyForfeit(context.Background(), "A", "missing")
	assert.ErrorIs(t, err, ErrPairNotFound)
}

func TestRecordChallengeCounters(t *testing.T) {
	svc, repo := newRankingForTest(ladderPair("B", 1), ladderPair("A", 2))

	require.NoError(t, svc.RecordChallengeOpened(context.Background(), "A", "B"))
	require.NoError(t, svc.RecordChallengeAccepted(context.Background(), "B"))

	challenger, _ := repo.GetByID(context.Background(), "A")
	challenged, _ := repo.GetByID(context.Background(), "B")
	assert.Equal(t, 1, challenger.Stats.ChallengesSent)
	assert.Equal(t, 1, challenged.Stats.ChallengesReceived)
	assert.Equal(t, 1, challenged.Stats.ChallengesAccepted)
}

func TestPlanReorganization(t *testing.T) {
	tests := []struct {
		name          string
		prevailingPos int
		displacedPos  int
		wantNoop      bool
		wantFrom      int
		wantTo        int
		wantNewPos    int
	}{
		{name: "challenger two above", prevailingPos: 5, displacedPos: 3, wantFrom: 3, wantTo: 5, wantNewPos: 3},
		{name: "adjacent", prevailingPos: 2, displacedPos: 1, wantFrom: 1, wantTo: 2, wantNewPos: 1},
		{name: "already above", prevailingPos: 1, displacedPos: 4, wantNoop: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := planReorganization(tt.prevailingPos, tt.displacedPos)
			assert.Equal(t, tt.wantNoop, plan.noop)
			if !tt.wantNoop {
				assert.Equal(t, tt.wantFrom, plan.shiftFrom)
				assert.Equal(t, tt.wantTo, plan.shiftTo)
				assert.Equal(t, tt.wantNewPos, plan.newPrevailingPos)
			}
		})
	}
}

func TestStatsStreaks(t *testing.T) {
	now := time.Now()
	stats := models.PairStats{}

	stats = statsAfterVictory(stats, now)
	stats = statsAfterVictory(stats, now)
	assert.Equal(t, 2, stats.CurrentStreak)
	assert.Equal(t, 2, stats.BestStreak)

	stats = statsAfterDefeat(stats, now)
	assert.Equal(t, -1, stats.CurrentStreak)
	assert.Equal(t, 2, stats.BestStreak)

	stats = statsAfterDefeat(stats, now)
	assert.Equal(t, -2, stats.CurrentStreak)

	stats = statsAfterVictory(stats, now)
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 2, stats.BestStreak)

	// 3 победы из 5 игр
	assert.Equal(t, 60, stats.WinRate)
}
