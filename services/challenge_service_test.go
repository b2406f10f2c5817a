package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Dosada05/ladder-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Понедельник; выходные этой недели — 7 и 8 июня.
var testMonday = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

type challengeFixture struct {
	svc           *challengeService
	pairRepo      *fakePairRepo
	challengeRepo *fakeChallengeRepo
	notifier      *recordingNotifier
	clock         time.Time
}

func newChallengeFixture(t *testing.T, pairs ...*models.Pair) *challengeFixture {
	t.Helper()
	if len(pairs) == 0 {
		pairs = []*models.Pair{
			ladderPair("p1", 1),
			ladderPair("p2", 2),
			ladderPair("p3", 3),
			ladderPair("p4", 4),
		}
	}

	f := &challengeFixture{
		pairRepo:      newFakePairRepo(pairs...),
		challengeRepo: newFakeChallengeRepo(),
		notifier:      &recordingNotifier{},
		clock:         testMonday,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eligibility := NewEligibilityService(f.pairRepo, f.challengeRepo)
	ranking := NewRankingService(fakeTxManager{}, f.pairRepo)
	configService := NewConfigService(&fakeConfigRepo{})

	f.svc = NewChallengeService(
		f.challengeRepo,
		f.pairRepo,
		eligibility,
		ranking,
		configService,
		f.notifier,
		logger,
	).(*challengeService)

	f.svc.now = func() time.Time { return f.clock }

	nextID := 0
	f.svc.newID = func() string {
		nextID++
		return fmt.Sprintf("id-%d", nextID)
	}
	return f
}

func (f *challengeFixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

// threeValidDates — минимальный валидный набор: все в будущем, есть выходной.
func threeValidDates() []ProposedDateInput {
	return []ProposedDateInput{
		{Date: time.Date(2025, 6, 5, 18, 0, 0, 0, time.UTC)}, // четверг
		{Date: time.Date(2025, 6, 6, 18, 0, 0, 0, time.UTC)}, // пятница
		{Date: time.Date(2025, 6, 7, 11, 0, 0, 0, time.UTC)}, // суббота
	}
}

// scheduled прогоняет вызов p3 → p2 до статуса SCHEDULED.
func (f *challengeFixture) scheduled(t *testing.T) *models.Challenge {
	t.Helper()
	ctx := context.Background()

	challenge, err := f.svc.Create(ctx, "p3", "p2")
	require.NoError(t, err)
	_, err = f.svc.Respond(ctx, challenge.ID, "p2", true)
	require.NoError(t, err)
	_, err = f.svc.ProposeDates(ctx, challenge.ID, "p2", threeValidDates())
	require.NoError(t, err)

	withDates, err := f.svc.GetByID(ctx, challenge.ID)
	require.NoError(t, err)
	selected, err := f.svc.SelectDate(ctx, challenge.ID, "p3", withDates.ProposedDates[0].ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusScheduled, selected.Status)
	return selected
}

func TestCreateChallenge(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()

	challenge, err := f.svc.Create(ctx, "p3", "p2")
	require.NoError(t, err)

	assert.Equal(t, models.StatusPendingResponse, challenge.Status)
	assert.Equal(t, models.StepInitialResponse, challenge.CurrentStep)
	assert.Equal(t, "p3", challenge.ChallengerID)
	assert.Equal(t, "p2", challenge.ChallengedID)
	assert.Equal(t, testMonday.Add(24*time.Hour), challenge.ResponseDeadline)
	assert.Equal(t, models.DefaultChallengeConfig(), challenge.Config)

	require.Len(t, challenge.History, 1)
	assert.Equal(t, models.ActionCreated, challenge.History[0].Action)
	assert.Equal(t, "p3", challenge.History[0].PerformedBy)

	// Счётчики вызовов обновлены у обеих пар.
	challenger, _ := f.pairRepo.GetByID(ctx, "p3")
	challenged, _ := f.pairRepo.GetByID(ctx, "p2")
	assert.Equal(t, 1, challenger.Stats.ChallengesSent)
	assert.Equal(t, 1, challenged.Stats.ChallengesReceived)
}

func TestCreateChallengeRejectedOutsideWindow(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "p4", "p1")
	assert.ErrorIs(t, err, ErrRankingWindow)

	count, _ := f.challengeRepo.Count(ctx)
	assert.Zero(t, count)
}

func TestRespondActorAndState(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()

	challenge, err := f.svc.Create(ctx, "p3", "p2")
	require.NoError(t, err)

	// Отвечать может только вызванная пара.
	_, err = f.svc.Respond(ctx, challenge.ID, "p3", true)
	assert.ErrorIs(t, err, ErrOnlyChallengedCanAct)

	accepted, err := f.svc.Respond(ctx, challenge.ID, "p2", true)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingDates, accepted.Status)
	assert.Equal(t, models.StepProposeDates, accepted.CurrentStep)
	require.NotNil(t, accepted.DatesDeadline)
	assert.Equal(t, testMonday.Add(24*time.Hour), *accepted.DatesDeadline)
	require.Len(t, accepted.History, 2)
	assert.Equal(t, models.ActionAccepted, accepted.History[1].Action)

	// Повторный ответ по уже принятому вызову отклоняется.
	_, err = f.svc.Respond(ctx, challenge.ID, "p2", true)
	assert.ErrorIs(t, err, ErrWrongChallengeState)
}

func TestRespondDeclineForfeitsPosition(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()

	challenge, err := f.svc.Create(ctx, "p3", "p2")
	require.NoError(t, err)

	declined, err := f.svc.Respond(ctx, challenge.ID, "p2", false)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeclined, declined.Status)

	// Отказавшаяся пара уступает позицию вызывающей.
	assert.Equal(t, 2, f.pairRepo.positionOf("p3"))
	assert.Equal(t, 3, f.pairRepo.positionOf("p2"))
	assert.Equal(t, 1, f.pairRepo.positionOf("p1"))

	challenged, _ := f.pairRepo.GetByID(ctx, "p2")
	assert.Equal(t, 1, challenged.Stats.ChallengesDeclined)
	assert.Positive(t, f.notifier.ladderUpdates)
}

func TestProposeDatesValidation(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()

	challenge, err := f.svc.Create(ctx, "p3", "p2")
	require.NoError(t, err)
	_, err = f.svc.Respond(ctx, challenge.ID, "p2", true)
	require.NoError(t, err)

	// Меньше минимума.
	_, err = f.svc.ProposeDates(ctx, challenge.ID, "p2", threeValidDates()[:2])
	assert.ErrorIs(t, err, ErrNotEnoughDates)

	// Без выходного дня.
	weekdaysOnly := []ProposedDateInput{
		{Date: time.Date(2025, 6, 4, 18, 0, 0, 0, time.UTC)},
		{Date: time.Date(2025, 6, 5, 18, 0, 0, 0, time.UTC)},
		{Date: time.Date(2025, 6, 6, 18, 0, 0, 0, time.UTC)},
	}
	_, err = f.svc.ProposeDates(ctx, challenge.ID, "p2", weekdaysOnly)
	assert.ErrorIs(t, err, ErrWeekendDateRequired)

	// Дата в прошлом.
	withPast := threeValidDates()
	withPast[0].Date = testMonday.Add(-time.Hour)
	_, err = f.svc.ProposeDates(ctx, challenge.ID, "p2", withPast)
	assert.ErrorIs(t, err, ErrDateNotInFuture)

	// Предлагает только вызванная пара.
	_, err = f.svc.ProposeDates(ctx, challenge.ID, "p3", threeValidDates())
	assert.ErrorIs(t, err, ErrOnlyChallengedCanAct)

	// Неудачные попытки не изменили вызов.
	unchanged, err := f.svc.GetByID(ctx, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingDates, unchanged.Status)
	assert.Empty(t, unchanged.ProposedDates)
	assert.Len(t, unchanged.History, 2)
}

func TestProposeDatesSuccess(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()

	challenge, err := f.svc.Create(ctx, "p3", "p2")
	require.NoError(t, err)
	_, err = f.svc.Respond(ctx, challenge.ID, "p2", true)
	require.NoError(t, err)

	proposed, err := f.svc.ProposeDates(ctx, challenge.ID, "p2", threeValidDates())
	require.NoError(t, err)

	assert.Equal(t, models.StatusPendingDateSelection, proposed.Status)
	assert.Equal(t, models.StepSelectDate, proposed.CurrentStep)
	require.NotNil(t, proposed.FinalDeadline)
	require.Len(t, proposed.ProposedDates, 3)
	assert.True(t, proposed.ProposedDates[2].IsWeekend)
	assert.Equal(t, models.ProposedByChallenged, proposed.ProposedDates[0].ProposedBy)

	last := proposed.History[len(proposed.History)-1]
	assert.Equal(t, models.ActionDatesProposed, last.Action)
	assert.EqualValues(t, 3, last.Data["dates_count"])
}

func TestSelectDate(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()

	challenge, err := f.svc.Create(ctx, "p3", "p2")
	require.NoError(t, err)
	_, err = f.svc.Respond(ctx, challenge.ID, "p2", true)
	require.NoError(t, err)
	proposed, err := f.svc.ProposeDates(ctx, challenge.ID, "p2", threeValidDates())
	require.NoError(t, err)

	// Выбирает только вызывающая пара.
	_, err = f.svc.SelectDate(ctx, challenge.ID, "p2", proposed.ProposedDates[0].ID)
	assert.ErrorIs(t, err, ErrOnlyChallengerCanAct)

	_, err = f.svc.SelectDate(ctx, challenge.ID, "p3", "no-such-date")
	assert.ErrorIs(t, err, ErrDateNotFound)

	selected, err := f.svc.SelectDate(ctx, challenge.ID, "p3", proposed.ProposedDates[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, selected.Status)
	require.NotNil(t, selected.SelectedDate)
	assert.Equal(t, proposed.ProposedDates[1].ID, selected.SelectedDate.ID)
}

func TestCounterProposalFlow(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()

	challenge, err := f.svc.Create(ctx, "p3", "p2")
	require.NoError(t, err)
	_, err = f.svc.Respond(ctx, challenge.ID, "p2", true)
	require.NoError(t, err)
	_, err = f.svc.ProposeDates(ctx, challenge.ID, "p2", threeValidDates())
	require.NoError(t, err)

	counterDate := time.Date(2025, 6, 8, 15, 0, 0, 0, time.UTC) // воскресенье
	countered, err := f.svc.CounterPropose(ctx, challenge.ID, "p3", ProposedDateInput{Date: counterDate})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingCounterResponse, countered.Status)
	require.NotNil(t, countered.CounterProposalDate)
	assert.Equal(t, models.ProposedByChallenger, countered.CounterProposalDate.ProposedBy)

	accepted, err := f.svc.RespondToCounter(ctx, challenge.ID, "p2", true)
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, accepted.Status)
	require.NotNil(t, accepted.SelectedDate)
	assert.True(t, accepted.SelectedDate.Date.Equal(counterDate))
}

func TestCounterProposalDeclinedIsNeutral(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()

	challenge, err := f.svc.Create(ctx, "p3", "p2")
	require.NoError(t, err)
	_, err = f.svc.Respond(ctx, challenge.ID, "p2", true)
	require.NoError(t, err)
	_, err = f.svc.ProposeDates(ctx, challenge.ID, "p2", threeValidDates())
	require.NoError(t, err)
	_, err = f.svc.CounterPropose(ctx, challenge.ID, "p3", ProposedDateInput{
		Date: time.Date(2025, 6, 8, 15, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	declined, err := f.svc.RespondToCounter(ctx, challenge.ID, "p2", false)
	require.NoError(t, err)

	// Отклонение контрапредложения не трогает рейтинг, в отличие от отказа
	// на первоначальный вызов.
	assert.Equal(t, models.StatusCancelled, declined.Status)
	assert.Equal(t, models.ActionCounterDeclined, declined.History[len(declined.History)-1].Action)
	assert.Equal(t, 2, f.pairRepo.positionOf("p2"))
	assert.Equal(t, 3, f.pairRepo.positionOf("p3"))
}

func TestReportResultValidation(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()

	scheduled := f.scheduled(t)

	// До GAME_TIME результат не принимается.
	_, err := f.svc.ReportResult(ctx, scheduled.ID, "p3", ReportResultInput{WinnerID: "p3"})
	assert.ErrorIs(t, err, ErrWrongChallengeState)

	f.advance(7 * 24 * time.Hour)
	swept, err := f.svc.SweepGameTimes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	_, err = f.svc.ReportResult(ctx, scheduled.ID, "p1", ReportResultInput{WinnerID: "p3"})
	assert.ErrorIs(t, err, ErrNotAParticipant)

	_, err = f.svc.ReportResult(ctx, scheduled.ID, "p3", ReportResultInput{WinnerID: "p1"})
	assert.ErrorIs(t, err, ErrWinnerNotParticipant)

	reported, err := f.svc.ReportResult(ctx, scheduled.ID, "p3", ReportResultInput{WinnerID: "p3"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingConfirmation, reported.Status)
	require.NotNil(t, reported.GameResult)
	assert.False(t, reported.GameResult.Confirmed)
	assert.Equal(t, "p2", reported.GameResult.LoserID)
}

func TestConfirmResult(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()

	scheduled := f.scheduled(t)
	f.advance(7 * 24 * time.Hour)
	_, err := f.svc.SweepGameTimes(ctx)
	require.NoError(t, err)
	_, err = f.svc.ReportResult(ctx, scheduled.ID, "p3", ReportResultInput{WinnerID: "p3"})
	require.NoError(t, err)

	// Репортёр не может подтвердить собственный результат.
	_, err = f.svc.ConfirmResult(ctx, scheduled.ID, "p3", true)
	assert.ErrorIs(t, err, ErrSelfConfirmation)

	confirmed, err := f.svc.ConfirmResult(ctx, scheduled.ID, "p2", true)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, confirmed.Status)
	require.NotNil(t, confirmed.GameResult.ConfirmedAt)
	assert.True(t, confirmed.GameResult.Confirmed)

	// Победитель занял позицию проигравшего, проигравший опустился на одну.
	assert.Equal(t, 2, f.pairRepo.positionOf("p3"))
	assert.Equal(t, 3, f.pairRepo.positionOf("p2"))

	winner, _ := f.pairRepo.GetByID(ctx, "p3")
	assert.Equal(t, 1, winner.Stats.Victories)
}

func TestDisputedResultFreezesLadder(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()

	scheduled := f.scheduled(t)
	f.advance(7 * 24 * time.Hour)
	_, err := f.svc.SweepGameTimes(ctx)
	require.NoError(t, err)
	_, err = f.svc.ReportResult(ctx, scheduled.ID, "p3", ReportResultInput{WinnerID: "p3"})
	require.NoError(t, err)

	disputed, err := f.svc.ConfirmResult(ctx, scheduled.ID, "p2", false)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDisputedResult, disputed.Status)

	// Спор замораживает исход: позиции и статистика не меняются.
	assert.Equal(t, 2, f.pairRepo.positionOf("p2"))
	assert.Equal(t, 3, f.pairRepo.positionOf("p3"))
	pair, _ := f.pairRepo.GetByID(ctx, "p3")
	assert.Zero(t, pair.Stats.TotalGames)
}

func TestCancelChallenge(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()

	scheduled := f.scheduled(t)

	_, err := f.svc.Cancel(ctx, scheduled.ID, "p1")
	assert.ErrorIs(t, err, ErrNotAParticipant)

	cancelled, err := f.svc.Cancel(ctx, scheduled.ID, "p3")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	// Позиции не затронуты.
	assert.Equal(t, 2, f.pairRepo.positionOf("p2"))
	assert.Equal(t, 3, f.pairRepo.positionOf("p3"))

	_, err = f.svc.Cancel(ctx, scheduled.ID, "p3")
	assert.ErrorIs(t, err, ErrWrongChallengeState)
}

func TestSweepExpiredPendingResponse(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()

	challenge, err := f.svc.Create(ctx, "p3", "p2")
	require.NoError(t, err)

	// До дедлайна обход ничего не трогает.
	expired, err := f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)

	f.advance(25 * time.Hour)
	expired, err = f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	swept, err := f.svc.GetByID(ctx, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, swept.Status)
	last := swept.History[len(swept.History)-1]
	assert.Equal(t, models.ActionExpired, last.Action)
	assert.Equal(t, "system", last.PerformedBy)

	// Молчание на вызов наказывается так же, как отказ.
	assert.Equal(t, 2, f.pairRepo.positionOf("p3"))
	assert.Equal(t, 3, f.pairRepo.positionOf("p2"))

	// Повторный обход идемпотентен.
	expired, err = f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)
	assert.Equal(t, 2, f.pairRepo.positionOf("p3"))
}

func TestSweepExpiredLaterStagesAreNeutral(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()

	challenge, err := f.svc.Create(ctx, "p3", "p2")
	require.NoError(t, err)
	_, err = f.svc.Respond(ctx, challenge.ID, "p2", true)
	require.NoError(t, err)

	f.advance(25 * time.Hour)
	expired, err := f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	swept, err := f.svc.GetByID(ctx, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, swept.Status)

	// Экспирация после принятия вызова не меняет позиции.
	assert.Equal(t, 2, f.pairRepo.positionOf("p2"))
	assert.Equal(t, 3, f.pairRepo.positionOf("p3"))
}

func TestSweepGameTimes(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()

	scheduled := f.scheduled(t)

	// Время игры ещё не наступило.
	reached, err := f.svc.SweepGameTimes(ctx)
	require.NoError(t, err)
	assert.Zero(t, reached)

	f.advance(7 * 24 * time.Hour)
	reached, err = f.svc.SweepGameTimes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reached)

	swept, err := f.svc.GetByID(ctx, scheduled.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusGameTime, swept.Status)

	reached, err = f.svc.SweepGameTimes(ctx)
	require.NoError(t, err)
	assert.Zero(t, reached)
}

func TestHistoryGrowsByOnePerTransition(t *testing.T) {
	f := newChallengeFixture(t)
	ctx := context.Background()

	challenge, err := f.svc.Create(ctx, "p3", "p2")
	require.NoError(t, err)
	_, err = f.svc.Respond(ctx, challenge.ID, "p2", true)
	require.NoError(t, err)
	_, err = f.svc.ProposeDates(ctx, challenge.ID, "p2", threeValidDates())
	require.NoError(t, err)

	withDates, _ := f.svc.GetByID(ctx, challenge.ID)
	_, err = f.svc.SelectDate(ctx, challenge.ID, "p3", withDates.ProposedDates[0].ID)
	require.NoError(t, err)

	f.advance(7 * 24 * time.Hour)
	_, err = f.svc.SweepGameTimes(ctx)
	require.NoError(t, err)
	_, err = f.svc.ReportResult(ctx, challenge.ID, "p2", ReportResultInput{WinnerID: "p3"})
	require.NoError(t, err)
	final, err := f.svc.ConfirmResult(ctx, challenge.ID, "p3", true)
	require.NoError(t, err)

	wantActions := []models.ChallengeAction{
		models.ActionCreated,
		models.ActionAccepted,
		models.ActionDatesProposed,
		models.ActionDateSelected,
		models.ActionGameTimeReached,
		models.ActionResultReported,
		models.ActionResultConfirmed,
	}
	require.Len(t, final.History, len(wantActions))
	for i, item := range final.History {
		assert.Equal(t, wantActions[i], item.Action, "history item %d", i)
	}
}
