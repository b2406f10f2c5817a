package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/ladder-system/models"
	"github.com/Dosada05/ladder-system/repositories"
	"github.com/google/uuid"
)

// ChallengeNotifier получает уведомления о переходах вызовов и изменениях
// рейтинга. Реализуется realtime-хабом; nil-безопасная заглушка — NopNotifier.
type ChallengeNotifier interface {
	ChallengeUpdated(challenge *models.Challenge)
	LadderUpdated()
}

type nopNotifier struct{}

func (nopNotifier) ChallengeUpdated(*models.Challenge) {}
func (nopNotifier) LadderUpdated()                     {}

// NopNotifier is used where no realtime delivery is wired (tests, CLI tools).
func NopNotifier() ChallengeNotifier { return nopNotifier{} }

type ProposedDateInput struct {
	Date        time.Time `json:"date"`
	Description *string   `json:"description,omitempty"`
}

type ReportResultInput struct {
	WinnerID string  `json:"winner_id"`
	Score    *string `json:"score,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

// ChallengeService — конечный автомат вызова. Каждая операция проверяет
// актора и текущий статус, добавляет ровно одну запись истории и сохраняет
// запись целиком; операции над одним вызовом сериализуются по его id.
type ChallengeService interface {
	Create(ctx context.Context, challengerID, challengedID string) (*models.Challenge, error)
	Respond(ctx context.Context, challengeID, actingPairID string, accept bool) (*models.Challenge, error)
	ProposeDates(ctx context.Context, challengeID, actingPairID string, dates []ProposedDateInput) (*models.Challenge, error)
	SelectDate(ctx context.Context, challengeID, actingPairID, dateID string) (*models.Challenge, error)
	CounterPropose(ctx context.Context, challengeID, actingPairID string, date ProposedDateInput) (*models.Challenge, error)
	RespondToCounter(ctx context.Context, challengeID, actingPairID string, accept bool) (*models.Challenge, error)
	ReportResult(ctx context.Context, challengeID, actingPairID string, input ReportResultInput) (*models.Challenge, error)
	ConfirmResult(ctx context.Context, challengeID, actingPairID string, agree bool) (*models.Challenge, error)
	Cancel(ctx context.Context, challengeID, actingPairID string) (*models.Challenge, error)

	// SweepExpired transitions every active challenge whose deadline has
	// passed to EXPIRED. Idempotent; safe to call on every scheduler tick.
	SweepExpired(ctx context.Context) (int, error)
	// SweepGameTimes transitions every scheduled challenge whose selected
	// date has passed to GAME_TIME. Idempotent.
	SweepGameTimes(ctx context.Context) (int, error)

	GetByID(ctx context.Context, id string) (*models.Challenge, error)
	ChallengesForPair(ctx context.Context, pairID string) ([]*models.Challenge, error)
	ActiveChallengeForPair(ctx context.Context, pairID string) (*models.Challenge, error)
	PairsWithActiveChallenges(ctx context.Context) ([]string, error)
}

type challengeService struct {
	challengeRepo repositories.ChallengeRepository
	pairRepo      repositories.PairRepository
	eligibility   EligibilityService
	ranking       RankingService
	configService ConfigService
	notifier      ChallengeNotifier
	logger        *slog.Logger

	now   func() time.Time
	newID func() string

	// Переходы по одному вызову сериализуются: конкурентные ответ и
	// sweep-экспирация не должны оставить вызов в двух состояниях.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewChallengeService(
	challengeRepo repositories.ChallengeRepository,
	pairRepo repositories.PairRepository,
	eligibility EligibilityService,
	ranking RankingService,
	configService ConfigService,
	notifier ChallengeNotifier,
	logger *slog.Logger,
) ChallengeService {
	if notifier == nil {
		notifier = NopNotifier()
	}
	return &challengeService{
		challengeRepo: challengeRepo,
		pairRepo:      pairRepo,
		eligibility:   eligibility,
		ranking:       ranking,
		configService: configService,
		notifier:      notifier,
		logger:        logger,
		now:           time.Now,
		newID:         uuid.NewString,
		locks:         make(map[string]*sync.Mutex),
	}
}

func (s *challengeService) lockChallenge(id string) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[id] = mu
	}
	s.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

func (s *challengeService) Create(ctx context.Context, challengerID, challengedID string) (*models.Challenge, error) {
	if err := s.eligibility.CanChallenge(ctx, challengerID, challengedID); err != nil {
		return nil, err
	}

	challenger, err := s.getPair(ctx, challengerID)
	if err != nil {
		return nil, err
	}
	challenged, err := s.getPair(ctx, challengedID)
	if err != nil {
		return nil, err
	}

	config, err := s.configService.GetChallengeConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge config: %w", err)
	}

	now := s.now()
	challenge := &models.Challenge{
		ID:               s.newID(),
		ChallengerID:     challengerID,
		ChallengedID:     challengedID,
		ChallengerName:   challenger.DisplayName(),
		ChallengedName:   challenged.DisplayName(),
		Status:           models.StatusPendingResponse,
		CurrentStep:      models.StepInitialResponse,
		CreatedAt:        now,
		ResponseDeadline: now.Add(time.Duration(config.ResponseTimeHours) * time.Hour),
		Config:           config,
		History: []models.ChallengeHistoryItem{{
			ID:              s.newID(),
			Action:          models.ActionCreated,
			PerformedBy:     challengerID,
			PerformedByName: challenger.DisplayName(),
			Timestamp:       now,
		}},
	}

	if err := s.challengeRepo.Create(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	if err := s.ranking.RecordChallengeOpened(ctx, challengerID, challengedID); err != nil {
		// Счётчики вторичны по отношению к созданному вызову.
		s.logger.Warn("failed to record challenge counters",
			slog.String("challenge_id", challenge.ID), slog.Any("error", err))
	}

	s.notifier.ChallengeUpdated(challenge)
	return challenge, nil
}

func (s *challengeService) Respond(ctx context.Context, challengeID, actingPairID string, accept bool) (*models.Challenge, error) {
	unlock := s.lockChallenge(challengeID)
	defer unlock()

	challenge, err := s.loadChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.ChallengedID != actingPairID {
		return nil, ErrOnlyChallengedCanAct
	}
	if challenge.Status != models.StatusPendingResponse {
		return nil, s.wrongState(challenge, "respond")
	}

	now := s.now()
	if accept {
		datesDeadline := now.Add(time.Duration(challenge.Config.DatesTimeHours) * time.Hour)
		challenge.Status = models.StatusPendingDates
		challenge.CurrentStep = models.StepProposeDates
		challenge.DatesDeadline = &datesDeadline
		s.appendHistory(challenge, models.ActionAccepted, actingPairID, challenge.ChallengedName, nil)

		if err := s.challengeRepo.Update(ctx, challenge); err != nil {
			return nil, fmt.Errorf("failed to persist acceptance: %w", err)
		}

		if err := s.ranking.RecordChallengeAccepted(ctx, actingPairID); err != nil {
			s.logger.Warn("failed to record accepted counter",
				slog.String("challenge_id", challenge.ID), slog.Any("error", err))
		}

		s.notifier.ChallengeUpdated(challenge)
		return challenge, nil
	}

	challenge.Status = models.StatusDeclined
	s.appendHistory(challenge, models.ActionDeclined, actingPairID, challenge.ChallengedName, nil)

	if err := s.challengeRepo.Update(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to persist decline: %w", err)
	}

	// Отказ наказывает отказавшуюся сторону: вызывающая пара занимает её место.
	if err := s.ranking.ApplyForfeit(ctx, challenge.ChallengerID, challenge.ChallengedID); err != nil {
		return nil, fmt.Errorf("challenge declined but ranking update failed: %w", err)
	}

	s.notifier.ChallengeUpdated(challenge)
	s.notifier.LadderUpdated()
	return challenge, nil
}

func (s *challengeService) ProposeDates(ctx context.Context, challengeID, actingPairID string, dates []ProposedDateInput) (*models.Challenge, error) {
	unlock := s.lockChallenge(challengeID)
	defer unlock()

	challenge, err := s.loadChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.ChallengedID != actingPairID {
		return nil, ErrOnlyChallengedCanAct
	}
	if challenge.Status != models.StatusPendingDates {
		return nil, s.wrongState(challenge, "propose dates")
	}

	now := s.now()
	// Валидация по снимку конфигурации, сделанному при создании вызова.
	if err := validateProposedDates(dates, challenge.Config, now); err != nil {
		return nil, err
	}

	proposed := make([]models.ChallengeDate, 0, len(dates))
	for _, d := range dates {
		proposed = append(proposed, models.ChallengeDate{
			ID:          s.newID(),
			Date:        d.Date,
			IsWeekend:   isWeekend(d.Date),
			ProposedBy:  models.ProposedByChallenged,
			Description: d.Description,
		})
	}

	finalDeadline := now.Add(time.Duration(challenge.Config.FinalTimeHours) * time.Hour)
	challenge.ProposedDates = proposed
	challenge.Status = models.StatusPendingDateSelection
	challenge.CurrentStep = models.StepSelectDate
	challenge.FinalDeadline = &finalDeadline
	s.appendHistory(challenge, models.ActionDatesProposed, actingPairID, challenge.ChallengedName,
		map[string]interface{}{"dates_count": len(proposed)})

	if err := s.challengeRepo.Update(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to persist proposed dates: %w", err)
	}

	s.notifier.ChallengeUpdated(challenge)
	return challenge, nil
}

func (s *challengeService) SelectDate(ctx context.Context, challengeID, actingPairID, dateID string) (*models.Challenge, error) {
	unlock := s.lockChallenge(challengeID)
	defer unlock()

	challenge, err := s.loadChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.ChallengerID != actingPairID {
		return nil, ErrOnlyChallengerCanAct
	}
	if challenge.Status != models.StatusPendingDateSelection {
		return nil, s.wrongState(challenge, "select date")
	}

	var selected *models.ChallengeDate
	for i := range challenge.ProposedDates {
		if challenge.ProposedDates[i].ID == dateID {
			selected = &challenge.ProposedDates[i]
			break
		}
	}
	if selected == nil {
		return nil, fmt.Errorf("%w: %s", ErrDateNotFound, dateID)
	}

	challenge.SelectedDate = selected
	challenge.Status = models.StatusScheduled
	s.appendHistory(challenge, models.ActionDateSelected, actingPairID, challenge.ChallengerName,
		map[string]interface{}{"selected_date": selected.Date})

	if err := s.challengeRepo.Update(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to persist date selection: %w", err)
	}

	s.notifier.ChallengeUpdated(challenge)
	return challenge, nil
}

func (s *challengeService) CounterPropose(ctx context.Context, challengeID, actingPairID string, date ProposedDateInput) (*models.Challenge, error) {
	unlock := s.lockChallenge(challengeID)
	defer unlock()

	challenge, err := s.loadChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.ChallengerID != actingPairID {
		return nil, ErrOnlyChallengerCanAct
	}
	if challenge.Status != models.StatusPendingDateSelection {
		return nil, s.wrongState(challenge, "counter-propose")
	}

	now := s.now()
	if !date.Date.After(now) {
		return nil, ErrDateNotInFuture
	}

	counter := &models.ChallengeDate{
		ID:          s.newID(),
		Date:        date.Date,
		IsWeekend:   isWeekend(date.Date),
		ProposedBy:  models.ProposedByChallenger,
		Description: date.Description,
	}

	finalDeadline := now.Add(time.Duration(challenge.Config.FinalTimeHours) * time.Hour)
	challenge.CounterProposalDate = counter
	challenge.Status = models.StatusPendingCounterResponse
	challenge.CurrentStep = models.StepFinalConfirmation
	challenge.FinalDeadline = &finalDeadline
	s.appendHistory(challenge, models.ActionCounterProposed, actingPairID, challenge.ChallengerName,
		map[string]interface{}{"counter_date": counter.Date})

	if err := s.challengeRepo.Update(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to persist counter proposal: %w", err)
	}

	s.notifier.ChallengeUpdated(challenge)
	return challenge, nil
}

func (s *challengeService) RespondToCounter(ctx context.Context, challengeID, actingPairID string, accept bool) (*models.Challenge, error) {
	unlock := s.lockChallenge(challengeID)
	defer unlock()

	challenge, err := s.loadChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.ChallengedID != actingPairID {
		return nil, ErrOnlyChallengedCanAct
	}
	if challenge.Status != models.StatusPendingCounterResponse {
		return nil, s.wrongState(challenge, "respond to counter")
	}

	if accept {
		challenge.SelectedDate = challenge.CounterProposalDate
		challenge.Status = models.StatusScheduled
		s.appendHistory(challenge, models.ActionCounterAccepted, actingPairID, challenge.ChallengedName, nil)
	} else {
		// Отклонение контрапредложения нейтрально для рейтинга, в отличие
		// от отказа на первоначальный вызов.
		challenge.Status = models.StatusCancelled
		s.appendHistory(challenge, models.ActionCounterDeclined, actingPairID, challenge.ChallengedName, nil)
	}

	if err := s.challengeRepo.Update(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to persist counter response: %w", err)
	}

	s.notifier.ChallengeUpdated(challenge)
	return challenge, nil
}

func (s *challengeService) ReportResult(ctx context.Context, challengeID, actingPairID string, input ReportResultInput) (*models.Challenge, error) {
	unlock := s.lockChallenge(challengeID)
	defer unlock()

	challenge, err := s.loadChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if !challenge.Participant(actingPairID) {
		return nil, ErrNotAParticipant
	}
	if challenge.Status != models.StatusGameTime && challenge.Status != models.StatusPendingResult {
		return nil, s.wrongState(challenge, "report result")
	}
	if !challenge.Participant(input.WinnerID) {
		return nil, ErrWinnerNotParticipant
	}

	winnerName := challenge.ChallengerName
	loserName := challenge.ChallengedName
	if input.WinnerID == challenge.ChallengedID {
		winnerName, loserName = loserName, winnerName
	}

	now := s.now()
	challenge.GameResult = &models.GameResult{
		WinnerID:       input.WinnerID,
		WinnerName:     winnerName,
		LoserID:        challenge.Opponent(input.WinnerID),
		LoserName:      loserName,
		Score:          input.Score,
		Notes:          input.Notes,
		ReportedBy:     actingPairID,
		ReportedByName: s.participantName(challenge, actingPairID),
		ReportedAt:     now,
		Confirmed:      false,
	}
	challenge.Status = models.StatusPendingConfirmation
	s.appendHistory(challenge, models.ActionResultReported, actingPairID, s.participantName(challenge, actingPairID),
		map[string]interface{}{"winner_id": input.WinnerID})

	if err := s.challengeRepo.Update(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to persist reported result: %w", err)
	}

	s.notifier.ChallengeUpdated(challenge)
	return challenge, nil
}

func (s *challengeService) ConfirmResult(ctx context.Context, challengeID, actingPairID string, agree bool) (*models.Challenge, error) {
	unlock := s.lockChallenge(challengeID)
	defer unlock()

	challenge, err := s.loadChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if !challenge.Participant(actingPairID) {
		return nil, ErrNotAParticipant
	}
	if challenge.Status != models.StatusPendingConfirmation {
		return nil, s.wrongState(challenge, "confirm result")
	}
	if challenge.GameResult == nil {
		return nil, fmt.Errorf("%w: challenge %s has no reported result", ErrValidationFailed, challenge.ID)
	}
	if challenge.GameResult.ReportedBy == actingPairID {
		return nil, ErrSelfConfirmation
	}

	now := s.now()
	if !agree {
		challenge.Status = models.StatusDisputedResult
		s.appendHistory(challenge, models.ActionResultDisputed, actingPairID, s.participantName(challenge, actingPairID), nil)

		if err := s.challengeRepo.Update(ctx, challenge); err != nil {
			return nil, fmt.Errorf("failed to persist dispute: %w", err)
		}
		s.notifier.ChallengeUpdated(challenge)
		return challenge, nil
	}

	challenge.GameResult.Confirmed = true
	challenge.GameResult.ConfirmedBy = &actingPairID
	challenge.GameResult.ConfirmedAt = &now
	challenge.Status = models.StatusCompleted
	s.appendHistory(challenge, models.ActionResultConfirmed, actingPairID, s.participantName(challenge, actingPairID), nil)

	if err := s.challengeRepo.Update(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to persist confirmation: %w", err)
	}

	if err := s.ranking.ApplyGameResult(ctx, challenge.GameResult); err != nil {
		return nil, fmt.Errorf("result confirmed but ranking update failed: %w", err)
	}

	s.notifier.ChallengeUpdated(challenge)
	s.notifier.LadderUpdated()
	return challenge, nil
}

// cancellableStatuses — статусы, из которых участник может отозвать вызов.
var cancellableStatuses = map[models.ChallengeStatus]bool{
	models.StatusPendingResponse:        true,
	models.StatusPendingDates:           true,
	models.StatusPendingDateSelection:   true,
	models.StatusPendingCounterResponse: true,
	models.StatusScheduled:              true,
}

func (s *challengeService) Cancel(ctx context.Context, challengeID, actingPairID string) (*models.Challenge, error) {
	unlock := s.lockChallenge(challengeID)
	defer unlock()

	challenge, err := s.loadChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if !challenge.Participant(actingPairID) {
		return nil, ErrNotAParticipant
	}
	if !cancellableStatuses[challenge.Status] {
		return nil, s.wrongState(challenge, "cancel")
	}

	challenge.Status = models.StatusCancelled
	s.appendHistory(challenge, models.ActionCancelled, actingPairID, s.participantName(challenge, actingPairID), nil)

	if err := s.challengeRepo.Update(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to persist cancellation: %w", err)
	}

	s.notifier.ChallengeUpdated(challenge)
	return challenge, nil
}

// expirationDeadline returns the deadline governing the current status,
// or nil when the status cannot expire.
func expirationDeadline(challenge *models.Challenge) *time.Time {
	switch challenge.Status {
	case models.StatusPendingResponse:
		return &challenge.ResponseDeadline
	case models.StatusPendingDates:
		return challenge.DatesDeadline
	case models.StatusPendingDateSelection, models.StatusPendingCounterResponse:
		return challenge.FinalDeadline
	}
	return nil
}

func (s *challengeService) SweepExpired(ctx context.Context) (int, error) {
	candidates, err := s.challengeRepo.ListByStatus(ctx, []models.ChallengeStatus{
		models.StatusPendingResponse,
		models.StatusPendingDates,
		models.StatusPendingDateSelection,
		models.StatusPendingCounterResponse,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list expirable challenges: %w", err)
	}

	now := s.now()
	expired := 0
	for _, candidate := range candidates {
		deadline := expirationDeadline(candidate)
		if deadline == nil || !now.After(*deadline) {
			continue
		}
		if err := s.expireChallenge(ctx, candidate.ID, now); err != nil {
			// Одна неудачная экспирация не должна останавливать обход;
			// следующий тик попробует снова.
			s.logger.Error("failed to expire challenge",
				slog.String("challenge_id", candidate.ID), slog.Any("error", err))
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *challengeService) expireChallenge(ctx context.Context, challengeID string, now time.Time) error {
	unlock := s.lockChallenge(challengeID)
	defer unlock()

	// Перечитываем под локом: конкурентный переход мог уже обработать вызов.
	challenge, err := s.loadChallenge(ctx, challengeID)
	if err != nil {
		return err
	}
	deadline := expirationDeadline(challenge)
	if deadline == nil || !now.After(*deadline) {
		return nil
	}

	wasPendingResponse := challenge.Status == models.StatusPendingResponse

	challenge.Status = models.StatusExpired
	s.appendHistory(challenge, models.ActionExpired, "system", "System", nil)

	if err := s.challengeRepo.Update(ctx, challenge); err != nil {
		return fmt.Errorf("failed to persist expiry: %w", err)
	}

	// Рейтинговый штраф только за молчание на первоначальный вызов.
	// Остальные экспирации нейтральны.
	if wasPendingResponse {
		if err := s.ranking.ApplyForfeit(ctx, challenge.ChallengerID, challenge.ChallengedID); err != nil {
			return fmt.Errorf("challenge expired but ranking update failed: %w", err)
		}
		s.notifier.LadderUpdated()
	}

	s.notifier.ChallengeUpdated(challenge)
	return nil
}

func (s *challengeService) SweepGameTimes(ctx context.Context) (int, error) {
	candidates, err := s.challengeRepo.ListByStatus(ctx, []models.ChallengeStatus{models.StatusScheduled})
	if err != nil {
		return 0, fmt.Errorf("failed to list scheduled challenges: %w", err)
	}

	now := s.now()
	reached := 0
	for _, candidate := range candidates {
		if candidate.SelectedDate == nil || !now.After(candidate.SelectedDate.Date) {
			continue
		}
		if err := s.markGameTime(ctx, candidate.ID, now); err != nil {
			s.logger.Error("failed to mark game time",
				slog.String("challenge_id", candidate.ID), slog.Any("error", err))
			continue
		}
		reached++
	}
	return reached, nil
}

func (s *challengeService) markGameTime(ctx context.Context, challengeID string, now time.Time) error {
	unlock := s.lockChallenge(challengeID)
	defer unlock()

	challenge, err := s.loadChallenge(ctx, challengeID)
	if err != nil {
		return err
	}
	if challenge.Status != models.StatusScheduled {
		return nil
	}
	if challenge.SelectedDate == nil || !now.After(challenge.SelectedDate.Date) {
		return nil
	}

	challenge.Status = models.StatusGameTime
	s.appendHistory(challenge, models.ActionGameTimeReached, "system", "System", nil)

	if err := s.challengeRepo.Update(ctx, challenge); err != nil {
		return fmt.Errorf("failed to persist game time: %w", err)
	}

	s.notifier.ChallengeUpdated(challenge)
	return nil
}

func (s *challengeService) GetByID(ctx context.Context, id string) (*models.Challenge, error) {
	return s.loadChallenge(ctx, id)
}

func (s *challengeService) ChallengesForPair(ctx context.Context, pairID string) ([]*models.Challenge, error) {
	challenges, err := s.challengeRepo.ListByParticipant(ctx, pairID)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges of pair %s: %w", pairID, err)
	}
	return challenges, nil
}

func (s *challengeService) ActiveChallengeForPair(ctx context.Context, pairID string) (*models.Challenge, error) {
	challenges, err := s.ChallengesForPair(ctx, pairID)
	if err != nil {
		return nil, err
	}
	for _, challenge := range challenges {
		if challenge.Status.IsActive() {
			return challenge, nil
		}
	}
	return nil, nil
}

func (s *challengeService) PairsWithActiveChallenges(ctx context.Context) ([]string, error) {
	active, err := s.challengeRepo.ListByStatus(ctx, models.ActiveChallengeStatuses)
	if err != nil {
		return nil, fmt.Errorf("failed to list active challenges: %w", err)
	}

	seen := make(map[string]bool)
	pairIDs := make([]string, 0, len(active)*2)
	for _, challenge := range active {
		for _, id := range []string{challenge.ChallengerID, challenge.ChallengedID} {
			if !seen[id] {
				seen[id] = true
				pairIDs = append(pairIDs, id)
			}
		}
	}
	return pairIDs, nil
}

func (s *challengeService) loadChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	challenge, err := s.challengeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrChallengeNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrChallengeNotFound, id)
		}
		return nil, fmt.Errorf("failed to get challenge %s: %w", id, err)
	}
	return challenge, nil
}

func (s *challengeService) getPair(ctx context.Context, id string) (*models.Pair, error) {
	pair, err := s.pairRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPairNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPairNotFound, id)
		}
		return nil, fmt.Errorf("failed to get pair %s: %w", id, err)
	}
	return pair, nil
}

func (s *challengeService) appendHistory(challenge *models.Challenge, action models.ChallengeAction, performedBy, performedByName string, data map[string]interface{}) {
	challenge.History = append(challenge.History, models.ChallengeHistoryItem{
		ID:              s.newID(),
		Action:          action,
		PerformedBy:     performedBy,
		PerformedByName: performedByName,
		Timestamp:       s.now(),
		Data:            data,
	})
}

func (s *challengeService) participantName(challenge *models.Challenge, pairID string) string {
	if pairID == challenge.ChallengerID {
		return challenge.ChallengerName
	}
	return challenge.ChallengedName
}

func (s *challengeService) wrongState(challenge *models.Challenge, action string) error {
	return fmt.Errorf("%w: cannot %s while challenge is %s", ErrWrongChallengeState, action, challenge.Status)
}

func validateProposedDates(dates []ProposedDateInput, config models.ChallengeConfig, now time.Time) error {
	if len(dates) < config.MinProposedDates {
		return fmt.Errorf("%w: at least %d dates required, got %d",
			ErrNotEnoughDates, config.MinProposedDates, len(dates))
	}

	if config.RequireWeekendDate {
		hasWeekend := false
		for _, d := range dates {
			if isWeekend(d.Date) {
				hasWeekend = true
				break
			}
		}
		if !hasWeekend {
			return ErrWeekendDateRequired
		}
	}

	for _, d := range dates {
		if !d.Date.After(now) {
			return fmt.Errorf("%w: %s has already passed", ErrDateNotInFuture, d.Date.Format(time.RFC3339))
		}
	}
	return nil
}

func isWeekend(date time.Time) bool {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	return false
}
