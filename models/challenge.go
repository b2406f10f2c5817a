package models

import "time"

// ChallengeStatus представляет статусы вызова, соответствующие ENUM в БД.
type ChallengeStatus string

const (
	StatusPendingResponse        ChallengeStatus = "pending_response"
	StatusPendingDates           ChallengeStatus = "pending_dates"
	StatusPendingDateSelection   ChallengeStatus = "pending_date_selection"
	StatusPendingCounterResponse ChallengeStatus = "pending_counter_response"
	StatusScheduled              ChallengeStatus = "scheduled"
	StatusGameTime               ChallengeStatus = "game_time"
	StatusPendingResult          ChallengeStatus = "pending_result"
	StatusPendingConfirmation    ChallengeStatus = "pending_confirmation"
	StatusDisputedResult         ChallengeStatus = "disputed_result"
	StatusExpired                ChallengeStatus = "expired"
	StatusDeclined               ChallengeStatus = "declined"
	StatusCancelled              ChallengeStatus = "cancelled"
	StatusCompleted              ChallengeStatus = "completed"
)

// ActiveChallengeStatuses are the statuses that block both participants from
// opening another challenge.
var ActiveChallengeStatuses = []ChallengeStatus{
	StatusPendingResponse,
	StatusPendingDates,
	StatusPendingDateSelection,
	StatusPendingCounterResponse,
	StatusScheduled,
	StatusGameTime,
	StatusPendingResult,
	StatusPendingConfirmation,
}

func (s ChallengeStatus) IsActive() bool {
	for _, a := range ActiveChallengeStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further automated transition can leave s.
// DISPUTED_RESULT counts as terminal here: it waits for manual resolution.
func (s ChallengeStatus) IsTerminal() bool {
	switch s {
	case StatusExpired, StatusDeclined, StatusCancelled, StatusCompleted, StatusDisputedResult:
		return true
	}
	return false
}

type ChallengeStep string

const (
	StepInitialResponse   ChallengeStep = "initial_response"
	StepProposeDates      ChallengeStep = "propose_dates"
	StepSelectDate        ChallengeStep = "select_date"
	StepCounterProposal   ChallengeStep = "counter_proposal"
	StepFinalConfirmation ChallengeStep = "final_confirmation"
)

type ChallengeAction string

const (
	ActionCreated         ChallengeAction = "created"
	ActionAccepted        ChallengeAction = "accepted"
	ActionDeclined        ChallengeAction = "declined"
	ActionDatesProposed   ChallengeAction = "dates_proposed"
	ActionDateSelected    ChallengeAction = "date_selected"
	ActionCounterProposed ChallengeAction = "counter_proposed"
	ActionCounterAccepted ChallengeAction = "counter_accepted"
	ActionCounterDeclined ChallengeAction = "counter_declined"
	ActionGameTimeReached ChallengeAction = "game_time_reached"
	ActionResultReported  ChallengeAction = "result_reported"
	ActionResultConfirmed ChallengeAction = "result_confirmed"
	ActionResultDisputed  ChallengeAction = "result_disputed"
	ActionExpired         ChallengeAction = "expired"
	ActionCancelled       ChallengeAction = "cancelled"
)

// DateProposer указывает, какая из сторон предложила дату.
type DateProposer string

const (
	ProposedByChallenger DateProposer = "challenger"
	ProposedByChallenged DateProposer = "challenged"
)

type ChallengeDate struct {
	ID          string       `json:"id"`
	Date        time.Time    `json:"date"`
	IsWeekend   bool         `json:"is_weekend"`
	ProposedBy  DateProposer `json:"proposed_by"`
	Description *string      `json:"description,omitempty"`
}

type GameResult struct {
	WinnerID       string     `json:"winner_id"`
	WinnerName     string     `json:"winner_name"`
	LoserID        string     `json:"loser_id"`
	LoserName      string     `json:"loser_name"`
	Score          *string    `json:"score,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
	ReportedBy     string     `json:"reported_by"`
	ReportedByName string     `json:"reported_by_name"`
	ReportedAt     time.Time  `json:"reported_at"`
	Confirmed      bool       `json:"confirmed"`
	ConfirmedBy    *string    `json:"confirmed_by,omitempty"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty"`
}

// ChallengeHistoryItem — запись аудита; история только дополняется.
type ChallengeHistoryItem struct {
	ID              string                 `json:"id"`
	Action          ChallengeAction        `json:"action"`
	PerformedBy     string                 `json:"performed_by"`
	PerformedByName string                 `json:"performed_by_name"`
	Timestamp       time.Time              `json:"timestamp"`
	Data            map[string]interface{} `json:"data,omitempty"`
}

// ChallengeConfig is snapshotted into every challenge at creation, so later
// config changes never affect in-flight challenges.
type ChallengeConfig struct {
	ResponseTimeHours  int  `json:"response_time_hours"`
	DatesTimeHours     int  `json:"dates_time_hours"`
	FinalTimeHours     int  `json:"final_time_hours"`
	RequireWeekendDate bool `json:"require_weekend_date"`
	MinProposedDates   int  `json:"min_proposed_dates"`
}

type SystemConfig struct {
	ChallengeConfig ChallengeConfig `json:"challenge_config"`
	UpdatedAt       time.Time       `json:"updated_at"`
	UpdatedBy       string          `json:"updated_by"`
}

// Challenge представляет вызов между двумя парами рейтинга.
type Challenge struct {
	ID             string          `json:"id"`
	ChallengerID   string          `json:"challenger_id"`
	ChallengedID   string          `json:"challenged_id"`
	ChallengerName string          `json:"challenger_name"` // snapshot at creation (audit semantics)
	ChallengedName string          `json:"challenged_name"`
	Status         ChallengeStatus `json:"status"`
	CurrentStep    ChallengeStep   `json:"current_step"`

	CreatedAt        time.Time  `json:"created_at"`
	ResponseDeadline time.Time  `json:"response_deadline"`
	DatesDeadline    *time.Time `json:"dates_deadline,omitempty"`
	FinalDeadline    *time.Time `json:"final_deadline,omitempty"`

	ProposedDates       []ChallengeDate `json:"proposed_dates,omitempty"`
	SelectedDate        *ChallengeDate  `json:"selected_date,omitempty"`
	CounterProposalDate *ChallengeDate  `json:"counter_proposal_date,omitempty"`

	GameResult *GameResult            `json:"game_result,omitempty"`
	History    []ChallengeHistoryItem `json:"history"`
	Config     ChallengeConfig        `json:"config"`
}

// Participant reports whether pairID takes part in the challenge.
func (c *Challenge) Participant(pairID string) bool {
	return c.ChallengerID == pairID || c.ChallengedID == pairID
}

// Opponent returns the other participant's id, or "" if pairID is not a participant.
func (c *Challenge) Opponent(pairID string) string {
	switch pairID {
	case c.ChallengerID:
		return c.ChallengedID
	case c.ChallengedID:
		return c.ChallengerID
	}
	return ""
}

// DefaultChallengeConfig — жёстко заданные значения по умолчанию,
// используются, когда system_config ещё не создан.
func DefaultChallengeConfig() ChallengeConfig {
	return ChallengeConfig{
		ResponseTimeHours:  24,
		DatesTimeHours:     24,
		FinalTimeHours:     24,
		RequireWeekendDate: true,
		MinProposedDates:   3,
	}
}
