package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден
	ErrNotFound          = errors.New("requested resource not found")
	ErrPairNotFound      = errors.New("pair not found")
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrDateNotFound      = errors.New("proposed date not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed       = errors.New("validation failed")
	ErrNotAParticipant        = errors.New("pair is not a participant of this challenge")
	ErrOnlyChallengedCanAct   = errors.New("only the challenged pair can perform this action")
	ErrOnlyChallengerCanAct   = errors.New("only the challenger pair can perform this action")
	ErrWrongChallengeState    = errors.New("challenge is not in a state that allows this action")
	ErrNotEnoughDates         = errors.New("not enough dates proposed")
	ErrWeekendDateRequired    = errors.New("at least one proposed date must fall on a weekend")
	ErrDateNotInFuture        = errors.New("all proposed dates must be in the future")
	ErrWinnerNotParticipant   = errors.New("winner must be one of the challenge participants")
	ErrSelfConfirmation       = errors.New("the reporting pair cannot confirm its own result")
	ErrInvalidChallengeConfig = errors.New("invalid challenge configuration")

	// Конфликты допуска к вызову
	ErrSelfChallenge        = errors.New("a pair cannot challenge itself")
	ErrChallengeActive      = errors.New("pair already has an active challenge")
	ErrRankingWindow        = errors.New("challenged pair is outside the allowed ranking window")
	ErrChallengedBelow      = errors.New("a pair can only challenge pairs ranked above itself")
	ErrPairNotRanked        = errors.New("pair has no ranking position")

	// Ошибки аутентификации и авторизации
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")

	// Ошибки пар
	ErrPairPhoneTaken     = errors.New("responsible phone is already in use")
	ErrPairNamesRequired  = errors.New("both player names are required")
)
