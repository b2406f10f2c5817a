package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/ladder-system/models"
	"github.com/lib/pq"
)

var (
	ErrChallengeNotFound    = errors.New("challenge not found")
	ErrChallengePairInvalid = errors.New("challenge participant conflict or invalid")
)

type ChallengeRepository interface {
	Create(ctx context.Context, challenge *models.Challenge) error
	GetByID(ctx context.Context, id string) (*models.Challenge, error)
	// Update writes the whole record back; callers follow read-modify-write.
	Update(ctx context.Context, challenge *models.Challenge) error
	ListByStatus(ctx context.Context, statuses []models.ChallengeStatus) ([]*models.Challenge, error)
	ListByParticipant(ctx context.Context, pairID string) ([]*models.Challenge, error)
	CountByStatus(ctx context.Context, statuses []models.ChallengeStatus) (int, error)
	Count(ctx context.Context) (int, error)
}

type postgresChallengeRepository struct {
	db *sql.DB
}

func NewPostgresChallengeRepository(db *sql.DB) ChallengeRepository {
	return &postgresChallengeRepository{db: db}
}

const challengeColumns = `
	id, challenger_id, challenged_id, challenger_name, challenged_name,
	status, current_step, created_at, response_deadline, dates_deadline, final_deadline,
	proposed_dates, selected_date, counter_proposal_date, game_result, history, config`

// Вложенные структуры (даты, результат, история, конфиг) хранятся как JSONB:
// вся сериализация времени изолирована здесь, доменная логика работает с time.Time.

func (r *postgresChallengeRepository) Create(ctx context.Context, challenge *models.Challenge) error {
	doc, err := marshalChallengeDocs(challenge)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO challenges (` + challengeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err = r.db.ExecContext(ctx, query,
		challenge.ID,
		challenge.ChallengerID,
		challenge.ChallengedID,
		challenge.ChallengerName,
		challenge.ChallengedName,
		challenge.Status,
		challenge.CurrentStep,
		challenge.CreatedAt,
		challenge.ResponseDeadline,
		challenge.DatesDeadline,
		challenge.FinalDeadline,
		doc.proposedDates,
		doc.selectedDate,
		doc.counterProposalDate,
		doc.gameResult,
		doc.history,
		doc.config,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return ErrChallengePairInvalid
		}
		return fmt.Errorf("failed to insert challenge: %w", err)
	}
	return nil
}

func (r *postgresChallengeRepository) GetByID(ctx context.Context, id string) (*models.Challenge, error) {
	query := `SELECT` + challengeColumns + ` FROM challenges WHERE id = $1`

	challenge, err := scanChallenge(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}
	return challenge, nil
}

func (r *postgresChallengeRepository) Update(ctx context.Context, challenge *models.Challenge) error {
	doc, err := marshalChallengeDocs(challenge)
	if err != nil {
		return err
	}

	query := `
		UPDATE challenges SET
			status = $1, current_step = $2,
			response_deadline = $3, dates_deadline = $4, final_deadline = $5,
			proposed_dates = $6, selected_date = $7, counter_proposal_date = $8,
			game_result = $9, history = $10
		WHERE id = $11`

	result, err := r.db.ExecContext(ctx, query,
		challenge.Status,
		challenge.CurrentStep,
		challenge.ResponseDeadline,
		challenge.DatesDeadline,
		challenge.FinalDeadline,
		doc.proposedDates,
		doc.selectedDate,
		doc.counterProposalDate,
		doc.gameResult,
		doc.history,
		challenge.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update challenge %s: %w", challenge.ID, err)
	}
	return checkAffectedRows(result, ErrChallengeNotFound)
}

func (r *postgresChallengeRepository) ListByStatus(ctx context.Context, statuses []models.ChallengeStatus) ([]*models.Challenge, error) {
	statusStrings := make([]string, 0, len(statuses))
	for _, s := range statuses {
		statusStrings = append(statusStrings, string(s))
	}

	query := `SELECT` + challengeColumns + `
		FROM challenges
		WHERE status = ANY($1)
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(statusStrings))
	if err != nil {
		return nil, fmt.Errorf("failed to query challenges by status: %w", err)
	}
	defer rows.Close()

	return collectChallenges(rows)
}

func (r *postgresChallengeRepository) ListByParticipant(ctx context.Context, pairID string) ([]*models.Challenge, error) {
	query := `SELECT` + challengeColumns + `
		FROM challenges
		WHERE challenger_id = $1 OR challenged_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, pairID)
	if err != nil {
		return nil, fmt.Errorf("failed to query challenges of pair %s: %w", pairID, err)
	}
	defer rows.Close()

	return collectChallenges(rows)
}

func (r *postgresChallengeRepository) CountByStatus(ctx context.Context, statuses []models.ChallengeStatus) (int, error) {
	statusStrings := make([]string, 0, len(statuses))
	for _, s := range statuses {
		statusStrings = append(statusStrings, string(s))
	}

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM challenges WHERE status = ANY($1)`, pq.Array(statusStrings)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count challenges by status: %w", err)
	}
	return count, nil
}

func (r *postgresChallengeRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM challenges`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count challenges: %w", err)
	}
	return count, nil
}

type challengeDocs struct {
	proposedDates       []byte
	selectedDate        []byte
	counterProposalDate []byte
	gameResult          []byte
	history             []byte
	config              []byte
}

func marshalChallengeDocs(challenge *models.Challenge) (*challengeDocs, error) {
	doc := &challengeDocs{}
	var err error

	if challenge.ProposedDates != nil {
		if doc.proposedDates, err = json.Marshal(challenge.ProposedDates); err != nil {
			return nil, fmt.Errorf("failed to marshal proposed dates: %w", err)
		}
	}
	if challenge.SelectedDate != nil {
		if doc.selectedDate, err = json.Marshal(challenge.SelectedDate); err != nil {
			return nil, fmt.Errorf("failed to marshal selected date: %w", err)
		}
	}
	if challenge.CounterProposalDate != nil {
		if doc.counterProposalDate, err = json.Marshal(challenge.CounterProposalDate); err != nil {
			return nil, fmt.Errorf("failed to marshal counter proposal: %w", err)
		}
	}
	if challenge.GameResult != nil {
		if doc.gameResult, err = json.Marshal(challenge.GameResult); err != nil {
			return nil, fmt.Errorf("failed to marshal game result: %w", err)
		}
	}
	if doc.history, err = json.Marshal(challenge.History); err != nil {
		return nil, fmt.Errorf("failed to marshal history: %w", err)
	}
	if doc.config, err = json.Marshal(challenge.Config); err != nil {
		return nil, fmt.Errorf("failed to marshal config snapshot: %w", err)
	}
	return doc, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChallenge(row rowScanner) (*models.Challenge, error) {
	challenge := &models.Challenge{}
	var (
		datesDeadline       sql.NullTime
		finalDeadline       sql.NullTime
		proposedDates       []byte
		selectedDate        []byte
		counterProposalDate []byte
		gameResult          []byte
		history             []byte
		config              []byte
	)

	err := row.Scan(
		&challenge.ID,
		&challenge.ChallengerID,
		&challenge.ChallengedID,
		&challenge.ChallengerName,
		&challenge.ChallengedName,
		&challenge.Status,
		&challenge.CurrentStep,
		&challenge.CreatedAt,
		&challenge.ResponseDeadline,
		&datesDeadline,
		&finalDeadline,
		&proposedDates,
		&selectedDate,
		&counterProposalDate,
		&gameResult,
		&history,
		&config,
	)
	if err != nil {
		return nil, err
	}

	if datesDeadline.Valid {
		challenge.DatesDeadline = &datesDeadline.Time
	}
	if finalDeadline.Valid {
		challenge.FinalDeadline = &finalDeadline.Time
	}
	if len(proposedDates) > 0 {
		if err := json.Unmarshal(proposedDates, &challenge.ProposedDates); err != nil {
			return nil, fmt.Errorf("failed to unmarshal proposed dates: %w", err)
		}
	}
	if len(selectedDate) > 0 {
		challenge.SelectedDate = &models.ChallengeDate{}
		if err := json.Unmarshal(selectedDate, challenge.SelectedDate); err != nil {
			return nil, fmt.Errorf("failed to unmarshal selected date: %w", err)
		}
	}
	if len(counterProposalDate) > 0 {
		challenge.CounterProposalDate = &models.ChallengeDate{}
		if err := json.Unmarshal(counterProposalDate, challenge.CounterProposalDate); err != nil {
			return nil, fmt.Errorf("failed to unmarshal counter proposal: %w", err)
		}
	}
	if len(gameResult) > 0 {
		challenge.GameResult = &models.GameResult{}
		if err := json.Unmarshal(gameResult, challenge.GameResult); err != nil {
			return nil, fmt.Errorf("failed to unmarshal game result: %w", err)
		}
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &challenge.History); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history: %w", err)
		}
	}
	if len(config) > 0 {
		if err := json.Unmarshal(config, &challenge.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config snapshot: %w", err)
		}
	}
	return challenge, nil
}

func collectChallenges(rows *sql.Rows) ([]*models.Challenge, error) {
	challenges := make([]*models.Challenge, 0)
	for rows.Next() {
		challenge, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge row: %w", err)
		}
		challenges = append(challenges, challenge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during challenge rows iteration: %w", err)
	}
	return challenges, nil
}
