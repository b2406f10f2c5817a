package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/ladder-system/models"
	"github.com/lib/pq"
)

var (
	ErrPairNotFound         = errors.New("pair not found")
	ErrPairPhoneConflict    = errors.New("pair responsible phone conflict")
	ErrPairPositionConflict = errors.New("pair position conflict")
)

type PairRepository interface {
	Create(ctx context.Context, pair *models.Pair) error
	GetByID(ctx context.Context, id string) (*models.Pair, error)
	// GetByIDForUpdate reads a pair with a row lock; must be called inside a transaction.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id string) (*models.Pair, error)
	ListOrderedByPosition(ctx context.Context) ([]*models.Pair, error)
	GetNextPosition(ctx context.Context) (int, error)
	Update(ctx context.Context, pair *models.Pair) error
	UpdatePosition(ctx context.Context, exec SQLExecutor, id string, position int) error
	// ShiftPositions adds delta to every pair whose position lies in [from, to).
	ShiftPositions(ctx context.Context, exec SQLExecutor, from, to, delta int) error
	// CloseGapAfter decrements every position strictly greater than pos (after a deletion).
	CloseGapAfter(ctx context.Context, exec SQLExecutor, pos int) error
	UpdateStats(ctx context.Context, exec SQLExecutor, id string, stats models.PairStats) error
	UpdateLogoKey(ctx context.Context, id string, logoKey *string) error
	Delete(ctx context.Context, exec SQLExecutor, id string) error
	Count(ctx context.Context) (int, error)
}

type postgresPairRepository struct {
	db *sql.DB
}

func NewPostgresPairRepository(db *sql.DB) PairRepository {
	return &postgresPairRepository{db: db}
}

const pairColumns = `
	id, player1_name, player2_name, responsible_phone, position,
	total_games, victories, defeats, win_rate,
	challenges_sent, challenges_received, challenges_accepted, challenges_declined,
	current_streak, best_streak, last_game_date, logo_key, created_at`

func (r *postgresPairRepository) Create(ctx context.Context, pair *models.Pair) error {
	query := `
		INSERT INTO pairs
			(id, player1_name, player2_name, responsible_phone, position)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		pair.ID,
		pair.Player1Name,
		pair.Player2Name,
		pair.ResponsiblePhone,
		pair.Position,
	).Scan(&pair.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			switch pqErr.Constraint {
			case "pairs_responsible_phone_key":
				return ErrPairPhoneConflict
			case "pairs_position_key":
				return ErrPairPositionConflict
			}
		}
		return fmt.Errorf("failed to insert pair: %w", err)
	}
	return nil
}

func (r *postgresPairRepository) GetByID(ctx context.Context, id string) (*models.Pair, error) {
	query := `SELECT` + pairColumns + ` FROM pairs WHERE id = $1`
	return scanPairRow(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresPairRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id string) (*models.Pair, error) {
	query := `SELECT` + pairColumns + ` FROM pairs WHERE id = $1 FOR UPDATE`
	return scanPairRow(exec.QueryRowContext(ctx, query, id))
}

func scanPairRow(row *sql.Row) (*models.Pair, error) {
	pair := &models.Pair{}
	var lastGame sql.NullTime
	err := row.Scan(
		&pair.ID,
		&pair.Player1Name,
		&pair.Player2Name,
		&pair.ResponsiblePhone,
		&pair.Position,
		&pair.Stats.TotalGames,
		&pair.Stats.Victories,
		&pair.Stats.Defeats,
		&pair.Stats.WinRate,
		&pair.Stats.ChallengesSent,
		&pair.Stats.ChallengesReceived,
		&pair.Stats.ChallengesAccepted,
		&pair.Stats.ChallengesDeclined,
		&pair.Stats.CurrentStreak,
		&pair.Stats.BestStreak,
		&lastGame,
		&pair.LogoKey,
		&pair.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPairNotFound
		}
		return nil, fmt.Errorf("failed to scan pair: %w", err)
	}
	if lastGame.Valid {
		pair.Stats.LastGameDate = &lastGame.Time
	}
	return pair, nil
}

func (r *postgresPairRepository) ListOrderedByPosition(ctx context.Context) ([]*models.Pair, error) {
	query := `SELECT` + pairColumns + ` FROM pairs ORDER BY position ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pairs: %w", err)
	}
	defer rows.Close()

	pairs := make([]*models.Pair, 0)
	for rows.Next() {
		pair := &models.Pair{}
		var lastGame sql.NullTime
		if scanErr := rows.Scan(
			&pair.ID,
			&pair.Player1Name,
			&pair.Player2Name,
			&pair.ResponsiblePhone,
			&pair.Position,
			&pair.Stats.TotalGames,
			&pair.Stats.Victories,
			&pair.Stats.Defeats,
			&pair.Stats.WinRate,
			&pair.Stats.ChallengesSent,
			&pair.Stats.ChallengesReceived,
			&pair.Stats.ChallengesAccepted,
			&pair.Stats.ChallengesDeclined,
			&pair.Stats.CurrentStreak,
			&pair.Stats.BestStreak,
			&lastGame,
			&pair.LogoKey,
			&pair.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan pair row: %w", scanErr)
		}
		if lastGame.Valid {
			pair.Stats.LastGameDate = &lastGame.Time
		}
		pairs = append(pairs, pair)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during pair rows iteration: %w", err)
	}
	return pairs, nil
}

func (r *postgresPairRepository) GetNextPosition(ctx context.Context) (int, error) {
	var next int
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), 0) + 1 FROM pairs`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to compute next position: %w", err)
	}
	return next, nil
}

func (r *postgresPairRepository) Update(ctx context.Context, pair *models.Pair) error {
	query := `
		UPDATE pairs
		SET player1_name = $1, player2_name = $2, responsible_phone = $3
		WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query,
		pair.Player1Name, pair.Player2Name, pair.ResponsiblePhone, pair.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == "pairs_responsible_phone_key" {
			return ErrPairPhoneConflict
		}
		return fmt.Errorf("failed to update pair %s: %w", pair.ID, err)
	}
	return checkAffectedRows(result, ErrPairNotFound)
}

func (r *postgresPairRepository) UpdatePosition(ctx context.Context, exec SQLExecutor, id string, position int) error {
	result, err := exec.ExecContext(ctx, `UPDATE pairs SET position = $1 WHERE id = $2`, position, id)
	if err != nil {
		return fmt.Errorf("failed to update position of pair %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrPairNotFound)
}

func (r *postgresPairRepository) ShiftPositions(ctx context.Context, exec SQLExecutor, from, to, delta int) error {
	_, err := exec.ExecContext(ctx,
		`UPDATE pairs SET position = position + $1 WHERE position >= $2 AND position < $3`,
		delta, from, to)
	if err != nil {
		return fmt.Errorf("failed to shift positions [%d,%d) by %d: %w", from, to, delta, err)
	}
	return nil
}

func (r *postgresPairRepository) CloseGapAfter(ctx context.Context, exec SQLExecutor, pos int) error {
	_, err := exec.ExecContext(ctx,
		`UPDATE pairs SET position = position - 1 WHERE position > $1`, pos)
	if err != nil {
		return fmt.Errorf("failed to close position gap after %d: %w", pos, err)
	}
	return nil
}

func (r *postgresPairRepository) UpdateStats(ctx context.Context, exec SQLExecutor, id string, stats models.PairStats) error {
	query := `
		UPDATE pairs SET
			total_games = $1, victories = $2, defeats = $3, win_rate = $4,
			challenges_sent = $5, challenges_received = $6,
			challenges_accepted = $7, challenges_declined = $8,
			current_streak = $9, best_streak = $10, last_game_date = $11
		WHERE id = $12`

	result, err := exec.ExecContext(ctx, query,
		stats.TotalGames, stats.Victories, stats.Defeats, stats.WinRate,
		stats.ChallengesSent, stats.ChallengesReceived,
		stats.ChallengesAccepted, stats.ChallengesDeclined,
		stats.CurrentStreak, stats.BestStreak, stats.LastGameDate,
		id)
	if err != nil {
		return fmt.Errorf("failed to update stats of pair %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrPairNotFound)
}

func (r *postgresPairRepository) UpdateLogoKey(ctx context.Context, id string, logoKey *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE pairs SET logo_key = $1 WHERE id = $2`, logoKey, id)
	if err != nil {
		return fmt.Errorf("failed to update logo key of pair %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrPairNotFound)
}

func (r *postgresPairRepository) Delete(ctx context.Context, exec SQLExecutor, id string) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM pairs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pair %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrPairNotFound)
}

func (r *postgresPairRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pairs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pairs: %w", err)
	}
	return count, nil
}
