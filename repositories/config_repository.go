package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/ladder-system/models"
)

var ErrSystemConfigNotFound = errors.New("system config not found")

// SystemConfigRepository хранит единственный документ глобальной конфигурации.
type SystemConfigRepository interface {
	Get(ctx context.Context) (*models.SystemConfig, error)
	Upsert(ctx context.Context, config *models.SystemConfig) error
}

type postgresSystemConfigRepository struct {
	db *sql.DB
}

func NewPostgresSystemConfigRepository(db *sql.DB) SystemConfigRepository {
	return &postgresSystemConfigRepository{db: db}
}

// Одна строка с фиксированным id; вызовы конфигурации редки.
const systemConfigID = "challenge_config"

func (r *postgresSystemConfigRepository) Get(ctx context.Context) (*models.SystemConfig, error) {
	query := `SELECT challenge_config, updated_at, updated_by FROM system_config WHERE id = $1`

	config := &models.SystemConfig{}
	var challengeConfig []byte
	err := r.db.QueryRowContext(ctx, query, systemConfigID).Scan(
		&challengeConfig,
		&config.UpdatedAt,
		&config.UpdatedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSystemConfigNotFound
		}
		return nil, fmt.Errorf("failed to scan system config: %w", err)
	}

	if err := json.Unmarshal(challengeConfig, &config.ChallengeConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge config: %w", err)
	}
	return config, nil
}

func (r *postgresSystemConfigRepository) Upsert(ctx context.Context, config *models.SystemConfig) error {
	challengeConfig, err := json.Marshal(config.ChallengeConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge config: %w", err)
	}

	query := `
		INSERT INTO system_config (id, challenge_config, updated_at, updated_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET challenge_config = EXCLUDED.challenge_config,
		    updated_at = EXCLUDED.updated_at,
		    updated_by = EXCLUDED.updated_by`

	_, err = r.db.ExecContext(ctx, query, systemConfigID, challengeConfig, config.UpdatedAt, config.UpdatedBy)
	if err != nil {
		return fmt.Errorf("failed to upsert system config: %w", err)
	}
	return nil
}
