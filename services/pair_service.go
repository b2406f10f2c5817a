package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/Dosada05/ladder-system/db"
	"github.com/Dosada05/ladder-system/models"
	"github.com/Dosada05/ladder-system/repositories"
	"github.com/Dosada05/ladder-system/storage"
	"github.com/google/uuid"
)

type CreatePairInput struct {
	Player1Name      string `json:"player1_name"`
	Player2Name      string `json:"player2_name"`
	ResponsiblePhone string `json:"responsible_phone"`
}

type UpdatePairInput struct {
	Player1Name      *string `json:"player1_name,omitempty"`
	Player2Name      *string `json:"player2_name,omitempty"`
	ResponsiblePhone *string `json:"responsible_phone,omitempty"`
}

// PairService управляет парами и лестницей позиций. Новая пара всегда
// встаёт в конец; удаление пары закрывает образовавшийся разрыв, чтобы
// позиции оставались непрерывными.
type PairService interface {
	Create(ctx context.Context, input CreatePairInput) (*models.Pair, error)
	GetByID(ctx context.Context, id string) (*models.Pair, error)
	ListLadder(ctx context.Context) ([]*models.Pair, error)
	Update(ctx context.Context, id string, input UpdatePairInput) (*models.Pair, error)
	Delete(ctx context.Context, id string) error
	UploadLogo(ctx context.Context, id string, filename, contentType string, file io.Reader) (*models.Pair, error)
}

type pairService struct {
	pairRepo      repositories.PairRepository
	challengeRepo repositories.ChallengeRepository
	txManager     db.TxManager
	uploader      storage.FileUploader
	logger        *slog.Logger
	now           func() time.Time
	newID         func() string
}

func NewPairService(
	pairRepo repositories.PairRepository,
	challengeRepo repositories.ChallengeRepository,
	txManager db.TxManager,
	uploader storage.FileUploader,
	logger *slog.Logger,
) PairService {
	return &pairService{
		pairRepo:      pairRepo,
		challengeRepo: challengeRepo,
		txManager:     txManager,
		uploader:      uploader,
		logger:        logger,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

func (s *pairService) Create(ctx context.Context, input CreatePairInput) (*models.Pair, error) {
	input.Player1Name = strings.TrimSpace(input.Player1Name)
	input.Player2Name = strings.TrimSpace(input.Player2Name)
	input.ResponsiblePhone = strings.TrimSpace(input.ResponsiblePhone)

	if input.Player1Name == "" || input.Player2Name == "" {
		return nil, ErrPairNamesRequired
	}
	if input.ResponsiblePhone == "" {
		return nil, fmt.Errorf("%w: responsible phone is required", ErrValidationFailed)
	}

	position, err := s.pairRepo.GetNextPosition(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to determine next position: %w", err)
	}

	pair := &models.Pair{
		ID:               s.newID(),
		Player1Name:      input.Player1Name,
		Player2Name:      input.Player2Name,
		ResponsiblePhone: input.ResponsiblePhone,
		Position:         position,
		CreatedAt:        s.now(),
	}

	if err := s.pairRepo.Create(ctx, pair); err != nil {
		if errors.Is(err, repositories.ErrPairPhoneConflict) {
			return nil, ErrPairPhoneTaken
		}
		return nil, fmt.Errorf("failed to create pair: %w", err)
	}
	return pair, nil
}

func (s *pairService) GetByID(ctx context.Context, id string) (*models.Pair, error) {
	pair, err := s.pairRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPairNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPairNotFound, id)
		}
		return nil, fmt.Errorf("failed to get pair %s: %w", id, err)
	}
	s.resolveLogoURL(pair)
	return pair, nil
}

func (s *pairService) ListLadder(ctx context.Context) ([]*models.Pair, error) {
	pairs, err := s.pairRepo.ListOrderedByPosition(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ladder: %w", err)
	}
	for _, pair := range pairs {
		s.resolveLogoURL(pair)
	}
	return pairs, nil
}

func (s *pairService) Update(ctx context.Context, id string, input UpdatePairInput) (*models.Pair, error) {
	pair, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Player1Name != nil {
		if strings.TrimSpace(*input.Player1Name) == "" {
			return nil, ErrPairNamesRequired
		}
		pair.Player1Name = strings.TrimSpace(*input.Player1Name)
	}
	if input.Player2Name != nil {
		if strings.TrimSpace(*input.Player2Name) == "" {
			return nil, ErrPairNamesRequired
		}
		pair.Player2Name = strings.TrimSpace(*input.Player2Name)
	}
	if input.ResponsiblePhone != nil {
		if strings.TrimSpace(*input.ResponsiblePhone) == "" {
			return nil, fmt.Errorf("%w: responsible phone is required", ErrValidationFailed)
		}
		pair.ResponsiblePhone = strings.TrimSpace(*input.ResponsiblePhone)
	}

	if err := s.pairRepo.Update(ctx, pair); err != nil {
		if errors.Is(err, repositories.ErrPairPhoneConflict) {
			return nil, ErrPairPhoneTaken
		}
		return nil, fmt.Errorf("failed to update pair %s: %w", id, err)
	}
	s.resolveLogoURL(pair)
	return pair, nil
}

func (s *pairService) Delete(ctx context.Context, id string) error {
	pair, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	// Пару с активным вызовом удалять нельзя: конечный автомат осиротеет.
	challenges, err := s.challengeRepo.ListByParticipant(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check active challenges of pair %s: %w", id, err)
	}
	for _, challenge := range challenges {
		if challenge.Status.IsActive() {
			return fmt.Errorf("%w: pair %s has an active challenge", ErrChallengeActive, id)
		}
	}

	err = s.txManager.WithTx(ctx, func(exec repositories.SQLExecutor) error {
		locked, err := s.pairRepo.GetByIDForUpdate(ctx, exec, id)
		if err != nil {
			return err
		}
		if err := s.pairRepo.Delete(ctx, exec, id); err != nil {
			return err
		}
		// Закрываем разрыв, чтобы позиции остались 1..N без дыр.
		return s.pairRepo.CloseGapAfter(ctx, exec, locked.Position)
	})
	if err != nil {
		return fmt.Errorf("failed to delete pair %s: %w", id, err)
	}

	if pair.LogoKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *pair.LogoKey); err != nil {
			s.logger.Warn("failed to delete pair logo from storage",
				slog.String("pair_id", id), slog.Any("error", err))
		}
	}
	return nil
}

var allowedLogoExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

func (s *pairService) UploadLogo(ctx context.Context, id string, filename, contentType string, file io.Reader) (*models.Pair, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: logo storage is not configured", ErrForbiddenOperation)
	}

	pair, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	expectedType, ok := allowedLogoExtensions[ext]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported logo format %q", ErrValidationFailed, ext)
	}
	if contentType == "" {
		contentType = expectedType
	}

	key := fmt.Sprintf("pairs/%s/logo%s", id, ext)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload logo for pair %s: %w", id, err)
	}

	oldKey := pair.LogoKey
	if err := s.pairRepo.UpdateLogoKey(ctx, id, &result.Key); err != nil {
		return nil, fmt.Errorf("failed to save logo key for pair %s: %w", id, err)
	}

	if oldKey != nil && *oldKey != result.Key {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.Warn("failed to delete previous pair logo",
				slog.String("pair_id", id), slog.Any("error", err))
		}
	}

	pair.LogoKey = &result.Key
	s.resolveLogoURL(pair)
	return pair, nil
}

func (s *pairService) resolveLogoURL(pair *models.Pair) {
	if pair.LogoKey == nil || s.uploader == nil {
		return
	}
	url := s.uploader.GetPublicURL(*pair.LogoKey)
	if url != "" {
		pair.LogoURL = &url
	}
}
