package services

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/Dosada05/ladder-system/models"
	"github.com/Dosada05/ladder-system/repositories"
)

// fakeTxManager выполняет функцию без настоящей транзакции.
type fakeTxManager struct{}

func (fakeTxManager) WithTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type fakePairRepo struct {
	mu    sync.Mutex
	pairs map[string]*models.Pair
}

func newFakePairRepo(pairs ...*models.Pair) *fakePairRepo {
	repo := &fakePairRepo{pairs: make(map[string]*models.Pair)}
	for _, p := range pairs {
		copied := *p
		repo.pairs[p.ID] = &copied
	}
	return repo
}

func (r *fakePairRepo) Create(ctx context.Context, pair *models.Pair) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.pairs {
		if existing.ResponsiblePhone == pair.ResponsiblePhone {
			return repositories.ErrPairPhoneConflict
		}
	}
	copied := *pair
	r.pairs[pair.ID] = &copied
	return nil
}

func (r *fakePairRepo) GetByID(ctx context.Context, id string) (*models.Pair, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pair, ok := r.pairs[id]
	if !ok {
		return nil, repositories.ErrPairNotFound
	}
	copied := *pair
	return &copied, nil
}

func (r *fakePairRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.Pair, error) {
	return r.GetByID(ctx, id)
}

func (r *fakePairRepo) ListOrderedByPosition(ctx context.Context) ([]*models.Pair, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pairs := make([]*models.Pair, 0, len(r.pairs))
	for _, p := range r.pairs {
		copied := *p
		pairs = append(pairs, &copied)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Position < pairs[j].Position })
	return pairs, nil
}

func (r *fakePairRepo) GetNextPosition(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, p := range r.pairs {
		if p.Position > max {
			max = p.Position
		}
	}
	return max + 1, nil
}

func (r *fakePairRepo) Update(ctx context.Context, pair *models.Pair) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.pairs[pair.ID]
	if !ok {
		return repositories.ErrPairNotFound
	}
	stored.Player1Name = pair.Player1Name
	stored.Player2Name = pair.Player2Name
	stored.ResponsiblePhone = pair.ResponsiblePhone
	return nil
}

func (r *fakePairRepo) UpdatePosition(ctx context.Context, exec repositories.SQLExecutor, id string, position int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pair, ok := r.pairs[id]
	if !ok {
		return repositories.ErrPairNotFound
	}
	pair.Position = position
	return nil
}

func (r *fakePairRepo) ShiftPositions(ctx context.Context, exec repositories.SQLExecutor, from, to, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pair := range r.pairs {
		if pair.Position >= from && pair.Position < to {
			pair.Position += delta
		}
	}
	return nil
}

func (r *fakePairRepo) CloseGapAfter(ctx context.Context, exec repositories.SQLExecutor, pos int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pair := range r.pairs {
		if pair.Position > pos {
			pair.Position--
		}
	}
	return nil
}

func (r *fakePairRepo) UpdateStats(ctx context.Context, exec repositories.SQLExecutor, id string, stats models.PairStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pair, ok := r.pairs[id]
	if !ok {
		return repositories.ErrPairNotFound
	}
	pair.Stats = stats
	return nil
}

func (r *fakePairRepo) UpdateLogoKey(ctx context.Context, id string, logoKey *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pair, ok := r.pairs[id]
	if !ok {
		return repositories.ErrPairNotFound
	}
	pair.LogoKey = logoKey
	return nil
}

func (r *fakePairRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pairs[id]; !ok {
		return repositories.ErrPairNotFound
	}
	delete(r.pairs, id)
	return nil
}

func (r *fakePairRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pairs), nil
}

// positionOf — позиция пары на момент вызова; для проверок каскада.
func (r *fakePairRepo) positionOf(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pair, ok := r.pairs[id]; ok {
		return pair.Position
	}
	return -1
}

type fakeChallengeRepo struct {
	mu         sync.Mutex
	challenges map[string]*models.Challenge
	order      []string
}

func newFakeChallengeRepo() *fakeChallengeRepo {
	return &fakeChallengeRepo{challenges: make(map[string]*models.Challenge)}
}

// Копии через JSON: сервис мутирует загруженную запись до явного Update,
// как и с настоящей базой.
func cloneChallenge(challenge *models.Challenge) *models.Challenge {
	data, err := json.Marshal(challenge)
	if err != nil {
		panic(err)
	}
	clone := &models.Challenge{}
	if err := json.Unmarshal(data, clone); err != nil {
		panic(err)
	}
	return clone
}

func (r *fakeChallengeRepo) Create(ctx context.Context, challenge *models.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.challenges[challenge.ID] = cloneChallenge(challenge)
	r.order = append(r.order, challenge.ID)
	return nil
}

func (r *fakeChallengeRepo) GetByID(ctx context.Context, id string) (*models.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	challenge, ok := r.challenges[id]
	if !ok {
		return nil, repositories.ErrChallengeNotFound
	}
	return cloneChallenge(challenge), nil
}

func (r *fakeChallengeRepo) Update(ctx context.Context, challenge *models.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.challenges[challenge.ID]; !ok {
		return repositories.ErrChallengeNotFound
	}
	r.challenges[challenge.ID] = cloneChallenge(challenge)
	return nil
}

func (r *fakeChallengeRepo) ListByStatus(ctx context.Context, statuses []models.ChallengeStatus) ([]*models.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[models.ChallengeStatus]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}
	result := make([]*models.Challenge, 0)
	for _, id := range r.order {
		if challenge := r.challenges[id]; wanted[challenge.Status] {
			result = append(result, cloneChallenge(challenge))
		}
	}
	return result, nil
}

func (r *fakeChallengeRepo) ListByParticipant(ctx context.Context, pairID string) ([]*models.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*models.Challenge, 0)
	for _, id := range r.order {
		challenge := r.challenges[id]
		if challenge.ChallengerID == pairID || challenge.ChallengedID == pairID {
			result = append(result, cloneChallenge(challenge))
		}
	}
	return result, nil
}

func (r *fakeChallengeRepo) CountByStatus(ctx context.Context, statuses []models.ChallengeStatus) (int, error) {
	challenges, _ := r.ListByStatus(ctx, statuses)
	return len(challenges), nil
}

func (r *fakeChallengeRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.challenges), nil
}

type fakeConfigRepo struct {
	mu     sync.Mutex
	stored *models.SystemConfig
}

func (r *fakeConfigRepo) Get(ctx context.Context) (*models.SystemConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stored == nil {
		return nil, repositories.ErrSystemConfigNotFound
	}
	copied := *r.stored
	return &copied, nil
}

func (r *fakeConfigRepo) Upsert(ctx context.Context, config *models.SystemConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *config
	r.stored = &copied
	return nil
}

// recordingNotifier считает уведомления, отправленные сервисом вызовов.
type recordingNotifier struct {
	mu               sync.Mutex
	challengeUpdates int
	ladderUpdates    int
}

func (n *recordingNotifier) ChallengeUpdated(*models.Challenge) {
	n.mu.Lock()
	n.challengeUpdates++
	n.mu.Unlock()
}

func (n *recordingNotifier) LadderUpdated() {
	n.mu.Lock()
	n.ladderUpdates++
	n.mu.Unlock()
}
