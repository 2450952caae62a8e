package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"kolink-server/internal/interfaces"
	"kolink-server/internal/messaging"
	"kolink-server/internal/models"
)

// Mock AutoPilotConfigRepository
type AutoPilotConfigRepository struct {
	mock.Mock
}

func (m *AutoPilotConfigRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.AutoPilotConfig, error) {
	args := m.Called(ctx, userID)
	cfg, _ := args.Get(0).(*models.AutoPilotConfig)
	return cfg, args.Error(1)
}
func (m *AutoPilotConfigRepository) Save(ctx context.Context, querier interfaces.DBTX, cfg *models.AutoPilotConfig) error {
	args := m.Called(ctx, querier, cfg)
	return args.Error(0)
}
func (m *AutoPilotConfigRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.AutoPilotConfig, error) {
	args := m.Called(ctx, now, limit)
	configs, _ := args.Get(0).([]*models.AutoPilotConfig)
	return configs, args.Error(1)
}
func (m *AutoPilotConfigRepository) UpdateRunTimes(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID, lastRun time.Time, nextRun *time.Time) error {
	args := m.Called(ctx, querier, userID, lastRun, nextRun)
	return args.Error(0)
}

// Mock RunHistoryRepository
type RunHistoryRepository struct {
	mock.Mock
}

func (m *RunHistoryRepository) Record(ctx context.Context, querier interfaces.DBTX, run *models.RunRecord) error {
	args := m.Called(ctx, querier, run)
	return args.Error(0)
}
func (m *RunHistoryRepository) Latest(ctx context.Context, userID uuid.UUID) (*models.RunRecord, error) {
	args := m.Called(ctx, userID)
	run, _ := args.Get(0).(*models.RunRecord)
	return run, args.Error(1)
}
func (m *RunHistoryRepository) List(ctx context.Context, userID uuid.UUID, cursor string, limit int) ([]*models.RunRecord, string, error) {
	args := m.Called(ctx, userID, cursor, limit)
	runs, _ := args.Get(0).([]*models.RunRecord)
	return runs, args.String(1), args.Error(2)
}
func (m *RunHistoryRepository) ExistsForWindow(ctx context.Context, userID uuid.UUID, windowStart time.Time) (bool, error) {
	args := m.Called(ctx, userID, windowStart)
	return args.Bool(0), args.Error(1)
}

// Mock CreditBalanceRepository
type CreditBalanceRepository struct {
	mock.Mock
}

func (m *CreditBalanceRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.CreditBalance, error) {
	args := m.Called(ctx, userID)
	balance, _ := args.Get(0).(*models.CreditBalance)
	return balance, args.Error(1)
}
func (m *CreditBalanceRepository) GetForUpdate(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID) (*models.CreditBalance, error) {
	args := m.Called(ctx, querier, userID)
	balance, _ := args.Get(0).(*models.CreditBalance)
	return balance, args.Error(1)
}
func (m *CreditBalanceRepository) Deduct(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID, amount int) error {
	args := m.Called(ctx, querier, userID, amount)
	return args.Error(0)
}
func (m *CreditBalanceRepository) Grant(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID, amount, maxCredits int) error {
	args := m.Called(ctx, querier, userID, amount, maxCredits)
	return args.Error(0)
}
func (m *CreditBalanceRepository) SetFrozen(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID, frozen bool) error {
	args := m.Called(ctx, querier, userID, frozen)
	return args.Error(0)
}
func (m *CreditBalanceRepository) CreateReceipt(ctx context.Context, querier interfaces.DBTX, receipt *models.Receipt) error {
	args := m.Called(ctx, querier, receipt)
	return args.Error(0)
}

// Mock DraftRepository
type DraftRepository struct {
	mock.Mock
}

func (m *DraftRepository) Save(ctx context.Context, querier interfaces.DBTX, draft *models.Draft) error {
	args := m.Called(ctx, querier, draft)
	return args.Error(0)
}
func (m *DraftRepository) LatestSince(ctx context.Context, userID uuid.UUID, since time.Time) (*models.Draft, error) {
	args := m.Called(ctx, userID, since)
	draft, _ := args.Get(0).(*models.Draft)
	return draft, args.Error(1)
}

// Mock RunLockRepository
type RunLockRepository struct {
	mock.Mock
}

func (m *RunLockRepository) Acquire(ctx context.Context, userID uuid.UUID, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, userID, ttl)
	return args.Bool(0), args.Error(1)
}
func (m *RunLockRepository) Release(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// Mock TxManager - выполняет переданную функцию без реальной транзакции.
type TxManager struct {
	mock.Mock
}

func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx interfaces.DBTX) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx, nil)
}

// Mock GenerationClient
type GenerationClient struct {
	mock.Mock
}

func (m *GenerationClient) Generate(ctx context.Context, params models.GenerationParams) (string, error) {
	args := m.Called(ctx, params)
	return args.String(0), args.Error(1)
}

// Mock RunExecutor
type RunExecutor struct {
	mock.Mock
}

func (m *RunExecutor) ExecuteRun(ctx context.Context, cfg *models.AutoPilotConfig, trigger models.RunTrigger, scheduledFor *time.Time) (*models.RunRecord, error) {
	args := m.Called(ctx, cfg, trigger, scheduledFor)
	run, _ := args.Get(0).(*models.RunRecord)
	return run, args.Error(1)
}

// Mock RunUpdatePublisher
type RunUpdatePublisher struct {
	mock.Mock
}

func (m *RunUpdatePublisher) PublishRunCompleted(ctx context.Context, payload messaging.RunCompletedPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}
