package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"kolink-server/internal/models"
	"kolink-server/internal/service"
)

// Mock Scheduler
type Scheduler struct {
	mock.Mock
}

func (m *Scheduler) GetConfig(ctx context.Context, userID uuid.UUID) (*models.AutoPilotConfig, error) {
	args := m.Called(ctx, userID)
	cfg, _ := args.Get(0).(*models.AutoPilotConfig)
	return cfg, args.Error(1)
}
func (m *Scheduler) Activate(ctx context.Context, userID uuid.UUID, update service.ConfigUpdate) (*models.AutoPilotConfig, error) {
	args := m.Called(ctx, userID, update)
	cfg, _ := args.Get(0).(*models.AutoPilotConfig)
	return cfg, args.Error(1)
}
func (m *Scheduler) UpdateConfig(ctx context.Context, userID uuid.UUID, update service.ConfigUpdate) (*models.AutoPilotConfig, error) {
	args := m.Called(ctx, userID, update)
	cfg, _ := args.Get(0).(*models.AutoPilotConfig)
	return cfg, args.Error(1)
}
func (m *Scheduler) Deactivate(ctx context.Context, userID uuid.UUID) (*models.AutoPilotConfig, error) {
	args := m.Called(ctx, userID)
	cfg, _ := args.Get(0).(*models.AutoPilotConfig)
	return cfg, args.Error(1)
}
func (m *Scheduler) Tick(ctx context.Context, cfg *models.AutoPilotConfig, now time.Time) error {
	args := m.Called(ctx, cfg, now)
	return args.Error(0)
}
func (m *Scheduler) ForceRun(ctx context.Context, userID uuid.UUID) (*models.RunRecord, error) {
	args := m.Called(ctx, userID)
	run, _ := args.Get(0).(*models.RunRecord)
	return run, args.Error(1)
}

// Mock CreditLedger
type CreditLedger struct {
	mock.Mock
}

func (m *CreditLedger) Reserve(ctx context.Context, userID uuid.UUID, postCount int) (*models.Receipt, error) {
	args := m.Called(ctx, userID, postCount)
	receipt, _ := args.Get(0).(*models.Receipt)
	return receipt, args.Error(1)
}
func (m *CreditLedger) Balance(ctx context.Context, userID uuid.UUID) (*models.CreditBalance, error) {
	args := m.Called(ctx, userID)
	balance, _ := args.Get(0).(*models.CreditBalance)
	return balance, args.Error(1)
}
func (m *CreditLedger) Grant(ctx context.Context, userID uuid.UUID, amount, maxCredits int) error {
	args := m.Called(ctx, userID, amount, maxCredits)
	return args.Error(0)
}
func (m *CreditLedger) SetFrozen(ctx context.Context, userID uuid.UUID, frozen bool) error {
	args := m.Called(ctx, userID, frozen)
	return args.Error(0)
}

// Mock GenerationService
type GenerationService struct {
	mock.Mock
}

func (m *GenerationService) Generate(ctx context.Context, userID uuid.UUID, params models.GenerationParams) (*models.Draft, error) {
	args := m.Called(ctx, userID, params)
	draft, _ := args.Get(0).(*models.Draft)
	return draft, args.Error(1)
}
func (m *GenerationService) LatestSince(ctx context.Context, userID uuid.UUID, since time.Time) (*models.Draft, error) {
	args := m.Called(ctx, userID, since)
	draft, _ := args.Get(0).(*models.Draft)
	return draft, args.Error(1)
}
