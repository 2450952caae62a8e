package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"kolink-server/internal/mocks"
	"kolink-server/internal/models"
	"kolink-server/internal/service"
)

func TestCreditLedger_Reserve(t *testing.T) {
	userID := uuid.New()
	ctx := context.Background()

	t.Run("Successful reservation deducts and writes receipt", func(t *testing.T) {
		mockTx := new(mocks.TxManager)
		mockBalances := new(mocks.CreditBalanceRepository)
		ledger := service.NewCreditLedger(mockTx, mockBalances, zap.NewNop())

		mockTx.On("WithTransaction", ctx, mock.Anything).Return(nil).Once()
		mockBalances.On("GetForUpdate", ctx, mock.Anything, userID).
			Return(&models.CreditBalance{UserID: userID, Current: 10, MaxCredits: 30}, nil).Once()
		mockBalances.On("Deduct", ctx, mock.Anything, userID, 3*models.CreditCostPerPost).Return(nil).Once()
		mockBalances.On("CreateReceipt", ctx, mock.Anything, mock.MatchedBy(func(r *models.Receipt) bool {
			assert.Equal(t, userID, r.UserID)
			assert.Equal(t, 3*models.CreditCostPerPost, r.Amount)
			return true
		})).Return(nil).Once()

		receipt, err := ledger.Reserve(ctx, userID, 3)

		assert.NoError(t, err)
		assert.NotNil(t, receipt)
		assert.Equal(t, 3*models.CreditCostPerPost, receipt.Amount)
		assert.NotEqual(t, uuid.Nil, receipt.ID)
		mockBalances.AssertExpectations(t)
	})

	t.Run("Frozen account rejected before balance check", func(t *testing.T) {
		mockTx := new(mocks.TxManager)
		mockBalances := new(mocks.CreditBalanceRepository)
		ledger := service.NewCreditLedger(mockTx, mockBalances, zap.NewNop())

		mockTx.On("WithTransaction", ctx, mock.Anything).Return(nil).Once()
		// Баланса хватило бы, но аккаунт заморожен: именно ErrAccountFrozen.
		mockBalances.On("GetForUpdate", ctx, mock.Anything, userID).
			Return(&models.CreditBalance{UserID: userID, Current: 100, Frozen: true}, nil).Once()

		receipt, err := ledger.Reserve(ctx, userID, 1)

		assert.ErrorIs(t, err, models.ErrAccountFrozen)
		assert.Nil(t, receipt)
		mockBalances.AssertNotCalled(t, "Deduct", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		mockBalances.AssertNotCalled(t, "CreateReceipt", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Frozen wins even with zero balance", func(t *testing.T) {
		mockTx := new(mocks.TxManager)
		mockBalances := new(mocks.CreditBalanceRepository)
		ledger := service.NewCreditLedger(mockTx, mockBalances, zap.NewNop())

		mockTx.On("WithTransaction", ctx, mock.Anything).Return(nil).Once()
		mockBalances.On("GetForUpdate", ctx, mock.Anything, userID).
			Return(&models.CreditBalance{UserID: userID, Current: 0, Frozen: true}, nil).Once()

		_, err := ledger.Reserve(ctx, userID, 1)

		assert.ErrorIs(t, err, models.ErrAccountFrozen)
		assert.NotErrorIs(t, err, models.ErrInsufficientCredits)
	})

	t.Run("Insufficient credits abort without deduction", func(t *testing.T) {
		mockTx := new(mocks.TxManager)
		mockBalances := new(mocks.CreditBalanceRepository)
		ledger := service.NewCreditLedger(mockTx, mockBalances, zap.NewNop())

		mockTx.On("WithTransaction", ctx, mock.Anything).Return(nil).Once()
		mockBalances.On("GetForUpdate", ctx, mock.Anything, userID).
			Return(&models.CreditBalance{UserID: userID, Current: 2}, nil).Once()

		receipt, err := ledger.Reserve(ctx, userID, 3)

		assert.ErrorIs(t, err, models.ErrInsufficientCredits)
		assert.Nil(t, receipt)
		mockBalances.AssertNotCalled(t, "Deduct", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Exact balance is enough", func(t *testing.T) {
		mockTx := new(mocks.TxManager)
		mockBalances := new(mocks.CreditBalanceRepository)
		ledger := service.NewCreditLedger(mockTx, mockBalances, zap.NewNop())

		mockTx.On("WithTransaction", ctx, mock.Anything).Return(nil).Once()
		mockBalances.On("GetForUpdate", ctx, mock.Anything, userID).
			Return(&models.CreditBalance{UserID: userID, Current: 5 * models.CreditCostPerPost}, nil).Once()
		mockBalances.On("Deduct", ctx, mock.Anything, userID, 5*models.CreditCostPerPost).Return(nil).Once()
		mockBalances.On("CreateReceipt", ctx, mock.Anything, mock.Anything).Return(nil).Once()

		receipt, err := ledger.Reserve(ctx, userID, 5)

		assert.NoError(t, err)
		assert.Equal(t, 5*models.CreditCostPerPost, receipt.Amount)
	})

	t.Run("Invalid post count rejected", func(t *testing.T) {
		mockTx := new(mocks.TxManager)
		mockBalances := new(mocks.CreditBalanceRepository)
		ledger := service.NewCreditLedger(mockTx, mockBalances, zap.NewNop())

		_, err := ledger.Reserve(ctx, userID, 0)

		assert.ErrorIs(t, err, models.ErrInvalidInput)
		mockTx.AssertNotCalled(t, "WithTransaction", mock.Anything, mock.Anything)
	})
}

func TestCreditLedger_Grant(t *testing.T) {
	userID := uuid.New()
	ctx := context.Background()

	t.Run("Grant passes through inside transaction", func(t *testing.T) {
		mockTx := new(mocks.TxManager)
		mockBalances := new(mocks.CreditBalanceRepository)
		ledger := service.NewCreditLedger(mockTx, mockBalances, zap.NewNop())

		mockTx.On("WithTransaction", ctx, mock.Anything).Return(nil).Once()
		mockBalances.On("Grant", ctx, mock.Anything, userID, 30, 30).Return(nil).Once()

		assert.NoError(t, ledger.Grant(ctx, userID, 30, 30))
		mockBalances.AssertExpectations(t)
	})

	t.Run("Negative amount rejected", func(t *testing.T) {
		mockTx := new(mocks.TxManager)
		mockBalances := new(mocks.CreditBalanceRepository)
		ledger := service.NewCreditLedger(mockTx, mockBalances, zap.NewNop())

		err := ledger.Grant(ctx, userID, -1, 30)

		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})
}

func TestCreditLedger_SetFrozen(t *testing.T) {
	userID := uuid.New()
	ctx := context.Background()

	mockTx := new(mocks.TxManager)
	mockBalances := new(mocks.CreditBalanceRepository)
	ledger := service.NewCreditLedger(mockTx, mockBalances, zap.NewNop())

	mockTx.On("WithTransaction", ctx, mock.Anything).Return(nil).Once()
	mockBalances.On("SetFrozen", ctx, mock.Anything, userID, true).Return(nil).Once()

	assert.NoError(t, ledger.SetFrozen(ctx, userID, true))
	mockBalances.AssertExpectations(t)
}
