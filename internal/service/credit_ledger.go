package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kolink-server/internal/interfaces"
	"kolink-server/internal/models"
)

// CreditLedger - единственная точка изменения кредитных балансов.
// Резервирование атомарно: и проверка, и списание происходят под
// блокировкой строки, конкурентные запуски не могут потратить один
// и тот же кредит дважды.
type CreditLedger interface {
	// Reserve атомарно списывает postCount * CreditCostPerPost кредитов
	// и возвращает квитанцию. ErrAccountFrozen имеет приоритет над
	// ErrInsufficientCredits: замороженный аккаунт с нулевым балансом
	// получает именно "заморожен".
	Reserve(ctx context.Context, userID uuid.UUID, postCount int) (*models.Receipt, error)

	// Balance возвращает баланс для отображения.
	Balance(ctx context.Context, userID uuid.UUID) (*models.CreditBalance, error)

	// Grant начисляет кредиты (рефилл плана, подарочные).
	Grant(ctx context.Context, userID uuid.UUID, amount, maxCredits int) error

	// SetFrozen переключает заморозку (отмена подписки до конца периода).
	SetFrozen(ctx context.Context, userID uuid.UUID, frozen bool) error
}

// Compile-time check
var _ CreditLedger = (*creditLedger)(nil)

type creditLedger struct {
	txManager interfaces.TxManager
	balances  interfaces.CreditBalanceRepository
	logger    *zap.Logger
}

// NewCreditLedger создает сервис кредитного гроссбуха.
func NewCreditLedger(
	txManager interfaces.TxManager,
	balances interfaces.CreditBalanceRepository,
	logger *zap.Logger,
) CreditLedger {
	return &creditLedger{
		txManager: txManager,
		balances:  balances,
		logger:    logger.Named("CreditLedger"),
	}
}

func (s *creditLedger) Reserve(ctx context.Context, userID uuid.UUID, postCount int) (*models.Receipt, error) {
	if postCount < 1 {
		return nil, fmt.Errorf("%w: postCount должен быть >= 1", models.ErrInvalidInput)
	}
	amount := postCount * models.CreditCostPerPost
	logFields := []zap.Field{
		zap.String("userID", userID.String()),
		zap.Int("postCount", postCount),
		zap.Int("amount", amount),
	}
	s.logger.Debug("Reserving credits", logFields...)

	receipt := &models.Receipt{
		ID:     uuid.New(),
		UserID: userID,
		Amount: amount,
	}

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		balance, err := s.balances.GetForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		// Порядок проверок важен: frozen раньше баланса.
		if balance.Frozen {
			return models.ErrAccountFrozen
		}
		if balance.Current < amount {
			return models.ErrInsufficientCredits
		}
		if err := s.balances.Deduct(ctx, tx, userID, amount); err != nil {
			return err
		}
		return s.balances.CreateReceipt(ctx, tx, receipt)
	})
	if err != nil {
		s.logger.Warn("Credit reservation rejected", append(logFields, zap.Error(err))...)
		return nil, err
	}

	s.logger.Info("Credits reserved", append(logFields, zap.String("receiptID", receipt.ID.String()))...)
	return receipt, nil
}

func (s *creditLedger) Balance(ctx context.Context, userID uuid.UUID) (*models.CreditBalance, error) {
	return s.balances.GetByUserID(ctx, userID)
}

func (s *creditLedger) Grant(ctx context.Context, userID uuid.UUID, amount, maxCredits int) error {
	if amount < 0 || maxCredits < 0 {
		return fmt.Errorf("%w: amount и maxCredits должны быть >= 0", models.ErrInvalidInput)
	}
	return s.txManager.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		return s.balances.Grant(ctx, tx, userID, amount, maxCredits)
	})
}

func (s *creditLedger) SetFrozen(ctx context.Context, userID uuid.UUID, frozen bool) error {
	return s.txManager.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		return s.balances.SetFrozen(ctx, tx, userID, frozen)
	})
}
