package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"kolink-server/internal/interfaces"
	"kolink-server/internal/models"
)

// Compile-time check
var _ interfaces.CreditBalanceRepository = (*pgCreditBalanceRepository)(nil)

type pgCreditBalanceRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgCreditBalanceRepository создает репозиторий кредитных балансов.
func NewPgCreditBalanceRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.CreditBalanceRepository {
	return &pgCreditBalanceRepository{
		db:     db,
		logger: logger.Named("PgCreditBalanceRepo"),
	}
}

const creditBalanceColumns = `user_id, current, max_credits, frozen, updated_at`

func scanCreditBalance(row pgx.Row) (*models.CreditBalance, error) {
	b := &models.CreditBalance{}
	err := row.Scan(&b.UserID, &b.Current, &b.MaxCredits, &b.Frozen, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetByUserID читает баланс без блокировки (для отображения).
func (r *pgCreditBalanceRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.CreditBalance, error) {
	query := `SELECT ` + creditBalanceColumns + ` FROM credit_balances WHERE user_id = $1`
	logFields := []zap.Field{zap.String("userID", userID.String())}

	balance, err := scanCreditBalance(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("Credit balance not found", logFields...)
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get credit balance", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	return balance, nil
}

// GetForUpdate читает баланс с блокировкой строки. Вызывается только внутри
// транзакции: FOR UPDATE сериализует конкурентные резервирования.
func (r *pgCreditBalanceRepository) GetForUpdate(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID) (*models.CreditBalance, error) {
	query := `SELECT ` + creditBalanceColumns + ` FROM credit_balances WHERE user_id = $1 FOR UPDATE`
	logFields := []zap.Field{zap.String("userID", userID.String())}
	r.logger.Debug("Locking credit balance row", logFields...)

	balance, err := scanCreditBalance(querier.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("Credit balance not found for update", logFields...)
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to lock credit balance", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("ошибка блокировки баланса: %w", err)
	}
	return balance, nil
}

// Deduct списывает кредиты. Защитный предикат current >= amount дублирует
// проверку сервиса: баланс не может уйти в минус даже при ошибке вызова.
func (r *pgCreditBalanceRepository) Deduct(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID, amount int) error {
	query := `
        UPDATE credit_balances
        SET current = current - $1, updated_at = NOW()
        WHERE user_id = $2 AND current >= $1`
	logFields := []zap.Field{zap.String("userID", userID.String()), zap.Int("amount", amount)}
	r.logger.Debug("Deducting credits", logFields...)

	tag, err := querier.Exec(ctx, query, amount, userID)
	if err != nil {
		r.logger.Error("Failed to deduct credits", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка списания кредитов: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn("Credit deduction rejected (missing row or insufficient balance)", logFields...)
		return models.ErrInsufficientCredits
	}
	r.logger.Info("Credits deducted", logFields...)
	return nil
}

// Grant начисляет кредиты (рефилл плана, подарочные) и обновляет max_credits.
// Строка создается, если ее еще нет.
func (r *pgCreditBalanceRepository) Grant(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID, amount, maxCredits int) error {
	query := `
        INSERT INTO credit_balances (user_id, current, max_credits, frozen, updated_at)
        VALUES ($1, $2, $3, FALSE, NOW())
        ON CONFLICT (user_id) DO UPDATE SET
            current = credit_balances.current + EXCLUDED.current,
            max_credits = EXCLUDED.max_credits,
            updated_at = NOW()`
	logFields := []zap.Field{
		zap.String("userID", userID.String()),
		zap.Int("amount", amount),
		zap.Int("maxCredits", maxCredits),
	}
	r.logger.Debug("Granting credits", logFields...)

	_, err := querier.Exec(ctx, query, userID, amount, maxCredits)
	if err != nil {
		r.logger.Error("Failed to grant credits", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка начисления кредитов: %w", err)
	}
	r.logger.Info("Credits granted", logFields...)
	return nil
}

// SetFrozen переключает флаг заморозки (коллаборатор подписок).
func (r *pgCreditBalanceRepository) SetFrozen(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID, frozen bool) error {
	query := `UPDATE credit_balances SET frozen = $1, updated_at = NOW() WHERE user_id = $2`
	logFields := []zap.Field{zap.String("userID", userID.String()), zap.Bool("frozen", frozen)}

	tag, err := querier.Exec(ctx, query, frozen, userID)
	if err != nil {
		r.logger.Error("Failed to set frozen flag", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка изменения флага frozen: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn("Credit balance not found for frozen update", logFields...)
		return models.ErrNotFound
	}
	r.logger.Info("Frozen flag updated", logFields...)
	return nil
}

// CreateReceipt сохраняет квитанцию резервирования в той же транзакции,
// что и списание.
func (r *pgCreditBalanceRepository) CreateReceipt(ctx context.Context, querier interfaces.DBTX, receipt *models.Receipt) error {
	if receipt.ID == uuid.Nil {
		receipt.ID = uuid.New()
	}
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO credit_receipts (id, user_id, amount, created_at)
        VALUES ($1, $2, $3, $4)`
	logFields := []zap.Field{
		zap.String("receiptID", receipt.ID.String()),
		zap.String("userID", receipt.UserID.String()),
		zap.Int("amount", receipt.Amount),
	}

	_, err := querier.Exec(ctx, query, receipt.ID, receipt.UserID, receipt.Amount, receipt.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create receipt", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка создания квитанции: %w", err)
	}
	r.logger.Debug("Receipt created", logFields...)
	return nil
}
