package interfaces

import (
	"context"
	"time"

	"kolink-server/internal/models"

	"github.com/google/uuid"
)

// AutoPilotConfigRepository defines persistence for per-user AutoPilot configs.
//
//go:generate mockery --name AutoPilotConfigRepository --output ../mocks --outpkg mocks --case=underscore
type AutoPilotConfigRepository interface {
	// GetByUserID retrieves the user's config. If no row exists yet, the
	// onboarding default (disabled, weekly, no topics) is returned - a
	// missing config is not an error.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.AutoPilotConfig, error)

	// Save upserts the config as a whole. All mutation goes through the
	// scheduler service; handlers never call this directly.
	Save(ctx context.Context, querier DBTX, cfg *models.AutoPilotConfig) error

	// ListDue returns enabled configs whose next_run_at is at or before now,
	// limited for batch safety.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.AutoPilotConfig, error)

	// UpdateRunTimes advances last_run_at/next_run_at after an executed run.
	// nextRun may be nil when the config was disabled mid-run.
	UpdateRunTimes(ctx context.Context, querier DBTX, userID uuid.UUID, lastRun time.Time, nextRun *time.Time) error
}

// RunHistoryRepository - append-only журнал запусков AutoPilot.
// Никаких update/delete: записи неизменяемы после создания.
//
//go:generate mockery --name RunHistoryRepository --output ../mocks --outpkg mocks --case=underscore
type RunHistoryRepository interface {
	// Record appends a completed run. The record's ID is generated here if nil.
	Record(ctx context.Context, querier DBTX, run *models.RunRecord) error

	// Latest returns the most recently completed run for the user,
	// including partial and failed ones. models.ErrNotFound when empty.
	Latest(ctx context.Context, userID uuid.UUID) (*models.RunRecord, error)

	// List returns a page of runs newest-first using an opaque cursor.
	// Cursors stay stable under concurrent inserts (keyset pagination).
	List(ctx context.Context, userID uuid.UUID, cursor string, limit int) ([]*models.RunRecord, string, error)

	// ExistsForWindow reports whether a scheduled run was already recorded
	// for the given due-time window (idempotency guard for double ticks).
	ExistsForWindow(ctx context.Context, userID uuid.UUID, windowStart time.Time) (bool, error)
}

// CreditBalanceRepository defines persistence for credit balances and receipts.
// Only the CreditLedger service may call the mutating methods.
//
//go:generate mockery --name CreditBalanceRepository --output ../mocks --outpkg mocks --case=underscore
type CreditBalanceRepository interface {
	// GetByUserID returns the balance for display purposes (no locking).
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.CreditBalance, error)

	// GetForUpdate reads the balance row with a row lock; must be called
	// inside a transaction.
	GetForUpdate(ctx context.Context, querier DBTX, userID uuid.UUID) (*models.CreditBalance, error)

	// Deduct decreases current by amount. Callers hold the row lock.
	Deduct(ctx context.Context, querier DBTX, userID uuid.UUID, amount int) error

	// Grant increases current (plan refills, gifts) and updates max_credits.
	Grant(ctx context.Context, querier DBTX, userID uuid.UUID, amount, maxCredits int) error

	// SetFrozen toggles the frozen flag (driven by the subscription collaborator).
	SetFrozen(ctx context.Context, querier DBTX, userID uuid.UUID, frozen bool) error

	// CreateReceipt persists a reservation receipt within the same transaction.
	CreateReceipt(ctx context.Context, querier DBTX, receipt *models.Receipt) error
}

// DraftRepository сохраняет сгенерированные посты.
//
//go:generate mockery --name DraftRepository --output ../mocks --outpkg mocks --case=underscore
type DraftRepository interface {
	// Save inserts a generated draft. The draft's ID is generated here if nil.
	Save(ctx context.Context, querier DBTX, draft *models.Draft) error

	// LatestSince returns the newest draft created after the given moment,
	// or models.ErrNotFound. Serves interrupted-generation recovery.
	LatestSince(ctx context.Context, userID uuid.UUID, since time.Time) (*models.Draft, error)
}

// RunLockRepository guards the one-run-in-flight-per-user rule.
//
//go:generate mockery --name RunLockRepository --output ../mocks --outpkg mocks --case=underscore
type RunLockRepository interface {
	// Acquire takes the per-user run lock. Returns false (without error)
	// when another run already holds it. The TTL bounds a crashed run.
	Acquire(ctx context.Context, userID uuid.UUID, ttl time.Duration) (bool, error)

	// Release frees the lock. Releasing a lock that already expired is not
	// an error.
	Release(ctx context.Context, userID uuid.UUID) error
}
