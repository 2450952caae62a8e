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
var _ interfaces.AutoPilotConfigRepository = (*pgAutoPilotConfigRepository)(nil)

type pgAutoPilotConfigRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgAutoPilotConfigRepository создает репозиторий конфигураций AutoPilot.
func NewPgAutoPilotConfigRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.AutoPilotConfigRepository {
	return &pgAutoPilotConfigRepository{
		db:     db,
		logger: logger.Named("PgAutoPilotConfigRepo"),
	}
}

const autopilotConfigColumns = `
    user_id, enabled, frequency, topics, target_audience, tone, post_count,
    next_run_at, last_run_at, created_at, updated_at`

func scanAutoPilotConfig(row pgx.Row) (*models.AutoPilotConfig, error) {
	cfg := &models.AutoPilotConfig{}
	err := row.Scan(
		&cfg.UserID, &cfg.Enabled, &cfg.Frequency, &cfg.Topics,
		&cfg.TargetAudience, &cfg.Tone, &cfg.PostCount,
		&cfg.NextRunAt, &cfg.LastRunAt, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if cfg.Topics == nil {
		cfg.Topics = []string{}
	}
	return cfg, nil
}

// GetByUserID возвращает конфигурацию пользователя. Отсутствие строки -
// не ошибка: новый пользователь получает онбординг-дефолт.
func (r *pgAutoPilotConfigRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.AutoPilotConfig, error) {
	query := `SELECT` + autopilotConfigColumns + `
        FROM autopilot_configs
        WHERE user_id = $1`
	logFields := []zap.Field{zap.String("userID", userID.String())}
	r.logger.Debug("Getting autopilot config", logFields...)

	cfg, err := scanAutoPilotConfig(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Autopilot config not found, returning onboarding default", logFields...)
			return models.DefaultAutoPilotConfig(userID), nil
		}
		r.logger.Error("Failed to get autopilot config", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("ошибка получения autopilot config: %w", err)
	}
	return cfg, nil
}

// Save делает upsert всей конфигурации целиком.
func (r *pgAutoPilotConfigRepository) Save(ctx context.Context, querier interfaces.DBTX, cfg *models.AutoPilotConfig) error {
	query := `
        INSERT INTO autopilot_configs
            (user_id, enabled, frequency, topics, target_audience, tone, post_count,
             next_run_at, last_run_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (user_id) DO UPDATE SET
            enabled = EXCLUDED.enabled,
            frequency = EXCLUDED.frequency,
            topics = EXCLUDED.topics,
            target_audience = EXCLUDED.target_audience,
            tone = EXCLUDED.tone,
            post_count = EXCLUDED.post_count,
            next_run_at = EXCLUDED.next_run_at,
            last_run_at = EXCLUDED.last_run_at,
            updated_at = EXCLUDED.updated_at`
	logFields := []zap.Field{
		zap.String("userID", cfg.UserID.String()),
		zap.Bool("enabled", cfg.Enabled),
		zap.String("frequency", string(cfg.Frequency)),
	}
	r.logger.Debug("Saving autopilot config", logFields...)

	_, err := querier.Exec(ctx, query,
		cfg.UserID, cfg.Enabled, cfg.Frequency, cfg.Topics,
		cfg.TargetAudience, cfg.Tone, cfg.PostCount,
		cfg.NextRunAt, cfg.LastRunAt, cfg.CreatedAt, cfg.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save autopilot config", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка сохранения autopilot config: %w", err)
	}
	r.logger.Info("Autopilot config saved", logFields...)
	return nil
}

// ListDue возвращает включенные конфигурации, чей next_run_at уже наступил.
// Порядок - по next_run_at, чтобы самые просроченные обрабатывались первыми.
func (r *pgAutoPilotConfigRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.AutoPilotConfig, error) {
	query := `SELECT` + autopilotConfigColumns + `
        FROM autopilot_configs
        WHERE enabled = TRUE AND next_run_at IS NOT NULL AND next_run_at <= $1
        ORDER BY next_run_at ASC
        LIMIT $2`
	logFields := []zap.Field{zap.Time("now", now), zap.Int("limit", limit)}
	r.logger.Debug("Listing due autopilot configs", logFields...)

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		r.logger.Error("Failed to query due autopilot configs", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("ошибка получения due-конфигураций: %w", err)
	}
	defer rows.Close()

	configs := make([]*models.AutoPilotConfig, 0, limit)
	for rows.Next() {
		cfg, err := scanAutoPilotConfig(rows)
		if err != nil {
			r.logger.Error("Failed to scan due autopilot config row", append(logFields, zap.Error(err))...)
			return nil, fmt.Errorf("ошибка чтения due-конфигурации: %w", err)
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating due autopilot config rows", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("ошибка после чтения due-конфигураций: %w", err)
	}

	r.logger.Debug("Due autopilot configs listed", append(logFields, zap.Int("count", len(configs)))...)
	return configs, nil
}

// UpdateRunTimes сдвигает last_run_at/next_run_at после выполненного запуска.
func (r *pgAutoPilotConfigRepository) UpdateRunTimes(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID, lastRun time.Time, nextRun *time.Time) error {
	query := `
        UPDATE autopilot_configs
        SET last_run_at = $1, next_run_at = $2, updated_at = NOW()
        WHERE user_id = $3`
	logFields := []zap.Field{
		zap.String("userID", userID.String()),
		zap.Time("lastRun", lastRun),
		zap.Timep("nextRun", nextRun),
	}
	r.logger.Debug("Updating autopilot run times", logFields...)

	tag, err := querier.Exec(ctx, query, lastRun, nextRun, userID)
	if err != nil {
		r.logger.Error("Failed to update autopilot run times", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка обновления времени запусков: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn("Autopilot config not found for run time update", logFields...)
		return models.ErrNotFound
	}
	return nil
}
