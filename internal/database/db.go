package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	connectMaxRetries = 10
	connectRetryDelay = 3 * time.Second
)

// Connect создает пул соединений с PostgreSQL с несколькими попытками:
// при старте в docker-compose БД может подниматься дольше сервиса.
func Connect(ctx context.Context, dsn string, maxConns int32, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}
	poolConfig.MaxConns = maxConns

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= connectMaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, 5*time.Second)

		pool, err = pgxpool.NewWithConfig(attemptCtx, poolConfig)
		if err == nil {
			err = pool.Ping(attemptCtx)
			if err == nil {
				cancel()
				return pool, nil
			}
			pool.Close()
		}
		cancel()

		logger.Warn("Не удалось подключиться к PostgreSQL",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", connectMaxRetries),
			zap.Duration("retry_delay", connectRetryDelay),
			zap.Error(err),
		)
		if attempt < connectMaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(connectRetryDelay):
			}
		}
	}
	return nil, fmt.Errorf("не удалось подключиться к БД после %d попыток: %w", connectMaxRetries, err)
}
