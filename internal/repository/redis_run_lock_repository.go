package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"kolink-server/internal/interfaces"
)

// Compile-time check
var _ interfaces.RunLockRepository = (*redisRunLockRepository)(nil)

type redisRunLockRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisRunLockRepository создает Redis-реализацию per-user лока запуска.
// SET NX с TTL делает лок корректным и для нескольких инстансов сервиса:
// упавший запуск освобождает пользователя по истечении TTL.
func NewRedisRunLockRepository(client *redis.Client, logger *zap.Logger) interfaces.RunLockRepository {
	return &redisRunLockRepository{
		client: client,
		logger: logger.Named("RedisRunLockRepo"),
	}
}

func runLockKey(userID uuid.UUID) string {
	return fmt.Sprintf("autopilot_run_lock:%s", userID.String())
}

// Acquire берет лок. false без ошибки - лок уже занят другим запуском.
func (r *redisRunLockRepository) Acquire(ctx context.Context, userID uuid.UUID, ttl time.Duration) (bool, error) {
	key := runLockKey(userID)
	ok, err := r.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		r.logger.Error("Failed to acquire run lock",
			zap.String("userID", userID.String()), zap.String("key", key), zap.Error(err))
		return false, fmt.Errorf("ошибка захвата лока запуска: %w", err)
	}
	if !ok {
		r.logger.Debug("Run lock already held", zap.String("userID", userID.String()))
		return false, nil
	}
	r.logger.Debug("Run lock acquired",
		zap.String("userID", userID.String()), zap.Duration("ttl", ttl))
	return true, nil
}

// Release освобождает лок. Удаление истекшего ключа - no-op, не ошибка.
func (r *redisRunLockRepository) Release(ctx context.Context, userID uuid.UUID) error {
	key := runLockKey(userID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Error("Failed to release run lock",
			zap.String("userID", userID.String()), zap.String("key", key), zap.Error(err))
		return fmt.Errorf("ошибка освобождения лока запуска: %w", err)
	}
	r.logger.Debug("Run lock released", zap.String("userID", userID.String()))
	return nil
}
