package worker

import (
	"context"
	"time"

	"kolink-server/internal/interfaces"
	"kolink-server/internal/service"

	"go.uber.org/zap"
)

// Runner - poll-цикл планировщика. Раз в pollInterval выбирает из БД
// конфигурации, чей next_run_at наступил, и прогоняет каждую через
// Scheduler.Tick. Несколько инстансов могут работать параллельно:
// Redis-лок внутри пайплайна гарантирует один запуск на пользователя.
type Runner struct {
	configs      interfaces.AutoPilotConfigRepository
	scheduler    service.Scheduler
	pollInterval time.Duration
	batchSize    int
	logger       *zap.Logger
	now          func() time.Time
}

func NewRunner(
	configs interfaces.AutoPilotConfigRepository,
	scheduler service.Scheduler,
	pollInterval time.Duration,
	batchSize int,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		configs:      configs,
		scheduler:    scheduler,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger.Named("SchedulerRunner"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Run блокируется до отмены контекста. Первый опрос выполняется сразу,
// не дожидаясь первого тика тикера.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("Scheduler runner started",
		zap.Duration("pollInterval", r.pollInterval),
		zap.Int("batchSize", r.batchSize),
	)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	r.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Scheduler runner stopped")
			return ctx.Err()
		case <-ticker.C:
			r.poll(ctx)
		}
	}
}

// poll обрабатывает одну пачку due-конфигураций. Ошибка одного
// пользователя не мешает остальным в пачке.
func (r *Runner) poll(ctx context.Context) {
	now := r.now()

	due, err := r.configs.ListDue(ctx, now, r.batchSize)
	if err != nil {
		r.logger.Error("Failed to list due configs", zap.Error(err))
		MetricsIncrementPollError()
		return
	}
	if len(due) == 0 {
		return
	}

	r.logger.Info("Processing due configs", zap.Int("count", len(due)), zap.Time("now", now))

	for _, cfg := range due {
		if ctx.Err() != nil {
			return
		}
		MetricsIncrementTicksProcessed()

		if err := r.scheduler.Tick(ctx, cfg, now); err != nil {
			r.logger.Error("Tick failed",
				zap.String("userID", cfg.UserID.String()),
				zap.Error(err),
			)
			MetricsIncrementTickError("tick")
			continue
		}
		MetricsIncrementTickCompleted()
	}
}
