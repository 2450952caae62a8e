package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kolink-server/internal/interfaces"
	"kolink-server/internal/messaging"
	"kolink-server/internal/models"
	"kolink-server/internal/resolver"
)

// runLockTTL ограничивает время жизни per-user лока: упавший посреди
// запуска процесс не блокирует пользователя навсегда.
const runLockTTL = 10 * time.Minute

// RunExecutor выполняет один батч-запуск AutoPilot от начала до конца:
// резолв параметров → резервирование кредитов → генерация → журнал.
type RunExecutor interface {
	// ExecuteRun выполняет запуск для данной конфигурации.
	// scheduledFor задает ключ due-окна для scheduled-запусков; для
	// ручных он nil. ErrRunInProgress - другой запуск уже в полете.
	// Возвращает (nil, nil), когда окно уже обработано ранее.
	ExecuteRun(ctx context.Context, cfg *models.AutoPilotConfig, trigger models.RunTrigger, scheduledFor *time.Time) (*models.RunRecord, error)
}

// Compile-time check
var _ RunExecutor = (*runPipeline)(nil)

type runPipeline struct {
	db        interfaces.DBTX
	resolver  *resolver.Resolver
	ledger    CreditLedger
	generator interfaces.GenerationClient
	drafts    interfaces.DraftRepository
	history   interfaces.RunHistoryRepository
	locks     interfaces.RunLockRepository
	publisher messaging.RunUpdatePublisher
	logger    *zap.Logger
}

// NewRunPipeline создает исполнитель запусков AutoPilot.
// publisher может быть nil (scheduler-процесс без очереди уведомлений).
func NewRunPipeline(
	db interfaces.DBTX,
	res *resolver.Resolver,
	ledger CreditLedger,
	generator interfaces.GenerationClient,
	drafts interfaces.DraftRepository,
	history interfaces.RunHistoryRepository,
	locks interfaces.RunLockRepository,
	publisher messaging.RunUpdatePublisher,
	logger *zap.Logger,
) RunExecutor {
	return &runPipeline{
		db:        db,
		resolver:  res,
		ledger:    ledger,
		generator: generator,
		drafts:    drafts,
		history:   history,
		locks:     locks,
		publisher: publisher,
		logger:    logger.Named("RunPipeline"),
	}
}

func (p *runPipeline) ExecuteRun(ctx context.Context, cfg *models.AutoPilotConfig, trigger models.RunTrigger, scheduledFor *time.Time) (*models.RunRecord, error) {
	userID := cfg.UserID
	logFields := []zap.Field{
		zap.String("userID", userID.String()),
		zap.String("trigger", string(trigger)),
	}

	// Гард "один запуск в полете на пользователя": второй триггер
	// отбрасывается, не ставится в очередь.
	acquired, err := p.locks.Acquire(ctx, userID, runLockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		p.logger.Info("Run dropped: another run in flight", logFields...)
		return nil, models.ErrRunInProgress
	}
	defer func() {
		if err := p.locks.Release(context.WithoutCancel(ctx), userID); err != nil {
			p.logger.Error("Failed to release run lock", append(logFields, zap.Error(err))...)
		}
	}()

	// Идемпотентность по due-окну: поздний повторный тик того же окна
	// не создает второй RunRecord.
	if scheduledFor != nil {
		exists, err := p.history.ExistsForWindow(ctx, userID, *scheduledFor)
		if err != nil {
			return nil, err
		}
		if exists {
			p.logger.Info("Run window already recorded, skipping",
				append(logFields, zap.Time("scheduledFor", *scheduledFor))...)
			return nil, nil
		}
	}

	// Конфигурационные ошибки всплывают синхронно, до резервирования
	// и без записи в журнал.
	snapshots, err := p.resolveSnapshots(cfg)
	if err != nil {
		p.logger.Warn("Run aborted on parameter resolution", append(logFields, zap.Error(err))...)
		return nil, err
	}

	run := &models.RunRecord{
		ID:           uuid.New(),
		UserID:       userID,
		Trigger:      trigger,
		ScheduledFor: scheduledFor,
		Params:       snapshots,
		DraftIDs:     []uuid.UUID{},
	}

	// Кредиты резервируются целиком до первого вызова генерации.
	// Отказ ledger'а прерывает запуск: failed-запись с нулевым
	// резервом остается в журнале.
	receipt, err := p.ledger.Reserve(ctx, userID, cfg.PostCount)
	if err != nil {
		run.Outcome = models.RunOutcomeFailed
		detail := err.Error()
		run.ErrorDetails = &detail
		if recErr := p.history.Record(ctx, p.db, run); recErr != nil {
			p.logger.Error("Failed to record rejected run", append(logFields, zap.Error(recErr))...)
		}
		autopilotRunsTotal.WithLabelValues(string(trigger), string(run.Outcome)).Inc()
		return run, err
	}
	run.CreditsReserved = receipt.Amount
	run.ReceiptID = &receipt.ID

	p.logger.Info("Executing autopilot run",
		append(logFields, zap.Int("postCount", cfg.PostCount), zap.String("receiptID", receipt.ID.String()))...)

	draftIDs, genErrs := p.generateBatch(ctx, userID, snapshots)
	run.DraftIDs = draftIDs

	switch {
	case len(genErrs) == 0:
		run.Outcome = models.RunOutcomeSuccess
	case len(draftIDs) > 0:
		run.Outcome = models.RunOutcomePartial
	default:
		run.Outcome = models.RunOutcomeFailed
	}
	if len(genErrs) > 0 {
		detail := joinErrors(genErrs)
		run.ErrorDetails = &detail
	}

	if err := p.history.Record(ctx, p.db, run); err != nil {
		return run, err
	}
	autopilotRunsTotal.WithLabelValues(string(trigger), string(run.Outcome)).Inc()
	creditsReservedTotal.Add(float64(run.CreditsReserved))

	p.publishCompleted(ctx, run)

	p.logger.Info("Autopilot run finished",
		append(logFields,
			zap.String("runID", run.ID.String()),
			zap.String("outcome", string(run.Outcome)),
			zap.Int("drafts", len(run.DraftIDs)))...)
	return run, nil
}

// resolveSnapshots строит по одному полностью зарезолвленному снапшоту
// параметров на пост. Тема разыгрывается один раз на запуск и общая для
// всех постов; random-поля каждый пост разыгрывает заново.
func (p *runPipeline) resolveSnapshots(cfg *models.AutoPilotConfig) ([]models.GenerationParams, error) {
	if cfg.PostCount < models.MinPostsPerRun || cfg.PostCount > models.MaxPostsPerRun {
		return nil, fmt.Errorf("%w: postCount вне диапазона [%d, %d]",
			models.ErrInvalidConfig, models.MinPostsPerRun, models.MaxPostsPerRun)
	}

	topic, err := p.resolver.PickTopic(cfg.Topics)
	if err != nil {
		return nil, err
	}

	snapshots := make([]models.GenerationParams, 0, cfg.PostCount)
	for i := 0; i < cfg.PostCount; i++ {
		base := models.DefaultGenerationParams()
		base.Topic = topic
		base.Audience = cfg.TargetAudience
		base.Tone = cfg.Tone

		resolved, err := p.resolver.Resolve(base)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, resolved)
	}
	return snapshots, nil
}

// generateBatch вызывает генератор для каждого снапшота конкурентно:
// вызовы независимы, но все принадлежат одному запуску. Ошибка одного
// поста не прерывает остальные.
func (p *runPipeline) generateBatch(ctx context.Context, userID uuid.UUID, snapshots []models.GenerationParams) ([]uuid.UUID, []error) {
	type result struct {
		draftID uuid.UUID
		err     error
	}

	results := make([]result, len(snapshots))
	var wg sync.WaitGroup
	for i, params := range snapshots {
		wg.Add(1)
		go func(i int, params models.GenerationParams) {
			defer wg.Done()
			content, err := p.generator.Generate(ctx, params)
			if err != nil {
				results[i] = result{err: fmt.Errorf("пост %d: %w", i+1, err)}
				return
			}
			draft := &models.Draft{
				ID:          uuid.New(),
				UserID:      userID,
				Content:     content,
				Params:      params,
				IsAutoPilot: true,
			}
			if err := p.drafts.Save(ctx, p.db, draft); err != nil {
				results[i] = result{err: fmt.Errorf("пост %d: сохранение: %w", i+1, err)}
				return
			}
			results[i] = result{draftID: draft.ID}
		}(i, params)
	}
	wg.Wait()

	draftIDs := make([]uuid.UUID, 0, len(snapshots))
	var errs []error
	for _, res := range results {
		if res.err != nil {
			errs = append(errs, res.err)
			continue
		}
		draftIDs = append(draftIDs, res.draftID)
	}
	return draftIDs, errs
}

// publishCompleted отправляет уведомление о завершении. Best-effort:
// недоступность брокера не меняет итог запуска.
func (p *runPipeline) publishCompleted(ctx context.Context, run *models.RunRecord) {
	if p.publisher == nil {
		return
	}
	payload := messaging.RunCompletedPayload{
		UserID:          run.UserID,
		RunID:           run.ID,
		Trigger:         run.Trigger,
		Outcome:         run.Outcome,
		DraftIDs:        run.DraftIDs,
		CreditsReserved: run.CreditsReserved,
		CompletedAt:     run.CreatedAt,
	}
	if err := p.publisher.PublishRunCompleted(ctx, payload); err != nil {
		p.logger.Error("Failed to publish run completed update",
			zap.String("runID", run.ID.String()), zap.Error(err))
	}
}

func joinErrors(errs []error) string {
	parts := make([]string, 0, len(errs))
	for _, err := range errs {
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, "; ")
}

// IsRunInProgress сообщает, означает ли ошибка занятый лок запуска.
func IsRunInProgress(err error) bool {
	return errors.Is(err, models.ErrRunInProgress)
}
