package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kolink-server/internal/interfaces"
	"kolink-server/internal/models"
)

// ConfigUpdate - поля конфигурации, задаваемые пользователем.
// Времена запусков сюда не входят: ими управляет только планировщик.
type ConfigUpdate struct {
	Frequency      models.Frequency
	Topics         []string
	TargetAudience string
	Tone           models.Tone
	PostCount      int
}

// Scheduler управляет жизненным циклом AutoPilot: конфигурация,
// активация/деактивация, тики и ручные запуски.
type Scheduler interface {
	// GetConfig возвращает конфигурацию пользователя (онбординг-дефолт,
	// если ее еще нет).
	GetConfig(ctx context.Context, userID uuid.UUID) (*models.AutoPilotConfig, error)

	// Activate валидирует и включает AutoPilot. Первый next_run всегда
	// now + interval.
	Activate(ctx context.Context, userID uuid.UUID, update ConfigUpdate) (*models.AutoPilotConfig, error)

	// UpdateConfig меняет поля конфигурации. next_run перепривязывается
	// к now только при смене частоты у включенного AutoPilot.
	UpdateConfig(ctx context.Context, userID uuid.UUID, update ConfigUpdate) (*models.AutoPilotConfig, error)

	// Deactivate выключает AutoPilot: next_run очищается, конфигурация
	// и журнал сохраняются для повторной активации.
	Deactivate(ctx context.Context, userID uuid.UUID) (*models.AutoPilotConfig, error)

	// Tick выполняет due-запуск для конфигурации, если он наступил.
	// No-op до next_run. next_run сдвигается после возврата запуска
	// независимо от его итога.
	Tick(ctx context.Context, cfg *models.AutoPilotConfig, now time.Time) error

	// ForceRun выполняет немедленный ручной запуск, не трогая каданс.
	ForceRun(ctx context.Context, userID uuid.UUID) (*models.RunRecord, error)
}

// Compile-time check
var _ Scheduler = (*scheduler)(nil)

type scheduler struct {
	txManager interfaces.TxManager
	configs   interfaces.AutoPilotConfigRepository
	executor  RunExecutor
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduler создает планировщик AutoPilot.
func NewScheduler(
	txManager interfaces.TxManager,
	configs interfaces.AutoPilotConfigRepository,
	executor RunExecutor,
	logger *zap.Logger,
) Scheduler {
	return &scheduler{
		txManager: txManager,
		configs:   configs,
		executor:  executor,
		logger:    logger.Named("Scheduler"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// validateUpdate проверяет пользовательские поля конфигурации.
func validateUpdate(update ConfigUpdate) error {
	if !update.Frequency.IsValid() {
		return fmt.Errorf("%w: неизвестная частота %q", models.ErrInvalidConfig, update.Frequency)
	}
	if len(update.Topics) == 0 {
		return fmt.Errorf("%w: список тем пуст", models.ErrInvalidConfig)
	}
	for _, topic := range update.Topics {
		if topic == "" {
			return fmt.Errorf("%w: пустая тема в списке", models.ErrInvalidConfig)
		}
	}
	if update.PostCount < models.MinPostsPerRun || update.PostCount > models.MaxPostsPerRun {
		return fmt.Errorf("%w: postCount вне диапазона [%d, %d]",
			models.ErrInvalidConfig, models.MinPostsPerRun, models.MaxPostsPerRun)
	}
	return nil
}

func applyUpdate(cfg *models.AutoPilotConfig, update ConfigUpdate) {
	cfg.Frequency = update.Frequency
	cfg.Topics = update.Topics
	cfg.TargetAudience = update.TargetAudience
	cfg.Tone = update.Tone
	cfg.PostCount = update.PostCount
}

func (s *scheduler) GetConfig(ctx context.Context, userID uuid.UUID) (*models.AutoPilotConfig, error) {
	return s.configs.GetByUserID(ctx, userID)
}

func (s *scheduler) Activate(ctx context.Context, userID uuid.UUID, update ConfigUpdate) (*models.AutoPilotConfig, error) {
	if err := validateUpdate(update); err != nil {
		return nil, err
	}

	cfg, err := s.configs.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	applyUpdate(cfg, update)

	now := s.now()
	// Первый расчет после активации - единственный, привязанный к now.
	next := now.Add(update.Frequency.Interval())
	cfg.Enabled = true
	cfg.NextRunAt = &next
	cfg.UpdatedAt = now

	err = s.txManager.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		return s.configs.Save(ctx, tx, cfg)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("AutoPilot activated",
		zap.String("userID", userID.String()),
		zap.String("frequency", string(cfg.Frequency)),
		zap.Time("nextRun", next))
	return cfg, nil
}

func (s *scheduler) UpdateConfig(ctx context.Context, userID uuid.UUID, update ConfigUpdate) (*models.AutoPilotConfig, error) {
	if err := validateUpdate(update); err != nil {
		return nil, err
	}

	cfg, err := s.configs.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	frequencyChanged := cfg.Frequency != update.Frequency
	applyUpdate(cfg, update)
	cfg.UpdatedAt = now

	// Смена частоты у включенного AutoPilot перепривязывает next_run
	// к now; остальные правки каданс не трогают.
	if cfg.Enabled && frequencyChanged {
		next := now.Add(update.Frequency.Interval())
		cfg.NextRunAt = &next
	}

	err = s.txManager.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		return s.configs.Save(ctx, tx, cfg)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("AutoPilot config updated",
		zap.String("userID", userID.String()),
		zap.Bool("frequencyChanged", frequencyChanged))
	return cfg, nil
}

func (s *scheduler) Deactivate(ctx context.Context, userID uuid.UUID) (*models.AutoPilotConfig, error) {
	cfg, err := s.configs.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	cfg.Enabled = false
	cfg.NextRunAt = nil
	cfg.UpdatedAt = s.now()

	err = s.txManager.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		return s.configs.Save(ctx, tx, cfg)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("AutoPilot deactivated", zap.String("userID", userID.String()))
	return cfg, nil
}

func (s *scheduler) Tick(ctx context.Context, cfg *models.AutoPilotConfig, now time.Time) error {
	if !cfg.IsDue(now) {
		return nil
	}

	scheduledFor := cfg.NextRunAt.UTC()
	logFields := []zap.Field{
		zap.String("userID", cfg.UserID.String()),
		zap.Time("scheduledFor", scheduledFor),
	}

	_, err := s.executor.ExecuteRun(ctx, cfg, models.RunTriggerScheduled, &scheduledFor)
	if err != nil {
		if IsRunInProgress(err) {
			// Второй триггер того же окна отбрасывается; next_run не
			// двигается - окно доиграет держатель лока.
			s.logger.Info("Tick dropped: run already in flight", logFields...)
			return nil
		}
		// Неудачный запуск не ретраится раньше времени: каданс
		// сдвигается так же, как после успешного.
		s.logger.Warn("Scheduled run failed", append(logFields, zap.Error(err))...)
	}

	next := nextDueTime(scheduledFor, cfg.Frequency.Interval(), now)
	return s.txManager.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		return s.configs.UpdateRunTimes(ctx, tx, cfg.UserID, now, &next)
	})
}

func (s *scheduler) ForceRun(ctx context.Context, userID uuid.UUID) (*models.RunRecord, error) {
	cfg, err := s.configs.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	run, err := s.executor.ExecuteRun(ctx, cfg, models.RunTriggerManual, nil)
	if err != nil {
		return run, err
	}

	// Ручной запуск обновляет last_run, но не сдвигает и не потребляет
	// запланированный next_run. Для просроченной конфигурации это дает
	// временное next_run < last_run: окно принадлежит планировщику, и
	// ближайший тик все равно его отыграет и передвинет next_run вперед.
	now := s.now()
	updateErr := s.txManager.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		return s.configs.UpdateRunTimes(ctx, tx, userID, now, cfg.NextRunAt)
	})
	if updateErr != nil {
		s.logger.Error("Failed to update last run time after manual run",
			zap.String("userID", userID.String()), zap.Error(updateErr))
	}
	return run, nil
}

// nextDueTime сдвигает due-время целыми интервалами от предыдущего
// next_run, пока оно не окажется в будущем. Поздний тик (сервер лежал)
// не сжимает следующий интервал и не порождает пачку догоняющих
// запусков: пропущенные окна просто пропускаются.
func nextDueTime(prev time.Time, interval time.Duration, now time.Time) time.Time {
	next := prev.Add(interval)
	for !next.After(now) {
		next = next.Add(interval)
	}
	return next
}
