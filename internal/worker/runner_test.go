package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"kolink-server/internal/mocks"
	"kolink-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func newTestRunner(configs *mocks.AutoPilotConfigRepository, scheduler *mocks.Scheduler, now time.Time) *Runner {
	r := NewRunner(configs, scheduler, time.Minute, 50, zap.NewNop())
	r.now = func() time.Time { return now }
	return r
}

func dueConfig(userID uuid.UUID, nextRun time.Time) *models.AutoPilotConfig {
	cfg := models.DefaultAutoPilotConfig(userID)
	cfg.Enabled = true
	cfg.NextRunAt = &nextRun
	return cfg
}

func TestRunnerPoll(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Ticks every due config from the batch", func(t *testing.T) {
		configs := new(mocks.AutoPilotConfigRepository)
		scheduler := new(mocks.Scheduler)
		runner := newTestRunner(configs, scheduler, now)

		first := dueConfig(uuid.New(), now.Add(-time.Hour))
		second := dueConfig(uuid.New(), now.Add(-time.Minute))
		configs.On("ListDue", ctx, now, 50).Return([]*models.AutoPilotConfig{first, second}, nil)
		scheduler.On("Tick", ctx, first, now).Return(nil)
		scheduler.On("Tick", ctx, second, now).Return(nil)

		runner.poll(ctx)

		configs.AssertExpectations(t)
		scheduler.AssertExpectations(t)
	})

	t.Run("One failing user does not block the rest of the batch", func(t *testing.T) {
		configs := new(mocks.AutoPilotConfigRepository)
		scheduler := new(mocks.Scheduler)
		runner := newTestRunner(configs, scheduler, now)

		broken := dueConfig(uuid.New(), now.Add(-time.Hour))
		healthy := dueConfig(uuid.New(), now.Add(-time.Hour))
		configs.On("ListDue", ctx, now, 50).Return([]*models.AutoPilotConfig{broken, healthy}, nil)
		scheduler.On("Tick", ctx, broken, now).Return(errors.New("update run times: connection reset"))
		scheduler.On("Tick", ctx, healthy, now).Return(nil)

		runner.poll(ctx)

		scheduler.AssertExpectations(t)
	})

	t.Run("ListDue error skips the cycle without ticking", func(t *testing.T) {
		configs := new(mocks.AutoPilotConfigRepository)
		scheduler := new(mocks.Scheduler)
		runner := newTestRunner(configs, scheduler, now)

		configs.On("ListDue", ctx, now, 50).Return(nil, errors.New("db down"))

		runner.poll(ctx)

		scheduler.AssertNotCalled(t, "Tick", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Empty batch is a no-op", func(t *testing.T) {
		configs := new(mocks.AutoPilotConfigRepository)
		scheduler := new(mocks.Scheduler)
		runner := newTestRunner(configs, scheduler, now)

		configs.On("ListDue", ctx, now, 50).Return([]*models.AutoPilotConfig{}, nil)

		runner.poll(ctx)

		scheduler.AssertNotCalled(t, "Tick", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRunnerRunStopsOnContextCancel(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	configs := new(mocks.AutoPilotConfigRepository)
	scheduler := new(mocks.Scheduler)
	runner := newTestRunner(configs, scheduler, now)

	configs.On("ListDue", mock.Anything, now, 50).Return([]*models.AutoPilotConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after context cancellation")
	}
}
