package models

import (
	"time"

	"github.com/google/uuid"
)

// RunOutcome - итог одного запуска AutoPilot.
type RunOutcome string

const (
	RunOutcomeSuccess RunOutcome = "success" // все посты сгенерированы
	RunOutcomePartial RunOutcome = "partial" // часть постов сгенерирована
	RunOutcomeFailed  RunOutcome = "failed"  // ни одного поста (или отказ до генерации)
)

// RunTrigger - что инициировало запуск.
type RunTrigger string

const (
	RunTriggerScheduled RunTrigger = "scheduled"
	RunTriggerManual    RunTrigger = "manual"
)

// RunRecord - одна строка журнала запусков AutoPilot. Неизменяема после
// записи; журнал append-only, чистится только внешней retention-политикой.
type RunRecord struct {
	ID              uuid.UUID          `db:"id" json:"id"`
	UserID          uuid.UUID          `db:"user_id" json:"user_id"`
	Trigger         RunTrigger         `db:"trigger" json:"trigger"`
	ScheduledFor    *time.Time         `db:"scheduled_for" json:"scheduled_for,omitempty"` // ключ окна due-time, nil для ручных запусков
	Outcome         RunOutcome         `db:"outcome" json:"outcome"`
	Params          []GenerationParams `db:"params" json:"params"` // зарезолвленные снапшоты, по одному на пост
	DraftIDs        []uuid.UUID        `db:"draft_ids" json:"draft_ids"`
	CreditsReserved int                `db:"credits_reserved" json:"credits_reserved"`
	ReceiptID       *uuid.UUID         `db:"receipt_id" json:"receipt_id,omitempty"`
	ErrorDetails    *string            `db:"error_details" json:"error_details,omitempty"`
	CreatedAt       time.Time          `db:"created_at" json:"created_at"`
}

// Draft - сохраненный сгенерированный пост.
type Draft struct {
	ID          uuid.UUID        `db:"id" json:"id"`
	UserID      uuid.UUID        `db:"user_id" json:"user_id"`
	Content     string           `db:"content" json:"content"`
	Params      GenerationParams `db:"params" json:"params"`
	IsAutoPilot bool             `db:"is_auto_pilot" json:"is_auto_pilot"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}
