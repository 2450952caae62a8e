package messaging

import (
	"time"

	"github.com/google/uuid"

	"kolink-server/internal/models"
)

// Имена очередей. Должны совпадать у паблишера и консьюмера.
const (
	ClientUpdatesQueue = "client_updates"
)

// RunCompletedPayload - уведомление клиенту о завершенном запуске AutoPilot.
// Консьюмер (websocket/push-слой) сам решает, как доставить его в UI.
type RunCompletedPayload struct {
	UserID          uuid.UUID         `json:"user_id"`
	RunID           uuid.UUID         `json:"run_id"`
	Trigger         models.RunTrigger `json:"trigger"`
	Outcome         models.RunOutcome `json:"outcome"`
	DraftIDs        []uuid.UUID       `json:"draft_ids"`
	CreditsReserved int               `json:"credits_reserved"`
	CompletedAt     time.Time         `json:"completed_at"`
}
