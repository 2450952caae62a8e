package models

import (
	"time"

	"github.com/google/uuid"
)

// CreditCostPerPost - стоимость одной генерации в кредитах.
// Источник подписочных лимитов (max_credits) - внешний биллинг.
const CreditCostPerPost = 1

// CreditBalance - текущий баланс кредитов пользователя.
// current > max допустимо (rollover/подарочные кредиты);
// current < 0 - никогда.
type CreditBalance struct {
	UserID     uuid.UUID `db:"user_id" json:"user_id"`
	Current    int       `db:"current" json:"current"`
	MaxCredits int       `db:"max_credits" json:"max_credits"`
	// Frozen = true, когда подписка отменена, но период еще не истек:
	// кредиты сохраняются, но потратить их нельзя.
	Frozen    bool      `db:"frozen" json:"frozen"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Receipt подтверждает успешное резервирование кредитов. Пайплайн
// предъявляет его при записи фактического расхода; на нем же будет
// строиться возможный в будущем возврат за неудавшиеся посты.
type Receipt struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Amount    int       `db:"amount" json:"amount"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
