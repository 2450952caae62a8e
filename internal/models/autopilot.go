package models

import (
	"time"

	"github.com/google/uuid"
)

// Frequency определяет каданс AutoPilot.
type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
)

// Interval returns the fixed wall-clock offset for the frequency.
// Zero for unknown values; callers must validate first.
func (f Frequency) Interval() time.Duration {
	switch f {
	case FrequencyDaily:
		return 24 * time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	case FrequencyBiweekly:
		return 14 * 24 * time.Hour
	default:
		return 0
	}
}

// IsValid reports whether the frequency is one of the supported values.
func (f Frequency) IsValid() bool {
	return f == FrequencyDaily || f == FrequencyWeekly || f == FrequencyBiweekly
}

// Limits for the AutoPilot batch size.
const (
	MinPostsPerRun = 1
	MaxPostsPerRun = 5
)

// AutoPilotConfig - per-user singleton describing the automated generation
// schedule. Mutated only through the scheduler; never hard-deleted, only
// disabled.
type AutoPilotConfig struct {
	UserID         uuid.UUID  `db:"user_id" json:"user_id"`
	Enabled        bool       `db:"enabled" json:"enabled"`
	Frequency      Frequency  `db:"frequency" json:"frequency"`
	Topics         []string   `db:"topics" json:"topics"`
	TargetAudience string     `db:"target_audience" json:"target_audience"`
	Tone           Tone       `db:"tone" json:"tone"`
	PostCount      int        `db:"post_count" json:"post_count"`
	NextRunAt      *time.Time `db:"next_run_at" json:"next_run_at,omitempty"`
	LastRunAt      *time.Time `db:"last_run_at" json:"last_run_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// DefaultAutoPilotConfig возвращает конфигурацию по умолчанию, создаваемую
// при онбординге: выключено, weekly, без тем, один пост за запуск.
func DefaultAutoPilotConfig(userID uuid.UUID) *AutoPilotConfig {
	now := time.Now().UTC()
	return &AutoPilotConfig{
		UserID:    userID,
		Enabled:   false,
		Frequency: FrequencyWeekly,
		Topics:    []string{},
		Tone:      ToneProfessional,
		PostCount: 1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsDue reports whether a scheduled run should fire at the given moment.
func (c *AutoPilotConfig) IsDue(now time.Time) bool {
	return c.Enabled && c.NextRunAt != nil && !now.Before(*c.NextRunAt)
}
