package handler

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"kolink-server/internal/models"
)

// APIError представляет стандартизированный ответ об ошибке.
type APIError struct {
	Message string `json:"message"`
}

// CustomValidator адаптирует go-playground/validator под echo.Validator.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator создает валидатор запросов.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate реализует echo.Validator.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// AutoPilotConfigRequest - тело activate/update запросов.
type AutoPilotConfigRequest struct {
	Frequency      string   `json:"frequency" validate:"required,oneof=daily weekly biweekly"`
	Topics         []string `json:"topics" validate:"required,min=1,dive,min=1"`
	TargetAudience string   `json:"target_audience"`
	Tone           string   `json:"tone" validate:"required"`
	PostCount      int      `json:"post_count" validate:"required,min=1,max=5"`
}

// AutoPilotConfigResponse - конфигурация в ответах API.
type AutoPilotConfigResponse struct {
	Enabled        bool       `json:"enabled"`
	Frequency      string     `json:"frequency"`
	Topics         []string   `json:"topics"`
	TargetAudience string     `json:"target_audience"`
	Tone           string     `json:"tone"`
	PostCount      int        `json:"post_count"`
	NextRunAt      *time.Time `json:"next_run_at,omitempty"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
}

func toConfigResponse(cfg *models.AutoPilotConfig) AutoPilotConfigResponse {
	return AutoPilotConfigResponse{
		Enabled:        cfg.Enabled,
		Frequency:      string(cfg.Frequency),
		Topics:         cfg.Topics,
		TargetAudience: cfg.TargetAudience,
		Tone:           string(cfg.Tone),
		PostCount:      cfg.PostCount,
		NextRunAt:      cfg.NextRunAt,
		LastRunAt:      cfg.LastRunAt,
	}
}

// RunRecordResponse - запись журнала запусков в ответах API.
type RunRecordResponse struct {
	ID              uuid.UUID   `json:"id"`
	Trigger         string      `json:"trigger"`
	ScheduledFor    *time.Time  `json:"scheduled_for,omitempty"`
	Outcome         string      `json:"outcome"`
	DraftIDs        []uuid.UUID `json:"draft_ids"`
	CreditsReserved int         `json:"credits_reserved"`
	ErrorDetails    *string     `json:"error_details,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

func toRunResponse(run *models.RunRecord) RunRecordResponse {
	return RunRecordResponse{
		ID:              run.ID,
		Trigger:         string(run.Trigger),
		ScheduledFor:    run.ScheduledFor,
		Outcome:         string(run.Outcome),
		DraftIDs:        run.DraftIDs,
		CreditsReserved: run.CreditsReserved,
		ErrorDetails:    run.ErrorDetails,
		CreatedAt:       run.CreatedAt,
	}
}

// PaginatedResponse - обертка для курсорных списков.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// BalanceResponse - кредитный баланс для отображения.
type BalanceResponse struct {
	Current    int  `json:"current"`
	MaxCredits int  `json:"max_credits"`
	Frozen     bool `json:"frozen"`
}

// GrantCreditsRequest - начисление кредитов от подписочного коллаборатора
// (рефилл плана).
type GrantCreditsRequest struct {
	Amount     int `json:"amount" validate:"required,min=1"`
	MaxCredits int `json:"max_credits" validate:"required,min=1"`
}

// SetFrozenRequest - переключение заморозки аккаунта.
type SetFrozenRequest struct {
	Frozen *bool `json:"frozen" validate:"required"`
}

// GenerateRequest - тело интерактивной генерации. Поля со значением
// "random" резолвятся на сервере; пропущенные enum-поля также трактуются
// как random.
type GenerateRequest struct {
	Topic           string `json:"topic" validate:"required,min=1"`
	Audience        string `json:"audience"`
	Tone            string `json:"tone"`
	Framework       string `json:"framework"`
	Length          string `json:"length"`
	EmojiDensity    string `json:"emoji_density"`
	HookStyle       string `json:"hook_style"`
	HashtagCount    *int   `json:"hashtag_count" validate:"omitempty,min=0,max=5"`
	CreativityLevel *int   `json:"creativity_level" validate:"omitempty,min=0,max=100"`
	Language        string `json:"language"`
	BrandVoice      string `json:"brand_voice"`
}

// toParams собирает GenerationParams, заполняя пропуски дефолтами.
func (r GenerateRequest) toParams() models.GenerationParams {
	p := models.DefaultGenerationParams()
	p.Topic = r.Topic
	p.Audience = r.Audience
	if r.Tone != "" {
		p.Tone = models.Tone(r.Tone)
	}
	if r.Framework != "" {
		p.Framework = models.Framework(r.Framework)
	}
	if r.Length != "" {
		p.Length = models.PostLength(r.Length)
	}
	if r.EmojiDensity != "" {
		p.EmojiDensity = models.EmojiDensity(r.EmojiDensity)
	}
	if r.HookStyle != "" {
		p.HookStyle = models.HookStyle(r.HookStyle)
	}
	if r.HashtagCount != nil {
		p.HashtagCount = *r.HashtagCount
	}
	if r.CreativityLevel != nil {
		p.CreativityLevel = *r.CreativityLevel
	}
	if r.Language != "" {
		p.Language = r.Language
	}
	p.BrandVoice = r.BrandVoice
	return p
}

// DraftResponse - сгенерированный черновик в ответах API.
type DraftResponse struct {
	ID          uuid.UUID               `json:"id"`
	Content     string                  `json:"content"`
	Params      models.GenerationParams `json:"params"`
	IsAutoPilot bool                    `json:"is_auto_pilot"`
	CreatedAt   time.Time               `json:"created_at"`
}

func toDraftResponse(draft *models.Draft) DraftResponse {
	return DraftResponse{
		ID:          draft.ID,
		Content:     draft.Content,
		Params:      draft.Params,
		IsAutoPilot: draft.IsAutoPilot,
		CreatedAt:   draft.CreatedAt,
	}
}
