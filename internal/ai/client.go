package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"kolink-server/internal/interfaces"
	"kolink-server/internal/models"
)

const defaultTimeout = 120 * time.Second

var (
	generationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kolink_generation_requests_total",
			Help: "Total number of requests to the generation API.",
		},
		[]string{"model", "status"},
	)
	generationRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kolink_generation_request_duration_seconds",
			Help:    "Histogram of generation API request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)
	generationTotalTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kolink_generation_total_tokens",
			Help:    "Histogram of total token counts (prompt + completion).",
			Buckets: prometheus.LinearBuckets(250, 250, 16),
		},
		[]string{"model"},
	)
)

// Compile-time check
var _ interfaces.GenerationClient = (*Client)(nil)

// Client - клиент внешнего генератора постов поверх OpenAI-совместимого API
// (OpenRouter и аналоги через baseURL).
type Client struct {
	openaiClient *openai.Client
	modelName    string
	logger       *zap.Logger
}

// NewClient создает клиент генерации.
// baseURL пустой - значит стандартный OpenAI endpoint.
func NewClient(apiKey, baseURL, model string, logger *zap.Logger) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	config.HTTPClient = &http.Client{
		Timeout: defaultTimeout,
	}
	return &Client{
		openaiClient: openai.NewClientWithConfig(config),
		modelName:    model,
		logger:       logger.Named("AIClient"),
	}
}

// Generate генерирует текст одного поста по полностью зарезолвленным
// параметрам. Ретраев нет: политика повторов принадлежит вызывающему.
func (c *Client) Generate(ctx context.Context, params models.GenerationParams) (string, error) {
	if params.HasRandomFields() {
		return "", fmt.Errorf("%w: параметры содержат неразрешенный random", models.ErrInvalidInput)
	}

	start := time.Now()
	resp, err := c.openaiClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(params)},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(params)},
		},
		Temperature: temperatureFor(params.CreativityLevel),
	})
	generationRequestDuration.WithLabelValues(c.modelName).Observe(time.Since(start).Seconds())

	if err != nil {
		generationRequestsTotal.WithLabelValues(c.modelName, "error").Inc()
		c.logger.Error("Generation request failed",
			zap.String("model", c.modelName), zap.Error(err))
		return "", fmt.Errorf("запрос генерации не удался: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		generationRequestsTotal.WithLabelValues(c.modelName, "empty").Inc()
		return "", fmt.Errorf("%w: пустой ответ генератора", models.ErrGenerationFailed)
	}

	generationRequestsTotal.WithLabelValues(c.modelName, "success").Inc()
	generationTotalTokens.WithLabelValues(c.modelName).Observe(float64(resp.Usage.TotalTokens))

	return resp.Choices[0].Message.Content, nil
}

// temperatureFor переводит уровень креативности 0-100 в температуру модели.
func temperatureFor(creativity int) float32 {
	if creativity < 0 {
		creativity = 0
	}
	if creativity > 100 {
		creativity = 100
	}
	return 0.2 + float32(creativity)/100*1.1
}

func systemPrompt(p models.GenerationParams) string {
	var b strings.Builder
	b.WriteString("Ты — опытный автор постов для LinkedIn. Пиши на языке: ")
	b.WriteString(p.Language)
	b.WriteString(".\n")
	if p.BrandVoice != "" {
		b.WriteString("Голос бренда: ")
		b.WriteString(p.BrandVoice)
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf(
		"Тон: %s. Структура: %s. Длина: %s. Эмодзи: %s. Хук первой строки: %s.\n",
		p.Tone, p.Framework, p.Length, p.EmojiDensity, p.HookStyle,
	))
	b.WriteString(fmt.Sprintf("Заверши пост %d хэштегами.", p.HashtagCount))
	return b.String()
}

func userPrompt(p models.GenerationParams) string {
	var b strings.Builder
	b.WriteString("Напиши пост на тему: ")
	b.WriteString(p.Topic)
	if p.Audience != "" {
		b.WriteString("\nЦелевая аудитория: ")
		b.WriteString(p.Audience)
	}
	return b.String()
}
