package config

import (
	"fmt"
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"

	"kolink-server/internal/utils"
)

// Config содержит конфигурацию сервера kolink.
type Config struct {
	// Настройки сервера
	Port     string `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Настройки PostgreSQL
	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string

	// Настройки Redis (лок запусков AutoPilot)
	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`

	// Настройки RabbitMQ
	RabbitMQURL            string `envconfig:"RABBITMQ_URL" required:"true"`
	ClientUpdatesQueueName string `envconfig:"CLIENT_UPDATES_QUEUE_NAME" default:"client_updates"`

	// Настройки внешнего генератора
	AIBaseURL string `envconfig:"AI_BASE_URL" default:"https://openrouter.ai/api/v1"`
	AIModel   string `envconfig:"AI_MODEL" default:"deepseek/deepseek-chat-v3-0324:free"`
	// Секретное поле БЕЗ envconfig тега
	AIAPIKey string

	// Настройки планировщика
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"1m"`
	DueBatchSize int           `envconfig:"DUE_BATCH_SIZE" default:"50"`

	// Pushgateway для метрик scheduler-процесса (пусто - метрики не пушатся)
	PushgatewayURL string `envconfig:"PUSHGATEWAY_URL" default:""`

	// Настройки JWT (для проверки токена пользователя в middleware)
	// Секретное поле БЕЗ envconfig тега
	JWTSecret string
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig загружает конфигурацию из переменных окружения и секретов.
func LoadConfig() (*Config, error) {
	var cfg Config
	// Загружаем НЕсекретные переменные
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	// Загружаем ОБЯЗАТЕЛЬНЫЕ секреты
	var loadErr error
	cfg.DBPassword, loadErr = utils.ReadSecret("db_password")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.JWTSecret, loadErr = utils.ReadSecret("jwt_secret")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.AIAPIKey, loadErr = utils.ReadSecret("ai_api_key")
	if loadErr != nil {
		return nil, loadErr
	}

	log.Printf("Конфигурация kolink-server загружена (секреты из файлов):")
	log.Printf("  Port: %s", cfg.Port)
	log.Printf("  LogLevel: %s", cfg.LogLevel)
	log.Printf("  DB DSN: postgres://%s:***@%s:%s/%s?sslmode=%s", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)
	log.Printf("  Redis Addr: %s", cfg.RedisAddr)
	log.Printf("  RabbitMQ URL: %s", cfg.RabbitMQURL)
	log.Printf("  Client Updates Queue Name: %s", cfg.ClientUpdatesQueueName)
	log.Printf("  AI Base URL: %s, Model: %s", cfg.AIBaseURL, cfg.AIModel)
	log.Printf("  Poll Interval: %v, Due Batch Size: %d", cfg.PollInterval, cfg.DueBatchSize)
	log.Println("  JWT Secret: [ЗАГРУЖЕН]")
	log.Println("  AI API Key: [ЗАГРУЖЕН]")

	return &cfg, nil
}
