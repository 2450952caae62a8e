package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"kolink-server/internal/ai"
	"kolink-server/internal/config"
	"kolink-server/internal/database"
	"kolink-server/internal/logger"
	"kolink-server/internal/messaging"
	"kolink-server/internal/repository"
	"kolink-server/internal/resolver"
	"kolink-server/internal/service"
	"kolink-server/internal/worker"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	log.Println("Запуск Kolink AutoPilot Scheduler...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("Не удалось инициализировать логгер: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Logger initialized", zap.String("logLevel", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Метрики в Pushgateway (опционально)
	if cfg.PushgatewayURL != "" {
		if err := worker.InitMetricsPusher(cfg.PushgatewayURL); err != nil {
			zapLogger.Warn("Pushgateway недоступен, метрики не будут отправляться", zap.Error(err))
		} else {
			worker.StartMetricsPusher(30 * time.Second)
			defer worker.CleanupMetrics()
		}
	}

	// Подключение к PostgreSQL
	dbPool, err := database.Connect(ctx, cfg.GetDSN(), int32(cfg.DBMaxConns), zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось подключиться к БД", zap.Error(err))
	}
	defer dbPool.Close()
	zapLogger.Info("Успешное подключение к PostgreSQL")

	// Миграции применяет API-сервер; планировщик только читает и пишет данные.

	// Подключение к Redis (лок "один запуск в полете")
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("Не удалось подключиться к Redis", zap.Error(err))
	}
	zapLogger.Info("Успешное подключение к Redis")

	// Подключение к RabbitMQ: уведомления о завершении запусков.
	// Без брокера планировщик работать может, publisher останется nil.
	var runUpdatePublisher messaging.RunUpdatePublisher
	rabbitConn, err := connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Warn("RabbitMQ недоступен, уведомления о запусках отключены", zap.Error(err))
	} else {
		defer rabbitConn.Close()
		runUpdatePublisher, err = messaging.NewRabbitMQRunUpdatePublisher(rabbitConn, cfg.ClientUpdatesQueueName, zapLogger)
		if err != nil {
			zapLogger.Fatal("Не удалось создать RunUpdatePublisher", zap.Error(err))
		}
		zapLogger.Info("Успешное подключение к RabbitMQ")
	}

	// Репозитории
	configRepo := repository.NewPgAutoPilotConfigRepository(dbPool, zapLogger)
	historyRepo := repository.NewPgRunHistoryRepository(dbPool, zapLogger)
	balanceRepo := repository.NewPgCreditBalanceRepository(dbPool, zapLogger)
	draftRepo := repository.NewPgDraftRepository(dbPool, zapLogger)
	lockRepo := repository.NewRedisRunLockRepository(redisClient, zapLogger)
	txManager := repository.NewTransactionHelper(dbPool, zapLogger)

	// Сервисы
	aiClient := ai.NewClient(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel, zapLogger)
	paramResolver := resolver.New()
	creditLedger := service.NewCreditLedger(txManager, balanceRepo, zapLogger)
	runPipeline := service.NewRunPipeline(dbPool, paramResolver, creditLedger, aiClient,
		draftRepo, historyRepo, lockRepo, runUpdatePublisher, zapLogger)
	autopilotScheduler := service.NewScheduler(txManager, configRepo, runPipeline, zapLogger)

	runner := worker.NewRunner(configRepo, autopilotScheduler, cfg.PollInterval, cfg.DueBatchSize, zapLogger)

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zapLogger.Error("Runner завершился с ошибкой", zap.Error(err))
	}

	log.Println("Kolink AutoPilot Scheduler успешно остановлен")
}

// connectRabbitMQ пытается подключиться к RabbitMQ с несколькими попытками
func connectRabbitMQ(url string, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 5
	retryDelay := 5 * time.Second
	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		logger.Warn("Не удалось подключиться к RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Duration("retry_delay", retryDelay),
			zap.Error(err),
		)
		time.Sleep(retryDelay)
	}
	return nil, err
}
