package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kolink-server/internal/ai"
	"kolink-server/internal/config"
	"kolink-server/internal/database"
	"kolink-server/internal/handler"
	"kolink-server/internal/logger"
	"kolink-server/internal/messaging"
	appMiddleware "kolink-server/internal/middleware"
	"kolink-server/internal/repository"
	"kolink-server/internal/resolver"
	"kolink-server/internal/service"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	log.Println("Запуск Kolink API Server...")

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

	ctx := context.Background()

	// Подключение к PostgreSQL
	dbPool, err := database.Connect(ctx, cfg.GetDSN(), int32(cfg.DBMaxConns), zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось подключиться к БД", zap.Error(err))
	}
	defer dbPool.Close()
	zapLogger.Info("Успешное подключение к PostgreSQL")

	// Миграции
	if err := database.ApplyMigrations(dbPool, zapLogger); err != nil {
		zapLogger.Fatal("Не удалось применить миграции", zap.Error(err))
	}

	// Подключение к Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("Не удалось подключиться к Redis", zap.Error(err))
	}
	zapLogger.Info("Успешное подключение к Redis")

	// Подключение к RabbitMQ
	rabbitConn, err := connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось подключиться к RabbitMQ", zap.Error(err))
	}
	defer rabbitConn.Close()
	zapLogger.Info("Успешное подключение к RabbitMQ")

	runUpdatePublisher, err := messaging.NewRabbitMQRunUpdatePublisher(rabbitConn, cfg.ClientUpdatesQueueName, zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось создать RunUpdatePublisher", zap.Error(err))
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
	generationService := service.NewGenerationService(dbPool, paramResolver, creditLedger, aiClient, draftRepo, zapLogger)

	apiHandler := handler.NewAPIHandler(autopilotScheduler, creditLedger, generationService, historyRepo, zapLogger, cfg.JWTSecret)

	// Настройка Echo
	e := echo.New()
	e.Validator = handler.NewValidator()
	e.Use(appMiddleware.EchoZapLogger(zapLogger))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	apiHandler.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	go func() {
		zapLogger.Info("HTTP сервер слушает", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("Ошибка запуска HTTP сервера: ", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Получен сигнал завершения, начинаем graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Fatal("Ошибка при graceful shutdown Echo: ", err)
	}

	log.Println("Kolink API Server успешно остановлен")
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
