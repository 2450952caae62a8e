package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RunUpdatePublisher defines the interface for publishing run updates to the client.
type RunUpdatePublisher interface {
	PublishRunCompleted(ctx context.Context, payload RunCompletedPayload) error
}

// rabbitMQPublisher implements RunUpdatePublisher for RabbitMQ.
type rabbitMQPublisher struct {
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// NewRabbitMQRunUpdatePublisher creates a new instance of RunUpdatePublisher.
// Паблишер объявляет очередь сам: порядок запуска сервисов не важен.
func NewRabbitMQRunUpdatePublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (RunUpdatePublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("run update publisher: не удалось открыть канал: %w", err)
	}
	_, err = ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("run update publisher: не удалось объявить очередь '%s': %w", queueName, err)
	}
	logger.Info("RunUpdatePublisher: очередь объявлена/найдена", zap.String("queue", queueName))
	return &rabbitMQPublisher{channel: ch, queueName: queueName, logger: logger.Named("RunUpdatePublisher")}, nil
}

// PublishRunCompleted publishes a run-completed update for the client.
func (p *rabbitMQPublisher) PublishRunCompleted(ctx context.Context, payload RunCompletedPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("Ошибка маршалинга RunCompletedPayload",
			zap.String("userID", payload.UserID.String()), zap.Error(err))
		return fmt.Errorf("ошибка подготовки сообщения RunCompleted: %w", err)
	}
	return p.publishMessage(ctx, body)
}

// publishMessage is a helper method for publishing a message.
func (p *rabbitMQPublisher) publishMessage(ctx context.Context, body []byte) error {
	if p.channel == nil {
		return errors.New("канал RabbitMQ не инициализирован")
	}
	// Устанавливаем таймаут на публикацию
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var err error
	// Попытка публикации с retry до 3 раз
	for attempt := 1; attempt <= 3; attempt++ {
		err = p.channel.PublishWithContext(ctx,
			"",          // exchange (используем default)
			p.queueName, // routing key (имя очереди)
			false,       // mandatory
			false,       // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Body:         body,
				Timestamp:    time.Now(),
				AppId:        "kolink-server",
			},
		)
		if err == nil {
			break
		}
		p.logger.Warn("Ошибка публикации, retry",
			zap.Int("attempt", attempt), zap.String("queue", p.queueName), zap.Error(err))
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	if err != nil {
		return fmt.Errorf("ошибка публикации в очередь %s после retries: %w", p.queueName, err)
	}
	p.logger.Debug("Сообщение опубликовано", zap.String("queue", p.queueName))
	return nil
}
