package worker

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	jobName = "autopilot_scheduler"
)

var (
	// Общий реестр для всех метрик планировщика
	registry = prometheus.NewRegistry()

	// Мы используем promauto.With(registry) чтобы метрики регистрировались в нашем
	// локальном реестре, а не в глобальном prometheus.DefaultRegistry
	ticksProcessed = promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "autopilot_ticks_processed_total",
			Help: "Total number of due configs picked up by the scheduler poll loop.",
		},
	)
	ticksCompleted = promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "autopilot_ticks_completed_total",
			Help: "Total number of due ticks that completed and advanced the cadence.",
		},
	)
	tickErrors = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_tick_errors_total",
			Help: "Total number of ticks that ended with an error, partitioned by reason.",
		},
		[]string{"reason"},
	)
	pollErrors = promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "autopilot_poll_errors_total",
			Help: "Total number of failed attempts to list due configs.",
		},
	)

	// Pusher для отправки метрик в Pushgateway
	pusher *push.Pusher

	// Группировочные метки для Pushgateway
	groupingKey map[string]string
)

// InitMetricsPusher инициализирует клиент Pushgateway.
// pushgatewayURL: адрес Pushgateway (e.g., "http://localhost:9091")
func InitMetricsPusher(pushgatewayURL string) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
		log.Printf("[Metrics] Warning: could not get hostname: %v", err)
	}
	pid := os.Getpid()
	instanceID := fmt.Sprintf("%s-%d", hostname, pid)

	groupingKey = map[string]string{
		"instance": instanceID,
	}

	log.Printf("[Metrics] Initializing Pushgateway pusher for job '%s' with instance '%s' to %s", jobName, instanceID, pushgatewayURL)

	// Помимо собственного реестра отправляем и DefaultGatherer: там живут
	// счетчики пайплайна и AI-клиента.
	pusher = push.New(pushgatewayURL, jobName).
		Gatherer(registry).
		Gatherer(prometheus.DefaultGatherer).
		Grouping("instance", instanceID)

	// Сразу отправляем нулевые значения, чтобы проверить соединение
	if err := pusher.Push(); err != nil {
		return fmt.Errorf("could not push initial metrics to Pushgateway: %w", err)
	}
	log.Printf("[Metrics] Initial push to Pushgateway successful.")
	return nil
}

// StartMetricsPusher запускает горутину для периодической отправки метрик.
func StartMetricsPusher(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			if pusher == nil {
				ticker.Stop()
				log.Println("[Metrics] Pusher is nil, stopping periodic push.")
				return
			}
			_ = pushMetrics()
		}
	}()
	log.Printf("[Metrics] Started periodic pusher with interval %v", interval)
}

// pushMetrics отправляет текущие метрики в Pushgateway.
func pushMetrics() error {
	if pusher == nil {
		return errors.New("pusher not initialized")
	}

	err := pusher.Push()
	if err != nil {
		log.Printf("[Metrics] Error pushing metrics to Pushgateway: %v", err)
		return err
	}
	return nil
}

// MetricsIncrementTicksProcessed увеличивает счетчик обработанных тиков.
func MetricsIncrementTicksProcessed() {
	ticksProcessed.Inc()
	pushMetrics()
}

// MetricsIncrementTickCompleted увеличивает счетчик завершившихся тиков.
func MetricsIncrementTickCompleted() {
	ticksCompleted.Inc()
	pushMetrics()
}

// MetricsIncrementTickError увеличивает счетчик ошибок тиков для указанной причины.
func MetricsIncrementTickError(reason string) {
	tickErrors.WithLabelValues(reason).Inc()
	pushMetrics()
}

// MetricsIncrementPollError увеличивает счетчик неудачных опросов БД.
func MetricsIncrementPollError() {
	pollErrors.Inc()
	pushMetrics()
}

// CleanupMetrics удаляет метрики этого инстанса из Pushgateway.
// Должна вызываться через defer в main.
func CleanupMetrics() {
	if pusher == nil {
		return
	}

	log.Printf("[Metrics] Deleting metrics from Pushgateway for job '%s', grouping key: %v", jobName, groupingKey)
	if err := pusher.Delete(); err != nil {
		log.Printf("[Metrics] Error deleting metrics from Pushgateway: %v", err)
	}
}
