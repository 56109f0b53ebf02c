package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Bot command metrics
	CommandsHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamy_commands_total",
			Help: "Total number of bot commands handled",
		},
		[]string{"command", "status"}, // status: success|error
	)

	CommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "teamy_command_duration_seconds",
			Help:    "Command handler duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"command"},
	)

	// Usage ledger metrics
	UsageEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamy_usage_events_total",
			Help: "Total number of usage events recorded",
		},
		[]string{"command", "tracked"}, // tracked: true|false
	)

	UsageErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamy_usage_errors_total",
			Help: "Total number of usage ledger failures",
		},
		[]string{"operation"}, // operation: record|export|clear
	)

	// Admin metrics
	AdminRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamy_admin_requests_total",
			Help: "Total number of admin export/clear requests",
		},
		[]string{"action", "result"}, // result: allowed|denied|error
	)

	// Event stream metrics
	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamy_kafka_messages_total",
			Help: "Total Kafka messages published",
		},
		[]string{"topic", "status"},
	)

	// Telegram metrics
	TelegramUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamy_telegram_updates_total",
			Help: "Total number of Telegram updates received",
		},
		[]string{"kind"}, // kind: command|admin|membership|ignored
	)
)

var initOnce sync.Once

// Init registers all metrics with the default registry
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(CommandsHandled)
		prometheus.MustRegister(CommandDuration)

		prometheus.MustRegister(UsageEvents)
		prometheus.MustRegister(UsageErrors)

		prometheus.MustRegister(AdminRequests)
		prometheus.MustRegister(KafkaMessages)
		prometheus.MustRegister(TelegramUpdates)
	})
}

// RecordCommand records one handled bot command
func RecordCommand(command string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	CommandsHandled.WithLabelValues(command, status).Inc()
	CommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
