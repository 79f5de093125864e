package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Traffic: вызовы релея по исходу (success или класс ошибки)
	ChatRequests *prometheus.CounterVec

	// Latency: полное время вызова, включая провайдера
	ChatDuration *prometheus.HistogramVec

	// Errors: классификация отказов по ErrorKind
	ErrorTotal *prometheus.CounterVec

	// Saturation: состояние Circuit Breaker (0 - closed, 1 - half-open, 2 - open)
	CircuitBreakerState *prometheus.GaugeVec

	// Размеры реестров агентов и инструментов
	RegistrySize *prometheus.GaugeVec

	// Сколько записей добавлено в журнал активности
	ActivityEntries prometheus.Counter

	// Archive: заполненность буфера архиватора (backpressure)
	ArchiveBufferFill prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		ChatRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "agentdock_chat_requests_total",
			Help: "Total number of chat relay calls by outcome.",
		}, []string{"outcome"}),

		ChatDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentdock_chat_duration_seconds",
			Help:    "Histogram of chat relay latencies.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"outcome"}),

		ErrorTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "agentdock_errors_total",
			Help: "Total number of errors by kind.",
		}, []string{"kind"}),

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "agentdock_circuit_breaker_state",
			Help: "Current state of the provider circuit breaker (0=closed, 1=half-open, 2=open).",
		}, []string{"provider"}),

		RegistrySize: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "agentdock_registry_size",
			Help: "Number of entries currently held by each registry.",
		}, []string{"registry"}),

		ActivityEntries: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "agentdock_activity_entries_total",
			Help: "Total number of entries appended to the activity log.",
		}),

		ArchiveBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "agentdock_archive_buffer_utilization",
			Help: "Current number of items waiting in the archive buffer.",
		}),
	}
}
