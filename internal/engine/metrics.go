package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: сколько времени заняла обработка (включая response-фазу)
	RequestDuration *prometheus.HistogramVec

	// Traffic: общее кол-во обработанных событий телеметрии
	EventsTotal prometheus.Counter

	// Сколько событий признано аномальными, по типам атак
	AnomaliesTotal *prometheus.CounterVec

	// Исходы containment-плейбуков
	ContainmentTotal *prometheus.CounterVec

	// Форензика: аппенды и отказы леджера
	LedgerAppends  prometheus.Counter
	LedgerFailures prometheus.Counter

	// Saturation: состояние Circuit Breaker облачных вызовов (0 - ок, 1 - выбило)
	CircuitBreakerState *prometheus.GaugeVec

	// Размер таблицы активов после последнего discovery-прохода
	AssetsResolved prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hawkgrid_request_duration_seconds",
			Help:    "Histogram of detection request latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"outcome"}), // normal, anomaly, error

		EventsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "hawkgrid_events_total",
			Help: "Total number of processed telemetry events.",
		}),

		AnomaliesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hawkgrid_anomalies_total",
			Help: "Total number of detected anomalies by attack type.",
		}, []string{"attack_type"}),

		ContainmentTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hawkgrid_containment_total",
			Help: "Playbook executions by final status.",
		}, []string{"status"}),

		LedgerAppends: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "hawkgrid_ledger_appends_total",
			Help: "Successful forensic ledger appends.",
		}),

		LedgerFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "hawkgrid_ledger_failures_total",
			Help: "Failed forensic ledger appends (degraded responses).",
		}),

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "hawkgrid_circuit_breaker_state",
			Help: "Current state of the cloud isolate circuit breaker (0=closed, 1=open).",
		}, []string{"provider"}),

		AssetsResolved: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "hawkgrid_assets_resolved",
			Help: "Number of assets in the resolver table after the last refresh.",
		}),
	}
}
