package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all reminder engine metrics
type Metrics struct {
	// Dispatcher metrics
	RemindersSent      prometheus.Counter
	RemindersFailed    prometheus.Counter
	TickDuration       prometheus.Histogram
	DueQueueSize       prometheus.Gauge
	EventsMaterialized prometheus.Counter

	// Status refresher metrics
	StatusTransitions *prometheus.CounterVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// New creates and registers all reminder engine metrics
func New(namespace string) *Metrics {
	return &Metrics{
		RemindersSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Total number of reminder emails delivered",
		}),
		RemindersFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_failed_total",
			Help:      "Total number of reminder deliveries that failed",
		}),
		TickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Time spent per scheduling tick (refresh + dispatch)",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		DueQueueSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "due_reminders",
			Help:      "Number of due reminders selected on the last tick",
		}),
		EventsMaterialized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_events_materialized_total",
			Help:      "Total number of reminder events created by materialization",
		}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "certification_status_transitions_total",
			Help:      "Certification status transitions applied by the refresher",
		}, []string{"to_status"}),
		DatabaseOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}

// NewUnregistered returns a Metrics set backed by a private registry,
// for use in tests where promauto's default registration would collide.
func NewUnregistered(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		RemindersSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "reminders_sent_total", Help: "Total number of reminder emails delivered",
		}),
		RemindersFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "reminders_failed_total", Help: "Total number of reminder deliveries that failed",
		}),
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "tick_duration_seconds", Help: "Time spent per scheduling tick",
		}),
		DueQueueSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "due_reminders", Help: "Number of due reminders selected on the last tick",
		}),
		EventsMaterialized: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "reminder_events_materialized_total", Help: "Total number of reminder events created",
		}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "certification_status_transitions_total", Help: "Status transitions applied",
		}, []string{"to_status"}),
		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "database_operations_total", Help: "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}
