package uniqw

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus counters maintained by clients, servers and the
// replay tool. A nil *Metrics is valid and records nothing.
type Metrics struct {
	enqueuedTotal     *prometheus.CounterVec
	processedTotal    *prometheus.CounterVec
	deadLetteredTotal *prometheus.CounterVec
	replayedTotal     *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg.
// A nil reg creates unregistered counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		enqueuedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uniqw_tasks_enqueued_total",
				Help: "Total number of tasks enqueued",
			},
			[]string{"queue"},
		),
		processedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uniqw_tasks_processed_total",
				Help: "Total number of task executions by outcome",
			},
			[]string{"queue", "outcome"},
		),
		deadLetteredTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uniqw_tasks_dead_lettered_total",
				Help: "Total number of failed tasks routed to a dead-letter queue",
			},
			[]string{"queue"},
		),
		replayedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uniqw_dlq_replayed_total",
				Help: "Total number of dead-letter entries replayed into their original queue",
			},
			[]string{"dlq", "queue"},
		),
	}
}

func (m *Metrics) enqueued(queue string) {
	if m == nil {
		return
	}
	m.enqueuedTotal.WithLabelValues(queue).Inc()
}

func (m *Metrics) processed(queue, outcome string) {
	if m == nil {
		return
	}
	m.processedTotal.WithLabelValues(queue, outcome).Inc()
}

func (m *Metrics) deadLettered(queue string) {
	if m == nil {
		return
	}
	m.deadLetteredTotal.WithLabelValues(queue).Inc()
}

// Replayed counts one dead-letter entry moved from dlq back to queue.
func (m *Metrics) Replayed(dlq, queue string) {
	if m == nil {
		return
	}
	m.replayedTotal.WithLabelValues(dlq, queue).Inc()
}
