package queue

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for queue monitoring, labeled by priority where the
// distinction matters.
var (
	jobsPushedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jetqueue_jobs_pushed_total",
			Help: "Total number of jobs published, by priority.",
		},
		[]string{"priority"},
	)

	jobsPolledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jetqueue_jobs_polled_total",
			Help: "Total number of jobs fetched by the poller, by priority.",
		},
		[]string{"priority"},
	)

	jobsAckedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jetqueue_jobs_acked_total",
			Help: "Total number of jobs acknowledged, by priority.",
		},
		[]string{"priority"},
	)

	jobsNakedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jetqueue_jobs_naked_total",
			Help: "Total number of jobs redelivered via Nak, by priority.",
		},
		[]string{"priority"},
	)

	jobsDLQedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jetqueue_jobs_dlqed_total",
			Help: "Total number of jobs routed to the dead letter stream, by priority and reason.",
		},
		[]string{"priority", "reason"},
	)

	jobsTerminatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jetqueue_jobs_terminated_total",
			Help: "Total number of jobs Term'd without a DLQ write (DLQ disabled), by priority.",
		},
		[]string{"priority"},
	)

	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jetqueue_queue_depth",
			Help: "Messages pending in a priority stream (not yet delivered).",
		},
		[]string{"priority"},
	)

	queueAckPending = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jetqueue_queue_ack_pending",
			Help: "Messages delivered to the consumer but not yet finalized, by priority.",
		},
		[]string{"priority"},
	)

	ackCoordinatorQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "jetqueue_ack_coordinator_queue_depth",
			Help: "Pending decisions buffered in the ack coordinator's channel.",
		},
	)

	natsReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jetqueue_nats_reconnects_total",
			Help: "Total number of broker reconnection events.",
		},
	)

	natsDisconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jetqueue_nats_disconnects_total",
			Help: "Total number of broker disconnection events.",
		},
	)

	ackDecisionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jetqueue_ack_decision_duration_seconds",
			Help:    "Time taken to apply an ack decision (Ack/Nak/DLQ-then-Ack/Term), by outcome.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"outcome"},
	)

	metricsOnce sync.Once
)

func init() {
	metricsOnce.Do(func() {
		prometheus.DefaultRegisterer.MustRegister(
			jobsPushedTotal,
			jobsPolledTotal,
			jobsAckedTotal,
			jobsNakedTotal,
			jobsDLQedTotal,
			jobsTerminatedTotal,
			queueDepth,
			queueAckPending,
			ackCoordinatorQueueDepth,
			natsReconnectsTotal,
			natsDisconnectsTotal,
			ackDecisionDuration,
		)
	})
}
