// Package metrics exposes Prometheus collectors for the appointment service.
// All methods are safe on a nil receiver so tests can leave metrics out.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "dental"

type Metrics struct {
	operations      *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	outboxPublished *prometheus.CounterVec
	consumed        *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "appointments",
			Name:      "operations_total",
			Help:      "Lifecycle operations by outcome (ok or the error kind)",
		}, []string{"op", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "appointments",
			Name:      "operation_duration_seconds",
			Help:      "Latency of lifecycle operations including the store transaction",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		outboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Outbox events written to Kafka",
		}, []string{"result"}),
		consumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consumer",
			Name:      "events_total",
			Help:      "Consumed Kafka events by outcome",
		}, []string{"event_type", "result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operations, m.latency, m.outboxPublished, m.consumed)
	return m
}

func (m *Metrics) ObserveOperation(op, result string, seconds float64) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, result).Inc()
	m.latency.WithLabelValues(op).Observe(seconds)
}

func (m *Metrics) ObserveOutboxPublished(n int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.outboxPublished.WithLabelValues("error").Inc()
		return
	}
	m.outboxPublished.WithLabelValues("ok").Add(float64(n))
}

// ObserveConsumed records one consumed event. result is ok, duplicate,
// invalid or error.
func (m *Metrics) ObserveConsumed(eventType, result string) {
	if m == nil {
		return
	}
	m.consumed.WithLabelValues(eventType, result).Inc()
}
