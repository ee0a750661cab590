// Package metrics exposes prometheus instrumentation for the conversation
// pipeline. All methods are nil-safe so wiring stays optional.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for webhook and flow
// processing.
type ConversationMetrics struct {
	inboundTotal    *prometheus.CounterVec
	transitionTotal *prometheus.CounterVec
	outboundTotal   *prometheus.CounterVec
	webhookLatency  *prometheus.HistogramVec
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brainytots",
			Subsystem: "webhook",
			Name:      "inbound_total",
			Help:      "Total inbound channel webhook messages by outcome",
		}, []string{"outcome"}),
		transitionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brainytots",
			Subsystem: "flow",
			Name:      "transitions_total",
			Help:      "Total conversation state transitions by resulting step",
		}, []string{"step"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brainytots",
			Subsystem: "messaging",
			Name:      "outbound_total",
			Help:      "Total outbound messages by kind and status",
		}, []string{"kind", "status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "brainytots",
			Subsystem: "webhook",
			Name:      "latency_seconds",
			Help:      "Latency of webhook message processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.transitionTotal, m.outboundTotal, m.webhookLatency)
	return m
}

func (m *ConversationMetrics) ObserveInbound(outcome string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(outcome).Inc()
}

func (m *ConversationMetrics) ObserveTransition(step string) {
	if m == nil {
		return
	}
	m.transitionTotal.WithLabelValues(step).Inc()
}

func (m *ConversationMetrics) ObserveOutbound(kind, status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(kind, status).Inc()
}

func (m *ConversationMetrics) ObserveLatency(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(outcome).Observe(seconds)
}
