package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestConversationMetricsObserve(t *testing.T) {
	m := NewConversationMetrics(prometheus.NewRegistry())
	m.ObserveInbound("processed")
	m.ObserveTransition("ask_name")
	m.ObserveOutbound("buttons", "sent")
	m.ObserveLatency("processed", 0.5)
}

func TestConversationMetricsNilSafe(t *testing.T) {
	var m *ConversationMetrics
	m.ObserveInbound("processed")
	m.ObserveTransition("ask_name")
	m.ObserveOutbound("text", "failed")
	m.ObserveLatency("error", 0.1)
}
