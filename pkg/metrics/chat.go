package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ChatMetrics records websocket session and message counters.
type ChatMetrics struct {
	activeSessions  prometheus.Gauge
	messages        *prometheus.CounterVec
	sessionDuration prometheus.Histogram
	closes          *prometheus.CounterVec
}

// NewChatMetrics registers the chat metrics on the provided registerer.
func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	if reg == nil {
		return &ChatMetrics{}
	}
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_active_sessions",
		Help: "Currently connected websocket chat sessions.",
	})
	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Chat frames processed by event kind.",
	}, []string{"kind"})
	sessionDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chat_session_duration_seconds",
		Help:    "Lifetime of websocket chat sessions in seconds.",
		Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
	})
	closes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_session_closes_total",
		Help: "Websocket session closures by reason.",
	}, []string{"reason"})
	reg.MustRegister(activeSessions, messages, sessionDuration, closes)
	return &ChatMetrics{
		activeSessions:  activeSessions,
		messages:        messages,
		sessionDuration: sessionDuration,
		closes:          closes,
	}
}

// SessionOpened marks a new connected session.
func (c *ChatMetrics) SessionOpened() {
	if c == nil || c.activeSessions == nil {
		return
	}
	c.activeSessions.Inc()
}

// SessionClosed marks a session teardown and records its lifetime.
func (c *ChatMetrics) SessionClosed(reason string, lifetime time.Duration) {
	if c == nil || c.activeSessions == nil {
		return
	}
	c.activeSessions.Dec()
	c.sessionDuration.Observe(lifetime.Seconds())
	c.closes.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncMessage counts a processed frame for the given event kind.
func (c *ChatMetrics) IncMessage(kind string) {
	if c == nil || c.messages == nil {
		return
	}
	c.messages.WithLabelValues(normalizeLabel(kind)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
