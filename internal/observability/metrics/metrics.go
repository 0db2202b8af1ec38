package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics captures webhook-exchange health signals.
type Metrics struct {
	deliveryAttempts *prometheus.CounterVec
	broadcasts       *prometheus.CounterVec
	inboundWebhooks  *prometheus.CounterVec
	payments         *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		deliveryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_delivery_attempts_total",
			Help: "Outbound delivery attempts by event and outcome.",
		}, []string{"event", "status"}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_broadcasts_total",
			Help: "Broadcast invocations by event.",
		}, []string{"event"}),
		inboundWebhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_inbound_total",
			Help: "Inbound webhook verifications by source and result.",
		}, []string{"source", "result"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment attempts by provider and status.",
		}, []string{"provider", "status"}),
	}

	if reg != nil {
		reg.MustRegister(m.deliveryAttempts, m.broadcasts, m.inboundWebhooks, m.payments)
	}
	return m
}

func (m *Metrics) RecordDeliveryAttempt(event, status string) {
	if m == nil {
		return
	}
	m.deliveryAttempts.WithLabelValues(event, status).Inc()
}

func (m *Metrics) RecordBroadcast(event string) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(event).Inc()
}

func (m *Metrics) RecordInbound(source, result string) {
	if m == nil {
		return
	}
	m.inboundWebhooks.WithLabelValues(source, result).Inc()
}

func (m *Metrics) RecordPayment(provider, status string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(provider, status).Inc()
}

var Module = fx.Module("observability.metrics",
	fx.Provide(func() prometheus.Registerer { return prometheus.DefaultRegisterer }),
	fx.Provide(New),
)
