package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RealtimeConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_connections_active",
		Help: "Identities currently registered in the connection registry",
	})

	// Low cardinality: kind is the outbound envelope type.
	RealtimeMessagesSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_messages_sent_total",
		Help: "Outbound real-time messages queued for delivery",
	}, []string{"kind"})

	RealtimeSendSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_send_skipped_total",
		Help: "Outbound messages skipped because the connection was not ready",
	}, []string{"kind"})

	RealtimeProtocolErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_protocol_errors_total",
		Help: "Inbound envelopes that could not be parsed",
	})
)
