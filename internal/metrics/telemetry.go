package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReadingsIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soil_readings_ingested_total",
		Help: "Readings received on the ingestion path by result",
	}, []string{"result"})

	IrrigationDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "irrigation_decisions_total",
		Help: "Irrigation decisions returned to devices",
	}, []string{"command"})

	TelemetryStoreSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "telemetry_store_readings",
		Help: "Readings currently retained in the in-memory ring",
	})

	TelemetryEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_store_evictions_total",
		Help: "Readings evicted from the ring on overflow",
	})

	ActuationPublishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "irrigation_actuation_publish_total",
		Help: "Actuation transition events published to NATS",
	}, []string{"result"})
)

var DependencyUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "dependency_up",
	Help: "1 when the last probe of a backing dependency succeeded",
}, []string{"dependency"})
