package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zp_events_received_total",
		Help: "Total inbound events, labelled by source and kind.",
	}, []string{"source", "kind"})

	EventsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zp_events_duplicate_total",
		Help: "Total inbound events rejected as duplicates.",
	})

	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zp_deliveries_total",
		Help: "Total downstream delivery outcomes, labelled by downstream and status.",
	}, []string{"downstream", "status"})

	DeliveryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zp_delivery_attempts_total",
		Help: "Total network attempts per downstream.",
	}, []string{"downstream"})

	CircuitOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zp_circuit_open",
		Help: "Whether the circuit breaker for an operation is currently open (0/1).",
	}, []string{"operation"})

	DeliveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "zp_delivery_duration_ms",
		Help:    "End-to-end per-event delivery latency in milliseconds.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 15000},
	})
)
