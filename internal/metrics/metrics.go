package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClaimDuration tracks end-to-end claim attempt latency per outcome.
	ClaimDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deal_claim_duration_seconds",
			Help:    "Duration of claim attempts in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"outcome"}, // committed, sold_out, already_claimed, expired, not_found, error
	)

	// Compensations counts fast-path reservations rolled back after a
	// durable commit did not succeed.
	Compensations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deal_claim_compensations_total",
		Help: "Fast-path reservations released because the durable commit did not succeed",
	})

	// DiscoveryRequests counts discovery lookups by serving source.
	DiscoveryRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deal_discovery_requests_total",
			Help: "Discovery requests by serving source",
		},
		[]string{"source"}, // cache or store
	)
)

// RecordClaim records one finished claim attempt.
func RecordClaim(outcome string, seconds float64) {
	ClaimDuration.WithLabelValues(outcome).Observe(seconds)
}
