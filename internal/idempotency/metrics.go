package idempotency

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeExecuted        = "executed"
	outcomeReplayed        = "replayed"
	outcomeConflict        = "conflict"
	outcomeInProgress      = "in_progress"
	outcomeFailed          = "failed"
	outcomeDegradedRead    = "degraded_read"
	outcomeDegradedWrite   = "degraded_write"
	outcomeDegradedReserve = "degraded_reserve"
)

var (
	guardRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "walletd_idempotency_requests_total",
		Help: "Idempotency guard decisions by operation and outcome.",
	}, []string{"operation", "outcome"})

	storeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "walletd_idempotency_store_seconds",
		Help:    "Latency of idempotency key store calls.",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"op"})
)
