/*
metrics.go - Prometheus instrumentation for the promo façade

Counters only; the interesting signals are debit outcomes and
authorization denials. Exposed on /metrics outside the auth wall.
*/
package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// consumeAttempts tracks debit outcomes: ok, insufficient, error.
	consumeAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promo",
		Name:      "consume_attempts_total",
		Help:      "Point consumption attempts by outcome.",
	}, []string{"outcome"})

	// authDenials counts 403s across all promo operations.
	authDenials = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "promo",
		Name:      "authorization_denials_total",
		Help:      "Requests rejected by the authorization policy.",
	})
)
