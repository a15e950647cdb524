// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hms",
		Name:      "transitions_total",
		Help:      "Lifecycle events applied to appointments, outcome records and line items.",
	}, []string{"event"})

	RejectedTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hms",
		Name:      "rejected_transitions_total",
		Help:      "Lifecycle operations refused because of ownership or state checks.",
	}, []string{"operation"})

	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hms",
		Name:      "login_attempts_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})
)
