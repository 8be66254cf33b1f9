package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "job_transitions_total",
		Help: "The total number of attempted job lifecycle transitions",
	}, []string{"transition", "outcome"}) // outcome: ok, rejected, error

	LedgerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_requests_total",
		Help: "The total number of escrow ledger calls",
	}, []string{"op", "outcome"}) // op: hold, release, void

	HubSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hub_sessions",
		Help: "The number of currently connected notification sessions",
	})

	HubBroadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hub_broadcasts_total",
		Help: "The total number of events fanned out to sessions",
	}, []string{"event"})

	ReconcileIntents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_intents_total",
		Help: "The total number of escrow reconciliation intents processed",
	}, []string{"op", "outcome"}) // outcome: ok, requeued, dropped
)
