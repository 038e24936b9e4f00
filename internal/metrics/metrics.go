// Package metrics holds the Prometheus collectors shared by the board's engines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DebatesCreated counts created debates
	DebatesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "debateboard_debates_created_total",
		Help: "Total debates created",
	})

	// DebatesClosed counts close transitions by reason ("timed" or "manual")
	DebatesClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debateboard_debates_closed_total",
		Help: "Total debates closed by reason",
	}, []string{"reason"})

	// Votes counts vote attempts by outcome (accepted or the failure kind)
	Votes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debateboard_votes_total",
		Help: "Vote attempts by outcome",
	}, []string{"outcome"})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "debateboard_sweep_duration_seconds",
		Help:    "Auto-close sweep duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	SweepFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "debateboard_sweep_failures_total",
		Help: "Debates skipped by a sweep because closing them failed",
	})

	// Comments counts comment operations ("add", "reply", "delete")
	Comments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debateboard_comments_total",
		Help: "Comment operations by type",
	}, []string{"op"})

	PresenceOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "debateboard_presence_online",
		Help: "Chat identities currently online",
	})
)
