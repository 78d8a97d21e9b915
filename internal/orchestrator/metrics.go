package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aggregationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_aggregation_runs_total",
		Help: "Aggregation pipeline runs by outcome.",
	}, []string{"status"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sync_active_sessions",
		Help: "Currently active collection sessions.",
	})
)
