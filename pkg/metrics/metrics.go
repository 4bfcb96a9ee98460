package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Package-level collectors registered through promauto, so importing this
// package is enough to expose them on the default registry.

var (
	// ReleasedTotal counts owned allocations recycled during workspace
	// teardown, labeled by the component they belonged to
	// (cluster_nodes, category_slots, matrix_rows, point_vectors).
	ReleasedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anticlust_released_total",
			Help: "Total owned allocations recycled during workspace teardown",
		},
		[]string{"component"},
	)

	// ActiveWorkspaces tracks how many workspaces are currently open.
	ActiveWorkspaces = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "anticlust_active_workspaces",
			Help: "Number of currently open clustering workspaces",
		},
	)

	// ReleaseDuration measures the wall time of a full workspace teardown.
	ReleaseDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "anticlust_release_duration_seconds",
			Help:    "Duration of full workspace teardowns in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	// ContractViolations counts failed release attempts, labeled by the
	// component that rejected the operation.
	ContractViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anticlust_contract_violations_total",
			Help: "Release operations rejected due to precondition violations",
		},
		[]string{"component"},
	)
)
