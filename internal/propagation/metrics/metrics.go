package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReportsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chainalert_propagation_reports_total",
		Help: "Total exposure reports propagated",
	})

	RecipientsNotified = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chainalert_propagation_recipients_notified_total",
		Help: "Total recipients who received a first notification for a report",
	})

	PathsMerged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chainalert_propagation_paths_merged_total",
		Help: "Converging paths merged into an existing notification",
	})

	BranchesAborted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chainalert_propagation_branches_aborted_total",
		Help: "BFS branches abandoned after exhausting edge-query retries",
	})

	DirectoryMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chainalert_propagation_directory_misses_total",
		Help: "Discovered graph IDs with no directory entry (skipped silently)",
	})

	HopDepth = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chainalert_propagation_hop_depth",
		Help:    "Hop depth at which recipients were first notified",
		Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	})

	StatusUpdatesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chainalert_propagation_status_updates_total",
		Help: "Notification entries rewritten by a test-status change",
	})
)
