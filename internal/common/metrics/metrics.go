// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SyncCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_cycles_total",
			Help: "Total number of sync cycles by outcome",
		},
		[]string{"source", "outcome"},
	)

	SyncCyclesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_cycles_failed_total",
			Help: "Total number of failed sync cycles by error code",
		},
		[]string{"source", "error_code"},
	)

	RowsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_rows_delivered_total",
			Help: "Total number of new rows handed to a delivery sink",
		},
		[]string{"source", "sink"},
	)

	CycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "sync_cycle_duration_seconds",
			Help: "Duration of one sync cycle in seconds",
		},
		[]string{"source"},
	)

	CyclesActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_cycles_active",
			Help: "Number of cycles currently in flight per source",
		},
		[]string{"source"},
	)
)
