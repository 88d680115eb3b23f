// Package metrics holds the router's Prometheus instrumentation
// (SPEC_FULL.md §4.K). None of it is consulted by any RIB invariant; it
// exists because the teacher's ambient stack always exposes Prometheus
// metrics for a message-driven processing loop.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asrouter_messages_total",
			Help: "Frames handled, by wire type and outcome.",
		},
		[]string{"type", "result"},
	)

	RIBEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "asrouter_rib_entries",
			Help: "Current number of entries in the forwarding table.",
		},
		[]string{},
	)

	AggregationMergesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "asrouter_aggregation_merges_total",
			Help: "Adjacent route merges performed by the aggregation engine.",
		},
	)

	ExportDropsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asrouter_export_drops_total",
			Help: "Re-advertisements withheld by export policy or transport failure.",
		},
		[]string{"reason"},
	)

	HistoryRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asrouter_history_records_total",
			Help: "Records appended to the history log, by kind.",
		},
		[]string{"kind"},
	)
)

var registerOnce sync.Once

// Register registers every metric with the default Prometheus registry.
// Called once at startup, mirroring the teacher's metrics.Register().
// Idempotent, so tests and repeated startup paths can call it freely.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			MessagesTotal,
			RIBEntries,
			AggregationMergesTotal,
			ExportDropsTotal,
			HistoryRecordsTotal,
		)
	})
}
