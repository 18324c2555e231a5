// Package metrics exposes Prometheus instruments for the import pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the pipeline counters. A single instance is shared by the
// import service; registration happens against the supplied registerer so
// tests can use a private registry.
type Metrics struct {
	ImportsStarted     prometheus.Counter
	RowsParsed         prometheus.Counter
	RowsInvalid        prometheus.Counter
	InvoicesCommitted  prometheus.Counter
	InvoicesFailed     prometheus.Counter
	ManualMatchesSaved prometheus.Counter
}

// New creates and registers the pipeline metrics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ImportsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "ventas_imports_started_total",
			Help: "Number of import runs started.",
		}),
		RowsParsed: factory.NewCounter(prometheus.CounterOpts{
			Name: "ventas_import_rows_parsed_total",
			Help: "CSV rows parsed across all imports.",
		}),
		RowsInvalid: factory.NewCounter(prometheus.CounterOpts{
			Name: "ventas_import_rows_invalid_total",
			Help: "CSV rows rejected with validation errors.",
		}),
		InvoicesCommitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "ventas_invoices_committed_total",
			Help: "Invoices successfully persisted from imports.",
		}),
		InvoicesFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "ventas_invoices_failed_total",
			Help: "Invoices whose commit was rejected by the persistence layer.",
		}),
		ManualMatchesSaved: factory.NewCounter(prometheus.CounterOpts{
			Name: "ventas_manual_matches_saved_total",
			Help: "Manual catalog matches saved during imports.",
		}),
	}
}

// NewUnregistered returns metrics backed by a throwaway registry, for tests.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
