package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ImportsTotal counts reconciliation runs by outcome.
	ImportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supply_map_imports_total",
		Help: "Reconciliation import runs, by outcome.",
	}, []string{"outcome"})

	// ImportRowsTotal counts receipt ledger writes produced by imports.
	ImportRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supply_map_import_rows_total",
		Help: "Receipt ledger rows written by imports, by kind.",
	}, []string{"kind"})

	// AllocationsTotal counts allocation attempts by outcome.
	AllocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supply_map_allocations_total",
		Help: "Allocation attempts, by outcome.",
	}, []string{"outcome"})

	// LockTimeoutsTotal counts allocations that gave up waiting for the
	// receipt row lock. A climbing rate means heavy contention on one receipt.
	LockTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "supply_map_lock_timeouts_total",
		Help: "Allocations aborted by lock acquisition timeout.",
	})
)

const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeSkipped  = "skipped"

	RowKindCreated  = "created"
	RowKindUpdated  = "updated"
	RowKindRejected = "rejected"
)
