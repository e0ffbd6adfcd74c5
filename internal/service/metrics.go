package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// EscrowsAutoFinalized counts escrows released by the sweep.
	EscrowsAutoFinalized = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "phoenix",
		Subsystem: "escrow",
		Name:      "auto_finalized_total",
		Help:      "Total escrows auto-finalized by the deadline sweep.",
	})

	// EscrowTransitions counts escrow state transitions by target state.
	EscrowTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phoenix",
		Subsystem: "escrow",
		Name:      "transitions_total",
		Help:      "Total escrow state transitions by target state.",
	}, []string{"to"})

	// LedgerEntries counts appended ledger entries by kind.
	LedgerEntries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phoenix",
		Subsystem: "wallet",
		Name:      "ledger_entries_total",
		Help:      "Total wallet ledger entries appended by kind.",
	}, []string{"kind"})

	// OracleFailures counts failed oracle calls by operation.
	OracleFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phoenix",
		Subsystem: "oracle",
		Name:      "failures_total",
		Help:      "Total failed payment oracle calls by operation.",
	}, []string{"op"})
)

func init() {
	prometheus.MustRegister(
		EscrowsAutoFinalized,
		EscrowTransitions,
		LedgerEntries,
		OracleFailures,
	)
}
