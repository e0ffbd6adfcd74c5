package domain

import (
	"time"

	"github.com/google/uuid"
)

// EscrowState is the closed set of escrow lifecycle states.
type EscrowState string

const (
	EscrowActive         EscrowState = "ACTIVE"
	EscrowDisputed       EscrowState = "DISPUTED"
	EscrowFinalized      EscrowState = "FINALIZED"
	EscrowRefunded       EscrowState = "REFUNDED"
	EscrowResolvedVendor EscrowState = "RESOLVED_VENDOR"
	EscrowResolvedBuyer  EscrowState = "RESOLVED_BUYER"
	EscrowResolvedSplit  EscrowState = "RESOLVED_SPLIT"
)

// IsTerminal reports whether the state admits no further transitions.
func (s EscrowState) IsTerminal() bool {
	switch s {
	case EscrowFinalized, EscrowRefunded,
		EscrowResolvedVendor, EscrowResolvedBuyer, EscrowResolvedSplit:
		return true
	}
	return false
}

// Escrow holds funds attributed to one order from purchase until a terminal
// transition. The held amount is immutable after creation; only state,
// deadline and extension count change before finalization.
type Escrow struct {
	ID         uuid.UUID   `json:"id"`
	OrderID    uuid.UUID   `json:"order_id"`
	BuyerID    uuid.UUID   `json:"buyer_id"`
	VendorID   uuid.UUID   `json:"vendor_id"`
	Amount     int64       `json:"amount"`
	State      EscrowState `json:"state"`
	Deadline   time.Time   `json:"deadline"` // auto-finalize eligibility
	Extensions int         `json:"extensions"`
	CreatedAt  time.Time   `json:"created_at"`
	ResolvedAt *time.Time  `json:"resolved_at,omitempty"`
}

// CanTransition reports whether the state machine permits from -> to.
func CanTransition(from, to EscrowState) bool {
	switch from {
	case EscrowActive:
		return to == EscrowDisputed || to == EscrowFinalized || to == EscrowRefunded
	case EscrowDisputed:
		return to == EscrowResolvedVendor || to == EscrowResolvedBuyer || to == EscrowResolvedSplit
	}
	return false
}

// SplitAmounts divides a held amount between buyer and vendor for a
// RESOLVED_SPLIT outcome. buyerBps is the buyer's share in basis points
// (0..10000). The rounding remainder goes to the vendor so the two parts
// always sum exactly to the held amount.
func SplitAmounts(held int64, buyerBps int) (buyer, vendor int64) {
	buyer = held * int64(buyerBps) / 10000
	vendor = held - buyer
	return buyer, vendor
}
