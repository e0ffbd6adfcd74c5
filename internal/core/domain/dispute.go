package domain

import (
	"time"

	"github.com/google/uuid"
)

// DisputeState is the dispute record lifecycle.
type DisputeState string

const (
	DisputeOpen     DisputeState = "OPEN"
	DisputeResolved DisputeState = "RESOLVED"
)

// DisputeOutcome is the mediator's terminal decision.
type DisputeOutcome string

const (
	OutcomeVendor DisputeOutcome = "VENDOR" // full held amount to the vendor
	OutcomeBuyer  DisputeOutcome = "BUYER"  // full refund to the buyer
	OutcomeSplit  DisputeOutcome = "SPLIT"  // proportional split per mediator ratio
)

// Dispute is the audit record for a dispute opened against an active escrow.
// The escrow row owns the fund-holding semantics; the dispute only references it.
// At most one open dispute may exist per escrow.
type Dispute struct {
	ID         uuid.UUID       `json:"id"`
	EscrowID   uuid.UUID       `json:"escrow_id"`
	OrderID    uuid.UUID       `json:"order_id"`
	OpenerID   uuid.UUID       `json:"opener_id"`
	Reason     string          `json:"reason"`
	State      DisputeState    `json:"state"`
	Outcome    *DisputeOutcome `json:"outcome,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
}
