package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus tracks whether an order's funds have been captured.
type PaymentStatus string

const (
	PaymentPaid     PaymentStatus = "PAID"     // wallet debit succeeded at purchase
	PaymentRefunded PaymentStatus = "REFUNDED" // escrow resolved back to the buyer
)

// Order represents one purchase. The EscrowStatus column mirrors the escrow
// row's state for fast listing reads; only the escrow engine updates it.
type Order struct {
	ID            uuid.UUID     `json:"id"`
	BuyerID       uuid.UUID     `json:"buyer_id"`
	VendorID      uuid.UUID     `json:"vendor_id"`
	ProductID     uuid.UUID     `json:"product_id"`
	Amount        int64         `json:"amount"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	EscrowStatus  EscrowState   `json:"escrow_status"`
	CreatedAt     time.Time     `json:"created_at"`
}
