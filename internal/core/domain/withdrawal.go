package domain

import (
	"time"

	"github.com/google/uuid"
)

// WithdrawalStatus is the settlement state of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "PENDING"
	WithdrawalSettled  WithdrawalStatus = "SETTLED"
	WithdrawalRejected WithdrawalStatus = "REJECTED"
)

// Withdrawal is a request to move wallet funds to an external address.
// The wallet is debited when the request is created; out-of-band settlement
// either confirms it or an admin rejection refunds the amount.
type Withdrawal struct {
	ID                 uuid.UUID        `json:"id"`
	UserID             uuid.UUID        `json:"user_id"`
	Amount             int64            `json:"amount"`
	DestinationAddress string           `json:"destination_address"`
	Status             WithdrawalStatus `json:"status"`
	CreatedAt          time.Time        `json:"created_at"`
	SettledAt          *time.Time       `json:"settled_at,omitempty"`
}
