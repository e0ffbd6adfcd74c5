package domain

import (
	"time"

	"github.com/google/uuid"
)

// DepositStatus is the crypto deposit handshake state.
type DepositStatus string

const (
	DepositPending   DepositStatus = "PENDING"
	DepositConfirmed DepositStatus = "CONFIRMED"
)

// DepositIntent is a pending payment expectation: the user has been handed a
// receiving address and is expected to submit a transaction hash. Confirmation
// is idempotent on the hash: a retried callback never credits twice.
type DepositIntent struct {
	ID        uuid.UUID     `json:"id"`
	UserID    uuid.UUID     `json:"user_id"`
	Currency  string        `json:"currency"`
	Address   string        `json:"address"`
	AmountDue int64         `json:"amount_due"` // cents; 0 = open amount
	Status    DepositStatus `json:"status"`
	TxHash    *string       `json:"tx_hash,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}
