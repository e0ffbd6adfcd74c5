package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a user's internal balance in the minimum currency unit.
// The balance is only ever mutated together with an appended ledger entry,
// so it always equals the signed sum of the wallet's transaction log.
type Wallet struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Balance   int64     `json:"balance"` // cents, never negative
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntryKind is the closed set of ledger entry kinds.
type EntryKind string

const (
	EntryDeposit         EntryKind = "DEPOSIT"
	EntryWithdrawal      EntryKind = "WITHDRAWAL"
	EntryPurchaseDebit   EntryKind = "PURCHASE_DEBIT"
	EntryEscrowCredit    EntryKind = "ESCROW_CREDIT"
	EntryEscrowRefund    EntryKind = "ESCROW_REFUND"
	EntryAdminAdjustment EntryKind = "ADMIN_ADJUSTMENT"
)

// WalletTransaction is one immutable, append-only ledger entry.
// Amount is signed: credits positive, debits negative. BalanceAfter is the
// wallet balance snapshot taken at the moment the entry was written.
type WalletTransaction struct {
	ID           uuid.UUID `json:"id"`
	WalletID     uuid.UUID `json:"wallet_id"`
	Kind         EntryKind `json:"kind"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balance_after"`
	ExternalRef  *string   `json:"external_ref,omitempty"` // on-chain tx hash for deposits
	CreatedAt    time.Time `json:"created_at"`
}

// IsCredit reports whether the entry increased the balance.
func (t *WalletTransaction) IsCredit() bool {
	return t.Amount > 0
}
