package ports

import (
	"context"
	"time"

	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepository defines persistence for the thin account records.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// WalletRepository defines persistence for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	// GetOrCreateForUpdate lazily creates the user's wallet with zero balance,
	// then returns it locked (SELECT ... FOR UPDATE). MUST run inside tx.
	GetOrCreateForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance int64) error
}

// LedgerRepository defines the append-only wallet transaction log.
type LedgerRepository interface {
	Append(ctx context.Context, tx pgx.Tx, entry *domain.WalletTransaction) error
	// DepositExists reports whether a deposit entry already carries externalRef.
	// Called under the wallet row lock so check-then-append is race-free.
	DepositExists(ctx context.Context, tx pgx.Tx, externalRef string) (bool, error)
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.WalletTransaction, error)
}

// OrderRepository defines persistence for orders.
type OrderRepository interface {
	Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// UpdateStatus refreshes the escrow status mirror (and payment status on refund).
	UpdateStatus(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, payment domain.PaymentStatus, escrow domain.EscrowState) error
}

// EscrowRepository defines persistence for escrow rows.
type EscrowRepository interface {
	Create(ctx context.Context, tx pgx.Tx, escrow *domain.Escrow) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Escrow, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Escrow, error)
	GetByOrderIDForUpdate(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*domain.Escrow, error)
	UpdateExtension(ctx context.Context, tx pgx.Tx, id uuid.UUID, deadline time.Time, extensions int) error
	// CompareAndSetState transitions id from -> to. Returns false when the row
	// was no longer in `from`: the caller lost the race and must not move funds.
	CompareAndSetState(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.EscrowState, resolvedAt *time.Time) (bool, error)
	// ListOverdueActive returns ACTIVE escrows whose deadline passed, oldest first.
	// Disputed escrows never appear: their timers are frozen.
	ListOverdueActive(ctx context.Context, before time.Time, limit int) ([]domain.Escrow, error)
}

// DisputeRepository defines persistence for dispute audit records.
type DisputeRepository interface {
	Create(ctx context.Context, tx pgx.Tx, d *domain.Dispute) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Dispute, error)
	GetOpenByEscrowID(ctx context.Context, escrowID uuid.UUID) (*domain.Dispute, error)
	Resolve(ctx context.Context, tx pgx.Tx, id uuid.UUID, outcome domain.DisputeOutcome, resolvedAt time.Time) error
}

// WithdrawalRepository defines persistence for withdrawal requests.
type WithdrawalRepository interface {
	Create(ctx context.Context, tx pgx.Tx, w *domain.Withdrawal) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.WithdrawalStatus, settledAt time.Time) error
}

// DepositRepository defines persistence for pending deposit intents.
type DepositRepository interface {
	Create(ctx context.Context, intent *domain.DepositIntent) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DepositIntent, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.DepositIntent, error)
	MarkConfirmed(ctx context.Context, tx pgx.Tx, id uuid.UUID, txHash string) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
