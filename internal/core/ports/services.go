package ports

import (
	"context"
	"time"

	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID uuid.UUID, role domain.Role) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
	Role   domain.Role
}

// --- Oracle boundary ---

// OracleAddress is a generated receiving address for one currency.
type OracleAddress struct {
	Address   string
	Currency  string
	AmountDue int64 // cents; 0 = open amount
}

// OracleTx is the oracle's view of an on-chain transaction.
type OracleTx struct {
	Valid  bool
	Amount int64 // cents, converted at the oracle's rate
}

// SpotPrice is one exchange-rate observation.
type SpotPrice struct {
	Rate int64     `json:"rate"` // cents per coin
	AsOf time.Time `json:"as_of"`
}

// PaymentOracle is the external crypto payment gateway boundary. All methods
// are read-only on this side; confirmation state lives in the ledger.
type PaymentOracle interface {
	GenerateAddress(ctx context.Context, currency string) (*OracleAddress, error)
	VerifyTransaction(ctx context.Context, txHash string) (*OracleTx, error)
	GetSpotPrice(ctx context.Context) (*SpotPrice, error)
	GetMinimumAmount(ctx context.Context) (int64, error)
}

// PriceCache stores the last good spot price as a degraded-mode fallback.
type PriceCache interface {
	Get(ctx context.Context) (*SpotPrice, error) // nil, nil on miss
	Set(ctx context.Context, price *SpotPrice, ttl time.Duration) error
}

// --- Service Ports (Business Logic) ---

// CreditRequest holds validated input for a wallet credit.
type CreditRequest struct {
	UserID      uuid.UUID
	Amount      int64
	Kind        domain.EntryKind
	ExternalRef *string // deposit idempotency key (on-chain tx hash)
}

// DebitRequest holds validated input for a wallet debit.
type DebitRequest struct {
	UserID uuid.UUID
	Amount int64
	Kind   domain.EntryKind
}

// WalletService owns all balance mutation rules.
type WalletService interface {
	Credit(ctx context.Context, req CreditRequest) (int64, error)
	Debit(ctx context.Context, req DebitRequest) (int64, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]domain.WalletTransaction, error)
	Withdraw(ctx context.Context, userID uuid.UUID, amount int64, destinationAddress string) (*domain.Withdrawal, error)
	SettleWithdrawal(ctx context.Context, withdrawalID uuid.UUID, approve bool) (*domain.Withdrawal, error)
	AdminAdjust(ctx context.Context, userID uuid.UUID, amount int64) (int64, error)

	// Tx-scoped primitives for callers that must move funds atomically with
	// their own state change (the escrow engine). Same rules, caller's tx.
	CreditTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, kind domain.EntryKind, externalRef *string) (int64, error)
	DebitTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, kind domain.EntryKind) (int64, error)
}

// PurchaseRequest holds validated input for a purchase.
type PurchaseRequest struct {
	BuyerID   uuid.UUID
	VendorID  uuid.UUID
	ProductID uuid.UUID
	Amount    int64
	Available bool // catalog collaborator's availability verdict
}

// PurchaseResult identifies the created order and its escrow.
type PurchaseResult struct {
	OrderID  uuid.UUID
	EscrowID uuid.UUID
}

// EscrowService is the escrow engine: purchase, lifecycle transitions and the
// auto-finalize sweep.
type EscrowService interface {
	Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error)
	Extend(ctx context.Context, orderID, buyerID uuid.UUID) (time.Time, error)
	ConfirmReceipt(ctx context.Context, orderID, buyerID uuid.UUID) error
	OpenDispute(ctx context.Context, orderID, callerID uuid.UUID, reason string) (uuid.UUID, error)
	// SweepOnce finalizes overdue active escrows. Safe at any frequency from
	// any number of workers; returns the number of escrows finalized.
	SweepOnce(ctx context.Context) (int, error)
}

// ResolveRequest holds validated input for a dispute resolution.
type ResolveRequest struct {
	DisputeID  uuid.UUID
	MediatorID uuid.UUID
	Outcome    domain.DisputeOutcome
	BuyerBps   int // buyer share in basis points, SPLIT outcome only
}

// DisputeService resolves disputes on behalf of an authorized mediator.
type DisputeService interface {
	Resolve(ctx context.Context, req ResolveRequest) error
}

// DepositService drives the crypto payment confirmation handshake.
type DepositService interface {
	CreateDeposit(ctx context.Context, userID uuid.UUID, currency string) (*domain.DepositIntent, error)
	// ConfirmPayment validates txHash against the intent and credits the
	// wallet. Returns false (not an error) on any validation failure.
	ConfirmPayment(ctx context.Context, intentID uuid.UUID, txHash string) (bool, error)
	VerifyPayment(ctx context.Context, txHash string) (bool, error)
	// SpotPrice returns the live rate, a cached stale rate, or the configured
	// fallback, in that order of preference.
	SpotPrice(ctx context.Context) (*SpotPrice, error)
}

// RegisterRequest holds input for account registration.
type RegisterRequest struct {
	Username string
	Password string
	Role     domain.Role
}

// AccountService is the thin account collaborator: it only exists to hand the
// core a verified identity.
type AccountService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}
