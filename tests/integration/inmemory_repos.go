package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory User Repo ---

type inMemoryUserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *inMemoryUserRepo) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return fmt.Errorf("username already exists")
		}
	}
	r.users[u.ID] = u
	return nil
}

func (r *inMemoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (r *inMemoryUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu       sync.Mutex
	wallets  map[uuid.UUID]*domain.Wallet // keyed by wallet ID
	rowLocks map[uuid.UUID]*sync.Mutex    // keyed by user ID, emulates FOR UPDATE
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{
		wallets:  make(map[uuid.UUID]*domain.Wallet),
		rowLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func (r *inMemoryWalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.wallets {
		if w.UserID == userID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

// GetOrCreateForUpdate takes the wallet's row lock for the duration of the
// transaction so concurrent check-then-write sequences serialize the way
// SELECT ... FOR UPDATE does in Postgres.
func (r *inMemoryWalletRepo) GetOrCreateForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	r.mu.Lock()
	rowMu, ok := r.rowLocks[userID]
	if !ok {
		rowMu = &sync.Mutex{}
		r.rowLocks[userID] = rowMu
	}
	r.mu.Unlock()

	if mt, ok := tx.(*memTx); ok {
		mt.lockRow(rowMu)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.wallets {
		if w.UserID == userID {
			cp := *w
			return &cp, nil
		}
	}
	now := time.Now()
	w := &domain.Wallet{ID: uuid.New(), UserID: userID, Balance: 0, CreatedAt: now, UpdatedAt: now}
	r.wallets[w.ID] = w
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.Balance = balance
	w.UpdatedAt = time.Now()
	return nil
}

// --- In-Memory Ledger Repo ---

type inMemoryLedgerRepo struct {
	mu      sync.Mutex
	entries []domain.WalletTransaction
}

func newInMemoryLedgerRepo() *inMemoryLedgerRepo {
	return &inMemoryLedgerRepo{}
}

func (r *inMemoryLedgerRepo) Append(ctx context.Context, tx pgx.Tx, entry *domain.WalletTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *inMemoryLedgerRepo) DepositExists(ctx context.Context, tx pgx.Tx, externalRef string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Kind == domain.EntryDeposit && e.ExternalRef != nil && *e.ExternalRef == externalRef {
			return true, nil
		}
	}
	return false, nil
}

func (r *inMemoryLedgerRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.WalletTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.WalletTransaction
	for i := len(r.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if r.entries[i].WalletID == walletID {
			result = append(result, r.entries[i])
		}
	}
	return result, nil
}

func (r *inMemoryLedgerRepo) all() []domain.WalletTransaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.WalletTransaction, len(r.entries))
	copy(out, r.entries)
	return out
}

// --- In-Memory Order Repo ---

type inMemoryOrderRepo struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*domain.Order
}

func newInMemoryOrderRepo() *inMemoryOrderRepo {
	return &inMemoryOrderRepo{orders: make(map[uuid.UUID]*domain.Order)}
}

func (r *inMemoryOrderRepo) Create(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *inMemoryOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *inMemoryOrderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, payment domain.PaymentStatus, escrow domain.EscrowState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return fmt.Errorf("order not found")
	}
	o.PaymentStatus = payment
	o.EscrowStatus = escrow
	return nil
}

// --- In-Memory Escrow Repo ---

type inMemoryEscrowRepo struct {
	mu      sync.Mutex
	escrows map[uuid.UUID]*domain.Escrow
}

func newInMemoryEscrowRepo() *inMemoryEscrowRepo {
	return &inMemoryEscrowRepo{escrows: make(map[uuid.UUID]*domain.Escrow)}
}

func (r *inMemoryEscrowRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.Escrow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.escrows[e.ID] = &cp
	return nil
}

func (r *inMemoryEscrowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Escrow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.escrows[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r *inMemoryEscrowRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Escrow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findByOrderLocked(orderID), nil
}

func (r *inMemoryEscrowRepo) GetByOrderIDForUpdate(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*domain.Escrow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findByOrderLocked(orderID), nil
}

func (r *inMemoryEscrowRepo) findByOrderLocked(orderID uuid.UUID) *domain.Escrow {
	for _, e := range r.escrows {
		if e.OrderID == orderID {
			cp := *e
			return &cp
		}
	}
	return nil
}

func (r *inMemoryEscrowRepo) UpdateExtension(ctx context.Context, tx pgx.Tx, id uuid.UUID, deadline time.Time, extensions int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.escrows[id]
	if !ok {
		return fmt.Errorf("escrow not found")
	}
	e.Deadline = deadline
	e.Extensions = extensions
	return nil
}

func (r *inMemoryEscrowRepo) CompareAndSetState(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.EscrowState, resolvedAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.escrows[id]
	if !ok || e.State != from {
		return false, nil
	}
	e.State = to
	e.ResolvedAt = resolvedAt
	return true, nil
}

func (r *inMemoryEscrowRepo) ListOverdueActive(ctx context.Context, before time.Time, limit int) ([]domain.Escrow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Escrow
	for _, e := range r.escrows {
		if e.State == domain.EscrowActive && !e.Deadline.After(before) {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Deadline.Before(result[j].Deadline) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// --- In-Memory Dispute Repo ---

type inMemoryDisputeRepo struct {
	mu       sync.Mutex
	disputes map[uuid.UUID]*domain.Dispute
}

func newInMemoryDisputeRepo() *inMemoryDisputeRepo {
	return &inMemoryDisputeRepo{disputes: make(map[uuid.UUID]*domain.Dispute)}
}

func (r *inMemoryDisputeRepo) Create(ctx context.Context, tx pgx.Tx, d *domain.Dispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.disputes {
		if existing.EscrowID == d.EscrowID && existing.State == domain.DisputeOpen {
			return fmt.Errorf("open dispute already exists")
		}
	}
	cp := *d
	r.disputes[d.ID] = &cp
	return nil
}

func (r *inMemoryDisputeRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.disputes[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r *inMemoryDisputeRepo) GetOpenByEscrowID(ctx context.Context, escrowID uuid.UUID) (*domain.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.disputes {
		if d.EscrowID == escrowID && d.State == domain.DisputeOpen {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryDisputeRepo) Resolve(ctx context.Context, tx pgx.Tx, id uuid.UUID, outcome domain.DisputeOutcome, resolvedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.disputes[id]
	if !ok || d.State != domain.DisputeOpen {
		return fmt.Errorf("dispute not open")
	}
	d.State = domain.DisputeResolved
	d.Outcome = &outcome
	d.ResolvedAt = &resolvedAt
	return nil
}

// --- In-Memory Withdrawal Repo ---

type inMemoryWithdrawalRepo struct {
	mu          sync.Mutex
	withdrawals map[uuid.UUID]*domain.Withdrawal
}

func newInMemoryWithdrawalRepo() *inMemoryWithdrawalRepo {
	return &inMemoryWithdrawalRepo{withdrawals: make(map[uuid.UUID]*domain.Withdrawal)}
}

func (r *inMemoryWithdrawalRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Withdrawal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.withdrawals[w.ID] = &cp
	return nil
}

func (r *inMemoryWithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.withdrawals[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWithdrawalRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.WithdrawalStatus, settledAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.withdrawals[id]
	if !ok || w.Status != domain.WithdrawalPending {
		return fmt.Errorf("withdrawal not pending")
	}
	w.Status = status
	w.SettledAt = &settledAt
	return nil
}

// --- In-Memory Deposit Repo ---

type inMemoryDepositRepo struct {
	mu      sync.Mutex
	intents map[uuid.UUID]*domain.DepositIntent
}

func newInMemoryDepositRepo() *inMemoryDepositRepo {
	return &inMemoryDepositRepo{intents: make(map[uuid.UUID]*domain.DepositIntent)}
}

func (r *inMemoryDepositRepo) Create(ctx context.Context, intent *domain.DepositIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *intent
	r.intents[intent.ID] = &cp
	return nil
}

func (r *inMemoryDepositRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.DepositIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.intents[id]
	if !ok {
		return nil, nil
	}
	cp := *i
	return &cp, nil
}

func (r *inMemoryDepositRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.DepositIntent, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryDepositRepo) MarkConfirmed(ctx context.Context, tx pgx.Tx, id uuid.UUID, txHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.intents[id]
	if !ok || i.Status != domain.DepositPending {
		return fmt.Errorf("intent not pending")
	}
	i.Status = domain.DepositConfirmed
	i.TxHash = &txHash
	return nil
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return newMemTx(), nil
}

// memTx is the in-memory stand-in for a database transaction. It carries the
// row locks taken via GetOrCreateForUpdate and releases them on commit or
// rollback, so lock lifetime matches the real transactor.
type memTx struct {
	noopTx
	mu   sync.Mutex
	held map[*sync.Mutex]bool
	done bool
}

func newMemTx() *memTx {
	return &memTx{held: make(map[*sync.Mutex]bool)}
}

// lockRow blocks until the row lock is held. Re-locking a row this
// transaction already holds is a no-op, matching FOR UPDATE semantics.
func (t *memTx) lockRow(rowMu *sync.Mutex) {
	t.mu.Lock()
	if t.done || t.held[rowMu] {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	rowMu.Lock()

	t.mu.Lock()
	t.held[rowMu] = true
	t.mu.Unlock()
}

func (t *memTx) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	for rowMu := range t.held {
		rowMu.Unlock()
	}
	t.held = nil
}

func (t *memTx) Commit(ctx context.Context) error   { t.finish(); return nil }
func (t *memTx) Rollback(ctx context.Context) error { t.finish(); return nil }

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
