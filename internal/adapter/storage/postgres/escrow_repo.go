package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EscrowRepo implements ports.EscrowRepository.
type EscrowRepo struct {
	pool Pool
}

// NewEscrowRepo creates a new EscrowRepo.
func NewEscrowRepo(pool Pool) *EscrowRepo {
	return &EscrowRepo{pool: pool}
}

const escrowColumns = `id, order_id, buyer_id, vendor_id, amount, state, deadline, extensions, created_at, resolved_at`

// Create inserts a new escrow within a database transaction.
func (r *EscrowRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.Escrow) error {
	query := `INSERT INTO escrows (id, order_id, buyer_id, vendor_id, amount, state, deadline, extensions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.OrderID, e.BuyerID, e.VendorID, e.Amount,
		e.State, e.Deadline, e.Extensions, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert escrow: %w", err)
	}
	return nil
}

// GetByID fetches an escrow by UUID.
func (r *EscrowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Escrow, error) {
	query := fmt.Sprintf(`SELECT %s FROM escrows WHERE id = $1`, escrowColumns)
	return r.scanEscrow(r.pool.QueryRow(ctx, query, id))
}

// GetByOrderID fetches an escrow by its order (non-locking read).
func (r *EscrowRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Escrow, error) {
	query := fmt.Sprintf(`SELECT %s FROM escrows WHERE order_id = $1`, escrowColumns)
	return r.scanEscrow(r.pool.QueryRow(ctx, query, orderID))
}

// GetByOrderIDForUpdate fetches an escrow by its order with pessimistic
// locking. MUST be called within a transaction.
func (r *EscrowRepo) GetByOrderIDForUpdate(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*domain.Escrow, error) {
	query := fmt.Sprintf(`SELECT %s FROM escrows WHERE order_id = $1 FOR UPDATE`, escrowColumns)
	return r.scanEscrow(tx.QueryRow(ctx, query, orderID))
}

// UpdateExtension persists a deadline extension within a database transaction.
func (r *EscrowRepo) UpdateExtension(ctx context.Context, tx pgx.Tx, id uuid.UUID, deadline time.Time, extensions int) error {
	query := `UPDATE escrows SET deadline = $1, extensions = $2 WHERE id = $3`

	tag, err := tx.Exec(ctx, query, deadline, extensions, id)
	if err != nil {
		return fmt.Errorf("update escrow extension: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("escrow not found: %s", id)
	}
	return nil
}

// CompareAndSetState transitions the escrow from -> to, guarded on the current
// state so concurrent actors (confirm vs sweep) cannot both win. Returns false
// when the row was no longer in `from`.
func (r *EscrowRepo) CompareAndSetState(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.EscrowState, resolvedAt *time.Time) (bool, error) {
	query := `UPDATE escrows SET state = $1, resolved_at = $2 WHERE id = $3 AND state = $4`

	tag, err := tx.Exec(ctx, query, to, resolvedAt, id, from)
	if err != nil {
		return false, fmt.Errorf("compare-and-set escrow state: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListOverdueActive returns ACTIVE escrows whose deadline has passed, oldest
// deadline first. DISPUTED escrows never match: their timers are frozen.
func (r *EscrowRepo) ListOverdueActive(ctx context.Context, before time.Time, limit int) ([]domain.Escrow, error) {
	query := fmt.Sprintf(`SELECT %s FROM escrows
		WHERE state = 'ACTIVE' AND deadline <= $1
		ORDER BY deadline ASC LIMIT $2`, escrowColumns)

	rows, err := r.pool.Query(ctx, query, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list overdue escrows: %w", err)
	}
	defer rows.Close()

	var escrows []domain.Escrow
	for rows.Next() {
		e := domain.Escrow{}
		err := rows.Scan(
			&e.ID, &e.OrderID, &e.BuyerID, &e.VendorID, &e.Amount,
			&e.State, &e.Deadline, &e.Extensions, &e.CreatedAt, &e.ResolvedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan escrow row: %w", err)
		}
		escrows = append(escrows, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate escrow rows: %w", err)
	}
	return escrows, nil
}

func (r *EscrowRepo) scanEscrow(row pgx.Row) (*domain.Escrow, error) {
	e := &domain.Escrow{}
	err := row.Scan(
		&e.ID, &e.OrderID, &e.BuyerID, &e.VendorID, &e.Amount,
		&e.State, &e.Deadline, &e.Extensions, &e.CreatedAt, &e.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan escrow: %w", err)
	}
	return e, nil
}
