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

// DisputeRepo implements ports.DisputeRepository.
type DisputeRepo struct {
	pool Pool
}

// NewDisputeRepo creates a new DisputeRepo.
func NewDisputeRepo(pool Pool) *DisputeRepo {
	return &DisputeRepo{pool: pool}
}

const disputeColumns = `id, escrow_id, order_id, opener_id, reason, state, outcome, created_at, resolved_at`

// Create inserts a new dispute within a database transaction. A partial
// unique index on (escrow_id) WHERE state = 'OPEN' rejects a second open
// dispute for the same escrow at the storage layer.
func (r *DisputeRepo) Create(ctx context.Context, tx pgx.Tx, d *domain.Dispute) error {
	query := `INSERT INTO disputes (id, escrow_id, order_id, opener_id, reason, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		d.ID, d.EscrowID, d.OrderID, d.OpenerID, d.Reason, d.State, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dispute: %w", err)
	}
	return nil
}

// GetByID fetches a dispute by UUID.
func (r *DisputeRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Dispute, error) {
	query := fmt.Sprintf(`SELECT %s FROM disputes WHERE id = $1`, disputeColumns)
	return r.scanDispute(r.pool.QueryRow(ctx, query, id))
}

// GetOpenByEscrowID fetches the open dispute for an escrow, if any.
func (r *DisputeRepo) GetOpenByEscrowID(ctx context.Context, escrowID uuid.UUID) (*domain.Dispute, error) {
	query := fmt.Sprintf(`SELECT %s FROM disputes WHERE escrow_id = $1 AND state = 'OPEN'`, disputeColumns)
	return r.scanDispute(r.pool.QueryRow(ctx, query, escrowID))
}

// Resolve records the mediator's outcome within a database transaction.
func (r *DisputeRepo) Resolve(ctx context.Context, tx pgx.Tx, id uuid.UUID, outcome domain.DisputeOutcome, resolvedAt time.Time) error {
	query := `UPDATE disputes SET state = 'RESOLVED', outcome = $1, resolved_at = $2 WHERE id = $3 AND state = 'OPEN'`

	tag, err := tx.Exec(ctx, query, outcome, resolvedAt, id)
	if err != nil {
		return fmt.Errorf("resolve dispute: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("open dispute not found: %s", id)
	}
	return nil
}

func (r *DisputeRepo) scanDispute(row pgx.Row) (*domain.Dispute, error) {
	d := &domain.Dispute{}
	err := row.Scan(
		&d.ID, &d.EscrowID, &d.OrderID, &d.OpenerID, &d.Reason,
		&d.State, &d.Outcome, &d.CreatedAt, &d.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan dispute: %w", err)
	}
	return d, nil
}
