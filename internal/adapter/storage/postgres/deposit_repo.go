package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DepositRepo implements ports.DepositRepository.
type DepositRepo struct {
	pool Pool
}

// NewDepositRepo creates a new DepositRepo.
func NewDepositRepo(pool Pool) *DepositRepo {
	return &DepositRepo{pool: pool}
}

const depositColumns = `id, user_id, currency, address, amount_due, status, tx_hash, created_at`

// Create inserts a new deposit intent.
func (r *DepositRepo) Create(ctx context.Context, d *domain.DepositIntent) error {
	query := `INSERT INTO deposit_intents (id, user_id, currency, address, amount_due, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		d.ID, d.UserID, d.Currency, d.Address, d.AmountDue, d.Status, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert deposit intent: %w", err)
	}
	return nil
}

// GetByID fetches a deposit intent by UUID.
func (r *DepositRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.DepositIntent, error) {
	query := fmt.Sprintf(`SELECT %s FROM deposit_intents WHERE id = $1`, depositColumns)
	return r.scanIntent(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches a deposit intent with pessimistic locking.
// MUST be called within a transaction.
func (r *DepositRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.DepositIntent, error) {
	query := fmt.Sprintf(`SELECT %s FROM deposit_intents WHERE id = $1 FOR UPDATE`, depositColumns)
	return r.scanIntent(tx.QueryRow(ctx, query, id))
}

// MarkConfirmed records the on-chain hash and flips the intent to CONFIRMED
// within a database transaction. Guarded on PENDING.
func (r *DepositRepo) MarkConfirmed(ctx context.Context, tx pgx.Tx, id uuid.UUID, txHash string) error {
	query := `UPDATE deposit_intents SET status = 'CONFIRMED', tx_hash = $1 WHERE id = $2 AND status = 'PENDING'`

	tag, err := tx.Exec(ctx, query, txHash, id)
	if err != nil {
		return fmt.Errorf("confirm deposit intent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pending deposit intent not found: %s", id)
	}
	return nil
}

func (r *DepositRepo) scanIntent(row pgx.Row) (*domain.DepositIntent, error) {
	d := &domain.DepositIntent{}
	err := row.Scan(
		&d.ID, &d.UserID, &d.Currency, &d.Address, &d.AmountDue,
		&d.Status, &d.TxHash, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan deposit intent: %w", err)
	}
	return d, nil
}
