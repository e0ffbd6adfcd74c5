package postgres

import (
	"context"
	"fmt"

	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository. The wallet_transactions table
// is append-only: no method here updates or deletes rows.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Append inserts a ledger entry within a database transaction.
func (r *LedgerRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.WalletTransaction) error {
	query := `INSERT INTO wallet_transactions (id, wallet_id, kind, amount, balance_after, external_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.WalletID, e.Kind, e.Amount, e.BalanceAfter, e.ExternalRef, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

// DepositExists checks whether a deposit entry already carries the external
// reference. Called under the wallet row lock so check-then-append is race-free.
func (r *LedgerRepo) DepositExists(ctx context.Context, tx pgx.Tx, externalRef string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM wallet_transactions WHERE external_ref = $1 AND kind = 'DEPOSIT')`

	var exists bool
	if err := tx.QueryRow(ctx, query, externalRef).Scan(&exists); err != nil {
		return false, fmt.Errorf("check deposit exists: %w", err)
	}
	return exists, nil
}

// ListByWallet fetches the most recent ledger entries for a wallet.
func (r *LedgerRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.WalletTransaction, error) {
	query := `SELECT id, wallet_id, kind, amount, balance_after, external_ref, created_at
		FROM wallet_transactions WHERE wallet_id = $1
		ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.WalletTransaction
	for rows.Next() {
		e := domain.WalletTransaction{}
		err := rows.Scan(&e.ID, &e.WalletID, &e.Kind, &e.Amount, &e.BalanceAfter, &e.ExternalRef, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return entries, nil
}
