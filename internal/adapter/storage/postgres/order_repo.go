package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrderRepo implements ports.OrderRepository.
type OrderRepo struct {
	pool Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(pool Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

// Create inserts a new order within a database transaction.
func (r *OrderRepo) Create(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	query := `INSERT INTO orders (id, buyer_id, vendor_id, product_id, amount, payment_status, escrow_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		o.ID, o.BuyerID, o.VendorID, o.ProductID, o.Amount,
		o.PaymentStatus, o.EscrowStatus, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID fetches an order by UUID.
func (r *OrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT id, buyer_id, vendor_id, product_id, amount, payment_status, escrow_status, created_at
		FROM orders WHERE id = $1`

	o := &domain.Order{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.BuyerID, &o.VendorID, &o.ProductID, &o.Amount,
		&o.PaymentStatus, &o.EscrowStatus, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	return o, nil
}

// UpdateStatus refreshes the order's payment and escrow status mirrors within
// a database transaction.
func (r *OrderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, payment domain.PaymentStatus, escrow domain.EscrowState) error {
	query := `UPDATE orders SET payment_status = $1, escrow_status = $2 WHERE id = $3`

	tag, err := tx.Exec(ctx, query, payment, escrow, orderID)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %s", orderID)
	}
	return nil
}
