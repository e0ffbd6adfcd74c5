package service

import (
	"context"
	"fmt"
	"time"

	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/config"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/domain"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/ports"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EscrowServiceImpl implements ports.EscrowService: purchase, lifecycle
// transitions and the auto-finalize sweep. Every transition that moves funds
// is guarded by a compare-and-set on the escrow state, so a buyer confirming
// at the same moment the sweep fires releases the held amount exactly once.
type EscrowServiceImpl struct {
	orderRepo   ports.OrderRepository
	escrowRepo  ports.EscrowRepository
	disputeRepo ports.DisputeRepository
	walletSvc   ports.WalletService
	transactor  ports.DBTransactor
	policy      config.EscrowConfig
	log         zerolog.Logger
}

// NewEscrowService creates a new EscrowServiceImpl.
func NewEscrowService(
	orderRepo ports.OrderRepository,
	escrowRepo ports.EscrowRepository,
	disputeRepo ports.DisputeRepository,
	walletSvc ports.WalletService,
	transactor ports.DBTransactor,
	policy config.EscrowConfig,
	log zerolog.Logger,
) *EscrowServiceImpl {
	return &EscrowServiceImpl{
		orderRepo:   orderRepo,
		escrowRepo:  escrowRepo,
		disputeRepo: disputeRepo,
		walletSvc:   walletSvc,
		transactor:  transactor,
		policy:      policy,
		log:         log,
	}
}

// Purchase debits the buyer and creates the order with its escrow atomically.
// The buyer's wallet is charged only if the whole chain succeeds.
func (s *EscrowServiceImpl) Purchase(ctx context.Context, req ports.PurchaseRequest) (*ports.PurchaseResult, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if !req.Available {
		return nil, apperror.ErrProductUnavailable()
	}
	if req.BuyerID == req.VendorID {
		return nil, apperror.Validation("buyer and vendor must differ")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if _, err := s.walletSvc.DebitTx(ctx, dbTx, req.BuyerID, req.Amount, domain.EntryPurchaseDebit); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:            uuid.New(),
		BuyerID:       req.BuyerID,
		VendorID:      req.VendorID,
		ProductID:     req.ProductID,
		Amount:        req.Amount,
		PaymentStatus: domain.PaymentPaid,
		EscrowStatus:  domain.EscrowActive,
		CreatedAt:     now,
	}
	if err := s.orderRepo.Create(ctx, dbTx, order); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create order: %w", err))
	}

	escrow := &domain.Escrow{
		ID:        uuid.New(),
		OrderID:   order.ID,
		BuyerID:   req.BuyerID,
		VendorID:  req.VendorID,
		Amount:    req.Amount,
		State:     domain.EscrowActive,
		Deadline:  now.Add(s.policy.HoldWindow),
		CreatedAt: now,
	}
	if err := s.escrowRepo.Create(ctx, dbTx, escrow); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create escrow: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("order_id", order.ID.String()).
		Str("escrow_id", escrow.ID.String()).
		Int64("amount", req.Amount).
		Time("deadline", escrow.Deadline).
		Msg("purchase completed, funds held in escrow")

	return &ports.PurchaseResult{OrderID: order.ID, EscrowID: escrow.ID}, nil
}

// Extend pushes the auto-finalize deadline out by one increment, up to the
// extension cap. Only the buyer of an active escrow may extend.
func (s *EscrowServiceImpl) Extend(ctx context.Context, orderID, buyerID uuid.UUID) (time.Time, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return time.Time{}, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	escrow, err := s.escrowRepo.GetByOrderIDForUpdate(ctx, dbTx, orderID)
	if err != nil {
		return time.Time{}, apperror.InternalError(fmt.Errorf("lock escrow: %w", err))
	}
	if escrow == nil {
		return time.Time{}, apperror.ErrNotFound("order")
	}
	if escrow.BuyerID != buyerID {
		return time.Time{}, apperror.ErrNotOwner()
	}
	if escrow.State != domain.EscrowActive {
		return time.Time{}, apperror.ErrInvalidState(string(escrow.State))
	}
	if escrow.Extensions >= s.policy.MaxExtensions {
		return time.Time{}, apperror.ErrLimitExceeded()
	}

	newDeadline := escrow.Deadline.Add(s.policy.ExtensionIncrement)
	if err := s.escrowRepo.UpdateExtension(ctx, dbTx, escrow.ID, newDeadline, escrow.Extensions+1); err != nil {
		return time.Time{}, apperror.InternalError(fmt.Errorf("update extension: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return time.Time{}, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("escrow_id", escrow.ID.String()).
		Int("extensions", escrow.Extensions+1).
		Time("deadline", newDeadline).
		Msg("escrow deadline extended")

	return newDeadline, nil
}

// ConfirmReceipt finalizes the escrow on the buyer's explicit confirmation
// and releases the held amount to the vendor.
func (s *EscrowServiceImpl) ConfirmReceipt(ctx context.Context, orderID, buyerID uuid.UUID) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	escrow, err := s.escrowRepo.GetByOrderIDForUpdate(ctx, dbTx, orderID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock escrow: %w", err))
	}
	if escrow == nil {
		return apperror.ErrNotFound("order")
	}
	if escrow.BuyerID != buyerID {
		return apperror.ErrNotOwner()
	}
	if escrow.State != domain.EscrowActive {
		return apperror.ErrInvalidState(string(escrow.State))
	}

	now := time.Now().UTC()
	won, err := s.escrowRepo.CompareAndSetState(ctx, dbTx, escrow.ID, domain.EscrowActive, domain.EscrowFinalized, &now)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("finalize escrow: %w", err))
	}
	if !won {
		return apperror.ErrStorageConflict()
	}

	if _, err := s.walletSvc.CreditTx(ctx, dbTx, escrow.VendorID, escrow.Amount, domain.EntryEscrowCredit, nil); err != nil {
		return err
	}
	if err := s.orderRepo.UpdateStatus(ctx, dbTx, orderID, domain.PaymentPaid, domain.EscrowFinalized); err != nil {
		return apperror.InternalError(fmt.Errorf("update order: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	EscrowTransitions.WithLabelValues(string(domain.EscrowFinalized)).Inc()
	s.log.Info().
		Str("escrow_id", escrow.ID.String()).
		Str("vendor_id", escrow.VendorID.String()).
		Int64("amount", escrow.Amount).
		Msg("escrow finalized by buyer confirmation")

	return nil
}

// OpenDispute freezes an active escrow. The deadline stops mattering: a
// DISPUTED escrow never matches the sweep and only a mediator can move it.
func (s *EscrowServiceImpl) OpenDispute(ctx context.Context, orderID, callerID uuid.UUID, reason string) (uuid.UUID, error) {
	if reason == "" {
		return uuid.Nil, apperror.Validation("dispute reason is required")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return uuid.Nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	escrow, err := s.escrowRepo.GetByOrderIDForUpdate(ctx, dbTx, orderID)
	if err != nil {
		return uuid.Nil, apperror.InternalError(fmt.Errorf("lock escrow: %w", err))
	}
	if escrow == nil {
		return uuid.Nil, apperror.ErrNotFound("order")
	}
	if callerID != escrow.BuyerID && callerID != escrow.VendorID {
		return uuid.Nil, apperror.ErrNotAuthorized()
	}
	if escrow.State == domain.EscrowDisputed {
		return uuid.Nil, apperror.ErrAlreadyDisputed()
	}
	if escrow.State != domain.EscrowActive {
		return uuid.Nil, apperror.ErrInvalidState(string(escrow.State))
	}

	won, err := s.escrowRepo.CompareAndSetState(ctx, dbTx, escrow.ID, domain.EscrowActive, domain.EscrowDisputed, nil)
	if err != nil {
		return uuid.Nil, apperror.InternalError(fmt.Errorf("dispute escrow: %w", err))
	}
	if !won {
		return uuid.Nil, apperror.ErrStorageConflict()
	}

	dispute := &domain.Dispute{
		ID:        uuid.New(),
		EscrowID:  escrow.ID,
		OrderID:   orderID,
		OpenerID:  callerID,
		Reason:    reason,
		State:     domain.DisputeOpen,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.disputeRepo.Create(ctx, dbTx, dispute); err != nil {
		return uuid.Nil, apperror.InternalError(fmt.Errorf("create dispute: %w", err))
	}
	if err := s.orderRepo.UpdateStatus(ctx, dbTx, orderID, domain.PaymentPaid, domain.EscrowDisputed); err != nil {
		return uuid.Nil, apperror.InternalError(fmt.Errorf("update order: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return uuid.Nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	EscrowTransitions.WithLabelValues(string(domain.EscrowDisputed)).Inc()
	s.log.Info().
		Str("dispute_id", dispute.ID.String()).
		Str("escrow_id", escrow.ID.String()).
		Str("opener_id", callerID.String()).
		Msg("dispute opened, escrow frozen")

	return dispute.ID, nil
}

// SweepOnce finalizes overdue active escrows in one batch. Each escrow is
// processed in its own transaction; one failure does not abort the batch.
// The compare-and-set makes the sweep safe from any number of workers.
func (s *EscrowServiceImpl) SweepOnce(ctx context.Context) (int, error) {
	overdue, err := s.escrowRepo.ListOverdueActive(ctx, time.Now().UTC(), s.policy.SweepBatchSize)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("list overdue escrows: %w", err))
	}

	finalized := 0
	for i := range overdue {
		e := &overdue[i]
		ok, err := s.finalizeOverdue(ctx, e)
		if err != nil {
			s.log.Error().Err(err).
				Str("escrow_id", e.ID.String()).
				Msg("sweep failed to finalize escrow")
			continue
		}
		if ok {
			finalized++
		}
	}

	if finalized > 0 {
		s.log.Info().Int("finalized", finalized).Msg("escrow sweep completed")
	}
	return finalized, nil
}

// finalizeOverdue auto-finalizes one escrow. Returns false without error when
// another actor already moved the escrow out of ACTIVE.
func (s *EscrowServiceImpl) finalizeOverdue(ctx context.Context, escrow *domain.Escrow) (bool, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	won, err := s.escrowRepo.CompareAndSetState(ctx, dbTx, escrow.ID, domain.EscrowActive, domain.EscrowFinalized, &now)
	if err != nil {
		return false, fmt.Errorf("finalize escrow: %w", err)
	}
	if !won {
		// Lost to a concurrent confirm, dispute or another sweep worker.
		return false, nil
	}

	if _, err := s.walletSvc.CreditTx(ctx, dbTx, escrow.VendorID, escrow.Amount, domain.EntryEscrowCredit, nil); err != nil {
		return false, fmt.Errorf("credit vendor: %w", err)
	}
	if err := s.orderRepo.UpdateStatus(ctx, dbTx, escrow.OrderID, domain.PaymentPaid, domain.EscrowFinalized); err != nil {
		return false, fmt.Errorf("update order: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	EscrowTransitions.WithLabelValues(string(domain.EscrowFinalized)).Inc()
	return true, nil
}
