package service

import (
	"context"
	"fmt"
	"time"

	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/domain"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/ports"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/pkg/apperror"

	"github.com/rs/zerolog"
)

// DisputeServiceImpl implements ports.DisputeService. Resolution is the only
// path out of DISPUTED, and it is terminal: the held amount is paid out in
// full, split down to the cent, in the same transaction as the state change.
type DisputeServiceImpl struct {
	disputeRepo ports.DisputeRepository
	escrowRepo  ports.EscrowRepository
	orderRepo   ports.OrderRepository
	userRepo    ports.UserRepository
	walletSvc   ports.WalletService
	transactor  ports.DBTransactor
	log         zerolog.Logger
}

// NewDisputeService creates a new DisputeServiceImpl.
func NewDisputeService(
	disputeRepo ports.DisputeRepository,
	escrowRepo ports.EscrowRepository,
	orderRepo ports.OrderRepository,
	userRepo ports.UserRepository,
	walletSvc ports.WalletService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *DisputeServiceImpl {
	return &DisputeServiceImpl{
		disputeRepo: disputeRepo,
		escrowRepo:  escrowRepo,
		orderRepo:   orderRepo,
		userRepo:    userRepo,
		walletSvc:   walletSvc,
		transactor:  transactor,
		log:         log,
	}
}

// Resolve applies the mediator's outcome to an open dispute.
func (s *DisputeServiceImpl) Resolve(ctx context.Context, req ports.ResolveRequest) error {
	if req.Outcome == domain.OutcomeSplit && (req.BuyerBps < 0 || req.BuyerBps > 10000) {
		return apperror.Validation("buyer share must be between 0 and 10000 basis points")
	}

	mediator, err := s.userRepo.GetByID(ctx, req.MediatorID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get mediator: %w", err))
	}
	if mediator == nil || !mediator.CanMediate() {
		return apperror.ErrNotAuthorized()
	}

	dispute, err := s.disputeRepo.GetByID(ctx, req.DisputeID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get dispute: %w", err))
	}
	if dispute == nil {
		return apperror.ErrNotFound("dispute")
	}
	if dispute.State != domain.DisputeOpen {
		return apperror.ErrInvalidState("dispute already resolved")
	}

	escrow, err := s.escrowRepo.GetByID(ctx, dispute.EscrowID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get escrow: %w", err))
	}
	if escrow == nil {
		return apperror.ErrNotFound("escrow")
	}

	var target domain.EscrowState
	switch req.Outcome {
	case domain.OutcomeVendor:
		target = domain.EscrowResolvedVendor
	case domain.OutcomeBuyer:
		target = domain.EscrowResolvedBuyer
	case domain.OutcomeSplit:
		target = domain.EscrowResolvedSplit
	default:
		return apperror.Validation("unknown dispute outcome")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	won, err := s.escrowRepo.CompareAndSetState(ctx, dbTx, escrow.ID, domain.EscrowDisputed, target, &now)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("resolve escrow: %w", err))
	}
	if !won {
		return apperror.ErrStorageConflict()
	}

	buyerShare, vendorShare := resolutionShares(escrow.Amount, req.Outcome, req.BuyerBps)
	if buyerShare > 0 {
		if _, err := s.walletSvc.CreditTx(ctx, dbTx, escrow.BuyerID, buyerShare, domain.EntryEscrowRefund, nil); err != nil {
			return err
		}
	}
	if vendorShare > 0 {
		if _, err := s.walletSvc.CreditTx(ctx, dbTx, escrow.VendorID, vendorShare, domain.EntryEscrowCredit, nil); err != nil {
			return err
		}
	}

	payment := domain.PaymentPaid
	if req.Outcome == domain.OutcomeBuyer {
		payment = domain.PaymentRefunded
	}
	if err := s.orderRepo.UpdateStatus(ctx, dbTx, escrow.OrderID, payment, target); err != nil {
		return apperror.InternalError(fmt.Errorf("update order: %w", err))
	}
	if err := s.disputeRepo.Resolve(ctx, dbTx, dispute.ID, req.Outcome, now); err != nil {
		return apperror.InternalError(fmt.Errorf("resolve dispute: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	EscrowTransitions.WithLabelValues(string(target)).Inc()
	s.log.Info().
		Str("dispute_id", dispute.ID.String()).
		Str("escrow_id", escrow.ID.String()).
		Str("outcome", string(req.Outcome)).
		Int64("buyer_share", buyerShare).
		Int64("vendor_share", vendorShare).
		Msg("dispute resolved")

	return nil
}

// resolutionShares maps an outcome to the buyer/vendor payout of the held
// amount. The shares always sum exactly to the held amount.
func resolutionShares(held int64, outcome domain.DisputeOutcome, buyerBps int) (buyer, vendor int64) {
	switch outcome {
	case domain.OutcomeBuyer:
		return held, 0
	case domain.OutcomeVendor:
		return 0, held
	default:
		return domain.SplitAmounts(held, buyerBps)
	}
}
