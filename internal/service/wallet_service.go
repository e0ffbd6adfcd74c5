package service

import (
	"context"
	"fmt"
	"time"

	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/domain"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/ports"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// WalletServiceImpl implements ports.WalletService. All mutations lock the
// wallet row, write the new balance and append a ledger entry in one database
// transaction, so the balance always equals the signed sum of the ledger.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	wdRepo     ports.WithdrawalRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	wdRepo ports.WithdrawalRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		wdRepo:     wdRepo,
		transactor: transactor,
		log:        log,
	}
}

// Credit adds funds to the user's wallet in its own transaction.
func (s *WalletServiceImpl) Credit(ctx context.Context, req ports.CreditRequest) (int64, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	balance, err := s.CreditTx(ctx, dbTx, req.UserID, req.Amount, req.Kind, req.ExternalRef)
	if err != nil {
		return 0, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return 0, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return balance, nil
}

// Debit removes funds from the user's wallet in its own transaction.
func (s *WalletServiceImpl) Debit(ctx context.Context, req ports.DebitRequest) (int64, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	balance, err := s.DebitTx(ctx, dbTx, req.UserID, req.Amount, req.Kind)
	if err != nil {
		return 0, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return 0, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return balance, nil
}

// CreditTx applies a credit inside the caller's transaction. The deposit
// idempotency check runs under the wallet row lock: a retried confirmation
// with the same external reference returns the current balance unchanged.
func (s *WalletServiceImpl) CreditTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, kind domain.EntryKind, externalRef *string) (int64, error) {
	if amount <= 0 {
		return 0, apperror.ErrInvalidAmount()
	}

	wallet, err := s.walletRepo.GetOrCreateForUpdate(ctx, tx, userID)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}

	if kind == domain.EntryDeposit && externalRef != nil {
		exists, err := s.ledgerRepo.DepositExists(ctx, tx, *externalRef)
		if err != nil {
			return 0, apperror.InternalError(fmt.Errorf("check deposit ref: %w", err))
		}
		if exists {
			s.log.Info().
				Str("external_ref", *externalRef).
				Str("user_id", userID.String()).
				Msg("duplicate deposit reference, credit skipped")
			return wallet.Balance, nil
		}
	}

	newBalance := wallet.Balance + amount
	if err := s.applyEntry(ctx, tx, wallet.ID, kind, amount, newBalance, externalRef); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// DebitTx applies a debit inside the caller's transaction. Fails with
// insufficient funds before any write when the balance cannot cover it.
func (s *WalletServiceImpl) DebitTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, kind domain.EntryKind) (int64, error) {
	if amount <= 0 {
		return 0, apperror.ErrInvalidAmount()
	}

	wallet, err := s.walletRepo.GetOrCreateForUpdate(ctx, tx, userID)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}

	if wallet.Balance < amount {
		return 0, apperror.ErrInsufficientFunds()
	}

	newBalance := wallet.Balance - amount
	if err := s.applyEntry(ctx, tx, wallet.ID, kind, -amount, newBalance, nil); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// GetBalance returns the user's balance. A user with no wallet yet reads zero.
func (s *WalletServiceImpl) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return 0, nil
	}
	return wallet.Balance, nil
}

// ListTransactions returns the user's most recent ledger entries.
func (s *WalletServiceImpl) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]domain.WalletTransaction, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return []domain.WalletTransaction{}, nil
	}

	entries, err := s.ledgerRepo.ListByWallet(ctx, wallet.ID, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list ledger: %w", err))
	}
	return entries, nil
}

// Withdraw debits the wallet immediately and records a pending withdrawal
// request for out-of-band settlement.
func (s *WalletServiceImpl) Withdraw(ctx context.Context, userID uuid.UUID, amount int64, destinationAddress string) (*domain.Withdrawal, error) {
	if destinationAddress == "" {
		return nil, apperror.Validation("destination address is required")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if _, err := s.DebitTx(ctx, dbTx, userID, amount, domain.EntryWithdrawal); err != nil {
		return nil, err
	}

	wd := &domain.Withdrawal{
		ID:                 uuid.New(),
		UserID:             userID,
		Amount:             amount,
		DestinationAddress: destinationAddress,
		Status:             domain.WithdrawalPending,
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.wdRepo.Create(ctx, dbTx, wd); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create withdrawal: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("withdrawal_id", wd.ID.String()).
		Str("user_id", userID.String()).
		Int64("amount", amount).
		Msg("withdrawal requested")

	return wd, nil
}

// SettleWithdrawal marks a pending withdrawal as settled or rejected. A
// rejection refunds the held amount as an admin adjustment so the ledger
// shows both legs.
func (s *WalletServiceImpl) SettleWithdrawal(ctx context.Context, withdrawalID uuid.UUID, approve bool) (*domain.Withdrawal, error) {
	wd, err := s.wdRepo.GetByID(ctx, withdrawalID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get withdrawal: %w", err))
	}
	if wd == nil {
		return nil, apperror.ErrNotFound("withdrawal")
	}
	if wd.Status != domain.WithdrawalPending {
		return nil, apperror.ErrInvalidState(fmt.Sprintf("withdrawal is %s", wd.Status))
	}

	status := domain.WithdrawalSettled
	if !approve {
		status = domain.WithdrawalRejected
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	settledAt := time.Now().UTC()
	if err := s.wdRepo.UpdateStatus(ctx, dbTx, wd.ID, status, settledAt); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update withdrawal status: %w", err))
	}
	if !approve {
		if _, err := s.CreditTx(ctx, dbTx, wd.UserID, wd.Amount, domain.EntryAdminAdjustment, nil); err != nil {
			return nil, err
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	wd.Status = status
	wd.SettledAt = &settledAt

	s.log.Info().
		Str("withdrawal_id", wd.ID.String()).
		Str("status", string(status)).
		Msg("withdrawal settled")

	return wd, nil
}

// AdminAdjust applies a signed manual correction to the user's balance.
// The adjustment is a ledger entry like any other, so the audit trail holds.
func (s *WalletServiceImpl) AdminAdjust(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	if amount == 0 {
		return 0, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetOrCreateForUpdate(ctx, dbTx, userID)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}

	newBalance := wallet.Balance + amount
	if newBalance < 0 {
		return 0, apperror.ErrInsufficientFunds()
	}

	if err := s.applyEntry(ctx, dbTx, wallet.ID, domain.EntryAdminAdjustment, amount, newBalance, nil); err != nil {
		return 0, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return 0, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Warn().
		Str("user_id", userID.String()).
		Int64("amount", amount).
		Int64("balance", newBalance).
		Msg("admin balance adjustment applied")

	return newBalance, nil
}

// applyEntry writes the new balance and appends the matching ledger entry.
func (s *WalletServiceImpl) applyEntry(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, kind domain.EntryKind, amount, balanceAfter int64, externalRef *string) error {
	if err := s.walletRepo.UpdateBalance(ctx, tx, walletID, balanceAfter); err != nil {
		return apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	entry := &domain.WalletTransaction{
		ID:           uuid.New(),
		WalletID:     walletID,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		ExternalRef:  externalRef,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.ledgerRepo.Append(ctx, tx, entry); err != nil {
		return apperror.InternalError(fmt.Errorf("append ledger entry: %w", err))
	}
	LedgerEntries.WithLabelValues(string(kind)).Inc()
	return nil
}
