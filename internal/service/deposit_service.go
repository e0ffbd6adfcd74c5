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

// DepositServiceImpl implements ports.DepositService: the handshake between
// the wallet and the external crypto payment oracle. The oracle answers
// questions about on-chain facts; all confirmation state lives here.
type DepositServiceImpl struct {
	depositRepo ports.DepositRepository
	walletSvc   ports.WalletService
	oracle      ports.PaymentOracle
	priceCache  ports.PriceCache
	transactor  ports.DBTransactor
	cfg         config.OracleConfig
	log         zerolog.Logger
}

// NewDepositService creates a new DepositServiceImpl.
func NewDepositService(
	depositRepo ports.DepositRepository,
	walletSvc ports.WalletService,
	oracle ports.PaymentOracle,
	priceCache ports.PriceCache,
	transactor ports.DBTransactor,
	cfg config.OracleConfig,
	log zerolog.Logger,
) *DepositServiceImpl {
	return &DepositServiceImpl{
		depositRepo: depositRepo,
		walletSvc:   walletSvc,
		oracle:      oracle,
		priceCache:  priceCache,
		transactor:  transactor,
		cfg:         cfg,
		log:         log,
	}
}

// CreateDeposit asks the oracle for a receiving address and records a pending
// intent the user can later confirm with a transaction hash.
func (s *DepositServiceImpl) CreateDeposit(ctx context.Context, userID uuid.UUID, currency string) (*domain.DepositIntent, error) {
	if currency == "" {
		return nil, apperror.Validation("currency is required")
	}

	addr, err := s.oracle.GenerateAddress(ctx, currency)
	if err != nil {
		OracleFailures.WithLabelValues("generate_address").Inc()
		return nil, apperror.ErrOracleUnavailable(err)
	}

	intent := &domain.DepositIntent{
		ID:        uuid.New(),
		UserID:    userID,
		Currency:  addr.Currency,
		Address:   addr.Address,
		AmountDue: addr.AmountDue,
		Status:    domain.DepositPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.depositRepo.Create(ctx, intent); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create deposit intent: %w", err))
	}

	s.log.Info().
		Str("intent_id", intent.ID.String()).
		Str("user_id", userID.String()).
		Str("currency", intent.Currency).
		Msg("deposit intent created")

	return intent, nil
}

// ConfirmPayment validates txHash with the oracle and credits the wallet.
// Returns false, nil on any validation failure: a bad hash is a normal
// outcome, not a server error. Re-confirming the same hash is a no-op thanks
// to the ledger's deposit reference check.
func (s *DepositServiceImpl) ConfirmPayment(ctx context.Context, intentID uuid.UUID, txHash string) (bool, error) {
	if txHash == "" {
		return false, nil
	}

	oracleTx, err := s.oracle.VerifyTransaction(ctx, txHash)
	if err != nil {
		OracleFailures.WithLabelValues("verify_transaction").Inc()
		return false, apperror.ErrOracleUnavailable(err)
	}
	if !oracleTx.Valid || oracleTx.Amount <= 0 {
		return false, nil
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	intent, err := s.depositRepo.GetByIDForUpdate(ctx, dbTx, intentID)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("lock deposit intent: %w", err))
	}
	if intent == nil {
		return false, apperror.ErrNotFound("deposit")
	}
	if intent.Status != domain.DepositPending {
		// Already confirmed; the earlier confirmation won.
		return false, nil
	}
	if intent.AmountDue > 0 && oracleTx.Amount < intent.AmountDue {
		return false, nil
	}
	if intent.AmountDue == 0 {
		// Open-amount intent: enforce the oracle's network minimum so dust
		// payments never hit the ledger. Without the minimum we cannot tell
		// dust from a real payment, so an unreachable oracle is a hard stop.
		min, err := s.oracle.GetMinimumAmount(ctx)
		if err != nil {
			OracleFailures.WithLabelValues("get_minimum_amount").Inc()
			return false, apperror.ErrOracleUnavailable(err)
		}
		if oracleTx.Amount < min {
			return false, nil
		}
	}

	ref := txHash
	if _, err := s.walletSvc.CreditTx(ctx, dbTx, intent.UserID, oracleTx.Amount, domain.EntryDeposit, &ref); err != nil {
		return false, err
	}
	if err := s.depositRepo.MarkConfirmed(ctx, dbTx, intent.ID, txHash); err != nil {
		return false, apperror.InternalError(fmt.Errorf("confirm intent: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return false, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("intent_id", intent.ID.String()).
		Str("tx_hash", txHash).
		Int64("amount", oracleTx.Amount).
		Msg("deposit confirmed and credited")

	return true, nil
}

// VerifyPayment checks a transaction hash with the oracle without touching
// any wallet. Used for client-side polling before confirmation.
func (s *DepositServiceImpl) VerifyPayment(ctx context.Context, txHash string) (bool, error) {
	if txHash == "" {
		return false, nil
	}
	oracleTx, err := s.oracle.VerifyTransaction(ctx, txHash)
	if err != nil {
		OracleFailures.WithLabelValues("verify_transaction").Inc()
		return false, apperror.ErrOracleUnavailable(err)
	}
	return oracleTx.Valid, nil
}

// SpotPrice returns the live oracle rate, falling back to the cached last
// good rate and then the configured static rate when the oracle is down.
func (s *DepositServiceImpl) SpotPrice(ctx context.Context) (*ports.SpotPrice, error) {
	price, err := s.oracle.GetSpotPrice(ctx)
	if err == nil {
		if cacheErr := s.priceCache.Set(ctx, price, s.cfg.PriceTTL); cacheErr != nil {
			s.log.Warn().Err(cacheErr).Msg("failed to cache spot price")
		}
		return price, nil
	}

	OracleFailures.WithLabelValues("spot_price").Inc()
	s.log.Warn().Err(err).Msg("oracle spot price unavailable, degrading")

	cached, cacheErr := s.priceCache.Get(ctx)
	if cacheErr != nil {
		s.log.Warn().Err(cacheErr).Msg("spot price cache read failed")
	}
	if cached != nil {
		return cached, nil
	}

	if s.cfg.FallbackRate > 0 {
		return &ports.SpotPrice{Rate: s.cfg.FallbackRate, AsOf: time.Now().UTC()}, nil
	}
	return nil, apperror.ErrOracleUnavailable(err)
}
