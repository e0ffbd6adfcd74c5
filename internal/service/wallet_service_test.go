package service

import (
	"context"
	"testing"

	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/domain"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/ports"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/ports/mocks"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type walletTestDeps struct {
	svc        *WalletServiceImpl
	walletRepo *mocks.MockWalletRepository
	ledgerRepo *mocks.MockLedgerRepository
	wdRepo     *mocks.MockWithdrawalRepository
	transactor *mocks.MockDBTransactor
	ctrl       *gomock.Controller
}

func setupWalletService(t *testing.T) *walletTestDeps {
	ctrl := gomock.NewController(t)
	d := &walletTestDeps{
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		ledgerRepo: mocks.NewMockLedgerRepository(ctrl),
		wdRepo:     mocks.NewMockWithdrawalRepository(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewWalletService(d.walletRepo, d.ledgerRepo, d.wdRepo, d.transactor, zerolog.Nop())
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func appCode(t *testing.T, err error) string {
	t.Helper()
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok, "expected *apperror.AppError, got %T", err)
	return appErr.Code
}

func TestWalletService_Credit_Success(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	walletID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetOrCreateForUpdate(ctx, tx, userID).
		Return(&domain.Wallet{ID: walletID, UserID: userID, Balance: 1000}, nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, int64(6000)).Return(nil)
	d.ledgerRepo.EXPECT().Append(ctx, tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, e *domain.WalletTransaction) error {
			assert.Equal(t, domain.EntryDeposit, e.Kind)
			assert.Equal(t, int64(5000), e.Amount)
			assert.Equal(t, int64(6000), e.BalanceAfter)
			return nil
		})

	balance, err := d.svc.Credit(ctx, ports.CreditRequest{
		UserID: userID, Amount: 5000, Kind: domain.EntryDeposit,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6000), balance)
}

func TestWalletService_Credit_InvalidAmount(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.transactor.EXPECT().Begin(ctx).Return(&mockTx{}, nil)

	_, err := d.svc.Credit(ctx, ports.CreditRequest{
		UserID: uuid.New(), Amount: 0, Kind: domain.EntryDeposit,
	})
	require.Error(t, err)
	assert.Equal(t, "WAL_001", appCode(t, err))
}

func TestWalletService_Credit_DuplicateDepositRef(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}
	ref := "0xabc123"

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetOrCreateForUpdate(ctx, tx, userID).
		Return(&domain.Wallet{ID: uuid.New(), UserID: userID, Balance: 7000}, nil)
	d.ledgerRepo.EXPECT().DepositExists(ctx, tx, ref).Return(true, nil)
	// No UpdateBalance, no Append: the duplicate is a no-op.

	balance, err := d.svc.Credit(ctx, ports.CreditRequest{
		UserID: userID, Amount: 5000, Kind: domain.EntryDeposit, ExternalRef: &ref,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7000), balance)
}

func TestWalletService_Debit_InsufficientFunds(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetOrCreateForUpdate(ctx, tx, userID).
		Return(&domain.Wallet{ID: uuid.New(), UserID: userID, Balance: 4999}, nil)

	_, err := d.svc.Debit(ctx, ports.DebitRequest{
		UserID: userID, Amount: 5000, Kind: domain.EntryPurchaseDebit,
	})
	require.Error(t, err)
	assert.Equal(t, "WAL_002", appCode(t, err))
}

func TestWalletService_Debit_ExactBalance(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	walletID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetOrCreateForUpdate(ctx, tx, userID).
		Return(&domain.Wallet{ID: walletID, UserID: userID, Balance: 5000}, nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, int64(0)).Return(nil)
	d.ledgerRepo.EXPECT().Append(ctx, tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, e *domain.WalletTransaction) error {
			assert.Equal(t, int64(-5000), e.Amount)
			assert.Equal(t, int64(0), e.BalanceAfter)
			return nil
		})

	balance, err := d.svc.Debit(ctx, ports.DebitRequest{
		UserID: userID, Amount: 5000, Kind: domain.EntryPurchaseDebit,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestWalletService_GetBalance_NoWallet(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(nil, nil)

	balance, err := d.svc.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestWalletService_ListTransactions_ClampsLimit(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	walletID := uuid.New()

	tests := []struct {
		name      string
		requested int
		effective int
	}{
		{"zero falls back to default", 0, 50},
		{"negative falls back to default", -1, 50},
		{"cap passes through", 200, 200},
		{"over cap clamps to cap", 201, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d.walletRepo.EXPECT().GetByUserID(ctx, userID).
				Return(&domain.Wallet{ID: walletID, UserID: userID}, nil)
			d.ledgerRepo.EXPECT().ListByWallet(ctx, walletID, tt.effective).
				Return([]domain.WalletTransaction{}, nil)

			_, err := d.svc.ListTransactions(ctx, userID, tt.requested)
			require.NoError(t, err)
		})
	}
}

func TestWalletService_Withdraw_Success(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	walletID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetOrCreateForUpdate(ctx, tx, userID).
		Return(&domain.Wallet{ID: walletID, UserID: userID, Balance: 10000}, nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, int64(7000)).Return(nil)
	d.ledgerRepo.EXPECT().Append(ctx, tx, gomock.Any()).Return(nil)
	d.wdRepo.EXPECT().Create(ctx, tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, w *domain.Withdrawal) error {
			assert.Equal(t, domain.WithdrawalPending, w.Status)
			assert.Equal(t, int64(3000), w.Amount)
			return nil
		})

	wd, err := d.svc.Withdraw(ctx, userID, 3000, "4Adk4P8yt3rQ")
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalPending, wd.Status)
}

func TestWalletService_Withdraw_MissingAddress(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.Withdraw(context.Background(), uuid.New(), 3000, "")
	require.Error(t, err)
	assert.Equal(t, "WAL_003", appCode(t, err))
}

func TestWalletService_SettleWithdrawal_Approved(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	wdID := uuid.New()
	tx := &mockTx{}

	d.wdRepo.EXPECT().GetByID(ctx, wdID).
		Return(&domain.Withdrawal{ID: wdID, UserID: uuid.New(), Amount: 3000, Status: domain.WithdrawalPending}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.wdRepo.EXPECT().UpdateStatus(ctx, tx, wdID, domain.WithdrawalSettled, gomock.Any()).Return(nil)
	// No refund on approval.

	wd, err := d.svc.SettleWithdrawal(ctx, wdID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalSettled, wd.Status)
	require.NotNil(t, wd.SettledAt)
}

func TestWalletService_SettleWithdrawal_RejectionRefunds(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	wdID := uuid.New()
	userID := uuid.New()
	walletID := uuid.New()
	tx := &mockTx{}

	d.wdRepo.EXPECT().GetByID(ctx, wdID).
		Return(&domain.Withdrawal{ID: wdID, UserID: userID, Amount: 3000, Status: domain.WithdrawalPending}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.wdRepo.EXPECT().UpdateStatus(ctx, tx, wdID, domain.WithdrawalRejected, gomock.Any()).Return(nil)
	d.walletRepo.EXPECT().GetOrCreateForUpdate(ctx, tx, userID).
		Return(&domain.Wallet{ID: walletID, UserID: userID, Balance: 500}, nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, int64(3500)).Return(nil)
	d.ledgerRepo.EXPECT().Append(ctx, tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, e *domain.WalletTransaction) error {
			assert.Equal(t, domain.EntryAdminAdjustment, e.Kind)
			assert.Equal(t, int64(3000), e.Amount)
			return nil
		})

	wd, err := d.svc.SettleWithdrawal(ctx, wdID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalRejected, wd.Status)
}

func TestWalletService_SettleWithdrawal_NotPending(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	wdID := uuid.New()

	d.wdRepo.EXPECT().GetByID(ctx, wdID).
		Return(&domain.Withdrawal{ID: wdID, Status: domain.WithdrawalSettled}, nil)

	_, err := d.svc.SettleWithdrawal(ctx, wdID, true)
	require.Error(t, err)
	assert.Equal(t, "ESC_001", appCode(t, err))
}

func TestWalletService_SettleWithdrawal_NotFound(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	wdID := uuid.New()

	d.wdRepo.EXPECT().GetByID(ctx, wdID).Return(nil, nil)

	_, err := d.svc.SettleWithdrawal(ctx, wdID, true)
	require.Error(t, err)
	assert.Equal(t, "PAY_004", appCode(t, err))
}

func TestWalletService_AdminAdjust_CannotGoNegative(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetOrCreateForUpdate(ctx, tx, userID).
		Return(&domain.Wallet{ID: uuid.New(), UserID: userID, Balance: 100}, nil)

	_, err := d.svc.AdminAdjust(ctx, userID, -200)
	require.Error(t, err)
	assert.Equal(t, "WAL_002", appCode(t, err))
}
