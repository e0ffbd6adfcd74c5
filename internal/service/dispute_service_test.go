package service

import (
	"context"
	"testing"
	"time"

	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/domain"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/ports"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type disputeTestDeps struct {
	svc         *DisputeServiceImpl
	disputeRepo *mocks.MockDisputeRepository
	escrowRepo  *mocks.MockEscrowRepository
	orderRepo   *mocks.MockOrderRepository
	userRepo    *mocks.MockUserRepository
	walletSvc   *mocks.MockWalletService
	transactor  *mocks.MockDBTransactor
	ctrl        *gomock.Controller
}

func setupDisputeService(t *testing.T) *disputeTestDeps {
	ctrl := gomock.NewController(t)
	d := &disputeTestDeps{
		disputeRepo: mocks.NewMockDisputeRepository(ctrl),
		escrowRepo:  mocks.NewMockEscrowRepository(ctrl),
		orderRepo:   mocks.NewMockOrderRepository(ctrl),
		userRepo:    mocks.NewMockUserRepository(ctrl),
		walletSvc:   mocks.NewMockWalletService(ctrl),
		transactor:  mocks.NewMockDBTransactor(ctrl),
		ctrl:        ctrl,
	}
	d.svc = NewDisputeService(
		d.disputeRepo, d.escrowRepo, d.orderRepo, d.userRepo,
		d.walletSvc, d.transactor, zerolog.Nop(),
	)
	return d
}

type resolveFixture struct {
	mediatorID uuid.UUID
	dispute    *domain.Dispute
	escrow     *domain.Escrow
}

func (d *disputeTestDeps) expectResolveSetup(ctx context.Context, held int64) resolveFixture {
	mediatorID := uuid.New()
	escrow := &domain.Escrow{
		ID:       uuid.New(),
		OrderID:  uuid.New(),
		BuyerID:  uuid.New(),
		VendorID: uuid.New(),
		Amount:   held,
		State:    domain.EscrowDisputed,
	}
	dispute := &domain.Dispute{
		ID:       uuid.New(),
		EscrowID: escrow.ID,
		OrderID:  escrow.OrderID,
		OpenerID: escrow.BuyerID,
		Reason:   "item not as described",
		State:    domain.DisputeOpen,
	}

	d.userRepo.EXPECT().GetByID(ctx, mediatorID).
		Return(&domain.User{ID: mediatorID, Role: domain.RoleMediator}, nil)
	d.disputeRepo.EXPECT().GetByID(ctx, dispute.ID).Return(dispute, nil)
	d.escrowRepo.EXPECT().GetByID(ctx, escrow.ID).Return(escrow, nil)

	return resolveFixture{mediatorID: mediatorID, dispute: dispute, escrow: escrow}
}

func TestDisputeService_Resolve_Split(t *testing.T) {
	d := setupDisputeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	fx := d.expectResolveSetup(ctx, 10000)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.escrowRepo.EXPECT().
		CompareAndSetState(ctx, tx, fx.escrow.ID, domain.EscrowDisputed, domain.EscrowResolvedSplit, gomock.Any()).
		Return(true, nil)
	// 70/30 split: 7000 back to the buyer, 3000 to the vendor.
	d.walletSvc.EXPECT().
		CreditTx(ctx, tx, fx.escrow.BuyerID, int64(7000), domain.EntryEscrowRefund, nil).
		Return(int64(7000), nil)
	d.walletSvc.EXPECT().
		CreditTx(ctx, tx, fx.escrow.VendorID, int64(3000), domain.EntryEscrowCredit, nil).
		Return(int64(3000), nil)
	d.orderRepo.EXPECT().
		UpdateStatus(ctx, tx, fx.escrow.OrderID, domain.PaymentPaid, domain.EscrowResolvedSplit).
		Return(nil)
	d.disputeRepo.EXPECT().
		Resolve(ctx, tx, fx.dispute.ID, domain.OutcomeSplit, gomock.Any()).
		Return(nil)

	err := d.svc.Resolve(ctx, ports.ResolveRequest{
		DisputeID: fx.dispute.ID, MediatorID: fx.mediatorID,
		Outcome: domain.OutcomeSplit, BuyerBps: 7000,
	})
	assert.NoError(t, err)
}

func TestDisputeService_Resolve_FullRefund(t *testing.T) {
	d := setupDisputeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	fx := d.expectResolveSetup(ctx, 5000)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.escrowRepo.EXPECT().
		CompareAndSetState(ctx, tx, fx.escrow.ID, domain.EscrowDisputed, domain.EscrowResolvedBuyer, gomock.Any()).
		Return(true, nil)
	// Full refund: vendor gets nothing, so only one credit.
	d.walletSvc.EXPECT().
		CreditTx(ctx, tx, fx.escrow.BuyerID, int64(5000), domain.EntryEscrowRefund, nil).
		Return(int64(5000), nil)
	d.orderRepo.EXPECT().
		UpdateStatus(ctx, tx, fx.escrow.OrderID, domain.PaymentRefunded, domain.EscrowResolvedBuyer).
		Return(nil)
	d.disputeRepo.EXPECT().
		Resolve(ctx, tx, fx.dispute.ID, domain.OutcomeBuyer, gomock.Any()).
		Return(nil)

	err := d.svc.Resolve(ctx, ports.ResolveRequest{
		DisputeID: fx.dispute.ID, MediatorID: fx.mediatorID, Outcome: domain.OutcomeBuyer,
	})
	assert.NoError(t, err)
}

func TestDisputeService_Resolve_VendorWins(t *testing.T) {
	d := setupDisputeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	fx := d.expectResolveSetup(ctx, 5000)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.escrowRepo.EXPECT().
		CompareAndSetState(ctx, tx, fx.escrow.ID, domain.EscrowDisputed, domain.EscrowResolvedVendor, gomock.Any()).
		Return(true, nil)
	d.walletSvc.EXPECT().
		CreditTx(ctx, tx, fx.escrow.VendorID, int64(5000), domain.EntryEscrowCredit, nil).
		Return(int64(5000), nil)
	d.orderRepo.EXPECT().
		UpdateStatus(ctx, tx, fx.escrow.OrderID, domain.PaymentPaid, domain.EscrowResolvedVendor).
		Return(nil)
	d.disputeRepo.EXPECT().
		Resolve(ctx, tx, fx.dispute.ID, domain.OutcomeVendor, gomock.Any()).
		Return(nil)

	err := d.svc.Resolve(ctx, ports.ResolveRequest{
		DisputeID: fx.dispute.ID, MediatorID: fx.mediatorID, Outcome: domain.OutcomeVendor,
	})
	assert.NoError(t, err)
}

func TestDisputeService_Resolve_NotMediator(t *testing.T) {
	d := setupDisputeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	callerID := uuid.New()

	d.userRepo.EXPECT().GetByID(ctx, callerID).
		Return(&domain.User{ID: callerID, Role: domain.RoleBuyer}, nil)

	err := d.svc.Resolve(ctx, ports.ResolveRequest{
		DisputeID: uuid.New(), MediatorID: callerID, Outcome: domain.OutcomeBuyer,
	})
	require.Error(t, err)
	assert.Equal(t, "AUTH_003", appCode(t, err))
}

func TestDisputeService_Resolve_InvalidSplitRatio(t *testing.T) {
	d := setupDisputeService(t)
	defer d.ctrl.Finish()

	err := d.svc.Resolve(context.Background(), ports.ResolveRequest{
		DisputeID: uuid.New(), MediatorID: uuid.New(),
		Outcome: domain.OutcomeSplit, BuyerBps: 10001,
	})
	require.Error(t, err)
	assert.Equal(t, "WAL_003", appCode(t, err))
}

func TestDisputeService_Resolve_AlreadyResolved(t *testing.T) {
	d := setupDisputeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	mediatorID := uuid.New()
	disputeID := uuid.New()
	resolvedAt := time.Now().UTC()
	outcome := domain.OutcomeVendor

	d.userRepo.EXPECT().GetByID(ctx, mediatorID).
		Return(&domain.User{ID: mediatorID, Role: domain.RoleAdmin}, nil)
	d.disputeRepo.EXPECT().GetByID(ctx, disputeID).Return(&domain.Dispute{
		ID: disputeID, State: domain.DisputeResolved,
		Outcome: &outcome, ResolvedAt: &resolvedAt,
	}, nil)

	err := d.svc.Resolve(ctx, ports.ResolveRequest{
		DisputeID: disputeID, MediatorID: mediatorID, Outcome: domain.OutcomeBuyer,
	})
	require.Error(t, err)
	assert.Equal(t, "ESC_001", appCode(t, err))
}
