package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisputeRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDisputeRepo(mock)
	d := &domain.Dispute{
		ID:        uuid.New(),
		EscrowID:  uuid.New(),
		OrderID:   uuid.New(),
		OpenerID:  uuid.New(),
		Reason:    "item never arrived",
		State:     domain.DisputeOpen,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO disputes").
		WithArgs(d.ID, d.EscrowID, d.OrderID, d.OpenerID, d.Reason, d.State, d.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, d)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDisputeRepo_GetOpenByEscrowID_None(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDisputeRepo(mock)
	escrowID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM disputes WHERE escrow_id").
		WithArgs(escrowID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "escrow_id", "order_id", "opener_id", "reason", "state", "outcome", "created_at", "resolved_at"}))

	result, err := repo.GetOpenByEscrowID(context.Background(), escrowID)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDisputeRepo_Resolve(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDisputeRepo(mock)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE disputes SET state").
		WithArgs(domain.OutcomeSplit, now, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Resolve(context.Background(), tx, id, domain.OutcomeSplit, now)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDisputeRepo_Resolve_AlreadyResolved(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDisputeRepo(mock)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE disputes SET state").
		WithArgs(domain.OutcomeBuyer, now, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Resolve(context.Background(), tx, id, domain.OutcomeBuyer, now)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
