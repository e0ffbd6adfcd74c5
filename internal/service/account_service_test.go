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

type accountTestDeps struct {
	svc      *AccountServiceImpl
	userRepo *mocks.MockUserRepository
	hashSvc  *mocks.MockHashService
	tokenSvc *mocks.MockTokenService
	ctrl     *gomock.Controller
}

func setupAccountService(t *testing.T) *accountTestDeps {
	ctrl := gomock.NewController(t)
	d := &accountTestDeps{
		userRepo: mocks.NewMockUserRepository(ctrl),
		hashSvc:  mocks.NewMockHashService(ctrl),
		tokenSvc: mocks.NewMockTokenService(ctrl),
		ctrl:     ctrl,
	}
	d.svc = NewAccountService(d.userRepo, d.hashSvc, d.tokenSvc, zerolog.Nop())
	return d
}

func TestAccountService_Register_Success(t *testing.T) {
	d := setupAccountService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.userRepo.EXPECT().GetByUsername(ctx, "alice").Return(nil, nil)
	d.hashSvc.EXPECT().Hash("hunter22").Return("$argon2id$...", nil)
	d.userRepo.EXPECT().Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, u *domain.User) error {
			assert.Equal(t, "alice", u.Username)
			assert.Equal(t, domain.RoleBuyer, u.Role)
			return nil
		})

	user, err := d.svc.Register(ctx, ports.RegisterRequest{
		Username: "alice", Password: "hunter22",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleBuyer, user.Role)
}

func TestAccountService_Register_UsernameTaken(t *testing.T) {
	d := setupAccountService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.userRepo.EXPECT().GetByUsername(ctx, "alice").
		Return(&domain.User{ID: uuid.New(), Username: "alice"}, nil)

	_, err := d.svc.Register(ctx, ports.RegisterRequest{
		Username: "alice", Password: "hunter22",
	})
	require.Error(t, err)
	assert.Equal(t, "WAL_003", appCode(t, err))
}

func TestAccountService_Register_PrivilegedRoleRejected(t *testing.T) {
	d := setupAccountService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.userRepo.EXPECT().GetByUsername(ctx, "mallory").Return(nil, nil)
	d.hashSvc.EXPECT().Hash("hunter22").Return("$argon2id$...", nil)

	_, err := d.svc.Register(ctx, ports.RegisterRequest{
		Username: "mallory", Password: "hunter22", Role: domain.RoleMediator,
	})
	require.Error(t, err)
	assert.Equal(t, "AUTH_003", appCode(t, err))
}

func TestAccountService_Login_Success(t *testing.T) {
	d := setupAccountService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	expiresAt := time.Now().Add(24 * time.Hour)

	d.userRepo.EXPECT().GetByUsername(ctx, "alice").
		Return(&domain.User{ID: userID, Username: "alice", PasswordHash: "$h", Role: domain.RoleBuyer}, nil)
	d.hashSvc.EXPECT().Verify("hunter22", "$h").Return(true, nil)
	d.tokenSvc.EXPECT().Generate(userID, domain.RoleBuyer).Return("token123", expiresAt, nil)

	token, exp, err := d.svc.Login(ctx, "alice", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "token123", token)
	assert.Equal(t, expiresAt, exp)
}

func TestAccountService_Login_WrongPassword(t *testing.T) {
	d := setupAccountService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.userRepo.EXPECT().GetByUsername(ctx, "alice").
		Return(&domain.User{ID: uuid.New(), PasswordHash: "$h"}, nil)
	d.hashSvc.EXPECT().Verify("wrong", "$h").Return(false, nil)

	_, _, err := d.svc.Login(ctx, "alice", "wrong")
	require.Error(t, err)
	assert.Equal(t, "AUTH_001", appCode(t, err))
}

func TestAccountService_Login_UnknownUser(t *testing.T) {
	d := setupAccountService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.userRepo.EXPECT().GetByUsername(ctx, "ghost").Return(nil, nil)

	_, _, err := d.svc.Login(ctx, "ghost", "whatever")
	require.Error(t, err)
	assert.Equal(t, "AUTH_001", appCode(t, err))
}
