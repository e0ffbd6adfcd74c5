package handler

import (
	"strconv"

	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/adapter/http/dto"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/adapter/http/middleware"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/domain"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/ports"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/pkg/apperror"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// WalletHandler handles wallet, ledger and deposit endpoints.
type WalletHandler struct {
	walletSvc  ports.WalletService
	depositSvc ports.DepositService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService, depositSvc ports.DepositService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc, depositSvc: depositSvc}
}

// currentUserID extracts the authenticated user from the request context.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(middleware.CtxUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// GetBalance handles GET /api/v1/wallet/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	balance, err := h.walletSvc.GetBalance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{Balance: balance})
}

// ListTransactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.Error(c, apperror.Validation("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	entries, err := h.walletSvc.ListTransactions(c.Request.Context(), userID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(entries))
	for i := range entries {
		items = append(items, toTransactionResponse(&entries[i]))
	}

	response.OK(c, dto.TransactionListResponse{Items: items, Count: len(items)})
}

// Withdraw handles POST /api/v1/wallet/withdrawals.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	wd, err := h.walletSvc.Withdraw(c.Request.Context(), userID, req.Amount, req.DestinationAddress)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.WithdrawalResponse{
		ID:                 wd.ID.String(),
		Amount:             wd.Amount,
		DestinationAddress: wd.DestinationAddress,
		Status:             string(wd.Status),
		CreatedAt:          wd.CreatedAt.Format(timeLayout),
	})
}

// CreateDeposit handles POST /api/v1/wallet/deposits.
func (h *WalletHandler) CreateDeposit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	intent, err := h.depositSvc.CreateDeposit(c.Request.Context(), userID, req.Currency)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.DepositIntentResponse{
		ID:        intent.ID.String(),
		Currency:  intent.Currency,
		Address:   intent.Address,
		AmountDue: intent.AmountDue,
		Status:    string(intent.Status),
		CreatedAt: intent.CreatedAt.Format(timeLayout),
	})
}

// ConfirmDeposit handles POST /api/v1/wallet/deposits/confirm.
func (h *WalletHandler) ConfirmDeposit(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.ConfirmDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	intentID, err := uuid.Parse(req.IntentID)
	if err != nil {
		response.Error(c, apperror.Validation("intent_id must be a UUID"))
		return
	}

	confirmed, err := h.depositSvc.ConfirmPayment(c.Request.Context(), intentID, req.TxHash)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ConfirmDepositResponse{Confirmed: confirmed})
}

// SettleWithdrawal handles POST /api/v1/wallet/withdrawals/:id/settle.
// Admin role only; a rejection refunds the held amount.
func (h *WalletHandler) SettleWithdrawal(c *gin.Context) {
	withdrawalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("id must be a UUID"))
		return
	}

	var req dto.SettleWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	wd, err := h.walletSvc.SettleWithdrawal(c.Request.Context(), withdrawalID, *req.Approve)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WithdrawalResponse{
		ID:                 wd.ID.String(),
		Amount:             wd.Amount,
		DestinationAddress: wd.DestinationAddress,
		Status:             string(wd.Status),
		CreatedAt:          wd.CreatedAt.Format(timeLayout),
	})
}

// AdminAdjust handles POST /api/v1/wallet/adjust. Admin role only.
func (h *WalletHandler) AdminAdjust(c *gin.Context) {
	var req dto.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.Error(c, apperror.Validation("user_id must be a UUID"))
		return
	}

	balance, err := h.walletSvc.AdminAdjust(c.Request.Context(), targetID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{Balance: balance})
}

// toTransactionResponse converts a ledger entry to its DTO.
func toTransactionResponse(tx *domain.WalletTransaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:           tx.ID.String(),
		Kind:         string(tx.Kind),
		Amount:       tx.Amount,
		BalanceAfter: tx.BalanceAfter,
		ExternalRef:  tx.ExternalRef,
		CreatedAt:    tx.CreatedAt.Format(timeLayout),
	}
}
