package handler

import (
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/adapter/http/dto"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/ports"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/pkg/apperror"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderHandler handles purchase and escrow lifecycle endpoints.
type OrderHandler struct {
	escrowSvc ports.EscrowService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(escrowSvc ports.EscrowService) *OrderHandler {
	return &OrderHandler{escrowSvc: escrowSvc}
}

// orderIDParam parses the :id path parameter.
func orderIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("order id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// Purchase handles POST /api/v1/orders.
func (h *OrderHandler) Purchase(c *gin.Context) {
	buyerID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	vendorID, err := uuid.Parse(req.VendorID)
	if err != nil {
		response.Error(c, apperror.Validation("vendor_id must be a UUID"))
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		response.Error(c, apperror.Validation("product_id must be a UUID"))
		return
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}

	result, err := h.escrowSvc.Purchase(c.Request.Context(), ports.PurchaseRequest{
		BuyerID:   buyerID,
		VendorID:  vendorID,
		ProductID: productID,
		Amount:    req.Amount,
		Available: available,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.PurchaseResponse{
		OrderID:  result.OrderID.String(),
		EscrowID: result.EscrowID.String(),
	})
}

// Extend handles POST /api/v1/orders/:id/extend.
func (h *OrderHandler) Extend(c *gin.Context) {
	buyerID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	deadline, err := h.escrowSvc.Extend(c.Request.Context(), orderID, buyerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ExtendResponse{Deadline: deadline.Format(timeLayout)})
}

// Confirm handles POST /api/v1/orders/:id/confirm.
func (h *OrderHandler) Confirm(c *gin.Context) {
	buyerID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	if err := h.escrowSvc.ConfirmReceipt(c.Request.Context(), orderID, buyerID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"status": "finalized"})
}

// Dispute handles POST /api/v1/orders/:id/dispute.
func (h *OrderHandler) Dispute(c *gin.Context) {
	callerID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req dto.DisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	disputeID, err := h.escrowSvc.OpenDispute(c.Request.Context(), orderID, callerID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.DisputeResponse{DisputeID: disputeID.String()})
}
