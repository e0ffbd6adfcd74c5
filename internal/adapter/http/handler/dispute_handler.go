package handler

import (
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/adapter/http/dto"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/domain"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/ports"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/pkg/apperror"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DisputeHandler handles mediator dispute resolution endpoints.
type DisputeHandler struct {
	disputeSvc ports.DisputeService
}

// NewDisputeHandler creates a new DisputeHandler.
func NewDisputeHandler(disputeSvc ports.DisputeService) *DisputeHandler {
	return &DisputeHandler{disputeSvc: disputeSvc}
}

// Resolve handles POST /api/v1/disputes/:id/resolve.
func (h *DisputeHandler) Resolve(c *gin.Context) {
	mediatorID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	disputeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("dispute id must be a UUID"))
		return
	}

	var req dto.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.disputeSvc.Resolve(c.Request.Context(), ports.ResolveRequest{
		DisputeID:  disputeID,
		MediatorID: mediatorID,
		Outcome:    domain.DisputeOutcome(req.Outcome),
		BuyerBps:   req.BuyerBps,
	}); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"status": "resolved"})
}
