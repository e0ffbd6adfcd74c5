package handler

import (
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/adapter/http/dto"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/ports"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/pkg/apperror"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/pkg/response"

	"github.com/gin-gonic/gin"
)

// OracleHandler exposes read-only oracle diagnostics.
type OracleHandler struct {
	depositSvc ports.DepositService
}

// NewOracleHandler creates a new OracleHandler.
func NewOracleHandler(depositSvc ports.DepositService) *OracleHandler {
	return &OracleHandler{depositSvc: depositSvc}
}

// Price handles GET /api/v1/oracle/price.
func (h *OracleHandler) Price(c *gin.Context) {
	price, err := h.depositSvc.SpotPrice(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.PriceResponse{
		Rate: price.Rate,
		AsOf: price.AsOf.Format(timeLayout),
	})
}

// Verify handles GET /api/v1/oracle/verify/:txHash.
func (h *OracleHandler) Verify(c *gin.Context) {
	txHash := c.Param("txHash")
	if txHash == "" {
		response.Error(c, apperror.Validation("txHash is required"))
		return
	}

	valid, err := h.depositSvc.VerifyPayment(c.Request.Context(), txHash)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.VerifyResponse{Valid: valid})
}
