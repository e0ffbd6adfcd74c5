package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Wallet & Ledger (WAL) ----

func ErrInvalidAmount() *AppError {
	return New("WAL_001", "Invalid amount", http.StatusBadRequest)
}

func ErrInsufficientFunds() *AppError {
	return New("WAL_002", "Insufficient wallet balance", http.StatusPaymentRequired)
}

// ---- Escrow State Machine (ESC) ----

func ErrInvalidState(detail string) *AppError {
	return New("ESC_001", fmt.Sprintf("Invalid escrow state: %s", detail), http.StatusConflict)
}

func ErrLimitExceeded() *AppError {
	return New("ESC_002", "Extension limit reached", http.StatusUnprocessableEntity)
}

func ErrAlreadyDisputed() *AppError {
	return New("ESC_003", "Escrow already has an open dispute", http.StatusConflict)
}

// ---- Marketplace (MKT) ----

func ErrProductUnavailable() *AppError {
	return New("MKT_001", "Product is not available for purchase", http.StatusConflict)
}

// ---- Authentication & Authorization (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrNotAuthorized() *AppError {
	return New("AUTH_003", "Caller is not authorized for this operation", http.StatusForbidden)
}

func ErrNotOwner() *AppError {
	return New("AUTH_004", "Caller does not own this resource", http.StatusForbidden)
}

// ---- Lookup (PAY) ----

func ErrNotFound(entity string) *AppError {
	return New("PAY_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Oracle (ORA) ----

func ErrOracleUnavailable(err error) *AppError {
	return Wrap("ORA_001", "Payment oracle unavailable", http.StatusBadGateway, err)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// ErrStorageConflict marks a lost compare-and-set race. Safe to retry.
func ErrStorageConflict() *AppError {
	return New("SYS_004", "Concurrent update conflict, retry", http.StatusConflict)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a WAL_003-coded request validation error.
func Validation(message string) *AppError {
	return New("WAL_003", message, http.StatusBadRequest)
}
