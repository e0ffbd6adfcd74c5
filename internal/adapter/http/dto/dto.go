package dto

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50,safe_id"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	Role     string `json:"role,omitempty" binding:"omitempty,oneof=BUYER VENDOR"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// WithdrawRequest is the request body for a withdrawal.
type WithdrawRequest struct {
	Amount             int64  `json:"amount" binding:"required,gt=0"`
	DestinationAddress string `json:"destination_address" binding:"required,max=128,safe_id"`
}

// DepositRequest is the request body for creating a deposit intent.
type DepositRequest struct {
	Currency string `json:"currency" binding:"required,min=2,max=12,safe_id"`
}

// ConfirmDepositRequest is the request body for the payment confirmation
// handshake.
type ConfirmDepositRequest struct {
	IntentID string `json:"intent_id" binding:"required,uuid"`
	TxHash   string `json:"tx_hash" binding:"required,max=128,safe_id"`
}

// SettleWithdrawalRequest is the request body for the admin settlement of a
// pending withdrawal. Approve is a pointer so an omitted field fails
// validation instead of silently rejecting.
type SettleWithdrawalRequest struct {
	Approve *bool `json:"approve" binding:"required"`
}

// AdjustRequest is the request body for an admin balance adjustment.
type AdjustRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Amount int64  `json:"amount" binding:"required"`
}

// PurchaseRequest is the request body for creating an order.
// Available carries the catalog collaborator's verdict; when omitted the
// product is treated as purchasable.
type PurchaseRequest struct {
	VendorID  string `json:"vendor_id" binding:"required,uuid"`
	ProductID string `json:"product_id" binding:"required,uuid"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Available *bool  `json:"available,omitempty"`
}

// DisputeRequest is the request body for opening a dispute.
type DisputeRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=2000"`
}

// ResolveRequest is the request body for a mediator's dispute resolution.
type ResolveRequest struct {
	Outcome  string `json:"outcome" binding:"required,oneof=VENDOR BUYER SPLIT"`
	BuyerBps int    `json:"buyer_bps,omitempty" binding:"omitempty,min=0,max=10000"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	Balance int64 `json:"balance"`
}

// TransactionResponse is one ledger entry in API form.
type TransactionResponse struct {
	ID           string  `json:"id"`
	Kind         string  `json:"kind"`
	Amount       int64   `json:"amount"`
	BalanceAfter int64   `json:"balance_after"`
	ExternalRef  *string `json:"external_ref,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

// TransactionListResponse wraps a ledger listing.
type TransactionListResponse struct {
	Items []TransactionResponse `json:"items"`
	Count int                   `json:"count"`
}

// WithdrawalResponse is the response for a created withdrawal.
type WithdrawalResponse struct {
	ID                 string `json:"id"`
	Amount             int64  `json:"amount"`
	DestinationAddress string `json:"destination_address"`
	Status             string `json:"status"`
	CreatedAt          string `json:"created_at"`
}

// DepositIntentResponse is the response for a created deposit intent.
type DepositIntentResponse struct {
	ID        string `json:"id"`
	Currency  string `json:"currency"`
	Address   string `json:"address"`
	AmountDue int64  `json:"amount_due"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// ConfirmDepositResponse is the outcome of the confirmation handshake.
type ConfirmDepositResponse struct {
	Confirmed bool `json:"confirmed"`
}

// PurchaseResponse identifies the created order and its escrow.
type PurchaseResponse struct {
	OrderID  string `json:"order_id"`
	EscrowID string `json:"escrow_id"`
}

// ExtendResponse reports the escrow deadline after an extension.
type ExtendResponse struct {
	Deadline string `json:"deadline"`
}

// DisputeResponse identifies the opened dispute.
type DisputeResponse struct {
	DisputeID string `json:"dispute_id"`
}

// PriceResponse is one spot price observation.
type PriceResponse struct {
	Rate int64  `json:"rate"` // cents per coin
	AsOf string `json:"as_of"`
}

// VerifyResponse is the oracle's verdict on a transaction hash.
type VerifyResponse struct {
	Valid bool `json:"valid"`
}
