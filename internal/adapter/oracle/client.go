package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/config"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/ports"
)

// Client implements ports.PaymentOracle against the payment oracle's HTTP API.
// The oracle is the external source of truth for on-chain facts; this side
// only asks questions and never retries writes.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs an oracle client from configuration.
func NewClient(cfg config.OracleConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type addressResponse struct {
	Address   string `json:"address"`
	Currency  string `json:"currency"`
	AmountDue int64  `json:"amount_due"`
}

type transactionResponse struct {
	Valid  bool  `json:"valid"`
	Amount int64 `json:"amount"`
}

type priceResponse struct {
	Rate int64     `json:"rate"`
	AsOf time.Time `json:"as_of"`
}

type minimumResponse struct {
	Minimum int64 `json:"minimum"`
}

// GenerateAddress asks the oracle for a fresh receiving address.
func (c *Client) GenerateAddress(ctx context.Context, currency string) (*ports.OracleAddress, error) {
	payload := map[string]string{"currency": currency}

	var out addressResponse
	if err := c.doRequest(ctx, http.MethodPost, "/addresses", payload, &out); err != nil {
		return nil, err
	}
	return &ports.OracleAddress{
		Address:   out.Address,
		Currency:  out.Currency,
		AmountDue: out.AmountDue,
	}, nil
}

// VerifyTransaction asks the oracle whether txHash is a confirmed payment.
func (c *Client) VerifyTransaction(ctx context.Context, txHash string) (*ports.OracleTx, error) {
	var out transactionResponse
	if err := c.doRequest(ctx, http.MethodGet, "/transactions/"+txHash, nil, &out); err != nil {
		return nil, err
	}
	return &ports.OracleTx{Valid: out.Valid, Amount: out.Amount}, nil
}

// GetSpotPrice fetches the current exchange rate.
func (c *Client) GetSpotPrice(ctx context.Context) (*ports.SpotPrice, error) {
	var out priceResponse
	if err := c.doRequest(ctx, http.MethodGet, "/price", nil, &out); err != nil {
		return nil, err
	}
	price := &ports.SpotPrice{Rate: out.Rate, AsOf: out.AsOf}
	if price.AsOf.IsZero() {
		price.AsOf = time.Now().UTC()
	}
	return price, nil
}

// GetMinimumAmount fetches the oracle's minimum accepted deposit in cents.
func (c *Client) GetMinimumAmount(ctx context.Context) (int64, error) {
	var out minimumResponse
	if err := c.doRequest(ctx, http.MethodGet, "/minimum", nil, &out); err != nil {
		return 0, err
	}
	return out.Minimum, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload, out any) error {
	var body *bytes.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("oracle encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("oracle build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("oracle %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("oracle %s failed: status=%d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("oracle decode response: %w", err)
	}
	return nil
}
