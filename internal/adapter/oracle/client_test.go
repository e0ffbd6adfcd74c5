package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient(config.OracleConfig{
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	})
	return client, srv
}

func TestClient_GenerateAddress(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/addresses", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"address":"4Adk4P8yt3rQ","currency":"XMR","amount_due":0}`))
	}))
	defer srv.Close()

	addr, err := client.GenerateAddress(context.Background(), "XMR")
	require.NoError(t, err)
	assert.Equal(t, "4Adk4P8yt3rQ", addr.Address)
	assert.Equal(t, "XMR", addr.Currency)
}

func TestClient_VerifyTransaction(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions/0xabc", r.URL.Path)
		_, _ = w.Write([]byte(`{"valid":true,"amount":5000}`))
	}))
	defer srv.Close()

	tx, err := client.VerifyTransaction(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.True(t, tx.Valid)
	assert.Equal(t, int64(5000), tx.Amount)
}

func TestClient_GetSpotPrice(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rate":16850000,"as_of":"2026-08-30T12:00:00Z"}`))
	}))
	defer srv.Close()

	price, err := client.GetSpotPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(16850000), price.Rate)
	assert.False(t, price.AsOf.IsZero())
}

func TestClient_ServerError(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := client.GetSpotPrice(context.Background())
	assert.Error(t, err)
}

func TestClient_Unreachable(t *testing.T) {
	client := NewClient(config.OracleConfig{
		BaseURL: "http://127.0.0.1:1",
		Timeout: 200 * time.Millisecond,
	})

	_, err := client.VerifyTransaction(context.Background(), "0xdead")
	assert.Error(t, err)
}
