package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/config"
	httpHandler "github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/adapter/http/handler"
	redisStorage "github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/adapter/storage/redis"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/domain"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/ports"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/service"
	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubOracle is a deterministic payment oracle for the full-stack tests.
type stubOracle struct {
	rate int64
}

func (o *stubOracle) GenerateAddress(ctx context.Context, currency string) (*ports.OracleAddress, error) {
	return &ports.OracleAddress{Address: "addr_" + currency, Currency: currency}, nil
}

func (o *stubOracle) VerifyTransaction(ctx context.Context, txHash string) (*ports.OracleTx, error) {
	if txHash == "0xinvalid" {
		return &ports.OracleTx{Valid: false}, nil
	}
	return &ports.OracleTx{Valid: true, Amount: 100000}, nil
}

func (o *stubOracle) GetSpotPrice(ctx context.Context) (*ports.SpotPrice, error) {
	return &ports.SpotPrice{Rate: o.rate, AsOf: time.Now()}, nil
}

func (o *stubOracle) GetMinimumAmount(ctx context.Context) (int64, error) {
	return 1000, nil
}

// testApp builds the full application stack on in-memory repos with
// miniredis backing the Redis stores. It exercises the real HTTP layer,
// middleware, handlers and services end-to-end.
type testApp struct {
	server   *httptest.Server
	redis    *miniredis.Miniredis
	userRepo *inMemoryUserRepo
	ledger   *inMemoryLedgerRepo
	orders   *inMemoryOrderRepo
	escrows  *inMemoryEscrowRepo

	walletSvc ports.WalletService
	escrowSvc ports.EscrowService
	tokenSvc  ports.TokenService
	hashSvc   ports.HashService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	log := logger.New("debug", false)

	// In-memory repos
	userRepo := newInMemoryUserRepo()
	walletRepo := newInMemoryWalletRepo()
	ledgerRepo := newInMemoryLedgerRepo()
	orderRepo := newInMemoryOrderRepo()
	escrowRepo := newInMemoryEscrowRepo()
	disputeRepo := newInMemoryDisputeRepo()
	withdrawalRepo := newInMemoryWithdrawalRepo()
	depositRepo := newInMemoryDepositRepo()
	transactor := newInMemoryTransactor()

	// Redis stores
	priceCache := redisStorage.NewSpotPriceCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", 24*time.Hour, "test-issuer")

	policy := config.EscrowConfig{
		HoldWindow:         336 * time.Hour,
		ExtensionIncrement: 48 * time.Hour,
		MaxExtensions:      5,
		SweepInterval:      time.Minute,
		SweepBatchSize:     100,
	}
	oracleCfg := config.OracleConfig{FallbackRate: 16000000, PriceTTL: time.Minute}

	// Business services
	accountSvc := service.NewAccountService(userRepo, hashSvc, tokenSvc, log)
	walletSvc := service.NewWalletService(walletRepo, ledgerRepo, withdrawalRepo, transactor, log)
	escrowSvc := service.NewEscrowService(orderRepo, escrowRepo, disputeRepo, walletSvc, transactor, policy, log)
	disputeSvc := service.NewDisputeService(disputeRepo, escrowRepo, orderRepo, userRepo, walletSvc, transactor, log)
	depositSvc := service.NewDepositService(depositRepo, walletSvc, &stubOracle{rate: 6400000}, priceCache, transactor, oracleCfg, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AccountSvc:     accountSvc,
		WalletSvc:      walletSvc,
		EscrowSvc:      escrowSvc,
		DisputeSvc:     disputeSvc,
		DepositSvc:     depositSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		Logger:         log,
	})

	return &testApp{
		server:    httptest.NewServer(router),
		redis:     mr,
		userRepo:  userRepo,
		ledger:    ledgerRepo,
		orders:    orderRepo,
		escrows:   escrowRepo,
		walletSvc: walletSvc,
		escrowSvc: escrowSvc,
		tokenSvc:  tokenSvc,
		hashSvc:   hashSvc,
	}
}

func (a *testApp) close() {
	a.server.Close()
	a.redis.Close()
}

// registerAndLogin creates an account over HTTP and returns its ID and token.
func (a *testApp) registerAndLogin(t *testing.T, username, role string) (uuid.UUID, string) {
	t.Helper()

	regBody, _ := json.Marshal(map[string]string{
		"username": username,
		"password": "StrongPass123!",
		"role":     role,
	})
	resp, err := http.Post(a.server.URL+"/api/v1/auth/register", "application/json", bytes.NewReader(regBody))
	require.NoError(t, err)
	var regResult struct {
		Data struct {
			UserID string `json:"user_id"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&regResult))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	userID, err := uuid.Parse(regResult.Data.UserID)
	require.NoError(t, err)

	loginBody, _ := json.Marshal(map[string]string{
		"username": username,
		"password": "StrongPass123!",
	})
	resp, err = http.Post(a.server.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(loginBody))
	require.NoError(t, err)
	var loginResult struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loginResult))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	return userID, loginResult.Data.Token
}

// seedBalance credits a wallet directly through the wallet service.
func (a *testApp) seedBalance(t *testing.T, userID uuid.UUID, amount int64) {
	t.Helper()
	ref := "seed-" + uuid.NewString()
	_, err := a.walletSvc.Credit(context.Background(), ports.CreditRequest{
		UserID:      userID,
		Amount:      amount,
		Kind:        domain.EntryDeposit,
		ExternalRef: &ref,
	})
	require.NoError(t, err)
}

func (a *testApp) doJSON(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var parsed map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&parsed)
	return resp, parsed
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestIntegration_PurchaseExtendConfirmFlow(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	buyerID, buyerToken := app.registerAndLogin(t, "flow_buyer", "BUYER")
	vendorID, _ := app.registerAndLogin(t, "flow_vendor", "VENDOR")

	app.seedBalance(t, buyerID, 50000)

	// Purchase
	resp, body := app.doJSON(t, "POST", "/api/v1/orders", buyerToken, map[string]interface{}{
		"vendor_id":  vendorID.String(),
		"product_id": uuid.NewString(),
		"amount":     30000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "purchase failed: %v", body)
	data := body["data"].(map[string]interface{})
	orderID := data["order_id"].(string)

	// Buyer balance debited immediately
	balance, err := app.walletSvc.GetBalance(context.Background(), buyerID)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), balance)

	// Extend the hold window
	resp, body = app.doJSON(t, "POST", fmt.Sprintf("/api/v1/orders/%s/extend", orderID), buyerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "extend failed: %v", body)

	// Confirm receipt releases funds to the vendor
	resp, body = app.doJSON(t, "POST", fmt.Sprintf("/api/v1/orders/%s/confirm", orderID), buyerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "confirm failed: %v", body)

	vendorBalance, err := app.walletSvc.GetBalance(context.Background(), vendorID)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), vendorBalance)

	// Second confirm is rejected: the escrow is already terminal
	resp, _ = app.doJSON(t, "POST", fmt.Sprintf("/api/v1/orders/%s/confirm", orderID), buyerToken, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestIntegration_DisputeSplitResolution(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	buyerID, buyerToken := app.registerAndLogin(t, "disp_buyer", "BUYER")
	vendorID, _ := app.registerAndLogin(t, "disp_vendor", "VENDOR")

	// Mediators are provisioned out of band, so insert one directly.
	mediatorID := uuid.New()
	hash, err := app.hashSvc.Hash("MediatorPass1!")
	require.NoError(t, err)
	require.NoError(t, app.userRepo.Create(context.Background(), &domain.User{
		ID:           mediatorID,
		Username:     "mediator1",
		PasswordHash: hash,
		Role:         domain.RoleMediator,
		CreatedAt:    time.Now(),
	}))
	mediatorToken, _, err := app.tokenSvc.Generate(mediatorID, domain.RoleMediator)
	require.NoError(t, err)

	app.seedBalance(t, buyerID, 10000)

	resp, body := app.doJSON(t, "POST", "/api/v1/orders", buyerToken, map[string]interface{}{
		"vendor_id":  vendorID.String(),
		"product_id": uuid.NewString(),
		"amount":     10000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	orderID := body["data"].(map[string]interface{})["order_id"].(string)

	// Open a dispute
	resp, body = app.doJSON(t, "POST", fmt.Sprintf("/api/v1/orders/%s/dispute", orderID), buyerToken, map[string]interface{}{
		"reason": "package never arrived",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "dispute failed: %v", body)
	disputeID := body["data"].(map[string]interface{})["dispute_id"].(string)

	// A buyer cannot resolve
	resp, _ = app.doJSON(t, "POST", fmt.Sprintf("/api/v1/disputes/%s/resolve", disputeID), buyerToken, map[string]interface{}{
		"outcome":   "SPLIT",
		"buyer_bps": 7000,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Mediator resolves 70/30 in the buyer's favor
	resp, body = app.doJSON(t, "POST", fmt.Sprintf("/api/v1/disputes/%s/resolve", disputeID), mediatorToken, map[string]interface{}{
		"outcome":   "SPLIT",
		"buyer_bps": 7000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "resolve failed: %v", body)

	buyerBalance, err := app.walletSvc.GetBalance(context.Background(), buyerID)
	require.NoError(t, err)
	vendorBalance, err := app.walletSvc.GetBalance(context.Background(), vendorID)
	require.NoError(t, err)
	assert.Equal(t, int64(7000), buyerBalance)
	assert.Equal(t, int64(3000), vendorBalance)

	// Resolving twice fails
	resp, _ = app.doJSON(t, "POST", fmt.Sprintf("/api/v1/disputes/%s/resolve", disputeID), mediatorToken, map[string]interface{}{
		"outcome": "BUYER",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestIntegration_DepositConfirmHandshake(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	userID, token := app.registerAndLogin(t, "dep_user", "BUYER")

	// Create a deposit intent
	resp, body := app.doJSON(t, "POST", "/api/v1/wallet/deposits", token, map[string]string{
		"currency": "BTC",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "create deposit failed: %v", body)
	intentID := body["data"].(map[string]interface{})["id"].(string)
	assert.Equal(t, "addr_BTC", body["data"].(map[string]interface{})["address"])

	// Confirm with a valid hash
	resp, body = app.doJSON(t, "POST", "/api/v1/wallet/deposits/confirm", token, map[string]string{
		"intent_id": intentID,
		"tx_hash":   "0xdeadbeef01",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["data"].(map[string]interface{})["confirmed"])

	balance, err := app.walletSvc.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), balance)

	// A retried confirmation must not credit twice
	resp, body = app.doJSON(t, "POST", "/api/v1/wallet/deposits/confirm", token, map[string]string{
		"intent_id": intentID,
		"tx_hash":   "0xdeadbeef01",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["data"].(map[string]interface{})["confirmed"])

	balance, err = app.walletSvc.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), balance)
}

func TestIntegration_LoginRateLimit(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	regBody := `{"username":"rl_user","password":"StrongPass123!","role":"BUYER"}`
	regResp, err := http.Post(app.server.URL+"/api/v1/auth/register", "application/json", bytes.NewBufferString(regBody))
	require.NoError(t, err)
	regResp.Body.Close()
	require.Equal(t, http.StatusCreated, regResp.StatusCode)

	loginBody := `{"username":"rl_user","password":"WrongPassword!"}`

	// The login group allows 5 attempts per window.
	for i := 0; i < 5; i++ {
		resp, err := http.Post(app.server.URL+"/api/v1/auth/login", "application/json", bytes.NewBufferString(loginBody))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "attempt %d", i+1)
	}

	resp, err := http.Post(app.server.URL+"/api/v1/auth/login", "application/json", bytes.NewBufferString(loginBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))

	// A fresh window restores the allowance.
	app.redis.FastForward(16 * time.Minute)
	resp2, err := http.Post(app.server.URL+"/api/v1/auth/login", "application/json", bytes.NewBufferString(loginBody))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}

func TestIntegration_WithdrawalDebitsWallet(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	userID, token := app.registerAndLogin(t, "wd_user", "BUYER")
	app.seedBalance(t, userID, 8000)

	resp, body := app.doJSON(t, "POST", "/api/v1/wallet/withdrawals", token, map[string]interface{}{
		"amount":              5000,
		"destination_address": "addr_out_1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "withdraw failed: %v", body)
	wdData := body["data"].(map[string]interface{})
	assert.Equal(t, "PENDING", wdData["status"])
	wdID := wdData["id"].(string)

	balance, err := app.walletSvc.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), balance)

	// Overdraw is rejected
	resp, _ = app.doJSON(t, "POST", "/api/v1/wallet/withdrawals", token, map[string]interface{}{
		"amount":              50000,
		"destination_address": "addr_out_1",
	})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	// Admins are provisioned out of band, so insert one directly.
	adminID := uuid.New()
	hash, err := app.hashSvc.Hash("AdminPass1!")
	require.NoError(t, err)
	require.NoError(t, app.userRepo.Create(context.Background(), &domain.User{
		ID:           adminID,
		Username:     "wd_admin",
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		CreatedAt:    time.Now(),
	}))
	adminToken, _, err := app.tokenSvc.Generate(adminID, domain.RoleAdmin)
	require.NoError(t, err)

	// The requester cannot settle their own withdrawal
	resp, _ = app.doJSON(t, "POST", "/api/v1/wallet/withdrawals/"+wdID+"/settle", token, map[string]interface{}{
		"approve": false,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Admin rejection refunds the held amount
	resp, body = app.doJSON(t, "POST", "/api/v1/wallet/withdrawals/"+wdID+"/settle", adminToken, map[string]interface{}{
		"approve": false,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "settle failed: %v", body)
	assert.Equal(t, "REJECTED", body["data"].(map[string]interface{})["status"])

	balance, err = app.walletSvc.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), balance)

	// A settled withdrawal cannot flip again
	resp, _ = app.doJSON(t, "POST", "/api/v1/wallet/withdrawals/"+wdID+"/settle", adminToken, map[string]interface{}{
		"approve": true,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
