// internal/api/api_integration_test.go
package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "brokerage-ledger/internal"
	"brokerage-ledger/internal/api/middleware"
	"brokerage-ledger/internal/config"
)

// testApp is the global application instance for testing.
var testApp *app.Application

// testServer is the httptest server.
var testServer *httptest.Server

// TestMain initializes the application on the in-memory store once for all tests.
func TestMain(m *testing.M) {
	testApp = app.NewApplication()
	if err := testApp.InitializeWithConfig(context.Background(), testConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize test application: %v\n", err)
		os.Exit(1)
	}

	testServer = httptest.NewServer(testApp.HTTPHandler)
	code := m.Run()
	testServer.Close()

	if err := testApp.Shutdown(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to shutdown test application: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Server:   config.ServerConfig{Port: "0"},
		Database: config.DatabaseConfig{Driver: "memory"},
		Ledger: config.LedgerConfig{
			LockTimeout:      2 * time.Second,
			DepositAddresses: map[string]string{"btc": "1EwSeZbK8RW5EgRc96RnhjcLmGQA6zZ2RV"},
		},
		Rates: config.RatesConfig{Provider: "static"},
		Kafka: config.KafkaConfig{Topic: "ledger.events"},
		Auth:  config.AuthConfig{JWTSecret: "integration-secret", Issuer: "test-idp"},
		Log:   config.LogConfig{Level: "error"},
	}
}

// token signs a bearer token for userID with the given role.
func token(t *testing.T, userID, role string) string {
	t.Helper()
	signed, err := testApp.Auth.Sign(middleware.Identity{UserID: userID, Role: role}, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	require.NoError(t, err)
	return signed
}

// makeRequest sends an HTTP request to the test server and decodes the JSON body into out.
func makeRequest(t *testing.T, method, path, bearer, body string, out any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, testServer.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(raw, out), "body: %s", raw)
	}
	return resp
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type accountBody struct {
	UserID   string                     `json:"user_id"`
	Status   string                     `json:"status"`
	Balances map[string]decimal.Decimal `json:"balances"`
}

// fullBalances renders a balances object carrying every currency, zero unless set.
func fullBalances(t *testing.T, set map[string]string) string {
	t.Helper()
	all := map[string]string{"USD": "0", "BTC": "0", "ETH": "0", "USDT": "0", "USDC": "0"}
	for code, amount := range set {
		all[code] = amount
	}
	raw, err := json.Marshal(all)
	require.NoError(t, err)
	return string(raw)
}

func openAccount(t *testing.T, userID string, balances map[string]string) string {
	t.Helper()
	user := token(t, userID, "")
	resp := makeRequest(t, http.MethodPost, "/v1/accounts", user, "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	if len(balances) > 0 {
		resp = makeRequest(t, http.MethodPut, "/v1/admin/accounts/"+userID+"/balances", token(t, "admin-1", middleware.RoleAdmin),
			`{"balances": `+fullBalances(t, balances)+`}`, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	return user
}

func TestHealthAndMetrics(t *testing.T) {
	resp := makeRequest(t, http.MethodGet, "/health", "", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = makeRequest(t, http.MethodGet, "/metrics", "", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthentication(t *testing.T) {
	var envelope errorEnvelope
	resp := makeRequest(t, http.MethodGet, "/v1/accounts/me", "", "", &envelope)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", envelope.Error.Code)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "mallory", Issuer: "test-idp"}})
	raw, err := forged.SignedString([]byte("wrong-secret"))
	require.NoError(t, err)
	resp = makeRequest(t, http.MethodGet, "/v1/accounts/me", raw, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = makeRequest(t, http.MethodGet, "/v1/admin/summary", token(t, "carol", ""), "", &envelope)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "unauthorized", envelope.Error.Code)
}

func TestConvertAndPortfolioIntegration(t *testing.T) {
	user := openAccount(t, "api-convert", map[string]string{"BTC": "1"})

	var converted struct {
		Account     accountBody `json:"account"`
		Transaction struct {
			ID            int64           `json:"id"`
			Kind          string          `json:"kind"`
			CounterAmount decimal.Decimal `json:"counter_amount"`
		} `json:"transaction"`
	}
	resp := makeRequest(t, http.MethodPost, "/v1/conversions", user, `{"from": "btc", "to": "ETH", "amount": "1"}`, &converted)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, converted.Account.Balances["BTC"].IsZero())
	assert.True(t, converted.Account.Balances["ETH"].Equal(decimal.NewFromInt(18)))
	assert.Equal(t, "conversion", converted.Transaction.Kind)

	var portfolio struct {
		TotalDisplay string `json:"total_display"`
	}
	resp = makeRequest(t, http.MethodGet, "/v1/accounts/me", user, "", &portfolio)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "$45,000.00", portfolio.TotalDisplay)

	var page struct {
		Data       []json.RawMessage `json:"data"`
		TotalCount int64             `json:"total_count"`
	}
	resp = makeRequest(t, http.MethodGet, "/v1/accounts/me/transactions?kind=conversion", user, "", &page)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), page.TotalCount)

	resp = makeRequest(t, http.MethodGet, "/v1/accounts/me/transactions?kind=bogus", user, "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestErrorMappingIntegration(t *testing.T) {
	user := openAccount(t, "api-errors", map[string]string{"USD": "10", "BTC": "0.002"})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"insufficient funds", http.MethodPost, "/v1/conversions", `{"from": "USD", "to": "BTC", "amount": "11"}`, http.StatusPaymentRequired, "insufficient_funds"},
		{"same currency", http.MethodPost, "/v1/conversions", `{"from": "USD", "to": "usd", "amount": "1"}`, http.StatusBadRequest, "invalid_conversion"},
		{"negative amount", http.MethodPost, "/v1/conversions", `{"from": "USD", "to": "BTC", "amount": "-1"}`, http.StatusBadRequest, "invalid_amount"},
		{"unknown currency", http.MethodPost, "/v1/conversions", `{"from": "DOGE", "to": "BTC", "amount": "1"}`, http.StatusBadRequest, "unsupported_currency"},
		{"missing field", http.MethodPost, "/v1/conversions", `{"to": "BTC", "amount": "1"}`, http.StatusBadRequest, "invalid_input"},
		{"unknown field", http.MethodPost, "/v1/deposits", `{"currency": "BTC", "amount": "1", "memo": "x"}`, http.StatusBadRequest, "invalid_input"},
		{"usd deposit", http.MethodPost, "/v1/deposits", `{"currency": "USD", "amount": "1"}`, http.StatusBadRequest, "unsupported_currency"},
		{"below minimum", http.MethodPost, "/v1/withdrawals", `{"currency": "BTC", "amount": "0.0001", "destination_address": "1abc"}`, http.StatusUnprocessableEntity, "below_minimum"},
		{"blank address", http.MethodPost, "/v1/withdrawals", `{"currency": "BTC", "amount": "0.001", "destination_address": " "}`, http.StatusBadRequest, "invalid_address"},
		{"duplicate account", http.MethodPost, "/v1/accounts", "", http.StatusConflict, "account_exists"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var envelope errorEnvelope
			resp := makeRequest(t, tt.method, tt.path, user, tt.body, &envelope)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, envelope.Error.Code)
			assert.NotEmpty(t, envelope.Error.Message)
		})
	}

	var account struct {
		Account accountBody `json:"account"`
	}
	resp := makeRequest(t, http.MethodGet, "/v1/accounts/me", user, "", &account)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, account.Account.Balances["USD"].Equal(decimal.NewFromInt(10)), "failed calls change nothing")
}

func TestWithdrawalReviewIntegration(t *testing.T) {
	user := openAccount(t, "api-withdraw", map[string]string{"BTC": "0.002"})
	admin := token(t, "admin-2", middleware.RoleAdmin)

	var requested struct {
		Account    accountBody `json:"account"`
		Withdrawal struct {
			ID     int64  `json:"id"`
			Status string `json:"status"`
		} `json:"withdrawal"`
	}
	req := `{"currency": "BTC", "amount": "0.0015", "destination_address": "1BoatSLRHtKNngkdXEeobR76b53LETtpyT"}`
	resp := makeRequest(t, http.MethodPost, "/v1/withdrawals", user, req, &requested)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, requested.Account.Balances["BTC"].IsZero())
	assert.Equal(t, "pending", requested.Withdrawal.Status)

	var pending struct {
		TotalCount int64 `json:"total_count"`
	}
	resp = makeRequest(t, http.MethodGet, "/v1/admin/withdrawals?status=pending&user_id=api-withdraw", admin, "", &pending)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), pending.TotalCount)

	path := fmt.Sprintf("/v1/admin/withdrawals/%d/reject", requested.Withdrawal.ID)
	var resolved struct {
		Withdrawal struct {
			Status     string `json:"status"`
			ResolvedBy string `json:"resolved_by"`
		} `json:"withdrawal"`
		Transaction struct {
			Status string `json:"status"`
		} `json:"transaction"`
	}
	resp = makeRequest(t, http.MethodPost, path, admin, "", &resolved)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "rejected", resolved.Withdrawal.Status)
	assert.Equal(t, "admin-2", resolved.Withdrawal.ResolvedBy)
	assert.Equal(t, "failed", resolved.Transaction.Status)

	var envelope errorEnvelope
	resp = makeRequest(t, http.MethodPost, path, admin, "", &envelope)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "already_resolved", envelope.Error.Code)

	resp = makeRequest(t, http.MethodPost, fmt.Sprintf("/v1/admin/withdrawals/%d/maybe", requested.Withdrawal.ID), admin, "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var portfolio struct {
		Account accountBody `json:"account"`
	}
	makeRequest(t, http.MethodGet, "/v1/accounts/me", user, "", &portfolio)
	assert.True(t, portfolio.Account.Balances["BTC"].Equal(decimal.RequireFromString("0.002")))
}

func TestDepositConfirmationIntegration(t *testing.T) {
	user := openAccount(t, "api-deposit", nil)
	admin := token(t, "admin-3", middleware.RoleAdmin)

	var info []struct {
		Currency string `json:"currency"`
		Address  string `json:"address"`
	}
	resp := makeRequest(t, http.MethodGet, "/v1/deposits/info", user, "", &info)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, info, 4)
	assert.Equal(t, "BTC", info[0].Currency)
	assert.Equal(t, "1EwSeZbK8RW5EgRc96RnhjcLmGQA6zZ2RV", info[0].Address)

	var deposit struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	resp = makeRequest(t, http.MethodPost, "/v1/deposits", user, `{"currency": "ETH", "amount": "0.75"}`, &deposit)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "pending", deposit.Status)

	var confirmed struct {
		Account accountBody `json:"account"`
	}
	resp = makeRequest(t, http.MethodPost, fmt.Sprintf("/v1/admin/deposits/%d/confirm", deposit.ID), admin, "", &confirmed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, confirmed.Account.Balances["ETH"].Equal(decimal.RequireFromString("0.75")))

	resp = makeRequest(t, http.MethodPost, fmt.Sprintf("/v1/admin/deposits/%d/fail", deposit.ID), admin, "", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAdminAccountsIntegration(t *testing.T) {
	user := openAccount(t, "api-admin", map[string]string{"USDT": "25"})
	admin := token(t, "admin-4", middleware.RoleAdmin)

	var envelope errorEnvelope
	resp := makeRequest(t, http.MethodPut, "/v1/admin/accounts/api-admin/balances", admin,
		`{"balances": `+fullBalances(t, map[string]string{"USD": "-5"})+`}`, &envelope)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_amount", envelope.Error.Code)

	t.Run("incomplete balance sets change nothing", func(t *testing.T) {
		bodies := map[string]string{
			"empty body":       `{}`,
			"empty balances":   `{"balances": {}}`,
			"partial balances": `{"balances": {"BTC": "1"}}`,
			"duplicate code":   `{"balances": {"USD": "1", "usd": "2", "BTC": "0", "ETH": "0", "USDT": "0"}}`,
		}
		for name, body := range bodies {
			var envelope errorEnvelope
			resp := makeRequest(t, http.MethodPut, "/v1/admin/accounts/api-admin/balances", admin, body, &envelope)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, name)
			assert.Equal(t, "invalid_input", envelope.Error.Code, name)
		}

		var portfolio struct {
			Account accountBody `json:"account"`
		}
		resp := makeRequest(t, http.MethodGet, "/v1/accounts/me", user, "", &portfolio)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, portfolio.Account.Balances["USDT"].Equal(decimal.RequireFromString("25")))
		assert.True(t, portfolio.Account.Balances["USD"].IsZero())
	})

	resp = makeRequest(t, http.MethodPut, "/v1/admin/accounts/api-admin/status", admin, `{"status": "frozen"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = makeRequest(t, http.MethodPut, "/v1/admin/accounts/api-admin/status", admin, `{"status": "suspended"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = makeRequest(t, http.MethodPost, "/v1/conversions", user, `{"from": "USDT", "to": "USD", "amount": "5"}`, &envelope)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "account_suspended", envelope.Error.Code)

	resp = makeRequest(t, http.MethodGet, "/v1/admin/accounts/nobody", admin, "", &envelope)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var summary struct {
		AccountCount int64 `json:"account_count"`
	}
	resp = makeRequest(t, http.MethodGet, "/v1/admin/summary", admin, "", &summary)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.GreaterOrEqual(t, summary.AccountCount, int64(1))

	var rates struct {
		Source string `json:"source"`
	}
	resp = makeRequest(t, http.MethodGet, "/v1/rates", user, "", &rates)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "static", rates.Source)
}
