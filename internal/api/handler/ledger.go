// internal/api/handler/ledger.go
package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"brokerage-ledger/internal/api/types"
	"brokerage-ledger/internal/domain"
	"brokerage-ledger/internal/repository"
	"brokerage-ledger/internal/service"
	"brokerage-ledger/internal/util"
)

// LedgerHandler serves the routes of the authenticated account holder.
type LedgerHandler struct {
	responder
	service service.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(svc service.LedgerService, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{responder: newResponder(logger), service: svc}
}

// CreateAccount opens the caller's account.
// POST /v1/accounts
func (h *LedgerHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.CreateAccount(r.Context(), identity(r).UserID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, account)
}

// GetPortfolio returns the caller's balances valued in USD.
// GET /v1/accounts/me
func (h *LedgerHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	portfolio, err := h.service.GetPortfolio(r.Context(), identity(r).UserID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, portfolio)
}

// ListTransactions pages through the caller's history, newest first.
// GET /v1/accounts/me/transactions?kind=&status=&limit=&offset=
func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	filter := repository.TransactionFilter{Limit: limit, Offset: offset}
	if raw := r.URL.Query().Get("kind"); raw != "" {
		kind := domain.TransactionKind(raw)
		if !kind.Valid() {
			h.respondWithError(w, fmt.Errorf("%w: unknown kind %q", util.ErrInvalidInput, raw))
			return
		}
		filter.Kind = &kind
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.TransactionStatus(raw)
		if !status.Valid() {
			h.respondWithError(w, fmt.Errorf("%w: unknown status %q", util.ErrInvalidInput, raw))
			return
		}
		filter.Status = &status
	}

	transactions, total, err := h.service.ListTransactions(r.Context(), identity(r).UserID, filter)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, types.PaginatedResponse[domain.Transaction]{
		Data: transactions, Limit: limit, Offset: offset, TotalCount: total,
	})
}

// ListWithdrawals pages through the caller's withdrawal requests.
// GET /v1/accounts/me/withdrawals
func (h *LedgerHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	requests, total, err := h.service.ListWithdrawalRequests(r.Context(), repository.WithdrawalFilter{
		UserID: identity(r).UserID, Limit: limit, Offset: offset,
	})
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, types.PaginatedResponse[domain.WithdrawalRequest]{
		Data: requests, Limit: limit, Offset: offset, TotalCount: total,
	})
}

// DepositRequest represents the request body for a deposit claim.
type DepositRequest struct {
	Currency string          `json:"currency" validate:"required,alpha,max=8"`
	Amount   decimal.Decimal `json:"amount"`
}

// Deposit records a deposit claim awaiting confirmation.
// POST /v1/deposits
func (h *LedgerHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondWithError(w, err)
		return
	}
	currency, err := domain.ParseCurrency(req.Currency)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	transaction, err := h.service.Deposit(r.Context(), identity(r).UserID, currency, req.Amount)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusAccepted, transaction)
}

// DepositInfo lists deposit networks, confirmations, minimums and addresses.
// GET /v1/deposits/info
func (h *LedgerHandler) DepositInfo(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, h.service.DepositInfo())
}

// ConversionRequest represents the request body for a conversion.
type ConversionRequest struct {
	From   string          `json:"from" validate:"required,alpha,max=8"`
	To     string          `json:"to" validate:"required,alpha,max=8"`
	Amount decimal.Decimal `json:"amount"`
}

// Convert exchanges between two currencies of the caller's account.
// POST /v1/conversions
func (h *LedgerHandler) Convert(w http.ResponseWriter, r *http.Request) {
	var req ConversionRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondWithError(w, err)
		return
	}
	from, err := domain.ParseCurrency(req.From)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	to, err := domain.ParseCurrency(req.To)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	account, transaction, err := h.service.Convert(r.Context(), identity(r).UserID, from, to, req.Amount)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{
		"account":     account,
		"transaction": transaction,
	})
}

// WithdrawalRequest represents the request body for a withdrawal.
type WithdrawalRequest struct {
	Currency           string          `json:"currency" validate:"required,alpha,max=8"`
	Amount             decimal.Decimal `json:"amount"`
	DestinationAddress string          `json:"destination_address" validate:"max=128"`
	IdempotencyKey     string          `json:"idempotency_key" validate:"omitempty,max=64"`
}

// RequestWithdrawal holds the funds and queues the request for review. The
// Idempotency-Key header is used when the body carries no key.
// POST /v1/withdrawals
func (h *LedgerHandler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req WithdrawalRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondWithError(w, err)
		return
	}
	currency, err := domain.ParseCurrency(req.Currency)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	key := req.IdempotencyKey
	if key == "" {
		key = strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	}

	account, request, err := h.service.RequestWithdrawal(r.Context(), service.WithdrawalInput{
		UserID:             identity(r).UserID,
		Currency:           currency,
		Amount:             req.Amount,
		DestinationAddress: req.DestinationAddress,
		IdempotencyKey:     key,
	})
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, map[string]any{
		"account":    account,
		"withdrawal": request,
	})
}

// GetRates returns the rate snapshot conversions currently use.
// GET /v1/rates
func (h *LedgerHandler) GetRates(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, h.service.CurrentRates())
}
