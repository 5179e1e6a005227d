// internal/api/handler/admin.go
package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"brokerage-ledger/internal/api/types"
	"brokerage-ledger/internal/domain"
	"brokerage-ledger/internal/repository"
	"brokerage-ledger/internal/service"
	"brokerage-ledger/internal/util"
)

// AdminHandler serves the back-office routes. The router only lets admins through.
type AdminHandler struct {
	responder
	service service.LedgerService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(svc service.LedgerService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{responder: newResponder(logger), service: svc}
}

// ListAccounts pages through every account.
// GET /v1/admin/accounts
func (h *AdminHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	accounts, total, err := h.service.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, types.PaginatedResponse[domain.Account]{
		Data: accounts, Limit: limit, Offset: offset, TotalCount: total,
	})
}

// GetAccount returns one account with its valuation.
// GET /v1/admin/accounts/{userID}
func (h *AdminHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	portfolio, err := h.service.GetPortfolio(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, portfolio)
}

// AdjustBalancesRequest replaces the full balance set of an account. Every
// currency code must be present; an omitted code is rejected rather than zeroed.
type AdjustBalancesRequest struct {
	Balances map[string]decimal.Decimal `json:"balances" validate:"required"`
}

func (req AdjustBalancesRequest) balances() (domain.Balances, error) {
	var (
		out  domain.Balances
		seen [domain.NumCurrencies]bool
	)
	for code, amount := range req.Balances {
		c, err := domain.ParseCurrency(code)
		if err != nil {
			return out, err
		}
		if seen[c] {
			return out, fmt.Errorf("%w: balance for %s given more than once", util.ErrInvalidInput, c)
		}
		seen[c] = true
		out = out.With(c, amount)
	}
	for _, c := range domain.Currencies {
		if !seen[c] {
			return out, fmt.Errorf("%w: balances must include every currency; missing %s", util.ErrInvalidInput, c)
		}
	}
	return out, nil
}

// AdjustBalances overrides an account's balances.
// PUT /v1/admin/accounts/{userID}/balances
func (h *AdminHandler) AdjustBalances(w http.ResponseWriter, r *http.Request) {
	var req AdjustBalancesRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondWithError(w, err)
		return
	}
	balances, err := req.balances()
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	account, records, err := h.service.AdminAdjustBalance(r.Context(), chi.URLParam(r, "userID"), balances, identity(r).UserID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{
		"account":      account,
		"transactions": records,
	})
}

// StatusRequest represents the request body for suspending or reactivating an account.
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active suspended"`
}

// SetStatus suspends or reactivates an account.
// PUT /v1/admin/accounts/{userID}/status
func (h *AdminHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondWithError(w, err)
		return
	}
	account, err := h.service.SetAccountStatus(r.Context(), chi.URLParam(r, "userID"), domain.AccountStatus(req.Status))
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, account)
}

// ListWithdrawals pages through withdrawal requests, oldest first.
// GET /v1/admin/withdrawals?status=&user_id=&limit=&offset=
func (h *AdminHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	filter := repository.WithdrawalFilter{UserID: r.URL.Query().Get("user_id"), Limit: limit, Offset: offset}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.WithdrawalStatus(raw)
		if !status.Valid() {
			h.respondWithError(w, fmt.Errorf("%w: unknown status %q", util.ErrInvalidInput, raw))
			return
		}
		filter.Status = &status
	}

	requests, total, err := h.service.ListWithdrawalRequests(r.Context(), filter)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, types.PaginatedResponse[domain.WithdrawalRequest]{
		Data: requests, Limit: limit, Offset: offset, TotalCount: total,
	})
}

// ResolveWithdrawal approves or rejects a pending withdrawal.
// POST /v1/admin/withdrawals/{id}/{decision}
func (h *AdminHandler) ResolveWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	decision, ok := domain.ParseDecision(chi.URLParam(r, "decision"))
	if !ok {
		h.respondWithError(w, fmt.Errorf("%w: decision must be approve or reject", util.ErrInvalidInput))
		return
	}

	request, record, err := h.service.ResolveWithdrawal(r.Context(), id, decision, identity(r).UserID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{
		"withdrawal":  request,
		"transaction": record,
	})
}

// ResolveDeposit confirms or fails a pending deposit.
// POST /v1/admin/deposits/{id}/{action}
func (h *AdminHandler) ResolveDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	switch chi.URLParam(r, "action") {
	case "confirm":
		account, record, err := h.service.ConfirmDeposit(r.Context(), id)
		if err != nil {
			h.respondWithError(w, err)
			return
		}
		h.respondWithJSON(w, http.StatusOK, map[string]any{"account": account, "transaction": record})
	case "fail":
		record, err := h.service.FailDeposit(r.Context(), id)
		if err != nil {
			h.respondWithError(w, err)
			return
		}
		h.respondWithJSON(w, http.StatusOK, map[string]any{"transaction": record})
	default:
		h.respondWithError(w, fmt.Errorf("%w: action must be confirm or fail", util.ErrInvalidInput))
	}
}

// Summary reports platform-wide totals.
// GET /v1/admin/summary
func (h *AdminHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.PlatformSummary(r.Context())
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, summary)
}
