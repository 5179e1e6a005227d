// internal/api/handler/respond.go
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"brokerage-ledger/internal/api/middleware"
	"brokerage-ledger/internal/api/types"
	"brokerage-ledger/internal/util"
)

// DefaultTimeout bounds the handling of a single request.
const DefaultTimeout = 15 * time.Second

const (
	defaultLimit = 20
	maxLimit     = 100
	maxBodyBytes = 1 << 20
)

// errorStatus maps the ledger error taxonomy onto HTTP status codes.
var errorStatus = []struct {
	err    error
	status int
}{
	{util.ErrInvalidInput, http.StatusBadRequest},
	{util.ErrInvalidAmount, http.StatusBadRequest},
	{util.ErrInvalidConversion, http.StatusBadRequest},
	{util.ErrInvalidAddress, http.StatusBadRequest},
	{util.ErrUnsupportedCurrency, http.StatusBadRequest},
	{util.ErrBelowMinimum, http.StatusUnprocessableEntity},
	{util.ErrInsufficientFunds, http.StatusPaymentRequired},
	{util.ErrUnauthorized, http.StatusForbidden},
	{util.ErrAccountSuspended, http.StatusForbidden},
	{util.ErrNotFound, http.StatusNotFound},
	{util.ErrAlreadyResolved, http.StatusConflict},
	{util.ErrAccountExists, http.StatusConflict},
	{util.ErrIdempotencyConflict, http.StatusConflict},
	{util.ErrContention, http.StatusServiceUnavailable},
}

// responder writes JSON bodies and maps service errors. Embedded by every handler.
type responder struct {
	logger   *slog.Logger
	validate *validator.Validate
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: logger, validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (h responder) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// respondWithError renders err as {"error": {"code", "message"}}. Errors outside
// the taxonomy are logged and hidden behind a generic 500.
func (h responder) respondWithError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			status = e.status
			break
		}
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Unhandled service error", "error", err)
		message = "Internal server error"
	}
	if util.IsRetryable(err) {
		w.Header().Set("Retry-After", "1")
	}
	h.respondWithJSON(w, status, types.ErrorResponse{Error: types.ErrorBody{
		Code:    util.ErrorCode(err),
		Message: message,
	}})
}

// decode reads a JSON body into dst and runs the struct validations.
func (h responder) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", util.ErrInvalidInput, err)
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: field %s failed %q", util.ErrInvalidInput, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", util.ErrInvalidInput, err)
	}
	return nil
}

func identity(r *http.Request) middleware.Identity {
	id, _ := middleware.IdentityFrom(r.Context())
	return id
}

// pagination reads limit and offset, falling back to the defaults on bad input.
func pagination(r *http.Request) (limit, offset int) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset, err = strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad id %q", util.ErrInvalidInput, raw)
	}
	return id, nil
}
