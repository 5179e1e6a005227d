// internal/util/errors.go
package util

import "errors"

// Ledger error taxonomy. Every error returned by the ledger service wraps exactly one of these.
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidConversion   = errors.New("invalid conversion")
	ErrInvalidAddress      = errors.New("invalid destination address")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrBelowMinimum        = errors.New("amount below minimum withdrawal")
	ErrNotFound            = errors.New("resource not found")
	ErrAlreadyResolved     = errors.New("already resolved")
	ErrContention          = errors.New("account is busy, retry later") // transient
	ErrUnauthorized        = errors.New("unauthorized")

	ErrInvalidInput        = errors.New("invalid input provided")
	ErrAccountExists       = errors.New("account already exists")
	ErrAccountSuspended    = errors.New("account is suspended")
	ErrIdempotencyConflict = errors.New("idempotency key reused with a different request")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidAmount, "invalid_amount"},
	{ErrInvalidConversion, "invalid_conversion"},
	{ErrInvalidAddress, "invalid_address"},
	{ErrUnsupportedCurrency, "unsupported_currency"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrBelowMinimum, "below_minimum"},
	{ErrNotFound, "not_found"},
	{ErrAlreadyResolved, "already_resolved"},
	{ErrContention, "contention"},
	{ErrUnauthorized, "unauthorized"},
	{ErrInvalidInput, "invalid_input"},
	{ErrAccountExists, "account_exists"},
	{ErrAccountSuspended, "account_suspended"},
	{ErrIdempotencyConflict, "idempotency_conflict"},
}

// IsError reports whether err wraps target.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}

// IsRetryable reports whether the caller may retry the operation with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrContention)
}

// ErrorCode returns the stable machine-readable code of err, or "internal_error"
// when err is not part of the taxonomy.
func ErrorCode(err error) string {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return "internal_error"
}
