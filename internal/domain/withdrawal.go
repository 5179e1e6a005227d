// internal/domain/withdrawal.go
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalStatus defines the status of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s WithdrawalStatus) Valid() bool {
	switch s {
	case WithdrawalStatusPending, WithdrawalStatusApproved, WithdrawalStatusRejected:
		return true
	}
	return false
}

// Decision is an administrator's verdict on a pending withdrawal.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision parses "approve" or "reject".
func ParseDecision(s string) (Decision, bool) {
	switch d := Decision(s); d {
	case DecisionApprove, DecisionReject:
		return d, true
	}
	return "", false
}

// Outcome returns the terminal statuses a decision moves the request and its linked record to.
func (d Decision) Outcome() (WithdrawalStatus, TransactionStatus) {
	if d == DecisionApprove {
		return WithdrawalStatusApproved, TransactionStatusCompleted
	}
	return WithdrawalStatusRejected, TransactionStatusFailed
}

// WithdrawalRequest is a held withdrawal awaiting an administrator decision.
type WithdrawalRequest struct {
	ID                  int64            `db:"id" json:"id"`
	UserID              string           `db:"user_id" json:"user_id"`
	Currency            Currency         `db:"currency" json:"currency"`
	Amount              decimal.Decimal  `db:"amount" json:"amount"`
	Fee                 decimal.Decimal  `db:"fee" json:"fee"`
	DestinationAddress  string           `db:"destination_address" json:"destination_address"`
	Status              WithdrawalStatus `db:"status" json:"status"`
	IdempotencyKey      *string          `db:"idempotency_key" json:"idempotency_key,omitempty"`
	LinkedTransactionID int64            `db:"linked_transaction_id" json:"linked_transaction_id"`
	CreatedAt           time.Time        `db:"created_at" json:"created_at"`
	ProcessedAt         *time.Time       `db:"processed_at" json:"processed_at,omitempty"`
	ResolvedBy          *string          `db:"resolved_by" json:"resolved_by,omitempty"`
}

// NewWithdrawalRequest creates a pending request linked to an existing withdrawal record.
func NewWithdrawalRequest(record *Transaction, destination string, idempotencyKey string) *WithdrawalRequest {
	w := &WithdrawalRequest{
		UserID:              record.UserID,
		Currency:            record.Currency,
		Amount:              record.Amount,
		Fee:                 record.Fee,
		DestinationAddress:  destination,
		Status:              WithdrawalStatusPending,
		LinkedTransactionID: record.ID,
		CreatedAt:           record.CreatedAt,
	}
	if idempotencyKey != "" {
		w.IdempotencyKey = &idempotencyKey
	}
	return w
}

// NewWithdrawalRecord creates the pending log entry a withdrawal request links to.
func NewWithdrawalRecord(userID string, currency Currency, amount, fee decimal.Decimal, destination string) *Transaction {
	tx := NewTransaction(userID, TransactionKindWithdrawal, currency, amount, TransactionStatusPending,
		fmt.Sprintf("Withdrawal of %s %s to %s", amount, currency, destination))
	tx.Fee = fee
	return tx
}

// Hold is the amount debited from the account while the request is pending.
func (w *WithdrawalRequest) Hold() decimal.Decimal { return w.Amount.Add(w.Fee) }

// SamePayload reports whether a retried request carries the same parameters.
func (w *WithdrawalRequest) SamePayload(currency Currency, amount decimal.Decimal, destination string) bool {
	return w.Currency == currency && w.Amount.Equal(amount) && w.DestinationAddress == destination
}
