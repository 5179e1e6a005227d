// internal/domain/transaction.go
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal" // For precise monetary calculations
)

// TransactionKind defines the kind of a balance-affecting event.
type TransactionKind string

const (
	TransactionKindDeposit         TransactionKind = "deposit"
	TransactionKindWithdrawal      TransactionKind = "withdrawal"
	TransactionKindConversion      TransactionKind = "conversion"
	TransactionKindAdminAdjustment TransactionKind = "admin_adjustment"
)

// Valid reports whether k is a known kind.
func (k TransactionKind) Valid() bool {
	switch k {
	case TransactionKindDeposit, TransactionKindWithdrawal, TransactionKindConversion, TransactionKindAdminAdjustment:
		return true
	}
	return false
}

// TransactionStatus defines the status of a transaction record.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Valid reports whether s is a known status.
func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusFailed:
		return true
	}
	return false
}

// Transaction is an append-only ledger record. Only Status and ProcessedAt change after creation.
type Transaction struct {
	ID              int64             `db:"id" json:"id"`
	UserID          string            `db:"user_id" json:"user_id"`
	Kind            TransactionKind   `db:"kind" json:"kind"`
	Currency        Currency          `db:"currency" json:"currency"`
	Amount          decimal.Decimal   `db:"amount" json:"amount"`                     // signed delta for admin adjustments
	CounterCurrency *Currency         `db:"counter_currency" json:"counter_currency"` // conversion destination
	CounterAmount   *decimal.Decimal  `db:"counter_amount" json:"counter_amount"`
	Fee             decimal.Decimal   `db:"fee" json:"fee"`
	Description     string            `db:"description" json:"description"`
	Status          TransactionStatus `db:"status" json:"status"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	ProcessedAt     *time.Time        `db:"processed_at" json:"processed_at,omitempty"`
}

// NewTransaction creates a new Transaction instance in the given status.
// Records created directly as completed get ProcessedAt set to the creation time.
func NewTransaction(userID string, kind TransactionKind, currency Currency, amount decimal.Decimal, status TransactionStatus, description string) *Transaction {
	now := time.Now().UTC()
	tx := &Transaction{
		UserID:      userID,
		Kind:        kind,
		Currency:    currency,
		Amount:      amount,
		Fee:         decimal.Zero,
		Description: description,
		Status:      status,
		CreatedAt:   now,
	}
	if status != TransactionStatusPending {
		tx.ProcessedAt = &now
	}
	return tx
}

// NewConversion creates a completed conversion record holding both sides.
func NewConversion(userID string, from, to Currency, amount, converted decimal.Decimal) *Transaction {
	tx := NewTransaction(userID, TransactionKindConversion, from, amount, TransactionStatusCompleted,
		fmt.Sprintf("Converted %s %s to %s %s", amount, from, converted, to))
	tx.CounterCurrency = &to
	tx.CounterAmount = &converted
	return tx
}

// CanTransition reports whether the record may move to next.
// Only pending records move, and only to completed or failed.
func (t *Transaction) CanTransition(next TransactionStatus) bool {
	return t.Status == TransactionStatusPending &&
		(next == TransactionStatusCompleted || next == TransactionStatusFailed)
}
