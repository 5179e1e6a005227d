// internal/events/events.go
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"brokerage-ledger/internal/domain"
)

// Type names a committed ledger change.
type Type string

const (
	TypeAccountCreated      Type = "account.created"
	TypeAccountStatus       Type = "account.status_changed"
	TypeDepositRequested    Type = "deposit.requested"
	TypeDepositConfirmed    Type = "deposit.confirmed"
	TypeDepositFailed       Type = "deposit.failed"
	TypeConversionCompleted Type = "conversion.completed"
	TypeWithdrawalRequested Type = "withdrawal.requested"
	TypeWithdrawalApproved  Type = "withdrawal.approved"
	TypeWithdrawalRejected  Type = "withdrawal.rejected"
	TypeBalanceAdjusted     Type = "balance.adjusted"
)

// Event tells subscribers an account changed, so UIs pull fresh state instead of
// computing balances themselves. It is published after commit.
type Event struct {
	Type          Type             `json:"type"`
	UserID        string           `json:"user_id"`
	TransactionID int64            `json:"transaction_id,omitempty"`
	WithdrawalID  int64            `json:"withdrawal_id,omitempty"`
	Currency      *domain.Currency `json:"currency,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Balances      *domain.Balances `json:"balances,omitempty"`
	Actor         string           `json:"actor,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

// Publisher delivers events. Delivery is best effort: the ledger change is
// already committed when Publish is called.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

func (NoopPublisher) Close() error { return nil }
