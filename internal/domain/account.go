// internal/domain/account.go
package domain

import "time"

// AccountStatus is the lifecycle state of an account. Accounts are never deleted.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
)

// Valid reports whether s is a known status.
func (s AccountStatus) Valid() bool {
	return s == AccountStatusActive || s == AccountStatusSuspended
}

// Account is the per-user multi-currency balance record.
type Account struct {
	UserID    string        `json:"user_id"`
	Balances  Balances      `json:"balances"`
	Status    AccountStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewAccount creates an active account with every balance at zero.
func NewAccount(userID string) *Account {
	now := time.Now().UTC()
	return &Account{
		UserID:    userID,
		Status:    AccountStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Active reports whether the account accepts user-initiated operations.
func (a *Account) Active() bool { return a.Status == AccountStatusActive }
