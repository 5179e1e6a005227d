// internal/repository/account_repo.go
package repository

import (
	"context"

	"brokerage-ledger/internal/domain"
)

// AccountRepository defines the data operations on accounts.
type AccountRepository interface {
	// Create inserts a new account. A duplicate user id yields util.ErrAccountExists.
	Create(ctx context.Context, account *domain.Account) error
	// Get returns the account without locking it.
	Get(ctx context.Context, userID string) (*domain.Account, error)
	// GetForUpdate returns the account and locks it until the unit of work ends.
	GetForUpdate(ctx context.Context, userID string) (*domain.Account, error)
	// UpdateBalances replaces the full balance set.
	UpdateBalances(ctx context.Context, userID string, balances domain.Balances) error
	UpdateStatus(ctx context.Context, userID string, status domain.AccountStatus) error
	List(ctx context.Context, limit, offset int) ([]domain.Account, int64, error)
	// Totals returns the number of accounts and the per-currency sum of all balances.
	Totals(ctx context.Context) (int64, domain.Balances, error)
}
