// internal/repository/store.go
package repository

import (
	"context"

	"brokerage-ledger/pkg/db"
)

// Repositories groups the three ledger collections.
type Repositories interface {
	Accounts() AccountRepository
	Transactions() TransactionRepository
	Withdrawals() WithdrawalRepository
}

// Tx is a unit of work: every repository it hands out writes inside the same
// transaction, and nothing is visible to others until Commit.
type Tx interface {
	Repositories
	db.TxController
}

// Store is the ledger persistence. Its own repositories read outside any unit of work.
type Store interface {
	Repositories
	Begin(ctx context.Context) (Tx, error)
}
