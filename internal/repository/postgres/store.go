// internal/repository/postgres/store.go
package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"brokerage-ledger/internal/repository"
	"brokerage-ledger/pkg/db"
)

// Store implements repository.Store on PostgreSQL.
type Store struct {
	db          *sqlx.DB
	lockTimeout time.Duration
}

// NewStore creates a Store. lockTimeout bounds row lock waits inside every unit of work.
func NewStore(database *sqlx.DB, lockTimeout time.Duration) *Store {
	return &Store{db: database, lockTimeout: lockTimeout}
}

func (s *Store) Accounts() repository.AccountRepository { return NewAccountRepository(s.db) }

func (s *Store) Transactions() repository.TransactionRepository {
	return NewTransactionRepository(s.db)
}

func (s *Store) Withdrawals() repository.WithdrawalRepository { return NewWithdrawalRepository(s.db) }

// Begin opens a unit of work on a new database transaction.
func (s *Store) Begin(ctx context.Context) (repository.Tx, error) {
	tx, err := db.BeginTx(ctx, s.db, s.lockTimeout)
	if err != nil {
		return nil, translate(err, nil, "begin")
	}
	return &unitOfWork{tx: tx}, nil
}

// unitOfWork hands out repositories bound to one *sqlx.Tx.
type unitOfWork struct {
	tx *sqlx.Tx
}

func (u *unitOfWork) Accounts() repository.AccountRepository { return NewAccountRepository(u.tx) }

func (u *unitOfWork) Transactions() repository.TransactionRepository {
	return NewTransactionRepository(u.tx)
}

func (u *unitOfWork) Withdrawals() repository.WithdrawalRepository {
	return NewWithdrawalRepository(u.tx)
}

func (u *unitOfWork) Commit() error {
	return translate(db.CommitTx(u.tx), nil, "commit")
}

func (u *unitOfWork) Rollback() error { return u.tx.Rollback() }
