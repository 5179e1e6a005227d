// internal/repository/memory/store.go
package memory

import (
	"context"
	"database/sql"
	"sync"

	"brokerage-ledger/internal/domain"
	"brokerage-ledger/internal/repository"
)

// data is the whole ledger state held in memory.
type data struct {
	accounts     map[string]domain.Account
	order        []string                   // account ids in creation order
	transactions []domain.Transaction       // id = index + 1
	withdrawals  []domain.WithdrawalRequest // id = index + 1
	idempotency  map[idemKey]int64
}

type idemKey struct{ userID, key string }

// Store implements repository.Store in process memory. A unit of work holds the
// write lock until it ends and undoes its changes on rollback, so units of work
// on different accounts still run one at a time. Reads outside a unit of work
// take the read lock per call.
type Store struct {
	mu    sync.RWMutex
	units chan struct{} // one slot, held by the open unit of work
	d     data
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		units: make(chan struct{}, 1),
		d: data{
			accounts:    make(map[string]domain.Account),
			idempotency: make(map[idemKey]int64),
		},
	}
}

func (s *Store) Accounts() repository.AccountRepository { return &accountRepo{base{s: s}} }

func (s *Store) Transactions() repository.TransactionRepository {
	return &transactionRepo{base{s: s}}
}

func (s *Store) Withdrawals() repository.WithdrawalRepository { return &withdrawalRepo{base{s: s}} }

// Begin takes the store's write lock for the lifetime of the unit of work. The
// wait for another open unit of work ends when ctx does.
func (s *Store) Begin(ctx context.Context) (repository.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case s.units <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.mu.Lock()
	return &unitOfWork{s: s}, nil
}

type unitOfWork struct {
	s    *Store
	undo []func()
	done bool
}

func (u *unitOfWork) Accounts() repository.AccountRepository { return &accountRepo{base{s: u.s, u: u}} }

func (u *unitOfWork) Transactions() repository.TransactionRepository {
	return &transactionRepo{base{s: u.s, u: u}}
}

func (u *unitOfWork) Withdrawals() repository.WithdrawalRepository {
	return &withdrawalRepo{base{s: u.s, u: u}}
}

func (u *unitOfWork) Commit() error {
	if u.done {
		return sql.ErrTxDone
	}
	u.done = true
	u.undo = nil
	u.s.release()
	return nil
}

func (u *unitOfWork) Rollback() error {
	if u.done {
		return sql.ErrTxDone
	}
	u.done = true
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.undo = nil
	u.s.release()
	return nil
}

func (s *Store) release() {
	s.mu.Unlock()
	<-s.units
}

// base routes every repository call either through the caller's unit of work
// or through the store's own locking.
type base struct {
	s *Store
	u *unitOfWork
}

func (b base) read(fn func(d *data) error) error {
	if b.u == nil {
		b.s.mu.RLock()
		defer b.s.mu.RUnlock()
	} else if b.u.done {
		return sql.ErrTxDone
	}
	return fn(&b.s.d)
}

// write runs fn with a function that registers an undo step.
func (b base) write(fn func(d *data, onRollback func(func())) error) error {
	if b.u == nil {
		b.s.mu.Lock()
		defer b.s.mu.Unlock()
		return fn(&b.s.d, func(func()) {})
	}
	if b.u.done {
		return sql.ErrTxDone
	}
	return fn(&b.s.d, func(f func()) { b.u.undo = append(b.u.undo, f) })
}

// page applies limit and offset to n items and returns the index range.
func page(n, limit, offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	end := n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	return offset, end
}
