// internal/repository/memory/repositories.go
package memory

import (
	"context"
	"fmt"
	"time"

	"brokerage-ledger/internal/domain"
	"brokerage-ledger/internal/repository"
	"brokerage-ledger/internal/util"
)

type accountRepo struct{ base }

func (r *accountRepo) Create(_ context.Context, account *domain.Account) error {
	return r.write(func(d *data, onRollback func(func())) error {
		if _, ok := d.accounts[account.UserID]; ok {
			return fmt.Errorf("failed to create account %s: %w", account.UserID, util.ErrAccountExists)
		}
		d.accounts[account.UserID] = *account
		d.order = append(d.order, account.UserID)
		onRollback(func() {
			delete(d.accounts, account.UserID)
			d.order = d.order[:len(d.order)-1]
		})
		return nil
	})
}

func (r *accountRepo) Get(_ context.Context, userID string) (*domain.Account, error) {
	var out domain.Account
	err := r.read(func(d *data) error {
		a, ok := d.accounts[userID]
		if !ok {
			return fmt.Errorf("failed to get account %s: %w", userID, util.ErrNotFound)
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetForUpdate is Get: a unit of work already holds the store exclusively.
func (r *accountRepo) GetForUpdate(ctx context.Context, userID string) (*domain.Account, error) {
	return r.Get(ctx, userID)
}

func (r *accountRepo) UpdateBalances(_ context.Context, userID string, balances domain.Balances) error {
	return r.update(userID, func(a *domain.Account) { a.Balances = balances })
}

func (r *accountRepo) UpdateStatus(_ context.Context, userID string, status domain.AccountStatus) error {
	return r.update(userID, func(a *domain.Account) { a.Status = status })
}

func (r *accountRepo) update(userID string, mutate func(a *domain.Account)) error {
	return r.write(func(d *data, onRollback func(func())) error {
		prev, ok := d.accounts[userID]
		if !ok {
			return fmt.Errorf("updating account %s: %w", userID, util.ErrNotFound)
		}
		next := prev
		mutate(&next)
		next.UpdatedAt = time.Now().UTC()
		d.accounts[userID] = next
		onRollback(func() { d.accounts[userID] = prev })
		return nil
	})
}

func (r *accountRepo) List(_ context.Context, limit, offset int) ([]domain.Account, int64, error) {
	var out []domain.Account
	var total int64
	err := r.read(func(d *data) error {
		total = int64(len(d.order))
		from, to := page(len(d.order), limit, offset)
		out = make([]domain.Account, 0, to-from)
		for _, id := range d.order[from:to] {
			out = append(out, d.accounts[id])
		}
		return nil
	})
	return out, total, err
}

func (r *accountRepo) Totals(_ context.Context) (int64, domain.Balances, error) {
	var totals domain.Balances
	var count int64
	err := r.read(func(d *data) error {
		count = int64(len(d.accounts))
		for _, a := range d.accounts {
			for _, c := range domain.Currencies {
				totals = totals.Add(c, a.Balances.Get(c))
			}
		}
		return nil
	})
	return count, totals, err
}

type transactionRepo struct{ base }

func (r *transactionRepo) Create(_ context.Context, transaction *domain.Transaction) error {
	return r.write(func(d *data, onRollback func(func())) error {
		if _, ok := d.accounts[transaction.UserID]; !ok {
			return fmt.Errorf("failed to create transaction: account %s: %w", transaction.UserID, util.ErrNotFound)
		}
		transaction.ID = int64(len(d.transactions)) + 1
		d.transactions = append(d.transactions, *transaction)
		onRollback(func() { d.transactions = d.transactions[:len(d.transactions)-1] })
		return nil
	})
}

func (r *transactionRepo) Get(_ context.Context, id int64) (*domain.Transaction, error) {
	var out domain.Transaction
	err := r.read(func(d *data) error {
		if id < 1 || id > int64(len(d.transactions)) {
			return fmt.Errorf("failed to get transaction %d: %w", id, util.ErrNotFound)
		}
		out = d.transactions[id-1]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *transactionRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Transaction, error) {
	return r.Get(ctx, id)
}

func (r *transactionRepo) UpdateStatus(_ context.Context, id int64, status domain.TransactionStatus, processedAt time.Time) error {
	return r.write(func(d *data, onRollback func(func())) error {
		if id < 1 || id > int64(len(d.transactions)) || d.transactions[id-1].Status != domain.TransactionStatusPending {
			return fmt.Errorf("updating pending transaction %d: %w", id, util.ErrNotFound)
		}
		prev := d.transactions[id-1]
		next := prev
		next.Status = status
		next.ProcessedAt = &processedAt
		d.transactions[id-1] = next
		onRollback(func() { d.transactions[id-1] = prev })
		return nil
	})
}

func (r *transactionRepo) ListByUser(_ context.Context, userID string, filter repository.TransactionFilter) ([]domain.Transaction, int64, error) {
	var out []domain.Transaction
	var total int64
	err := r.read(func(d *data) error {
		var matched []domain.Transaction
		for i := len(d.transactions) - 1; i >= 0; i-- {
			t := d.transactions[i]
			if t.UserID != userID ||
				(filter.Kind != nil && t.Kind != *filter.Kind) ||
				(filter.Status != nil && t.Status != *filter.Status) {
				continue
			}
			matched = append(matched, t)
		}
		total = int64(len(matched))
		from, to := page(len(matched), filter.Limit, filter.Offset)
		out = append([]domain.Transaction{}, matched[from:to]...)
		return nil
	})
	return out, total, err
}

type withdrawalRepo struct{ base }

func (r *withdrawalRepo) Create(_ context.Context, request *domain.WithdrawalRequest) error {
	return r.write(func(d *data, onRollback func(func())) error {
		var key idemKey
		if request.IdempotencyKey != nil {
			key = idemKey{request.UserID, *request.IdempotencyKey}
			if _, taken := d.idempotency[key]; taken {
				return fmt.Errorf("failed to create withdrawal request: %w", util.ErrIdempotencyConflict)
			}
		}
		request.ID = int64(len(d.withdrawals)) + 1
		d.withdrawals = append(d.withdrawals, *request)
		if request.IdempotencyKey != nil {
			d.idempotency[key] = request.ID
		}
		onRollback(func() {
			d.withdrawals = d.withdrawals[:len(d.withdrawals)-1]
			if request.IdempotencyKey != nil {
				delete(d.idempotency, key)
			}
		})
		return nil
	})
}

func (r *withdrawalRepo) Get(_ context.Context, id int64) (*domain.WithdrawalRequest, error) {
	var out domain.WithdrawalRequest
	err := r.read(func(d *data) error {
		if id < 1 || id > int64(len(d.withdrawals)) {
			return fmt.Errorf("failed to get withdrawal request %d: %w", id, util.ErrNotFound)
		}
		out = d.withdrawals[id-1]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *withdrawalRepo) GetForUpdate(ctx context.Context, id int64) (*domain.WithdrawalRequest, error) {
	return r.Get(ctx, id)
}

func (r *withdrawalRepo) GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.WithdrawalRequest, error) {
	var id int64
	err := r.read(func(d *data) error {
		var ok bool
		if id, ok = d.idempotency[idemKey{userID, key}]; !ok {
			return fmt.Errorf("failed to get withdrawal request by key for user %s: %w", userID, util.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *withdrawalRepo) UpdateStatus(_ context.Context, id int64, status domain.WithdrawalStatus, processedAt time.Time, resolvedBy string) error {
	return r.write(func(d *data, onRollback func(func())) error {
		if id < 1 || id > int64(len(d.withdrawals)) || d.withdrawals[id-1].Status != domain.WithdrawalStatusPending {
			return fmt.Errorf("updating pending withdrawal request %d: %w", id, util.ErrNotFound)
		}
		prev := d.withdrawals[id-1]
		next := prev
		next.Status = status
		next.ProcessedAt = &processedAt
		next.ResolvedBy = &resolvedBy
		d.withdrawals[id-1] = next
		onRollback(func() { d.withdrawals[id-1] = prev })
		return nil
	})
}

func (r *withdrawalRepo) List(_ context.Context, filter repository.WithdrawalFilter) ([]domain.WithdrawalRequest, int64, error) {
	var out []domain.WithdrawalRequest
	var total int64
	err := r.read(func(d *data) error {
		var matched []domain.WithdrawalRequest
		for _, w := range d.withdrawals {
			if (filter.Status != nil && w.Status != *filter.Status) ||
				(filter.UserID != "" && w.UserID != filter.UserID) {
				continue
			}
			matched = append(matched, w)
		}
		total = int64(len(matched))
		from, to := page(len(matched), filter.Limit, filter.Offset)
		out = append([]domain.WithdrawalRequest{}, matched[from:to]...)
		return nil
	})
	return out, total, err
}

func (r *withdrawalRepo) CountByStatus(_ context.Context, status domain.WithdrawalStatus) (int64, error) {
	var n int64
	err := r.read(func(d *data) error {
		for _, w := range d.withdrawals {
			if w.Status == status {
				n++
			}
		}
		return nil
	})
	return n, err
}
