// internal/repository/memory/store_test.go
package memory

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerage-ledger/internal/domain"
	"brokerage-ledger/internal/repository"
	"brokerage-ledger/internal/util"
)

func seed(t *testing.T, s *Store, userID string) {
	t.Helper()
	require.NoError(t, s.Accounts().Create(context.Background(), domain.NewAccount(userID)))
}

func TestRollbackUndoesEverything(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "alice")

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Accounts().UpdateBalances(ctx, "alice", domain.Balances{}.With(domain.BTC, decimal.NewFromInt(1))))
	record := domain.NewTransaction("alice", domain.TransactionKindDeposit, domain.BTC, decimal.NewFromInt(1), domain.TransactionStatusCompleted, "")
	require.NoError(t, tx.Transactions().Create(ctx, record))
	key := "k1"
	require.NoError(t, tx.Withdrawals().Create(ctx, &domain.WithdrawalRequest{UserID: "alice", IdempotencyKey: &key, LinkedTransactionID: record.ID}))
	require.NoError(t, tx.Rollback())

	account, err := s.Accounts().Get(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, account.Balances.Get(domain.BTC).IsZero())

	_, total, err := s.Transactions().ListByUser(ctx, "alice", repository.TransactionFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = s.Withdrawals().GetByIdempotencyKey(ctx, "alice", key)
	assert.True(t, util.IsError(err, util.ErrNotFound))

	assert.ErrorIs(t, tx.Rollback(), sql.ErrTxDone)
	assert.ErrorIs(t, tx.Commit(), sql.ErrTxDone)
}

func TestCommitKeepsChangesAndReleasesLock(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "alice")

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Accounts().UpdateStatus(ctx, "alice", domain.AccountStatusSuspended))
	require.NoError(t, tx.Commit())

	account, err := s.Accounts().Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusSuspended, account.Status)

	_, err = tx.Accounts().Get(ctx, "alice")
	assert.ErrorIs(t, err, sql.ErrTxDone)

	done := make(chan struct{})
	go func() {
		tx2, err := s.Begin(ctx)
		if assert.NoError(t, err) {
			_ = tx2.Rollback()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("store lock was not released by Commit")
	}
}

func TestBeginWaitEndsWithContext(t *testing.T) {
	s := NewStore()
	seed(t, s, "alice")

	open, err := s.Begin(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	started := time.Now()
	_, err = s.Begin(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), time.Second)

	require.NoError(t, open.Rollback())
	next, err := s.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, next.Commit())

	_, err = s.Accounts().Get(context.Background(), "alice")
	assert.NoError(t, err)
}

func TestDuplicatesAndMissing(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "alice")

	err := s.Accounts().Create(ctx, domain.NewAccount("alice"))
	assert.True(t, util.IsError(err, util.ErrAccountExists))

	_, err = s.Accounts().Get(ctx, "bob")
	assert.True(t, util.IsError(err, util.ErrNotFound))

	err = s.Transactions().Create(ctx, domain.NewTransaction("bob", domain.TransactionKindDeposit, domain.BTC, decimal.NewFromInt(1), domain.TransactionStatusPending, ""))
	assert.True(t, util.IsError(err, util.ErrNotFound))

	key := "same"
	require.NoError(t, s.Withdrawals().Create(ctx, &domain.WithdrawalRequest{UserID: "alice", IdempotencyKey: &key}))
	err = s.Withdrawals().Create(ctx, &domain.WithdrawalRequest{UserID: "alice", IdempotencyKey: &key})
	assert.True(t, util.IsError(err, util.ErrIdempotencyConflict))
}

func TestListingFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "alice")
	seed(t, s, "bob")

	for i := 0; i < 5; i++ {
		kind := domain.TransactionKindDeposit
		if i%2 == 1 {
			kind = domain.TransactionKindConversion
		}
		require.NoError(t, s.Transactions().Create(ctx, domain.NewTransaction("alice", kind, domain.ETH, decimal.NewFromInt(int64(i+1)), domain.TransactionStatusCompleted, "")))
	}
	require.NoError(t, s.Transactions().Create(ctx, domain.NewTransaction("bob", domain.TransactionKindDeposit, domain.ETH, decimal.NewFromInt(1), domain.TransactionStatusPending, "")))

	kind := domain.TransactionKindDeposit
	got, total, err := s.Transactions().ListByUser(ctx, "alice", repository.TransactionFilter{Kind: &kind, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, got, 2)
	assert.Equal(t, int64(5), got[0].ID, "newest first")
	assert.Equal(t, int64(3), got[1].ID)

	accounts, n, err := s.Accounts().List(ctx, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.Len(t, accounts, 1)
	assert.Equal(t, "bob", accounts[0].UserID)
}
