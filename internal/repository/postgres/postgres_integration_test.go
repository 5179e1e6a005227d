// internal/repository/postgres/postgres_integration_test.go
package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerage-ledger/internal/domain"
	"brokerage-ledger/internal/repository"
	"brokerage-ledger/internal/util"
	"brokerage-ledger/pkg/db"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is not set")
	}
	ctx := context.Background()
	database, err := db.NewPostgresDBFromURL(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, database))
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func uniqueUser(t *testing.T) string {
	return fmt.Sprintf("%s-%d", t.Name(), time.Now().UnixNano())
}

func TestStoreRoundTrip(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	store := NewStore(database, time.Second)
	userID := uniqueUser(t)

	require.NoError(t, store.Accounts().Create(ctx, domain.NewAccount(userID)))
	err := store.Accounts().Create(ctx, domain.NewAccount(userID))
	assert.True(t, util.IsError(err, util.ErrAccountExists))

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	account, err := tx.Accounts().GetForUpdate(ctx, userID)
	require.NoError(t, err)
	balances := account.Balances.Add(domain.BTC, decimal.RequireFromString("0.002"))
	require.NoError(t, tx.Accounts().UpdateBalances(ctx, userID, balances))

	record := domain.NewWithdrawalRecord(userID, domain.BTC, decimal.RequireFromString("0.0015"), decimal.RequireFromString("0.0005"), "addr")
	require.NoError(t, tx.Transactions().Create(ctx, record))
	request := domain.NewWithdrawalRequest(record, "addr", "key-1")
	require.NoError(t, tx.Withdrawals().Create(ctx, request))
	require.NoError(t, tx.Commit())

	stored, err := store.Withdrawals().GetByIdempotencyKey(ctx, userID, "key-1")
	require.NoError(t, err)
	assert.Equal(t, request.ID, stored.ID)
	assert.Equal(t, domain.BTC, stored.Currency)
	assert.True(t, stored.Amount.Equal(decimal.RequireFromString("0.0015")))

	got, total, err := store.Transactions().ListByUser(ctx, userID, repository.TransactionFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].CounterCurrency)
	assert.True(t, got[0].Fee.Equal(decimal.RequireFromString("0.0005")))

	dup := domain.NewWithdrawalRequest(record, "addr", "key-1")
	err = store.Withdrawals().Create(ctx, dup)
	assert.True(t, util.IsError(err, util.ErrIdempotencyConflict))
}

func TestRowLockTimeoutIsContention(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	store := NewStore(database, 100*time.Millisecond)
	userID := uniqueUser(t)
	require.NoError(t, store.Accounts().Create(ctx, domain.NewAccount(userID)))

	holder, err := store.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = holder.Rollback() }()
	_, err = holder.Accounts().GetForUpdate(ctx, userID)
	require.NoError(t, err)

	waiter, err := store.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = waiter.Rollback() }()
	_, err = waiter.Accounts().GetForUpdate(ctx, userID)
	assert.True(t, util.IsError(err, util.ErrContention), "got %v", err)
}
