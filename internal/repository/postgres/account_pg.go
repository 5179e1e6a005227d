// internal/repository/postgres/account_pg.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"brokerage-ledger/internal/domain"
	"brokerage-ledger/internal/repository"
	"brokerage-ledger/internal/util"
)

const accountColumns = `user_id, usd, btc, eth, usdt, usdc, status, created_at, updated_at`

// accountRow mirrors one row of the accounts table.
type accountRow struct {
	UserID    string               `db:"user_id"`
	USD       decimal.Decimal      `db:"usd"`
	BTC       decimal.Decimal      `db:"btc"`
	ETH       decimal.Decimal      `db:"eth"`
	USDT      decimal.Decimal      `db:"usdt"`
	USDC      decimal.Decimal      `db:"usdc"`
	Status    domain.AccountStatus `db:"status"`
	CreatedAt time.Time            `db:"created_at"`
	UpdatedAt time.Time            `db:"updated_at"`
}

func (r accountRow) toDomain() domain.Account {
	var b domain.Balances
	b[domain.USD], b[domain.BTC], b[domain.ETH], b[domain.USDT], b[domain.USDC] = r.USD, r.BTC, r.ETH, r.USDT, r.USDC
	return domain.Account{
		UserID:    r.UserID,
		Balances:  b,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// AccountRepository implements repository.AccountRepository for PostgreSQL.
type AccountRepository struct {
	q repository.DBExecutor
}

// NewAccountRepository creates an AccountRepository running on q.
func NewAccountRepository(q repository.DBExecutor) *AccountRepository {
	return &AccountRepository{q: q}
}

// Create inserts a new account row.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	b := account.Balances
	query := `INSERT INTO accounts (` + accountColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.ExecContext(ctx, query,
		account.UserID,
		b[domain.USD], b[domain.BTC], b[domain.ETH], b[domain.USDT], b[domain.USDC],
		account.Status,
		account.CreatedAt,
		account.UpdatedAt,
	)
	return translate(err, util.ErrAccountExists, "failed to create account %s", account.UserID)
}

// Get retrieves an account by user ID.
func (r *AccountRepository) Get(ctx context.Context, userID string) (*domain.Account, error) {
	return r.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1`, userID)
}

// GetForUpdate retrieves an account by user ID and locks its row.
func (r *AccountRepository) GetForUpdate(ctx context.Context, userID string) (*domain.Account, error) {
	return r.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 FOR UPDATE`, userID)
}

func (r *AccountRepository) get(ctx context.Context, query, userID string) (*domain.Account, error) {
	var row accountRow
	if err := r.q.GetContext(ctx, &row, query, userID); err != nil {
		return nil, translate(err, nil, "failed to get account %s", userID)
	}
	account := row.toDomain()
	return &account, nil
}

// UpdateBalances writes all five balances at once.
func (r *AccountRepository) UpdateBalances(ctx context.Context, userID string, balances domain.Balances) error {
	query := `UPDATE accounts SET usd = $1, btc = $2, eth = $3, usdt = $4, usdc = $5, updated_at = $6
              WHERE user_id = $7`
	res, err := r.q.ExecContext(ctx, query,
		balances[domain.USD], balances[domain.BTC], balances[domain.ETH], balances[domain.USDT], balances[domain.USDC],
		time.Now().UTC(), userID)
	if err != nil {
		return translate(err, nil, "failed to update balances for account %s", userID)
	}
	return expectOne(res, "updating balances for account %s", userID)
}

// UpdateStatus sets the account status.
func (r *AccountRepository) UpdateStatus(ctx context.Context, userID string, status domain.AccountStatus) error {
	res, err := r.q.ExecContext(ctx, `UPDATE accounts SET status = $1, updated_at = $2 WHERE user_id = $3`,
		status, time.Now().UTC(), userID)
	if err != nil {
		return translate(err, nil, "failed to update status for account %s", userID)
	}
	return expectOne(res, "updating status for account %s", userID)
}

// List retrieves a page of accounts ordered by creation time.
// It performs two queries: one for the data and one for the total count.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]domain.Account, int64, error) {
	rows := []accountRow{}
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at, user_id LIMIT $1 OFFSET $2`
	if err := r.q.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}

	var total int64
	if err := r.q.GetContext(ctx, &total, `SELECT COUNT(*) FROM accounts`); err != nil {
		return nil, 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	accounts := make([]domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, row.toDomain())
	}
	return accounts, total, nil
}

// Totals sums every balance column across all accounts.
func (r *AccountRepository) Totals(ctx context.Context) (int64, domain.Balances, error) {
	var row struct {
		Count int64           `db:"count"`
		USD   decimal.Decimal `db:"usd"`
		BTC   decimal.Decimal `db:"btc"`
		ETH   decimal.Decimal `db:"eth"`
		USDT  decimal.Decimal `db:"usdt"`
		USDC  decimal.Decimal `db:"usdc"`
	}
	query := `SELECT COUNT(*) AS count,
                     COALESCE(SUM(usd), 0) AS usd, COALESCE(SUM(btc), 0) AS btc, COALESCE(SUM(eth), 0) AS eth,
                     COALESCE(SUM(usdt), 0) AS usdt, COALESCE(SUM(usdc), 0) AS usdc
              FROM accounts`
	if err := r.q.GetContext(ctx, &row, query); err != nil {
		return 0, domain.Balances{}, fmt.Errorf("failed to total accounts: %w", err)
	}
	totals := accountRow{USD: row.USD, BTC: row.BTC, ETH: row.ETH, USDT: row.USDT, USDC: row.USDC}.toDomain().Balances
	return row.Count, totals, nil
}
