// internal/repository/postgres/transaction_pg.go
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"brokerage-ledger/internal/domain"
	"brokerage-ledger/internal/repository"
)

const transactionColumns = `id, user_id, kind, currency, amount, counter_currency, counter_amount, fee,
        description, status, created_at, processed_at`

// TransactionRepository implements repository.TransactionRepository for PostgreSQL.
type TransactionRepository struct {
	q repository.DBExecutor
}

// NewTransactionRepository creates a TransactionRepository running on q.
func NewTransactionRepository(q repository.DBExecutor) *TransactionRepository {
	return &TransactionRepository{q: q}
}

// Create inserts a new transaction record and stores the generated ID on it.
func (r *TransactionRepository) Create(ctx context.Context, transaction *domain.Transaction) error {
	query := `INSERT INTO transactions (user_id, kind, currency, amount, counter_currency, counter_amount, fee,
                  description, status, created_at, processed_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`

	err := r.q.QueryRowContext(ctx, query,
		transaction.UserID,
		transaction.Kind,
		transaction.Currency,
		transaction.Amount,
		transaction.CounterCurrency,
		transaction.CounterAmount,
		transaction.Fee,
		transaction.Description,
		transaction.Status,
		transaction.CreatedAt,
		transaction.ProcessedAt,
	).Scan(&transaction.ID)
	return translate(err, nil, "failed to create transaction")
}

// Get retrieves a transaction record by ID.
func (r *TransactionRepository) Get(ctx context.Context, id int64) (*domain.Transaction, error) {
	return r.get(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
}

// GetForUpdate retrieves a transaction record by ID and locks its row.
func (r *TransactionRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Transaction, error) {
	return r.get(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id)
}

func (r *TransactionRepository) get(ctx context.Context, query string, id int64) (*domain.Transaction, error) {
	var transaction domain.Transaction
	if err := r.q.GetContext(ctx, &transaction, query, id); err != nil {
		return nil, translate(err, nil, "failed to get transaction %d", id)
	}
	return &transaction, nil
}

// UpdateStatus moves a pending record to a terminal status.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id int64, status domain.TransactionStatus, processedAt time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE transactions SET status = $1, processed_at = $2 WHERE id = $3 AND status = 'pending'`,
		status, processedAt, id)
	if err != nil {
		return translate(err, nil, "failed to update status of transaction %d", id)
	}
	return expectOne(res, "updating pending transaction %d", id)
}

// ListByUser retrieves a paginated, filtered list of a user's transactions.
// It performs two queries: one for the data and one for the total count.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID string, filter repository.TransactionFilter) ([]domain.Transaction, int64, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}
	if filter.Kind != nil {
		args = append(args, *filter.Kind)
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	transactions := []domain.Transaction{}
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, cond, len(args)+1, len(args)+2)
	if err := r.q.SelectContext(ctx, &transactions, query, append(args, filter.Limit, filter.Offset)...); err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions for user %s: %w", userID, err)
	}

	var totalCount int64
	if err := r.q.GetContext(ctx, &totalCount, `SELECT COUNT(*) FROM transactions WHERE `+cond, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to get total transaction count for user %s: %w", userID, err)
	}

	return transactions, totalCount, nil
}
