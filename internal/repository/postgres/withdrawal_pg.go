// internal/repository/postgres/withdrawal_pg.go
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"brokerage-ledger/internal/domain"
	"brokerage-ledger/internal/repository"
	"brokerage-ledger/internal/util"
)

const withdrawalColumns = `id, user_id, currency, amount, fee, destination_address, status, idempotency_key,
        linked_transaction_id, created_at, processed_at, resolved_by`

// WithdrawalRepository implements repository.WithdrawalRepository for PostgreSQL.
type WithdrawalRepository struct {
	q repository.DBExecutor
}

// NewWithdrawalRepository creates a WithdrawalRepository running on q.
func NewWithdrawalRepository(q repository.DBExecutor) *WithdrawalRepository {
	return &WithdrawalRepository{q: q}
}

// Create inserts a new withdrawal request and stores the generated ID on it.
func (r *WithdrawalRepository) Create(ctx context.Context, request *domain.WithdrawalRequest) error {
	query := `INSERT INTO withdrawal_requests (user_id, currency, amount, fee, destination_address, status,
                  idempotency_key, linked_transaction_id, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`

	err := r.q.QueryRowContext(ctx, query,
		request.UserID,
		request.Currency,
		request.Amount,
		request.Fee,
		request.DestinationAddress,
		request.Status,
		request.IdempotencyKey,
		request.LinkedTransactionID,
		request.CreatedAt,
	).Scan(&request.ID)
	return translate(err, util.ErrIdempotencyConflict, "failed to create withdrawal request")
}

// Get retrieves a withdrawal request by ID.
func (r *WithdrawalRepository) Get(ctx context.Context, id int64) (*domain.WithdrawalRequest, error) {
	return r.get(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1`, id)
}

// GetForUpdate retrieves a withdrawal request by ID and locks its row.
func (r *WithdrawalRepository) GetForUpdate(ctx context.Context, id int64) (*domain.WithdrawalRequest, error) {
	return r.get(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1 FOR UPDATE`, id)
}

// GetByIdempotencyKey retrieves the request a user submitted under key.
func (r *WithdrawalRepository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.WithdrawalRequest, error) {
	var request domain.WithdrawalRequest
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE user_id = $1 AND idempotency_key = $2`
	if err := r.q.GetContext(ctx, &request, query, userID, key); err != nil {
		return nil, translate(err, nil, "failed to get withdrawal request by key for user %s", userID)
	}
	return &request, nil
}

func (r *WithdrawalRepository) get(ctx context.Context, query string, id int64) (*domain.WithdrawalRequest, error) {
	var request domain.WithdrawalRequest
	if err := r.q.GetContext(ctx, &request, query, id); err != nil {
		return nil, translate(err, nil, "failed to get withdrawal request %d", id)
	}
	return &request, nil
}

// UpdateStatus moves a pending request to a terminal status.
func (r *WithdrawalRepository) UpdateStatus(ctx context.Context, id int64, status domain.WithdrawalStatus, processedAt time.Time, resolvedBy string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE withdrawal_requests SET status = $1, processed_at = $2, resolved_by = $3
         WHERE id = $4 AND status = 'pending'`,
		status, processedAt, resolvedBy, id)
	if err != nil {
		return translate(err, nil, "failed to update status of withdrawal request %d", id)
	}
	return expectOne(res, "updating pending withdrawal request %d", id)
}

// List retrieves a paginated, filtered list of withdrawal requests, oldest first.
func (r *WithdrawalRepository) List(ctx context.Context, filter repository.WithdrawalFilter) ([]domain.WithdrawalRequest, int64, error) {
	where := []string{"TRUE"}
	var args []any
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	requests := []domain.WithdrawalRequest{}
	query := fmt.Sprintf(`SELECT %s FROM withdrawal_requests WHERE %s ORDER BY created_at, id LIMIT $%d OFFSET $%d`,
		withdrawalColumns, cond, len(args)+1, len(args)+2)
	if err := r.q.SelectContext(ctx, &requests, query, append(args, filter.Limit, filter.Offset)...); err != nil {
		return nil, 0, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}

	var totalCount int64
	if err := r.q.GetContext(ctx, &totalCount, `SELECT COUNT(*) FROM withdrawal_requests WHERE `+cond, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count withdrawal requests: %w", err)
	}
	return requests, totalCount, nil
}

// CountByStatus counts requests in the given status.
func (r *WithdrawalRepository) CountByStatus(ctx context.Context, status domain.WithdrawalStatus) (int64, error) {
	var n int64
	if err := r.q.GetContext(ctx, &n, `SELECT COUNT(*) FROM withdrawal_requests WHERE status = $1`, status); err != nil {
		return 0, fmt.Errorf("failed to count %s withdrawal requests: %w", status, err)
	}
	return n, nil
}
