// internal/repository/withdrawal_repo.go
package repository

import (
	"context"
	"time"

	"brokerage-ledger/internal/domain"
)

// WithdrawalFilter narrows a withdrawal listing. Empty fields match everything.
type WithdrawalFilter struct {
	Status *domain.WithdrawalStatus
	UserID string
	Limit  int
	Offset int
}

// WithdrawalRepository defines the data operations on the withdrawal request queue.
type WithdrawalRepository interface {
	// Create inserts a request and sets its ID. A reused idempotency key yields
	// util.ErrIdempotencyConflict.
	Create(ctx context.Context, request *domain.WithdrawalRequest) error
	Get(ctx context.Context, id int64) (*domain.WithdrawalRequest, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.WithdrawalRequest, error)
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.WithdrawalRequest, error)
	UpdateStatus(ctx context.Context, id int64, status domain.WithdrawalStatus, processedAt time.Time, resolvedBy string) error
	// List returns matching requests oldest first plus the total matching count.
	List(ctx context.Context, filter WithdrawalFilter) ([]domain.WithdrawalRequest, int64, error)
	CountByStatus(ctx context.Context, status domain.WithdrawalStatus) (int64, error)
}
