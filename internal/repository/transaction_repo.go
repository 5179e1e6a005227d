// internal/repository/transaction_repo.go
package repository

import (
	"context"
	"time"

	"brokerage-ledger/internal/domain"
)

// TransactionFilter narrows a transaction listing. Nil fields match everything.
type TransactionFilter struct {
	Kind   *domain.TransactionKind
	Status *domain.TransactionStatus
	Limit  int
	Offset int
}

// TransactionRepository defines the data operations on the transaction log.
type TransactionRepository interface {
	// Create appends a record and sets its ID.
	Create(ctx context.Context, transaction *domain.Transaction) error
	Get(ctx context.Context, id int64) (*domain.Transaction, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.Transaction, error)
	// UpdateStatus is the only mutation a record allows after creation.
	UpdateStatus(ctx context.Context, id int64, status domain.TransactionStatus, processedAt time.Time) error
	// ListByUser returns the user's records newest first plus the total matching count.
	ListByUser(ctx context.Context, userID string, filter TransactionFilter) ([]domain.Transaction, int64, error)
}
