// internal/service/ledger_service.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"brokerage-ledger/internal/domain"
	"brokerage-ledger/internal/events"
	"brokerage-ledger/internal/lock"
	"brokerage-ledger/internal/rates"
	"brokerage-ledger/internal/repository"
	"brokerage-ledger/internal/util"
	"brokerage-ledger/pkg/db"
)

// maxScale is the number of fractional digits a stored amount may carry.
const maxScale = 18

// maxAmount is the exclusive upper bound on any stored amount: NUMERIC(38,18)
// leaves 20 integer digits.
var maxAmount = decimal.New(1, 38-maxScale)

// DefaultPublishTimeout bounds how long a committed operation waits on its event.
const DefaultPublishTimeout = 500 * time.Millisecond

// DefaultLockTimeout bounds the wait for another operation on the same account.
const DefaultLockTimeout = 2 * time.Second

// LedgerService defines the ledger operations. It is the single source of truth
// for balances: callers render what it returns and never compute balances themselves.
type LedgerService interface {
	CreateAccount(ctx context.Context, userID string) (*domain.Account, error)
	Deposit(ctx context.Context, userID string, currency domain.Currency, amount decimal.Decimal) (*domain.Transaction, error)
	ConfirmDeposit(ctx context.Context, transactionID int64) (*domain.Account, *domain.Transaction, error)
	FailDeposit(ctx context.Context, transactionID int64) (*domain.Transaction, error)
	Convert(ctx context.Context, userID string, from, to domain.Currency, amount decimal.Decimal) (*domain.Account, *domain.Transaction, error)
	RequestWithdrawal(ctx context.Context, req WithdrawalInput) (*domain.Account, *domain.WithdrawalRequest, error)
	ResolveWithdrawal(ctx context.Context, withdrawalID int64, decision domain.Decision, resolvedBy string) (*domain.WithdrawalRequest, *domain.Transaction, error)
	AdminAdjustBalance(ctx context.Context, userID string, newBalances domain.Balances, adminID string) (*domain.Account, []domain.Transaction, error)
	SetAccountStatus(ctx context.Context, userID string, status domain.AccountStatus) (*domain.Account, error)

	GetAccount(ctx context.Context, userID string) (*domain.Account, error)
	GetPortfolio(ctx context.Context, userID string) (*Portfolio, error)
	ListTransactions(ctx context.Context, userID string, filter repository.TransactionFilter) ([]domain.Transaction, int64, error)
	ListWithdrawalRequests(ctx context.Context, filter repository.WithdrawalFilter) ([]domain.WithdrawalRequest, int64, error)
	GetWithdrawal(ctx context.Context, id int64) (*domain.WithdrawalRequest, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, int64, error)
	PlatformSummary(ctx context.Context) (*PlatformSummary, error)
	DepositInfo() []DepositChannel
	CurrentRates() *rates.Table
}

// RateSource hands out the current rate snapshot.
type RateSource interface {
	Current() *rates.Table
}

// OperationObserver is told about every finished ledger operation.
type OperationObserver interface {
	ObserveOperation(operation string, start time.Time, err error)
}

// Options holds the optional collaborators of the ledger service.
type Options struct {
	LockTimeout      time.Duration
	PublishTimeout   time.Duration
	Publisher        events.Publisher
	Observer         OperationObserver
	Logger           *slog.Logger
	DepositAddresses map[domain.Currency]string
}

// ledgerService implements the LedgerService interface.
type ledgerService struct {
	store          repository.Store
	rates          RateSource
	locks          *lock.KeyedMutex
	lockTimeout    time.Duration
	publishTimeout time.Duration
	publisher      events.Publisher
	observer       OperationObserver
	logger         *slog.Logger
	addresses      map[domain.Currency]string
}

// NewLedgerService creates a new instance of LedgerService.
func NewLedgerService(store repository.Store, rateSource RateSource, opts Options) LedgerService {
	s := &ledgerService{
		store:          store,
		rates:          rateSource,
		locks:          lock.NewKeyedMutex(),
		lockTimeout:    opts.LockTimeout,
		publishTimeout: opts.PublishTimeout,
		publisher:      opts.Publisher,
		observer:       opts.Observer,
		logger:         opts.Logger,
		addresses:      opts.DepositAddresses,
	}
	if s.lockTimeout <= 0 {
		s.lockTimeout = DefaultLockTimeout
	}
	if s.publishTimeout <= 0 {
		s.publishTimeout = DefaultPublishTimeout
	}
	if s.publisher == nil {
		s.publisher = events.NoopPublisher{}
	}
	if s.logger == nil {
		s.logger = util.GetLogger()
	}
	return s
}

// withinAccount runs fn as one unit of work while holding userID's lock. The
// unit of work is committed only when fn returns nil.
func (s *ledgerService) withinAccount(ctx context.Context, op, userID string, fn func(tx repository.Tx) error) error {
	release, err := s.locks.Acquire(ctx, userID, s.lockTimeout)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer release()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer db.RollbackTx(tx, s.logger)

	if err := fn(tx); err != nil {
		return err
	}
	if err := db.CommitTx(tx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// observe is deferred by every public operation with a pointer to its named error.
func (s *ledgerService) observe(op string, start time.Time, err *error) {
	if s.observer != nil {
		s.observer.ObserveOperation(op, start, *err)
	}
}

// publish delivers a post-commit event. Failures are logged; the change is already
// durable. The caller's cancellation does not apply and the wait is capped at
// publishTimeout.
func (s *ledgerService) publish(ctx context.Context, event events.Event) {
	event.OccurredAt = time.Now().UTC()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish ledger event", "type", event.Type, "user_id", event.UserID, "error", err)
	}
}

// lockedActiveAccount loads and locks the account, rejecting suspended ones.
func lockedActiveAccount(ctx context.Context, tx repository.Tx, op, userID string) (*domain.Account, error) {
	account, err := tx.Accounts().GetForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get account %s: %w", op, userID, err)
	}
	if !account.Active() {
		return nil, fmt.Errorf("%s: account %s: %w", op, userID, util.ErrAccountSuspended)
	}
	return account, nil
}

// validateAmount requires a positive amount that fits a stored column.
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s must be greater than zero", util.ErrInvalidAmount, amount)
	}
	return checkStorable(amount)
}

// checkStorable rejects values with more than maxScale fractional digits or a
// magnitude of maxAmount or more.
func checkStorable(amount decimal.Decimal) error {
	if !amount.Equal(amount.Truncate(maxScale)) {
		return fmt.Errorf("%w: %s has more than %d decimal places", util.ErrInvalidAmount, amount, maxScale)
	}
	if amount.Abs().GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("%w: %s exceeds the largest storable amount", util.ErrInvalidAmount, amount)
	}
	return nil
}

func currencyPtr(c domain.Currency) *domain.Currency { return &c }

func decimalPtr(d decimal.Decimal) *decimal.Decimal { return &d }
