// internal/service/queries.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"brokerage-ledger/internal/domain"
	"brokerage-ledger/internal/rates"
	"brokerage-ledger/internal/repository"
	"brokerage-ledger/internal/valuation"
)

// Reads below never take the account lock and may trail an in-flight write.

// Portfolio is an account valued at one rate snapshot.
type Portfolio struct {
	Account        *domain.Account  `json:"account"`
	Lines          []valuation.Line `json:"lines"`
	TotalUSD       decimal.Decimal  `json:"total_usd"`
	TotalDisplay   string           `json:"total_display"`
	RatesUpdatedAt time.Time        `json:"rates_updated_at"`
}

// PlatformSummary aggregates every account for administrators.
type PlatformSummary struct {
	AccountCount       int64           `json:"account_count"`
	Totals             domain.Balances `json:"totals"`
	TotalUSD           decimal.Decimal `json:"total_usd"`
	TotalDisplay       string          `json:"total_display"`
	PendingWithdrawals int64           `json:"pending_withdrawals"`
}

// DepositChannel tells a user where and how to send a deposit.
type DepositChannel struct {
	domain.NetworkPolicy
	Address string `json:"address"`
}

func (s *ledgerService) GetAccount(ctx context.Context, userID string) (*domain.Account, error) {
	account, err := s.store.Accounts().Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

// GetPortfolio returns the account with its USD valuation.
func (s *ledgerService) GetPortfolio(ctx context.Context, userID string) (*Portfolio, error) {
	account, err := s.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	table := s.rates.Current()
	total := valuation.TotalValue(account.Balances, table)
	return &Portfolio{
		Account:        account,
		Lines:          valuation.Breakdown(account.Balances, table),
		TotalUSD:       total,
		TotalDisplay:   valuation.FormatUSD(total),
		RatesUpdatedAt: table.UpdatedAt(),
	}, nil
}

func (s *ledgerService) ListTransactions(ctx context.Context, userID string, filter repository.TransactionFilter) ([]domain.Transaction, int64, error) {
	if _, err := s.store.Accounts().Get(ctx, userID); err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	transactions, total, err := s.store.Transactions().ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return transactions, total, nil
}

func (s *ledgerService) ListWithdrawalRequests(ctx context.Context, filter repository.WithdrawalFilter) ([]domain.WithdrawalRequest, int64, error) {
	requests, total, err := s.store.Withdrawals().List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list withdrawal requests: %w", err)
	}
	return requests, total, nil
}

func (s *ledgerService) GetWithdrawal(ctx context.Context, id int64) (*domain.WithdrawalRequest, error) {
	request, err := s.store.Withdrawals().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get withdrawal: %w", err)
	}
	return request, nil
}

func (s *ledgerService) ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, int64, error) {
	accounts, total, err := s.store.Accounts().List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, total, nil
}

// PlatformSummary totals every balance and values it at the current rates.
func (s *ledgerService) PlatformSummary(ctx context.Context) (*PlatformSummary, error) {
	count, totals, err := s.store.Accounts().Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("platform summary: %w", err)
	}
	pending, err := s.store.Withdrawals().CountByStatus(ctx, domain.WithdrawalStatusPending)
	if err != nil {
		return nil, fmt.Errorf("platform summary: %w", err)
	}
	total := valuation.TotalValue(totals, s.rates.Current())
	return &PlatformSummary{
		AccountCount:       count,
		Totals:             totals,
		TotalUSD:           total,
		TotalDisplay:       valuation.FormatUSD(total),
		PendingWithdrawals: pending,
	}, nil
}

// DepositInfo lists the deposit network, limits and address per crypto currency.
func (s *ledgerService) DepositInfo() []DepositChannel {
	channels := make([]DepositChannel, 0, len(domain.CryptoCurrencies))
	for _, c := range domain.CryptoCurrencies {
		policy, _ := domain.PolicyFor(c)
		channels = append(channels, DepositChannel{NetworkPolicy: policy, Address: s.addresses[c]})
	}
	return channels
}

func (s *ledgerService) CurrentRates() *rates.Table { return s.rates.Current() }
