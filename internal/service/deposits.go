// internal/service/deposits.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"brokerage-ledger/internal/domain"
	"brokerage-ledger/internal/events"
	"brokerage-ledger/internal/repository"
	"brokerage-ledger/internal/util"
)

// Deposit records an unverified deposit claim as a pending transaction. The balance
// is credited only when the claim is confirmed.
func (s *ledgerService) Deposit(ctx context.Context, userID string, currency domain.Currency, amount decimal.Decimal) (_ *domain.Transaction, err error) {
	defer s.observe("deposit", time.Now(), &err)

	if err := validateAmount(amount); err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}
	if !currency.IsCrypto() {
		return nil, fmt.Errorf("deposit: %w: %s cannot be deposited", util.ErrUnsupportedCurrency, currency)
	}

	var transaction *domain.Transaction
	err = s.withinAccount(ctx, "deposit", userID, func(tx repository.Tx) error {
		if _, err := lockedActiveAccount(ctx, tx, "deposit", userID); err != nil {
			return err
		}
		transaction = domain.NewTransaction(userID, domain.TransactionKindDeposit, currency, amount, domain.TransactionStatusPending,
			fmt.Sprintf("Deposit of %s %s", amount, currency))
		if err := tx.Transactions().Create(ctx, transaction); err != nil {
			return fmt.Errorf("deposit: failed to create transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Deposit requested", "user_id", userID, "transaction_id", transaction.ID, "currency", currency, "amount", amount)
	s.publish(ctx, events.Event{
		Type: events.TypeDepositRequested, UserID: userID, TransactionID: transaction.ID,
		Currency: currencyPtr(currency), Amount: decimalPtr(amount),
	})
	return transaction, nil
}

// ConfirmDeposit credits a pending deposit to its account and completes the record.
func (s *ledgerService) ConfirmDeposit(ctx context.Context, transactionID int64) (_ *domain.Account, _ *domain.Transaction, err error) {
	defer s.observe("confirm_deposit", time.Now(), &err)

	account, record, err := s.resolveDeposit(ctx, "confirm deposit", transactionID, domain.TransactionStatusCompleted)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("Deposit confirmed", "user_id", record.UserID, "transaction_id", record.ID, "currency", record.Currency, "amount", record.Amount)
	s.publish(ctx, events.Event{
		Type: events.TypeDepositConfirmed, UserID: record.UserID, TransactionID: record.ID,
		Currency: currencyPtr(record.Currency), Amount: decimalPtr(record.Amount), Balances: &account.Balances,
	})
	return account, record, nil
}

// FailDeposit marks a pending deposit as failed. No balance changes.
func (s *ledgerService) FailDeposit(ctx context.Context, transactionID int64) (_ *domain.Transaction, err error) {
	defer s.observe("fail_deposit", time.Now(), &err)

	_, record, err := s.resolveDeposit(ctx, "fail deposit", transactionID, domain.TransactionStatusFailed)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Deposit failed", "user_id", record.UserID, "transaction_id", record.ID)
	s.publish(ctx, events.Event{Type: events.TypeDepositFailed, UserID: record.UserID, TransactionID: record.ID})
	return record, nil
}

func (s *ledgerService) resolveDeposit(ctx context.Context, op string, transactionID int64, next domain.TransactionStatus) (*domain.Account, *domain.Transaction, error) {
	// Unlocked read to find the owning account; everything is re-checked under the lock.
	record, err := s.store.Transactions().Get(ctx, transactionID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: failed to get transaction %d: %w", op, transactionID, err)
	}
	if record.Kind != domain.TransactionKindDeposit {
		return nil, nil, fmt.Errorf("%s: transaction %d is not a deposit: %w", op, transactionID, util.ErrNotFound)
	}
	if record.Status != domain.TransactionStatusPending {
		return nil, nil, fmt.Errorf("%s: transaction %d is %s: %w", op, transactionID, record.Status, util.ErrAlreadyResolved)
	}

	var account *domain.Account
	err = s.withinAccount(ctx, op, record.UserID, func(tx repository.Tx) error {
		current, err := tx.Transactions().GetForUpdate(ctx, transactionID)
		if err != nil {
			return fmt.Errorf("%s: failed to get transaction %d: %w", op, transactionID, err)
		}
		if !current.CanTransition(next) {
			return fmt.Errorf("%s: transaction %d is %s: %w", op, transactionID, current.Status, util.ErrAlreadyResolved)
		}

		account, err = tx.Accounts().GetForUpdate(ctx, current.UserID)
		if err != nil {
			return fmt.Errorf("%s: failed to get account %s: %w", op, current.UserID, err)
		}
		if next == domain.TransactionStatusCompleted {
			account.Balances = account.Balances.Add(current.Currency, current.Amount)
			if err := checkStorable(account.Balances.Get(current.Currency)); err != nil {
				return fmt.Errorf("%s: resulting %s balance: %w", op, current.Currency, err)
			}
			if err := tx.Accounts().UpdateBalances(ctx, account.UserID, account.Balances); err != nil {
				return fmt.Errorf("%s: failed to credit account: %w", op, err)
			}
		}

		now := time.Now().UTC()
		if err := tx.Transactions().UpdateStatus(ctx, transactionID, next, now); err != nil {
			return fmt.Errorf("%s: failed to update transaction: %w", op, err)
		}
		current.Status, current.ProcessedAt = next, &now
		record = current
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return account, record, nil
}
