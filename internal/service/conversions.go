// internal/service/conversions.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"brokerage-ledger/internal/domain"
	"brokerage-ledger/internal/events"
	"brokerage-ledger/internal/rates"
	"brokerage-ledger/internal/repository"
	"brokerage-ledger/internal/util"
)

// ConvertAmount returns amount * rate(from) / rate(to) from one snapshot,
// truncated to 18 decimal places so a conversion never rounds in the user's favour.
func ConvertAmount(table *rates.Table, from, to domain.Currency, amount decimal.Decimal) decimal.Decimal {
	q, _ := amount.Mul(table.Rate(from)).QuoRem(table.Rate(to), maxScale)
	return q
}

// Convert moves value between two currencies of one account at the current rates.
func (s *ledgerService) Convert(ctx context.Context, userID string, from, to domain.Currency, amount decimal.Decimal) (_ *domain.Account, _ *domain.Transaction, err error) {
	defer s.observe("convert", time.Now(), &err)

	if !from.Valid() || !to.Valid() {
		return nil, nil, fmt.Errorf("convert: %w", util.ErrUnsupportedCurrency)
	}
	if from == to {
		return nil, nil, fmt.Errorf("convert: %w: cannot convert %s to itself", util.ErrInvalidConversion, from)
	}
	if err := validateAmount(amount); err != nil {
		return nil, nil, fmt.Errorf("convert: %w", err)
	}

	table := s.rates.Current()
	converted := ConvertAmount(table, from, to, amount)
	if !converted.IsPositive() {
		return nil, nil, fmt.Errorf("convert: %w: %s %s is worth nothing in %s", util.ErrInvalidAmount, amount, from, to)
	}
	if err := checkStorable(converted); err != nil {
		return nil, nil, fmt.Errorf("convert: converted %s: %w", to, err)
	}

	var (
		account     *domain.Account
		transaction *domain.Transaction
	)
	err = s.withinAccount(ctx, "convert", userID, func(tx repository.Tx) error {
		account, err = lockedActiveAccount(ctx, tx, "convert", userID)
		if err != nil {
			return err
		}
		if have := account.Balances.Get(from); have.LessThan(amount) {
			return fmt.Errorf("convert: %w: need %s %s, have %s", util.ErrInsufficientFunds, amount, from, have)
		}

		account.Balances = account.Balances.Add(from, amount.Neg()).Add(to, converted)
		if err := checkStorable(account.Balances.Get(to)); err != nil {
			return fmt.Errorf("convert: resulting %s balance: %w", to, err)
		}
		if err := tx.Accounts().UpdateBalances(ctx, userID, account.Balances); err != nil {
			return fmt.Errorf("convert: failed to update balances: %w", err)
		}

		transaction = domain.NewConversion(userID, from, to, amount, converted)
		if err := tx.Transactions().Create(ctx, transaction); err != nil {
			return fmt.Errorf("convert: failed to create transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Conversion completed", "user_id", userID, "transaction_id", transaction.ID,
		"from", from, "to", to, "amount", amount, "converted", converted, "rates_source", table.Source())
	s.publish(ctx, events.Event{
		Type: events.TypeConversionCompleted, UserID: userID, TransactionID: transaction.ID,
		Currency: currencyPtr(from), Amount: decimalPtr(amount), Balances: &account.Balances,
	})
	return account, transaction, nil
}
