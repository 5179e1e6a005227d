// internal/service/withdrawals.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"brokerage-ledger/internal/domain"
	"brokerage-ledger/internal/events"
	"brokerage-ledger/internal/repository"
	"brokerage-ledger/internal/util"
)

// WithdrawalInput carries a user's withdrawal request.
type WithdrawalInput struct {
	UserID             string
	Currency           domain.Currency
	Amount             decimal.Decimal
	DestinationAddress string
	// IdempotencyKey, when set, makes retries of the same request return the original.
	IdempotencyKey string
}

// RequestWithdrawal debits amount + fee immediately (the hold) and queues the
// request for an administrator decision.
func (s *ledgerService) RequestWithdrawal(ctx context.Context, in WithdrawalInput) (_ *domain.Account, _ *domain.WithdrawalRequest, err error) {
	defer s.observe("request_withdrawal", time.Now(), &err)

	policy, ok := domain.PolicyFor(in.Currency)
	if !ok {
		return nil, nil, fmt.Errorf("request withdrawal: %w: %s cannot be withdrawn", util.ErrUnsupportedCurrency, in.Currency)
	}
	if err := validateAmount(in.Amount); err != nil {
		return nil, nil, fmt.Errorf("request withdrawal: %w", err)
	}
	if in.Amount.LessThan(policy.MinimumWithdrawal) {
		return nil, nil, fmt.Errorf("request withdrawal: %w: minimum is %s %s", util.ErrBelowMinimum, policy.MinimumWithdrawal, in.Currency)
	}
	address := strings.TrimSpace(in.DestinationAddress)
	if address == "" {
		return nil, nil, fmt.Errorf("request withdrawal: %w", util.ErrInvalidAddress)
	}

	var (
		account  *domain.Account
		request  *domain.WithdrawalRequest
		replayed bool
	)
	err = s.withinAccount(ctx, "request withdrawal", in.UserID, func(tx repository.Tx) error {
		a, err := lockedActiveAccount(ctx, tx, "request withdrawal", in.UserID)
		if err != nil {
			return err
		}
		account = a

		if in.IdempotencyKey != "" {
			existing, err := tx.Withdrawals().GetByIdempotencyKey(ctx, in.UserID, in.IdempotencyKey)
			switch {
			case err == nil:
				if !existing.SamePayload(in.Currency, in.Amount, address) {
					return fmt.Errorf("request withdrawal: key %q: %w", in.IdempotencyKey, util.ErrIdempotencyConflict)
				}
				request, replayed = existing, true
				return nil
			case !errors.Is(err, util.ErrNotFound):
				return fmt.Errorf("request withdrawal: failed to look up idempotency key: %w", err)
			}
		}

		hold := in.Amount.Add(policy.NetworkFee)
		if have := account.Balances.Get(in.Currency); have.LessThan(hold) {
			return fmt.Errorf("request withdrawal: %w: need %s %s including %s fee, have %s",
				util.ErrInsufficientFunds, hold, in.Currency, policy.NetworkFee, have)
		}

		account.Balances = account.Balances.Add(in.Currency, hold.Neg())
		if err := tx.Accounts().UpdateBalances(ctx, in.UserID, account.Balances); err != nil {
			return fmt.Errorf("request withdrawal: failed to debit account: %w", err)
		}

		record := domain.NewWithdrawalRecord(in.UserID, in.Currency, in.Amount, policy.NetworkFee, address)
		if err := tx.Transactions().Create(ctx, record); err != nil {
			return fmt.Errorf("request withdrawal: failed to create transaction: %w", err)
		}
		request = domain.NewWithdrawalRequest(record, address, in.IdempotencyKey)
		if err := tx.Withdrawals().Create(ctx, request); err != nil {
			return fmt.Errorf("request withdrawal: failed to create withdrawal request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if replayed {
		return account, request, nil
	}

	s.logger.Info("Withdrawal requested", "user_id", in.UserID, "withdrawal_id", request.ID,
		"currency", in.Currency, "amount", in.Amount, "fee", request.Fee)
	s.publish(ctx, events.Event{
		Type: events.TypeWithdrawalRequested, UserID: in.UserID, WithdrawalID: request.ID,
		TransactionID: request.LinkedTransactionID, Currency: currencyPtr(in.Currency),
		Amount: decimalPtr(in.Amount), Balances: &account.Balances,
	})
	return account, request, nil
}

// ResolveWithdrawal applies an administrator decision. Approve completes the linked
// record; reject fails it and refunds the hold. A request is resolved at most once.
func (s *ledgerService) ResolveWithdrawal(ctx context.Context, withdrawalID int64, decision domain.Decision, resolvedBy string) (_ *domain.WithdrawalRequest, _ *domain.Transaction, err error) {
	defer s.observe("resolve_withdrawal", time.Now(), &err)

	if _, ok := domain.ParseDecision(string(decision)); !ok {
		return nil, nil, fmt.Errorf("resolve withdrawal: %w: unknown decision %q", util.ErrInvalidInput, decision)
	}

	// Unlocked read to find the owning account; everything is re-checked under the lock.
	pending, err := s.store.Withdrawals().Get(ctx, withdrawalID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve withdrawal: failed to get withdrawal request %d: %w", withdrawalID, err)
	}
	if pending.Status != domain.WithdrawalStatusPending {
		return nil, nil, fmt.Errorf("resolve withdrawal: request %d is %s: %w", withdrawalID, pending.Status, util.ErrAlreadyResolved)
	}

	requestStatus, recordStatus := decision.Outcome()
	var (
		request *domain.WithdrawalRequest
		record  *domain.Transaction
		account *domain.Account
	)
	err = s.withinAccount(ctx, "resolve withdrawal", pending.UserID, func(tx repository.Tx) error {
		var err error
		request, err = tx.Withdrawals().GetForUpdate(ctx, withdrawalID)
		if err != nil {
			return fmt.Errorf("resolve withdrawal: failed to get withdrawal request %d: %w", withdrawalID, err)
		}
		if request.Status != domain.WithdrawalStatusPending {
			return fmt.Errorf("resolve withdrawal: request %d is %s: %w", withdrawalID, request.Status, util.ErrAlreadyResolved)
		}
		record, err = tx.Transactions().GetForUpdate(ctx, request.LinkedTransactionID)
		if err != nil {
			return fmt.Errorf("resolve withdrawal: failed to get linked transaction %d: %w", request.LinkedTransactionID, err)
		}
		if !record.CanTransition(recordStatus) {
			return fmt.Errorf("resolve withdrawal: linked transaction %d is %s while request %d is pending",
				record.ID, record.Status, request.ID)
		}

		if decision == domain.DecisionReject {
			account, err = tx.Accounts().GetForUpdate(ctx, request.UserID)
			if err != nil {
				return fmt.Errorf("resolve withdrawal: failed to get account %s: %w", request.UserID, err)
			}
			account.Balances = account.Balances.Add(request.Currency, request.Hold())
			if err := tx.Accounts().UpdateBalances(ctx, request.UserID, account.Balances); err != nil {
				return fmt.Errorf("resolve withdrawal: failed to refund account: %w", err)
			}
		}

		now := time.Now().UTC()
		if err := tx.Withdrawals().UpdateStatus(ctx, request.ID, requestStatus, now, resolvedBy); err != nil {
			return fmt.Errorf("resolve withdrawal: failed to update withdrawal request: %w", err)
		}
		if err := tx.Transactions().UpdateStatus(ctx, record.ID, recordStatus, now); err != nil {
			return fmt.Errorf("resolve withdrawal: failed to update linked transaction: %w", err)
		}
		request.Status, request.ProcessedAt, request.ResolvedBy = requestStatus, &now, &resolvedBy
		record.Status, record.ProcessedAt = recordStatus, &now
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	event := events.Event{
		Type: events.TypeWithdrawalApproved, UserID: request.UserID, WithdrawalID: request.ID,
		TransactionID: record.ID, Currency: currencyPtr(request.Currency), Amount: decimalPtr(request.Amount),
		Actor: resolvedBy,
	}
	if decision == domain.DecisionReject {
		event.Type = events.TypeWithdrawalRejected
		event.Balances = &account.Balances
	}
	s.logger.Info("Withdrawal resolved", "withdrawal_id", request.ID, "user_id", request.UserID,
		"decision", decision, "resolved_by", resolvedBy)
	s.publish(ctx, event)
	return request, record, nil
}
