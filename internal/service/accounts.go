// internal/service/accounts.go
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"brokerage-ledger/internal/domain"
	"brokerage-ledger/internal/events"
	"brokerage-ledger/internal/repository"
	"brokerage-ledger/internal/util"
	"brokerage-ledger/pkg/db"
)

// CreateAccount registers a user with every balance at zero.
func (s *ledgerService) CreateAccount(ctx context.Context, userID string) (_ *domain.Account, err error) {
	defer s.observe("create_account", time.Now(), &err)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("create account: %w: empty user id", util.ErrInvalidInput)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("create account: failed to begin transaction: %w", err)
	}
	defer db.RollbackTx(tx, s.logger)

	account := domain.NewAccount(userID)
	if err := tx.Accounts().Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	if err := db.CommitTx(tx); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info("Account created", "user_id", userID)
	s.publish(ctx, events.Event{Type: events.TypeAccountCreated, UserID: userID})
	return account, nil
}

// AdminAdjustBalance overrides the full balance set of an account. One completed
// admin_adjustment record holding the signed delta is written per changed currency.
func (s *ledgerService) AdminAdjustBalance(ctx context.Context, userID string, newBalances domain.Balances, adminID string) (_ *domain.Account, _ []domain.Transaction, err error) {
	defer s.observe("admin_adjust_balance", time.Now(), &err)

	if c, negative := newBalances.HasNegative(); negative {
		return nil, nil, fmt.Errorf("admin adjust balance: %w: %s balance cannot be negative", util.ErrInvalidAmount, c)
	}
	for _, c := range domain.Currencies {
		if err := checkStorable(newBalances.Get(c)); err != nil {
			return nil, nil, fmt.Errorf("admin adjust balance: %s: %w", c, err)
		}
	}

	var (
		account *domain.Account
		records []domain.Transaction
	)
	err = s.withinAccount(ctx, "admin adjust balance", userID, func(tx repository.Tx) error {
		var err error
		account, err = tx.Accounts().GetForUpdate(ctx, userID)
		if err != nil {
			return fmt.Errorf("admin adjust balance: failed to get account %s: %w", userID, err)
		}

		for _, c := range domain.Currencies {
			before, after := account.Balances.Get(c), newBalances.Get(c)
			if before.Equal(after) {
				continue
			}
			record := domain.NewTransaction(userID, domain.TransactionKindAdminAdjustment, c, after.Sub(before),
				domain.TransactionStatusCompleted, fmt.Sprintf("Admin %s set %s balance from %s to %s", adminID, c, before, after))
			if err := tx.Transactions().Create(ctx, record); err != nil {
				return fmt.Errorf("admin adjust balance: failed to create transaction: %w", err)
			}
			records = append(records, *record)
		}
		if len(records) == 0 {
			return nil
		}

		account.Balances = newBalances
		if err := tx.Accounts().UpdateBalances(ctx, userID, newBalances); err != nil {
			return fmt.Errorf("admin adjust balance: failed to update balances: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if len(records) > 0 {
		s.logger.Info("Balances adjusted by admin", "user_id", userID, "admin_id", adminID, "changed", len(records))
		s.publish(ctx, events.Event{Type: events.TypeBalanceAdjusted, UserID: userID, Balances: &account.Balances, Actor: adminID})
	}
	return account, records, nil
}

// SetAccountStatus suspends or reactivates an account.
func (s *ledgerService) SetAccountStatus(ctx context.Context, userID string, status domain.AccountStatus) (_ *domain.Account, err error) {
	defer s.observe("set_account_status", time.Now(), &err)

	if !status.Valid() {
		return nil, fmt.Errorf("set account status: %w: unknown status %q", util.ErrInvalidInput, status)
	}

	var account *domain.Account
	err = s.withinAccount(ctx, "set account status", userID, func(tx repository.Tx) error {
		var err error
		account, err = tx.Accounts().GetForUpdate(ctx, userID)
		if err != nil {
			return fmt.Errorf("set account status: failed to get account %s: %w", userID, err)
		}
		if account.Status == status {
			return nil
		}
		if err := tx.Accounts().UpdateStatus(ctx, userID, status); err != nil {
			return fmt.Errorf("set account status: %w", err)
		}
		account.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Account status set", "user_id", userID, "status", status)
	s.publish(ctx, events.Event{Type: events.TypeAccountStatus, UserID: userID})
	return account, nil
}
