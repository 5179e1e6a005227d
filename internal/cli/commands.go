// internal/cli/commands.go
package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"brokerage-ledger/internal/domain"
)

// --- migrate ---

type migrateCmd struct {
	env
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create the ledger tables and indexes" }
func (*migrateCmd) Usage() string {
	return `ledgerctl migrate

  Applies the embedded schema. Safe to run more than once.
`
}
func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (c *migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, func(b Backend) error {
		if err := b.Migrate(ctx); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "schema applied")
		return nil
	})
}

// --- confirm-deposit / fail-deposit ---

type resolveDepositCmd struct {
	env
	confirm bool
	id      int64
}

func (c *resolveDepositCmd) Name() string {
	if c.confirm {
		return "confirm-deposit"
	}
	return "fail-deposit"
}

func (c *resolveDepositCmd) Synopsis() string {
	if c.confirm {
		return "credit a pending deposit once the network has confirmed it"
	}
	return "mark a pending deposit as failed without crediting it"
}

func (c *resolveDepositCmd) Usage() string {
	return fmt.Sprintf("ledgerctl %s -id <transaction_id>\n", c.Name())
}

func (c *resolveDepositCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "The id of the pending deposit transaction.")
}

func (c *resolveDepositCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id <= 0 {
		fmt.Fprintln(c.errOut, "Error: -id is required.")
		return subcommands.ExitUsageError
	}
	return c.run(ctx, func(b Backend) error {
		if c.confirm {
			account, record, err := b.Ledger().ConfirmDeposit(ctx, c.id)
			if err != nil {
				return err
			}
			return c.print(map[string]any{"account": account, "transaction": record})
		}
		record, err := b.Ledger().FailDeposit(ctx, c.id)
		if err != nil {
			return err
		}
		return c.print(record)
	})
}

// --- approve-withdrawal / reject-withdrawal ---

type resolveWithdrawalCmd struct {
	env
	approve bool
	id      int64
	by      string
}

func (c *resolveWithdrawalCmd) decision() domain.Decision {
	if c.approve {
		return domain.DecisionApprove
	}
	return domain.DecisionReject
}

func (c *resolveWithdrawalCmd) Name() string { return string(c.decision()) + "-withdrawal" }

func (c *resolveWithdrawalCmd) Synopsis() string {
	if c.approve {
		return "approve a pending withdrawal; the held funds stay debited"
	}
	return "reject a pending withdrawal and refund amount plus fee"
}

func (c *resolveWithdrawalCmd) Usage() string {
	return fmt.Sprintf("ledgerctl %s -id <withdrawal_id> -by <admin_id>\n", c.Name())
}

func (c *resolveWithdrawalCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "The id of the pending withdrawal request.")
	f.StringVar(&c.by, "by", "", "The administrator recorded as resolver.")
}

func (c *resolveWithdrawalCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id <= 0 || c.by == "" {
		fmt.Fprintln(c.errOut, "Error: -id and -by are required.")
		return subcommands.ExitUsageError
	}
	return c.run(ctx, func(b Backend) error {
		request, record, err := b.Ledger().ResolveWithdrawal(ctx, c.id, c.decision(), c.by)
		if err != nil {
			return err
		}
		return c.print(map[string]any{"withdrawal": request, "transaction": record})
	})
}

// --- rates ---

type ratesCmd struct {
	env
	refresh bool
}

func (*ratesCmd) Name() string     { return "rates" }
func (*ratesCmd) Synopsis() string { return "print the USD rate snapshot used for conversions" }
func (*ratesCmd) Usage() string {
	return `ledgerctl rates [-refresh]

  Prints the current snapshot. With -refresh the price feed is queried first.
`
}

func (c *ratesCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.refresh, "refresh", false, "Fetch fresh rates from the configured provider first.")
}

func (c *ratesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, func(b Backend) error {
		if c.refresh {
			if err := b.RefreshRates(ctx); err != nil {
				return err
			}
		}
		return c.print(b.Ledger().CurrentRates())
	})
}
