// internal/cli/cli.go
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/subcommands"

	"brokerage-ledger/internal/service"
)

// Backend is what the admin commands operate on. *app.Application implements it.
type Backend interface {
	Ledger() service.LedgerService
	Migrate(ctx context.Context) error
	RefreshRates(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Opener initializes a Backend from the ambient configuration.
type Opener func(ctx context.Context) (Backend, error)

// Register the subcommands.
func Register(c *subcommands.Commander, open Opener, out, errOut io.Writer) {
	e := env{open: open, out: out, errOut: errOut}

	c.Register(&migrateCmd{env: e}, "database")

	c.Register(&resolveDepositCmd{env: e, confirm: true}, "deposits")
	c.Register(&resolveDepositCmd{env: e, confirm: false}, "deposits")

	c.Register(&resolveWithdrawalCmd{env: e, approve: true}, "withdrawals")
	c.Register(&resolveWithdrawalCmd{env: e, approve: false}, "withdrawals")

	c.Register(&ratesCmd{env: e}, "rates")
}

// env is shared by every command.
type env struct {
	open   Opener
	out    io.Writer
	errOut io.Writer
}

// run opens the backend, runs fn and shuts the backend down.
func (e env) run(ctx context.Context, fn func(Backend) error) subcommands.ExitStatus {
	backend, err := e.open(ctx)
	if err != nil {
		fmt.Fprintln(e.errOut, "Error:", err)
		return subcommands.ExitFailure
	}
	defer func() {
		if err := backend.Shutdown(ctx); err != nil {
			fmt.Fprintln(e.errOut, "Warning:", err)
		}
	}()

	if err := fn(backend); err != nil {
		fmt.Fprintln(e.errOut, "Error:", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (e env) print(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
