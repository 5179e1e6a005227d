// cmd/ledgerctl/main.go
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	app "brokerage-ledger/internal"
	"brokerage-ledger/internal/cli"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	cli.Register(commander, func(ctx context.Context) (cli.Backend, error) {
		application := app.NewApplication()
		if err := application.Initialize(ctx); err != nil {
			return nil, err
		}
		return application, nil
	}, os.Stdout, os.Stderr)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
