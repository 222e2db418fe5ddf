// Command folio is the operator CLI: manual syncs, portfolio dumps, market
// views and the Kite login flow without a browser callback.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

func register(c *subcommands.Commander) {
	c.Register(&syncCmd{}, "accounts")
	c.Register(&portfolioCmd{}, "accounts")

	c.Register(&loginURLCmd{}, "session")
	c.Register(&exchangeCmd{}, "session")
	c.Register(&tokenCmd{}, "session")

	c.Register(&marketCmd{}, "market")
	c.Register(&searchCmd{}, "market")
	c.Register(&manualHoldingsCmd{}, "market")
}
