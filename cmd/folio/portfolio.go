package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/bobmcallan/folio/internal/models"
)

type portfolioCmd struct {
	live    bool
	jsonOut bool
	account string
}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "print the combined portfolio" }
func (*portfolioCmd) Usage() string {
	return `folio portfolio [-live] [-json] [-account <id>]

  Prints the combined holdings of every account from the stored snapshots,
  or straight from Kite with -live. With -account only that account's
  stored snapshot is printed.
`
}

func (c *portfolioCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.live, "live", false, "Fetch from Kite instead of the stored snapshots.")
	f.BoolVar(&c.jsonOut, "json", false, "Print the raw JSON view.")
	f.StringVar(&c.account, "account", "", "Print one account's stored snapshot.")
}

func (c *portfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if c.account != "" {
		if c.live {
			fmt.Fprintln(os.Stderr, "-account and -live cannot be combined")
			return subcommands.ExitUsageError
		}
		account, err := a.PortfolioService.GetAccount(ctx, c.account)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		if c.jsonOut {
			return writeJSON(account)
		}
		printAccount(stdout, account)
		return subcommands.ExitSuccess
	}

	var view *models.PortfolioView
	if c.live {
		view, err = a.PortfolioService.LivePortfolio(ctx)
	} else {
		view, err = a.PortfolioService.GetPortfolio(ctx)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if c.jsonOut {
		return writeJSON(view)
	}

	printPortfolio(stdout, view)
	return subcommands.ExitSuccess
}

// writeJSON prints v indented to stdout.
func writeJSON(v interface{}) subcommands.ExitStatus {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func printAccount(w io.Writer, acct *models.AccountPortfolio) {
	switch {
	case acct.SyncError != nil:
		fmt.Fprintf(w, "%s: last sync failed: %s\n", acct.AccountLabel, *acct.SyncError)
	case acct.NeedsSync:
		fmt.Fprintf(w, "%s: never synced\n", acct.AccountLabel)
		return
	}
	printHoldings(w, acct.Holdings)
	fmt.Fprintf(w, "as of %s\n", acct.FetchedAt.Format("2006-01-02 15:04:05 MST"))
}

func printPortfolio(w io.Writer, view *models.PortfolioView) {
	for _, acct := range view.Accounts {
		switch {
		case acct.SyncError != nil:
			fmt.Fprintf(w, "%s: last sync failed: %s\n", acct.AccountLabel, *acct.SyncError)
		case acct.NeedsSync:
			fmt.Fprintf(w, "%s: never synced\n", acct.AccountLabel)
		}
	}
	for _, e := range view.Errors {
		fmt.Fprintf(w, "%s: %s\n", e.AccountID, e.Message)
	}

	printHoldings(w, view.Combined.Holdings)

	if view.Combined.FetchedAt != nil {
		fmt.Fprintf(w, "as of %s\n", view.Combined.FetchedAt.Format("2006-01-02 15:04:05 MST"))
	}
}

func printHoldings(w io.Writer, hs []models.Holding) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "TICKER\tQTY\tAVG\tLTP\tINVESTED\tVALUE\tP&L\tP&L %\t")

	var invested, value float64
	for _, h := range hs {
		fmt.Fprintf(tw, "%s\t%g\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t\n",
			h.Ticker, h.Quantity, h.AverageBuyPrice, h.LastTradedPrice,
			h.Invested(), h.CurrentValue(), h.UnrealizedPL, h.UnrealizedPLPercentage)
		invested += h.Invested()
		value += h.CurrentValue()
	}
	fmt.Fprintf(tw, "TOTAL\t\t\t\t%.2f\t%.2f\t%.2f\t\t\n", invested, value, value-invested)
	tw.Flush()
}
