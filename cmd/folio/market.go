package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/bobmcallan/folio/internal/models"
)

type marketCmd struct {
	jsonOut bool
}

func (*marketCmd) Name() string     { return "market" }
func (*marketCmd) Synopsis() string { return "print market indices, movers or global markets" }
func (*marketCmd) Usage() string {
	return `folio market [-json] indices|movers|global

  indices  the domestic indices
  movers   top gainers and losers of the tracked basket
  global   world indices and crypto
`
}

func (c *marketCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.jsonOut, "json", false, "Print raw JSON.")
}

func (c *marketCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	view := f.Arg(0)
	if f.NArg() != 1 || (view != "indices" && view != "movers" && view != "global") {
		fmt.Fprintln(os.Stderr, "market needs one of: indices, movers, global")
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	var result interface{}
	switch view {
	case "indices":
		result, err = a.MarketService.Indices(ctx)
	case "movers":
		result, err = a.MarketService.Movers(ctx)
	case "global":
		result, err = a.MarketService.GlobalMarkets(ctx)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if c.jsonOut {
		return writeJSON(result)
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	switch v := result.(type) {
	case []models.IndexQuote:
		fmt.Fprintln(tw, "INDEX\tVALUE\tCHANGE\tCHANGE %")
		for _, iq := range v {
			fmt.Fprintf(tw, "%s\t%.2f\t%+.2f\t%+.2f\n", iq.Name, iq.Value, iq.Change, iq.ChangePercent)
		}
	case *models.MarketMovers:
		printMovers(tw, "GAINERS", v.TopGainers)
		printMovers(tw, "LOSERS", v.TopLosers)
	case *models.GlobalMarkets:
		fmt.Fprintln(tw, "NAME\tPRICE\tCCY\tCHANGE %")
		for _, iq := range append(v.GlobalIndices, v.Crypto...) {
			fmt.Fprintf(tw, "%s\t%.2f\t%s\t%+.2f\n", iq.Name, iq.Price, iq.Currency, iq.ChangePercent)
		}
	}
	tw.Flush()
	return subcommands.ExitSuccess
}

func printMovers(w io.Writer, title string, movers []models.MarketMover) {
	fmt.Fprintf(w, "%s\tPRICE\tCHANGE\tCHANGE %%\n", title)
	for _, m := range movers {
		fmt.Fprintf(w, "%s\t%.2f\t%+.2f\t%+.2f\n", m.Symbol, m.Price, m.Change, m.ChangePercent)
	}
}

type searchCmd struct {
	jsonOut bool
}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "search NSE and BSE stocks" }
func (*searchCmd) Usage() string {
	return `folio search [-json] <query>

  Finds NSE and BSE stocks and ETFs by ticker, name or ISIN.
`
}

func (c *searchCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.jsonOut, "json", false, "Print raw JSON.")
}

func (c *searchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	query := strings.TrimSpace(strings.Join(f.Args(), " "))
	if query == "" {
		fmt.Fprintln(os.Stderr, "search needs a query")
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	results, err := a.MarketService.Search(ctx, query)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if c.jsonOut {
		return writeJSON(results)
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tNAME\tTYPE\tPRICE\tCHANGE %")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%+.2f\n", r.Symbol, r.Name, r.Type, r.Price, r.ChangePercent)
	}
	tw.Flush()
	return subcommands.ExitSuccess
}

type manualHoldingsCmd struct {
	jsonOut bool
}

func (*manualHoldingsCmd) Name() string     { return "manual-holdings" }
func (*manualHoldingsCmd) Synopsis() string { return "print the manually maintained holdings, priced" }
func (*manualHoldingsCmd) Usage() string {
	return `folio manual-holdings [-json]

  Prices the "holdings" document in the config store. Tickers without a
  quote are shown at cost.
`
}

func (c *manualHoldingsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.jsonOut, "json", false, "Print raw JSON.")
}

func (c *manualHoldingsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	holdings, err := a.MarketService.ManualHoldings(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if c.jsonOut {
		return writeJSON(holdings)
	}
	printHoldings(stdout, holdings)
	return subcommands.ExitSuccess
}
