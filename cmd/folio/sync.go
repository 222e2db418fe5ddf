package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/bobmcallan/folio/internal/app"
	"github.com/bobmcallan/folio/internal/models"
)

type syncCmd struct {
	all bool
}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "fetch an account from Kite and store the snapshot" }
func (*syncCmd) Usage() string {
	return `folio sync <account> | folio sync -all

  Fetches holdings and positions from Kite, stores the snapshot and records
  the sync status. Accounts whose token is missing or expired need a new
  login, see "folio login-url".
`
}

func (c *syncCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.all, "all", false, "Sync every configured account.")
}

func (c *syncCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.all && f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "sync needs exactly one account id, or -all")
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if c.all {
		return syncAll(ctx, a)
	}

	accountID := f.Arg(0)
	result, err := a.SyncService.SyncAccount(ctx, accountID)
	if err != nil {
		reportSyncError(accountID, err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(stdout, "%s: %d holdings, %d positions at %s\n",
		result.AccountLabel, len(result.Holdings), len(result.Positions), result.FetchedAt.Format("2006-01-02 15:04:05 MST"))
	return subcommands.ExitSuccess
}

func syncAll(ctx context.Context, a *app.App) subcommands.ExitStatus {
	status := subcommands.ExitSuccess
	errs := a.SyncService.SyncAll(ctx)
	for _, id := range a.Config.AccountIDs() {
		if err := errs[id]; err != nil {
			reportSyncError(id, err)
			status = subcommands.ExitFailure
			continue
		}
		fmt.Fprintf(stdout, "%s: synced\n", id)
	}
	return status
}

func reportSyncError(accountID string, err error) {
	if models.IsAuthRequired(err) {
		fmt.Fprintf(os.Stderr, "%s: %v\nrun: folio login-url %s\n", accountID, err, accountID)
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", accountID, err)
}
