package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type loginURLCmd struct{}

func (*loginURLCmd) Name() string     { return "login-url" }
func (*loginURLCmd) Synopsis() string { return "print the Kite login URL for an account" }
func (*loginURLCmd) Usage() string {
	return `folio login-url <account>

  Prints the Kite login page for the account. After logging in, copy the
  request_token from the redirect and run "folio exchange".
`
}

func (*loginURLCmd) SetFlags(*flag.FlagSet) {}

func (*loginURLCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "login-url needs exactly one account id")
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	loginURL, err := a.SessionService.LoginURL(f.Arg(0), "")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Fprintln(stdout, loginURL)
	return subcommands.ExitSuccess
}

type exchangeCmd struct{}

func (*exchangeCmd) Name() string     { return "exchange" }
func (*exchangeCmd) Synopsis() string { return "exchange a Kite request token and sync the account" }
func (*exchangeCmd) Usage() string {
	return `folio exchange <account> <request_token>

  Exchanges the request token for an access token, stores it encrypted and
  runs a first sync.
`
}

func (*exchangeCmd) SetFlags(*flag.FlagSet) {}

func (*exchangeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "exchange needs an account id and a request token")
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	result, err := a.SessionService.CompleteLogin(ctx, f.Arg(0), f.Arg(1))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(stdout, "%s: logged in, %d holdings synced\n", result.AccountLabel, len(result.Holdings))
	return subcommands.ExitSuccess
}

type tokenCmd struct{}

func (*tokenCmd) Name() string     { return "token" }
func (*tokenCmd) Synopsis() string { return "report whether an access token is stored" }
func (*tokenCmd) Usage() string {
	return `folio token <account>

  Reports whether an access token is stored and when it was last updated.
  The token itself is never printed.
`
}

func (*tokenCmd) SetFlags(*flag.FlagSet) {}

func (*tokenCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "token needs exactly one account id")
		return subcommands.ExitUsageError
	}
	accountID := f.Arg(0)

	a, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if _, ok := a.Config.Account(accountID); !ok {
		fmt.Fprintf(os.Stderr, "unknown account: %s\n", accountID)
		return subcommands.ExitFailure
	}

	stored, err := a.CredentialStore.Lookup(ctx, accountID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if stored == nil {
		fmt.Fprintf(stdout, "%s: no token stored\n", accountID)
		return subcommands.ExitSuccess
	}
	fmt.Fprintf(stdout, "%s: token stored, updated %s\n", accountID, stored.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
	return subcommands.ExitSuccess
}
