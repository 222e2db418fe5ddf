package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/app"
	"github.com/bobmcallan/folio/internal/common"
)

// fakeKite serves the three Kite endpoints the CLI reaches.
func fakeKite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/session/token", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"success","data":{"access_token":"acc-self"}}`)
	})
	mux.HandleFunc("/portfolio/holdings", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "token key-self:acc-self" {
			w.WriteHeader(http.StatusForbidden)
			io.WriteString(w, `{"status":"error","message":"Incorrect api_key or access_token.","error_type":"TokenException"}`)
			return
		}
		io.WriteString(w, `{"status":"success","data":[
			{"tradingsymbol":"INFY","exchange":"NSE","quantity":10,"t1_quantity":5,"average_price":1500,"last_price":1600}
		]}`)
	})
	mux.HandleFunc("/portfolio/positions", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"success","data":{"net":[],"day":[]}}`)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

// setup points openApp at a file-backed config talking to a fake Kite and
// captures command output.
func setup(t *testing.T, opts ...func(*common.Config)) *bytes.Buffer {
	t.Helper()
	kite := fakeKite(t)

	cfg := common.NewDefaultConfig()
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "folio.db")
	cfg.Auth.TokenEncryptionKey = "0123456789abcdef0123456789abcdef"
	cfg.Kite.BaseURL = kite.URL
	cfg.Kite.Accounts = []common.KiteAccount{
		{ID: "self", Label: "Self", APIKey: "key-self", APISecret: "secret-self"},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	prevOpen, prevOut := openApp, stdout
	out := &bytes.Buffer{}
	openApp = func() (*app.App, error) {
		return app.NewAppWithConfig(cfg, common.NewSilentLogger())
	}
	stdout = out
	t.Cleanup(func() {
		openApp, stdout = prevOpen, prevOut
	})
	return out
}

func run(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(fs)
	require.NoError(t, fs.Parse(args))
	return cmd.Execute(context.Background(), fs)
}

func TestLoginFlowThenPortfolio(t *testing.T) {
	out := setup(t)

	require.Equal(t, subcommands.ExitSuccess, run(t, &tokenCmd{}, "self"))
	assert.Contains(t, out.String(), "self: no token stored")
	out.Reset()

	require.Equal(t, subcommands.ExitSuccess, run(t, &exchangeCmd{}, "self", "req-token"))
	assert.Contains(t, out.String(), "Self: logged in, 1 holdings synced")
	out.Reset()

	require.Equal(t, subcommands.ExitSuccess, run(t, &tokenCmd{}, "self"))
	assert.Contains(t, out.String(), "self: token stored, updated ")
	assert.NotContains(t, out.String(), "acc-self", "token must never be printed")
	out.Reset()

	require.Equal(t, subcommands.ExitSuccess, run(t, &syncCmd{}, "self"))
	assert.Contains(t, out.String(), "Self: 1 holdings, 0 positions")
	out.Reset()

	require.Equal(t, subcommands.ExitSuccess, run(t, &portfolioCmd{}))
	text := out.String()
	assert.Contains(t, text, "INFY")
	assert.Contains(t, text, "15")
	assert.Contains(t, text, "TOTAL")
	assert.Contains(t, text, "as of ")
}

func TestPortfolio_JSON(t *testing.T) {
	out := setup(t)

	require.Equal(t, subcommands.ExitSuccess, run(t, &portfolioCmd{}, "-json"))
	assert.True(t, strings.HasPrefix(out.String(), "{"))
	assert.Contains(t, out.String(), `"needsSync": true`)
}

func TestSync_WithoutTokenFails(t *testing.T) {
	out := setup(t)

	assert.Equal(t, subcommands.ExitFailure, run(t, &syncCmd{}, "self"))
	assert.Empty(t, out.String())
}

func TestSyncAll_ReportsFailures(t *testing.T) {
	setup(t)
	assert.Equal(t, subcommands.ExitFailure, run(t, &syncCmd{}, "-all"))
}

func TestLoginURL(t *testing.T) {
	out := setup(t)

	require.Equal(t, subcommands.ExitSuccess, run(t, &loginURLCmd{}, "self"))
	line := strings.TrimSpace(out.String())
	assert.Contains(t, line, "api_key=key-self")
	assert.Contains(t, line, "v=3")
	assert.NotContains(t, line, "state=")

	assert.Equal(t, subcommands.ExitFailure, run(t, &loginURLCmd{}, "dad"))
}

func TestUsageErrors(t *testing.T) {
	setup(t)

	assert.Equal(t, subcommands.ExitUsageError, run(t, &syncCmd{}))
	assert.Equal(t, subcommands.ExitUsageError, run(t, &loginURLCmd{}))
	assert.Equal(t, subcommands.ExitUsageError, run(t, &exchangeCmd{}, "self"))
	assert.Equal(t, subcommands.ExitUsageError, run(t, &tokenCmd{}, "self", "mom"))
}

func TestToken_UnknownAccount(t *testing.T) {
	setup(t)
	assert.Equal(t, subcommands.ExitFailure, run(t, &tokenCmd{}, "dad"))
}

func TestPortfolio_SingleAccount(t *testing.T) {
	out := setup(t)

	require.Equal(t, subcommands.ExitSuccess, run(t, &portfolioCmd{}, "-account", "self"))
	assert.Contains(t, out.String(), "Self: never synced")
	out.Reset()

	require.Equal(t, subcommands.ExitSuccess, run(t, &exchangeCmd{}, "self", "req-token"))
	out.Reset()

	require.Equal(t, subcommands.ExitSuccess, run(t, &portfolioCmd{}, "-account", "self"))
	assert.Contains(t, out.String(), "INFY")
	assert.Contains(t, out.String(), "as of ")
	out.Reset()

	require.Equal(t, subcommands.ExitSuccess, run(t, &portfolioCmd{}, "-account", "self", "-json"))
	assert.Contains(t, out.String(), `"accountId": "self"`)
	assert.Contains(t, out.String(), `"fetchedAt"`)

	assert.Equal(t, subcommands.ExitFailure, run(t, &portfolioCmd{}, "-account", "dad"))
	assert.Equal(t, subcommands.ExitUsageError, run(t, &portfolioCmd{}, "-account", "self", "-live"))
}

// fakeEODHD prices a few symbols and answers searches for "infy".
func fakeEODHD(t *testing.T) *httptest.Server {
	t.Helper()
	prices := map[string]string{
		"NSEI.INDX":  `{"code":"NSEI.INDX","close":22500,"change":45,"change_p":0.2}`,
		"BSESN.INDX": `{"code":"BSESN.INDX","close":74000,"change":-74,"change_p":-0.1}`,
		"INFY.NSE":   `{"code":"INFY.NSE","close":1650,"change":33,"change_p":2,"low":1620,"high":1660}`,
		"TCS.NSE":    `{"code":"TCS.NSE","close":3500,"change":-35,"change_p":-1}`,
		"BTC-USD.CC": `{"code":"BTC-USD.CC","close":65000,"change":650,"change_p":1}`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/real-time/", func(w http.ResponseWriter, r *http.Request) {
		symbols := []string{strings.TrimPrefix(r.URL.Path, "/real-time/")}
		if s := r.URL.Query().Get("s"); s != "" {
			symbols = append(symbols, strings.Split(s, ",")...)
		}
		var parts []string
		for _, sym := range symbols {
			if p, ok := prices[sym]; ok {
				parts = append(parts, p)
			}
		}
		io.WriteString(w, "["+strings.Join(parts, ",")+"]")
	})
	mux.HandleFunc("/search/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"Code":"INFY","Exchange":"NSE","Name":"Infosys Limited","Type":"Common Stock"},
			{"Code":"INFY","Exchange":"US","Name":"Infosys ADR","Type":"Common Stock"}]`)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func withQuotes(t *testing.T) func(*common.Config) {
	eodhd := fakeEODHD(t)
	return func(cfg *common.Config) {
		cfg.Quotes.APIKey = "demo"
		cfg.Quotes.BaseURL = eodhd.URL
		cfg.Market.MoversBasket = []string{"INFY", "TCS", "SBIN"}
	}
}

func TestMarket_Views(t *testing.T) {
	out := setup(t, withQuotes(t))

	require.Equal(t, subcommands.ExitSuccess, run(t, &marketCmd{}, "indices"))
	assert.Contains(t, out.String(), "NIFTY 50")
	assert.Contains(t, out.String(), "22500.00")
	out.Reset()

	require.Equal(t, subcommands.ExitSuccess, run(t, &marketCmd{}, "movers"))
	text := out.String()
	assert.Contains(t, text, "GAINERS")
	assert.Contains(t, text, "INFY")
	assert.Contains(t, text, "LOSERS")
	assert.Contains(t, text, "TCS")
	assert.NotContains(t, text, "SBIN")
	out.Reset()

	require.Equal(t, subcommands.ExitSuccess, run(t, &marketCmd{}, "-json", "global"))
	assert.Contains(t, out.String(), `"globalIndices"`)
	assert.Contains(t, out.String(), `"price": 65000`)
}

func TestMarket_WithoutQuotesFails(t *testing.T) {
	setup(t)
	assert.Equal(t, subcommands.ExitFailure, run(t, &marketCmd{}, "indices"))
	assert.Equal(t, subcommands.ExitUsageError, run(t, &marketCmd{}, "weather"))
	assert.Equal(t, subcommands.ExitUsageError, run(t, &marketCmd{}))
}

func TestSearch(t *testing.T) {
	out := setup(t, withQuotes(t))

	require.Equal(t, subcommands.ExitSuccess, run(t, &searchCmd{}, "infy"))
	text := out.String()
	assert.Contains(t, text, "INFY.NSE")
	assert.Contains(t, text, "1650.00")
	assert.NotContains(t, text, "ADR")

	assert.Equal(t, subcommands.ExitUsageError, run(t, &searchCmd{}))
}

func TestManualHoldings(t *testing.T) {
	out := setup(t, withQuotes(t))

	assert.Equal(t, subcommands.ExitFailure, run(t, &manualHoldingsCmd{}), "no holdings document yet")

	a, err := openApp()
	require.NoError(t, err)
	require.NoError(t, a.ConfigStore.Upsert(context.Background(), "holdings",
		[]byte(`{"INFY": {"averagePrice": 1500, "quantity": 10}, "NOPE": {"averagePrice": 10, "quantity": 1}}`)))
	a.Close()

	require.Equal(t, subcommands.ExitSuccess, run(t, &manualHoldingsCmd{}, "-json"))
	text := out.String()
	assert.Contains(t, text, `"lastTradedPrice": 1650`)
	assert.Contains(t, text, `"dayRange": "1620.00-1660.00"`)
	assert.Contains(t, text, `"ticker": "NOPE"`)
}
