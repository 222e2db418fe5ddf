package main

import (
	"flag"
	"io"
	"os"

	"github.com/bobmcallan/folio/internal/app"
)

var configPath = flag.String("config", "", "Path to folio.toml (default: $FOLIO_CONFIG)")

// stdout receives command output.
var stdout io.Writer = os.Stdout

// openApp builds the application for one command run.
var openApp = func() (*app.App, error) {
	return app.NewApp(*configPath)
}
