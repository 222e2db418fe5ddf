// Package interfaces defines service contracts for Folio
package interfaces

import (
	"context"
	"encoding/json"

	"github.com/bobmcallan/folio/internal/models"
)

// KiteClient provides access to the Kite Connect REST API.
// Credentials are per call so one client serves every configured account.
type KiteClient interface {
	// ExchangeRequestToken trades a one-time login request token for an access token
	ExchangeRequestToken(ctx context.Context, apiKey, apiSecret, requestToken string) (*models.KiteSession, error)

	// GetHoldings retrieves the settled holdings book
	GetHoldings(ctx context.Context, apiKey, accessToken string) ([]models.KiteHolding, error)

	// GetPositions retrieves the net and day position books
	GetPositions(ctx context.Context, apiKey, accessToken string) (*models.KitePositions, error)
}

// QuoteClient looks up a live quote for an exchange-qualified symbol.
type QuoteClient interface {
	GetRealTimeQuote(ctx context.Context, symbol string) (*models.Quote, error)
}

// MarketDataClient adds the bulk and search calls behind the market views.
type MarketDataClient interface {
	QuoteClient

	// GetRealTimeQuotes prices many symbols at once, keyed by upper-cased symbol
	GetRealTimeQuotes(ctx context.Context, symbols []string) (map[string]*models.Quote, error)

	// SearchSymbols finds instruments matching a ticker, name or ISIN
	SearchSymbols(ctx context.Context, query string, limit int) ([]models.SymbolMatch, error)
}

// ConfigStore is a small key-value store for JSON values (the encrypted
// token map lives here).
type ConfigStore interface {
	// ListItems returns every stored item
	ListItems(ctx context.Context) ([]models.ConfigItem, error)

	// Upsert creates or replaces the value stored under key
	Upsert(ctx context.Context, key string, value json.RawMessage) error
}
