package interfaces

import (
	"context"

	"github.com/bobmcallan/folio/internal/models"
)

// CredentialStore holds encrypted brokerage access tokens.
type CredentialStore interface {
	// Get returns the decrypted token, or "" when absent or undecryptable
	Get(ctx context.Context, accountID string) (string, error)

	// Set encrypts and stores the token, replacing any previous one
	Set(ctx context.Context, accountID, token string) error

	// Lookup returns the stored record without decrypting it, nil when absent
	Lookup(ctx context.Context, accountID string) (*models.StoredToken, error)
}

// QuoteService enriches holdings with live market prices
type QuoteService interface {
	// Enrich returns holdings with live prices applied where a quote was
	// found. Holdings without a quote are returned unchanged.
	Enrich(ctx context.Context, holdings []models.Holding) []models.Holding
}

// SyncService pulls account data from the broker into the snapshot store
type SyncService interface {
	// SyncAccount fetches, normalizes and persists one account
	SyncAccount(ctx context.Context, accountID string) (*models.AccountPortfolio, error)

	// TrySyncAccount is SyncAccount with non-auth errors wrapped in *models.SyncError
	TrySyncAccount(ctx context.Context, accountID string) (*models.AccountPortfolio, error)

	// FetchAccount fetches and normalizes one account without persisting
	FetchAccount(ctx context.Context, accountID string) (*models.AccountPortfolio, error)

	// SyncAll syncs every configured account in turn, returning per-account errors
	SyncAll(ctx context.Context) map[string]error
}

// SessionService drives the brokerage login flow
type SessionService interface {
	// LoginURL returns the broker login page URL for the account
	LoginURL(accountID, state string) (string, error)

	// CompleteLogin exchanges the request token, stores the access token and syncs
	CompleteLogin(ctx context.Context, accountID, requestToken string) (*models.AccountPortfolio, error)
}

// PortfolioService serves portfolio views
type PortfolioService interface {
	// GetPortfolio builds the view from stored snapshots
	GetPortfolio(ctx context.Context) (*models.PortfolioView, error)

	// GetAccount builds the stored view of one account
	GetAccount(ctx context.Context, accountID string) (*models.AccountPortfolio, error)

	// LivePortfolio fetches every account directly from the broker
	LivePortfolio(ctx context.Context) (*models.PortfolioView, error)

	// SyncStatuses returns the status of every configured account
	SyncStatuses(ctx context.Context) ([]*models.SyncStatus, error)
}

// MarketService serves market overviews, stock search and the manual
// holdings view
type MarketService interface {
	// Indices returns the configured domestic indices
	Indices(ctx context.Context) ([]models.IndexQuote, error)

	// Movers returns the top gainers and losers of the tracked basket
	Movers(ctx context.Context) (*models.MarketMovers, error)

	// GlobalMarkets returns world indices and crypto; unpriced items are zero-filled
	GlobalMarkets(ctx context.Context) (*models.GlobalMarkets, error)

	// Search finds NSE and BSE stocks and ETFs matching query
	Search(ctx context.Context, query string) ([]models.SearchResult, error)

	// ManualHoldings prices the hand-maintained holdings document
	ManualHoldings(ctx context.Context) ([]models.Holding, error)
}
