// Package models defines data structures for Folio
package models

import "time"

// CombinedAccountID is the account id carried by merged positions, which
// have no single owning account.
const CombinedAccountID = "combined"

// Holding is one ticker's settled position. The JSON shape is what the
// dashboard UI consumes.
type Holding struct {
	Ticker                 string  `json:"ticker"`
	Name                   string  `json:"name"`
	BuyPrice               float64 `json:"buyPrice"`
	Quantity               float64 `json:"quantity"`
	LastTradedPrice        float64 `json:"lastTradedPrice"`
	DailyChange            float64 `json:"dailyChange"`
	DailyChangePercentage  float64 `json:"dailyChangePercentage"`
	DayRange               string  `json:"dayRange"`
	Volume                 int64   `json:"volume"`
	AverageBuyPrice        float64 `json:"averageBuyPrice"`
	UnrealizedPL           float64 `json:"unrealizedPL"`
	UnrealizedPLPercentage float64 `json:"unrealizedPLPercentage"`
	AccountID              string  `json:"accountId,omitempty"`
	AccountLabel           string  `json:"accountLabel,omitempty"`
}

// Invested returns the capital at cost (average price × quantity).
func (h Holding) Invested() float64 {
	return h.AverageBuyPrice * h.Quantity
}

// CurrentValue returns the holding valued at the last traded price.
func (h Holding) CurrentValue() float64 {
	return h.LastTradedPrice * h.Quantity
}

// Position is one open trading position, keyed by exchange, product and ticker.
type Position struct {
	AccountID         string  `json:"accountId"`
	Ticker            string  `json:"tradingsymbol"`
	Product           string  `json:"product"`
	Exchange          string  `json:"exchange"`
	Quantity          float64 `json:"quantity"`
	OvernightQuantity float64 `json:"overnightQuantity"`
	AveragePrice      float64 `json:"averagePrice"`
	LastTradedPrice   float64 `json:"lastTradedPrice"`
	PnL               float64 `json:"pnl"`
}

// Key returns the composite merge key "exchange:product:ticker".
func (p Position) Key() string {
	return p.Exchange + ":" + p.Product + ":" + p.Ticker
}

// AccountPortfolio is one brokerage account's snapshot.
// LastSyncedAt, NeedsSync and SyncError are populated on the read path only.
type AccountPortfolio struct {
	AccountID    string     `json:"accountId"`
	AccountLabel string     `json:"accountLabel"`
	Holdings     []Holding  `json:"holdings"`
	Positions    []Position `json:"positions"`
	FetchedAt    time.Time  `json:"fetchedAt,omitzero"`
	LastSyncedAt *time.Time `json:"lastSyncedAt"`
	NeedsSync    bool       `json:"needsSync"`
	SyncError    *string    `json:"syncError"`
}

// CombinedPortfolio is the union of all accounts. FetchedAt is the latest
// timestamp across the inputs, nil when no account contributed.
type CombinedPortfolio struct {
	Holdings  []Holding  `json:"holdings"`
	Positions []Position `json:"positions"`
	FetchedAt *time.Time `json:"fetchedAt"`
}

// AccountError is a per-account failure reported alongside a portfolio.
type AccountError struct {
	AccountID string `json:"accountId,omitempty"`
	Message   string `json:"message"`
}

// PortfolioView is the response shape for the dashboard.
type PortfolioView struct {
	Combined               CombinedPortfolio  `json:"combined"`
	Accounts               []AccountPortfolio `json:"accounts"`
	AccountMetadata        []AccountInfo      `json:"accountMetadata,omitempty"`
	ReauthRequiredAccounts []string           `json:"reauthRequiredAccounts,omitempty"`
	Errors                 []AccountError     `json:"errors"`
}

// AccountInfo is the public part of an account's configuration.
type AccountInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}
