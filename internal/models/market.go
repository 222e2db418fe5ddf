package models

import "time"

// Quote is a live market quote for one exchange-qualified symbol.
type Quote struct {
	Symbol        string    `json:"symbol"`
	LastPrice     float64   `json:"last_price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	PreviousClose float64   `json:"previous_close"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Volume        int64     `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
}

// SymbolMatch is one instrument returned by a symbol search.
type SymbolMatch struct {
	Code          string
	Exchange      string
	Name          string
	Type          string // "Common Stock", "ETF", "FUND", ...
	Country       string
	Currency      string
	ISIN          string
	PreviousClose float64
}

// Symbol returns the exchange-qualified symbol, e.g. "INFY.NSE".
func (m SymbolMatch) Symbol() string {
	return m.Code + "." + m.Exchange
}

// IndexQuote is the latest reading of a domestic market index.
type IndexQuote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Value         float64 `json:"value"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// MarketMover is one stock in the gainers or losers list.
type MarketMover struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// MarketMovers holds the day's top gainers (largest rise first) and top
// losers (largest fall first) from the tracked basket.
type MarketMovers struct {
	TopGainers []MarketMover `json:"topGainers"`
	TopLosers  []MarketMover `json:"topLosers"`
}

// InstrumentQuote is a priced global index, currency pair or crypto asset.
// Instruments without a quote are reported with zero values.
type InstrumentQuote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Currency      string  `json:"currency"`
}

// GlobalMarkets is the world overview shown beside the portfolio.
type GlobalMarkets struct {
	GlobalIndices []InstrumentQuote `json:"globalIndices"`
	Crypto        []InstrumentQuote `json:"crypto"`
}

// SearchResult is a stock search hit. Price fields are zero when pricing
// failed. Field names follow the dashboard's search widget.
type SearchResult struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"shortname"`
	Exchange      string  `json:"exchange"`
	Type          string  `json:"quoteType"`
	ISIN          string  `json:"isin,omitempty"`
	Currency      string  `json:"currency,omitempty"`
	Price         float64 `json:"regularMarketPrice"`
	Change        float64 `json:"regularMarketChange"`
	ChangePercent float64 `json:"regularMarketChangePercent"`
}

// ManualHolding is one entry of the hand-maintained holdings document,
// keyed by ticker.
type ManualHolding struct {
	AveragePrice float64 `json:"averagePrice"`
	Quantity     float64 `json:"quantity"`
}
