package market

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/quote"
)

const defaultManualHoldingsKey = "holdings"

// ManualHoldings reads the hand-maintained holdings document from the config
// store and prices it. Bare tickers are tried on each exchange in order. A
// ticker with no quote is served at cost.
func (s *Service) ManualHoldings(ctx context.Context) ([]models.Holding, error) {
	doc, err := s.loadManualHoldings(ctx)
	if err != nil {
		return nil, err
	}

	tickers := make([]string, 0, len(doc))
	for ticker := range doc {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	candidates := make(map[string][]string, len(tickers))
	var symbols []string
	for _, ticker := range tickers {
		c := quote.Candidates(strings.ToUpper(ticker), s.exchanges)
		candidates[ticker] = c
		symbols = append(symbols, c...)
	}

	var quotes map[string]*models.Quote
	if s.client != nil && len(symbols) > 0 {
		quotes, err = s.quotes(ctx, symbols)
		if err != nil {
			s.logger.Error().Err(err).Msg("Manual holdings pricing failed, serving at cost")
		}
	}

	out := make([]models.Holding, 0, len(tickers))
	for _, ticker := range tickers {
		entry := doc[ticker]
		h := models.Holding{
			Ticker:          ticker,
			Name:            ticker,
			BuyPrice:        entry.AveragePrice,
			Quantity:        entry.Quantity,
			LastTradedPrice: entry.AveragePrice,
			AverageBuyPrice: entry.AveragePrice,
			DayRange:        "N/A",
		}

		var q *models.Quote
		for _, symbol := range candidates[ticker] {
			if q = quotes[symbol]; q != nil {
				break
			}
		}
		if q == nil {
			s.logger.Warn().Str("ticker", ticker).Msg("No quote for manual holding, serving at cost")
			out = append(out, h)
			continue
		}

		h = quote.ApplyQuote(h, q)
		h.DayRange = dayRange(q.Low, q.High)
		h.Volume = q.Volume
		out = append(out, h)
	}
	return out, nil
}

func (s *Service) loadManualHoldings(ctx context.Context) (map[string]models.ManualHolding, error) {
	if s.store == nil {
		return nil, models.ErrNoManualHoldings
	}

	key := s.config.ManualHoldingsKey
	if key == "" {
		key = defaultManualHoldingsKey
	}

	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read manual holdings: %w", err)
	}
	for _, item := range items {
		if item.Key != key {
			continue
		}
		var doc map[string]models.ManualHolding
		if err := json.Unmarshal(item.Value, &doc); err != nil {
			return nil, fmt.Errorf("manual holdings %q: %w", key, err)
		}
		if doc == nil {
			doc = map[string]models.ManualHolding{}
		}
		return doc, nil
	}
	return nil, models.ErrNoManualHoldings
}

// dayRange formats "low-high" with two decimals, N/A for a missing side.
func dayRange(low, high float64) string {
	format := func(v float64) string {
		if v <= 0 {
			return "N/A"
		}
		return fmt.Sprintf("%.2f", v)
	}
	return format(low) + "-" + format(high)
}
