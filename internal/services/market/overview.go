package market

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

// Indices returns the configured domestic indices in configuration order.
// It fails when none of them could be priced.
func (s *Service) Indices(ctx context.Context) ([]models.IndexQuote, error) {
	if s.client == nil {
		return nil, models.ErrMarketDataUnavailable
	}

	quotes, err := s.quotes(ctx, instrumentSymbols(s.config.Indices))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch indices: %w", err)
	}
	if len(quotes) == 0 && len(s.config.Indices) > 0 {
		return nil, fmt.Errorf("failed to fetch indices: no quotes returned")
	}

	out := make([]models.IndexQuote, 0, len(s.config.Indices))
	for _, in := range s.config.Indices {
		iq := models.IndexQuote{Symbol: in.Symbol, Name: in.Name}
		if q := quotes[strings.ToUpper(in.Symbol)]; q != nil {
			iq.Value = q.LastPrice
			iq.Change = q.Change
			iq.ChangePercent = q.ChangePercent
		} else {
			s.logger.Warn().Str("symbol", in.Symbol).Msg("No quote for index")
		}
		out = append(out, iq)
	}
	return out, nil
}

// Movers prices the tracked basket and ranks it. Gainers are sorted by
// change percent descending and losers ascending; unchanged stocks are in
// neither list.
func (s *Service) Movers(ctx context.Context) (*models.MarketMovers, error) {
	if s.client == nil {
		return nil, models.ErrMarketDataUnavailable
	}

	exchange := s.config.MoversExchange
	if exchange == "" {
		exchange = "NSE"
	}
	symbols := make([]string, len(s.config.MoversBasket))
	for i, ticker := range s.config.MoversBasket {
		symbols[i] = ticker + "." + exchange
	}

	quotes, err := s.quotes(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market movers: %w", err)
	}

	var gainers, losers []models.MarketMover
	for i, ticker := range s.config.MoversBasket {
		q := quotes[strings.ToUpper(symbols[i])]
		if q == nil {
			continue
		}
		m := models.MarketMover{
			Symbol:        ticker,
			Price:         q.LastPrice,
			Change:        q.Change,
			ChangePercent: q.ChangePercent,
		}
		switch {
		case m.ChangePercent > 0:
			gainers = append(gainers, m)
		case m.ChangePercent < 0:
			losers = append(losers, m)
		}
	}

	sort.SliceStable(gainers, func(i, j int) bool { return gainers[i].ChangePercent > gainers[j].ChangePercent })
	sort.SliceStable(losers, func(i, j int) bool { return losers[i].ChangePercent < losers[j].ChangePercent })

	limit := s.config.MoversLimit
	if limit <= 0 {
		limit = 10
	}
	return &models.MarketMovers{
		TopGainers: truncate(gainers, limit),
		TopLosers:  truncate(losers, limit),
	}, nil
}

// GlobalMarkets prices world indices and crypto. A provider failure is
// logged and every instrument is reported with zero values.
func (s *Service) GlobalMarkets(ctx context.Context) (*models.GlobalMarkets, error) {
	if s.client == nil {
		return nil, models.ErrMarketDataUnavailable
	}

	symbols := append(instrumentSymbols(s.config.GlobalIndices), instrumentSymbols(s.config.Crypto)...)
	quotes, err := s.quotes(ctx, symbols)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to fetch global market quotes")
	}

	return &models.GlobalMarkets{
		GlobalIndices: priceInstruments(s.config.GlobalIndices, quotes),
		Crypto:        priceInstruments(s.config.Crypto, quotes),
	}, nil
}

func instrumentSymbols(instruments []common.Instrument) []string {
	out := make([]string, len(instruments))
	for i, in := range instruments {
		out[i] = in.Symbol
	}
	return out
}

func priceInstruments(instruments []common.Instrument, quotes map[string]*models.Quote) []models.InstrumentQuote {
	out := make([]models.InstrumentQuote, 0, len(instruments))
	for _, in := range instruments {
		iq := models.InstrumentQuote{Symbol: in.Symbol, Name: in.Name, Currency: in.Currency}
		if q := quotes[strings.ToUpper(in.Symbol)]; q != nil {
			iq.Price = q.LastPrice
			iq.Change = q.Change
			iq.ChangePercent = q.ChangePercent
		}
		out = append(out, iq)
	}
	return out
}

func truncate(movers []models.MarketMover, limit int) []models.MarketMover {
	if movers == nil {
		return []models.MarketMover{}
	}
	if len(movers) > limit {
		return movers[:limit]
	}
	return movers
}
