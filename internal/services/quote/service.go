// Package quote enriches holdings with live market quotes
package quote

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/metrics"
	"github.com/bobmcallan/folio/internal/models"
)

// DefaultExchanges are the suffixes tried in order for bare tickers.
var DefaultExchanges = []string{"NSE", "BSE"}

const defaultConcurrency = 8

// Service implements QuoteService. Bare tickers are looked up on each
// configured exchange in order until one answers; tickers that already carry
// an exchange suffix are looked up as given.
type Service struct {
	client      interfaces.QuoteClient
	cache       interfaces.QuoteCache // may be nil
	cacheTTL    time.Duration
	exchanges   []string
	concurrency int
	metrics     *metrics.Metrics
	logger      *common.Logger
}

var _ interfaces.QuoteService = (*Service)(nil)

// Option configures the service
type Option func(*Service)

// WithCache shares quotes across batches for ttl
func WithCache(cache interfaces.QuoteCache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithExchanges sets the exchange suffixes tried for bare tickers
func WithExchanges(exchanges []string) Option {
	return func(s *Service) {
		if len(exchanges) > 0 {
			s.exchanges = exchanges
		}
	}
}

// WithConcurrency bounds the number of lookups in flight per batch
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithMetrics records lookup results
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a new quote service
func NewService(client interfaces.QuoteClient, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		client:      client,
		exchanges:   DefaultExchanges,
		concurrency: defaultConcurrency,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Candidates returns the symbols to try for a ticker, in order.
func (s *Service) Candidates(ticker string) []string {
	return Candidates(ticker, s.exchanges)
}

// shortSuffixes maps the two-letter exchange suffixes found in hand-written
// tickers ("INFY.NS") to provider exchange codes.
var shortSuffixes = map[string]string{".NS": ".NSE", ".BO": ".BSE"}

// Candidates returns the symbols to try for ticker on exchanges, in order.
// A ticker that already names its exchange yields a single symbol.
func Candidates(ticker string, exchanges []string) []string {
	if i := strings.LastIndex(ticker, "."); i >= 0 {
		if mapped, ok := shortSuffixes[strings.ToUpper(ticker[i:])]; ok {
			return []string{ticker[:i] + mapped}
		}
		return []string{ticker}
	}
	out := make([]string, len(exchanges))
	for i, ex := range exchanges {
		out[i] = ticker + "." + ex
	}
	return out
}

// Enrich applies live quotes to holdings. Each distinct ticker is looked up
// once per call. A holding whose lookup fails is returned unchanged.
func (s *Service) Enrich(ctx context.Context, holdings []models.Holding) []models.Holding {
	if len(holdings) == 0 || s.client == nil {
		return holdings
	}

	var (
		mu     sync.Mutex
		quotes = make(map[string]*models.Quote)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	seen := make(map[string]bool, len(holdings))
	for _, h := range holdings {
		ticker := h.Ticker
		if ticker == "" || seen[ticker] {
			continue
		}
		seen[ticker] = true

		g.Go(func() error {
			q := s.lookup(gctx, ticker)
			mu.Lock()
			quotes[ticker] = q
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.Holding, len(holdings))
	for i, h := range holdings {
		if q := quotes[h.Ticker]; q != nil {
			out[i] = ApplyQuote(h, q)
		} else {
			out[i] = h
		}
	}
	return out
}

// lookup walks the candidate symbols, returning nil when none has a quote.
func (s *Service) lookup(ctx context.Context, ticker string) *models.Quote {
	for _, symbol := range s.Candidates(ticker) {
		if s.cache != nil {
			cached, err := s.cache.Get(ctx, symbol)
			if err != nil {
				s.logger.Debug().Err(err).Str("symbol", symbol).Msg("Quote cache read failed")
			} else if cached != nil {
				s.metrics.ObserveQuote(metrics.QuoteHit)
				return cached
			}
		}

		q, err := s.client.GetRealTimeQuote(ctx, symbol)
		if err != nil || q == nil {
			s.logger.Debug().Err(err).Str("ticker", ticker).Str("symbol", symbol).Msg("Quote lookup failed, trying next exchange")
			continue
		}

		if s.cache != nil && s.cacheTTL > 0 {
			if err := s.cache.Set(ctx, symbol, q, s.cacheTTL); err != nil {
				s.logger.Debug().Err(err).Str("symbol", symbol).Msg("Quote cache write failed")
			}
		}
		s.metrics.ObserveQuote(metrics.QuoteFound)
		return q
	}

	s.metrics.ObserveQuote(metrics.QuoteMiss)
	s.logger.Warn().Str("ticker", ticker).Msg("No quote found, keeping cost-basis values")
	return nil
}

// ApplyQuote replaces the live price fields and recomputes unrealized P&L.
func ApplyQuote(h models.Holding, q *models.Quote) models.Holding {
	h.LastTradedPrice = q.LastPrice
	h.DailyChange = q.Change
	h.DailyChangePercentage = q.ChangePercent

	invested := h.Invested()
	h.UnrealizedPL = h.CurrentValue() - invested
	if invested == 0 {
		h.UnrealizedPLPercentage = 0
	} else {
		h.UnrealizedPLPercentage = h.UnrealizedPL / invested * 100
	}
	return h
}
