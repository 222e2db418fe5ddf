// Package market provides market overviews, stock search and the manual
// holdings view
package market

import (
	"context"
	"strings"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/metrics"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/quote"
)

// Service implements MarketService
type Service struct {
	config    common.MarketConfig
	client    interfaces.MarketDataClient // nil when no provider is configured
	store     interfaces.ConfigStore
	cache     interfaces.QuoteCache
	cacheTTL  time.Duration
	exchanges []string
	metrics   *metrics.Metrics
	logger    *common.Logger
}

var _ interfaces.MarketService = (*Service)(nil)

// Option configures the service
type Option func(*Service)

// WithCache shares quotes with the holdings enrichment cache
func WithCache(cache interfaces.QuoteCache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithExchanges sets the exchanges tried for bare manual-holding tickers
func WithExchanges(exchanges []string) Option {
	return func(s *Service) {
		if len(exchanges) > 0 {
			s.exchanges = exchanges
		}
	}
}

// WithMetrics records quote lookups
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a new market service. client may be nil, in which case
// the market views report ErrMarketDataUnavailable and manual holdings are
// served at cost.
func NewService(
	config common.MarketConfig,
	client interfaces.MarketDataClient,
	store interfaces.ConfigStore,
	logger *common.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		config:    config,
		client:    client,
		store:     store,
		exchanges: quote.DefaultExchanges,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// quotes prices symbols, reading the cache first and fetching the misses in
// bulk. The result is keyed by upper-cased symbol and omits unpriced symbols.
func (s *Service) quotes(ctx context.Context, symbols []string) (map[string]*models.Quote, error) {
	out := make(map[string]*models.Quote, len(symbols))
	var missing []string
	seen := make(map[string]bool, len(symbols))

	for _, symbol := range symbols {
		key := strings.ToUpper(symbol)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		if s.cache != nil {
			cached, err := s.cache.Get(ctx, key)
			if err != nil {
				s.logger.Debug().Err(err).Str("symbol", key).Msg("Quote cache read failed")
			} else if cached != nil {
				s.metrics.ObserveQuote(metrics.QuoteHit)
				out[key] = cached
				continue
			}
		}
		missing = append(missing, key)
	}

	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := s.client.GetRealTimeQuotes(ctx, missing)
	if err != nil {
		return out, err
	}

	for _, key := range missing {
		q, ok := fetched[key]
		if !ok {
			s.metrics.ObserveQuote(metrics.QuoteMiss)
			continue
		}
		s.metrics.ObserveQuote(metrics.QuoteFound)
		out[key] = q

		if s.cache != nil && s.cacheTTL > 0 {
			if err := s.cache.Set(ctx, key, q, s.cacheTTL); err != nil {
				s.logger.Debug().Err(err).Str("symbol", key).Msg("Quote cache write failed")
			}
		}
	}
	return out, nil
}
