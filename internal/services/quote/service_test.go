package quote

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/metrics"
	"github.com/bobmcallan/folio/internal/models"
)

// --- Mocks ---

type mockQuoteClient struct {
	mu     sync.Mutex
	quotes map[string]*models.Quote
	calls  map[string]int
}

func newMockQuoteClient(quotes map[string]*models.Quote) *mockQuoteClient {
	return &mockQuoteClient{quotes: quotes, calls: make(map[string]int)}
}

func (m *mockQuoteClient) GetRealTimeQuote(_ context.Context, symbol string) (*models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[symbol]++
	if q, ok := m.quotes[symbol]; ok {
		copied := *q
		return &copied, nil
	}
	return nil, errors.New("no quote")
}

func (m *mockQuoteClient) callCount(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

type mockQuoteCache struct {
	mu     sync.Mutex
	quotes map[string]*models.Quote
	sets   int
}

func (m *mockQuoteCache) Get(_ context.Context, symbol string) (*models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quotes[symbol], nil
}

func (m *mockQuoteCache) Set(_ context.Context, symbol string, q *models.Quote, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[symbol] = q
	m.sets++
	return nil
}

func (m *mockQuoteCache) Close() error { return nil }

func costBasisHolding(ticker string, qty, avg float64) models.Holding {
	return models.Holding{
		Ticker:          ticker,
		Name:            ticker,
		Quantity:        qty,
		AverageBuyPrice: avg,
		BuyPrice:        avg,
		LastTradedPrice: avg,
		DayRange:        "N/A",
		AccountID:       "self",
	}
}

// --- Tests ---

func TestCandidates(t *testing.T) {
	svc := NewService(nil, common.NewSilentLogger())

	assert.Equal(t, []string{"INFY.NSE", "INFY.BSE"}, svc.Candidates("INFY"))
	assert.Equal(t, []string{"AAPL.US"}, svc.Candidates("AAPL.US"))

	custom := NewService(nil, common.NewSilentLogger(), WithExchanges([]string{"BSE"}))
	assert.Equal(t, []string{"INFY.BSE"}, custom.Candidates("INFY"))
}

func TestCandidates_ShortSuffixes(t *testing.T) {
	assert.Equal(t, []string{"INFY.NSE"}, Candidates("INFY.NS", DefaultExchanges))
	assert.Equal(t, []string{"GOLDBEES.BSE"}, Candidates("GOLDBEES.bo", DefaultExchanges))
	assert.Equal(t, []string{"BRK-B.US"}, Candidates("BRK-B.US", DefaultExchanges))
}

func TestEnrich_AppliesQuoteAndRecomputesPL(t *testing.T) {
	client := newMockQuoteClient(map[string]*models.Quote{
		"INFY.NSE": {Symbol: "INFY.NSE", LastPrice: 1650, Change: 15, ChangePercent: 0.92},
	})
	svc := NewService(client, common.NewSilentLogger())

	out := svc.Enrich(context.Background(), []models.Holding{costBasisHolding("INFY", 10, 1500)})

	require.Len(t, out, 1)
	h := out[0]
	assert.Equal(t, 1650.0, h.LastTradedPrice)
	assert.Equal(t, 15.0, h.DailyChange)
	assert.Equal(t, 0.92, h.DailyChangePercentage)
	assert.InDelta(t, 1500.0, h.UnrealizedPL, 1e-9)
	assert.InDelta(t, 10.0, h.UnrealizedPLPercentage, 1e-9)
	assert.InDelta(t, (h.LastTradedPrice-h.AverageBuyPrice)*h.Quantity, h.UnrealizedPL, 1e-9)
	assert.Equal(t, 1500.0, h.AverageBuyPrice, "cost basis unchanged")
	assert.Equal(t, "self", h.AccountID)
}

func TestEnrich_FallsBackToSecondExchange(t *testing.T) {
	client := newMockQuoteClient(map[string]*models.Quote{
		"SMALLCO.BSE": {Symbol: "SMALLCO.BSE", LastPrice: 55},
	})
	svc := NewService(client, common.NewSilentLogger())

	out := svc.Enrich(context.Background(), []models.Holding{costBasisHolding("SMALLCO", 100, 50)})

	assert.Equal(t, 55.0, out[0].LastTradedPrice)
	assert.Equal(t, 1, client.callCount("SMALLCO.NSE"))
	assert.Equal(t, 1, client.callCount("SMALLCO.BSE"))
}

func TestEnrich_DottedTickerUsedAsIs(t *testing.T) {
	client := newMockQuoteClient(map[string]*models.Quote{
		"GOLD.COMM": {Symbol: "GOLD.COMM", LastPrice: 2000},
	})
	svc := NewService(client, common.NewSilentLogger())

	out := svc.Enrich(context.Background(), []models.Holding{costBasisHolding("GOLD.COMM", 1, 1800)})

	assert.Equal(t, 2000.0, out[0].LastTradedPrice)
	assert.Equal(t, 0, client.callCount("GOLD.COMM.NSE"))
}

func TestEnrich_FailedLookupKeepsHolding(t *testing.T) {
	client := newMockQuoteClient(map[string]*models.Quote{
		"TCS.NSE": {Symbol: "TCS.NSE", LastPrice: 3600},
	})
	svc := NewService(client, common.NewSilentLogger())

	input := []models.Holding{costBasisHolding("DELISTED", 5, 100), costBasisHolding("TCS", 2, 3500)}
	out := svc.Enrich(context.Background(), input)

	assert.Equal(t, input[0], out[0], "unquoted holding unchanged")
	assert.Equal(t, 3600.0, out[1].LastTradedPrice, "batch not aborted")
	assert.Equal(t, 3500.0, input[1].LastTradedPrice, "input not mutated")
}

func TestEnrich_OneLookupPerTicker(t *testing.T) {
	client := newMockQuoteClient(map[string]*models.Quote{
		"INFY.NSE": {Symbol: "INFY.NSE", LastPrice: 1600},
	})
	svc := NewService(client, common.NewSilentLogger(), WithConcurrency(4))

	input := []models.Holding{
		costBasisHolding("INFY", 10, 1500),
		costBasisHolding("INFY", 5, 1400),
		costBasisHolding("INFY", 1, 1300),
		costBasisHolding("MISSING", 1, 10),
		costBasisHolding("MISSING", 1, 10),
	}
	out := svc.Enrich(context.Background(), input)

	assert.Equal(t, 1, client.callCount("INFY.NSE"))
	assert.Equal(t, 1, client.callCount("MISSING.NSE"))
	assert.Equal(t, 1, client.callCount("MISSING.BSE"))
	for _, h := range out[:3] {
		assert.Equal(t, 1600.0, h.LastTradedPrice)
	}
}

func TestEnrich_SharedCache(t *testing.T) {
	client := newMockQuoteClient(map[string]*models.Quote{
		"INFY.NSE": {Symbol: "INFY.NSE", LastPrice: 1600},
	})
	cache := &mockQuoteCache{quotes: map[string]*models.Quote{
		"TCS.NSE": {Symbol: "TCS.NSE", LastPrice: 3700},
	}}
	m := metrics.New()
	svc := NewService(client, common.NewSilentLogger(), WithCache(cache, time.Minute), WithMetrics(m))

	out := svc.Enrich(context.Background(), []models.Holding{costBasisHolding("INFY", 1, 1500), costBasisHolding("TCS", 1, 3500)})

	assert.Equal(t, 1600.0, out[0].LastTradedPrice)
	assert.Equal(t, 3700.0, out[1].LastTradedPrice)
	assert.Equal(t, 0, client.callCount("TCS.NSE"), "served from cache")
	assert.Equal(t, 1, cache.sets)
	assert.NotNil(t, cache.quotes["INFY.NSE"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuoteLookups.WithLabelValues(metrics.QuoteHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuoteLookups.WithLabelValues(metrics.QuoteFound)))
}

func TestEnrich_ZeroInvestedPercentage(t *testing.T) {
	client := newMockQuoteClient(map[string]*models.Quote{
		"BONUS.NSE": {Symbol: "BONUS.NSE", LastPrice: 10},
	})
	svc := NewService(client, common.NewSilentLogger())

	out := svc.Enrich(context.Background(), []models.Holding{costBasisHolding("BONUS", 100, 0)})

	assert.Equal(t, 1000.0, out[0].UnrealizedPL)
	assert.Equal(t, 0.0, out[0].UnrealizedPLPercentage)
}

func TestEnrich_Empty(t *testing.T) {
	svc := NewService(newMockQuoteClient(nil), common.NewSilentLogger())
	assert.Empty(t, svc.Enrich(context.Background(), nil))
}
