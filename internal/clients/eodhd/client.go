// Package eodhd provides a client for the EODHD real-time quote and search APIs
package eodhd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// ErrNoQuote is returned when EODHD has no price for the symbol.
var ErrNoQuote = errors.New("no quote available")

// flexFloat64 handles JSON values that may be either a number or a string.
// EODHD reports missing values as "NA"; valid is false for those.
type flexFloat64 struct {
	value float64
	valid bool
}

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64{value: num, valid: string(data) != "null"}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = flexFloat64{}
			return nil
		}
		*f = flexFloat64{value: num, valid: true}
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

const (
	DefaultBaseURL   = "https://eodhd.com/api"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// Client implements the MarketDataClient interface
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

var _ interfaces.MarketDataClient = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit. Non-positive values keep the default.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new EODHD client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("EODHD API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

type realTimeResponse struct {
	Code          string      `json:"code"`
	Timestamp     flexFloat64 `json:"timestamp"`
	Open          flexFloat64 `json:"open"`
	High          flexFloat64 `json:"high"`
	Low           flexFloat64 `json:"low"`
	Close         flexFloat64 `json:"close"`
	Volume        flexFloat64 `json:"volume"`
	PreviousClose flexFloat64 `json:"previousClose"`
	Change        flexFloat64 `json:"change"`
	ChangePct     flexFloat64 `json:"change_p"`
}

// GetRealTimeQuote retrieves the live quote for an exchange-qualified symbol
// such as "INFY.NSE". ErrNoQuote is returned when EODHD reports no price.
func (c *Client) GetRealTimeQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	path := "/real-time/" + url.PathEscape(symbol)

	var resp realTimeResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", symbol, ErrNoQuote)
		}
		return nil, err
	}

	quote, ok := resp.toQuote(symbol)
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoQuote)
	}
	return quote, nil
}

// toQuote converts a response, reporting false when it carries no price.
func (r *realTimeResponse) toQuote(symbol string) (*models.Quote, bool) {
	if !r.Close.valid || r.Close.value <= 0 {
		return nil, false
	}

	quote := &models.Quote{
		Symbol:        symbol,
		LastPrice:     r.Close.value,
		Change:        r.Change.value,
		ChangePercent: r.ChangePct.value,
		PreviousClose: r.PreviousClose.value,
		Open:          r.Open.value,
		High:          r.High.value,
		Low:           r.Low.value,
		Volume:        int64(r.Volume.value),
	}
	if r.Timestamp.value > 0 {
		quote.Timestamp = time.Unix(int64(r.Timestamp.value), 0)
	}

	// Change fields are sometimes NA while previous close is present
	if !r.Change.valid && r.PreviousClose.valid && r.PreviousClose.value > 0 {
		quote.Change = quote.LastPrice - quote.PreviousClose
		quote.ChangePercent = quote.Change / quote.PreviousClose * 100
	}

	return quote, true
}

// MaxBulkSymbols is the number of symbols sent per real-time request.
const MaxBulkSymbols = 15

// GetRealTimeQuotes retrieves live quotes for many symbols, batching them
// MaxBulkSymbols per request. The result is keyed by upper-cased symbol and
// omits symbols EODHD has no price for.
func (c *Client) GetRealTimeQuotes(ctx context.Context, symbols []string) (map[string]*models.Quote, error) {
	out := make(map[string]*models.Quote, len(symbols))
	for start := 0; start < len(symbols); start += MaxBulkSymbols {
		end := min(start+MaxBulkSymbols, len(symbols))
		batch := symbols[start:end]

		var params url.Values
		if len(batch) > 1 {
			params = url.Values{"s": {strings.Join(batch[1:], ",")}}
		}

		var raw json.RawMessage
		if err := c.get(ctx, "/real-time/"+url.PathEscape(batch[0]), params, &raw); err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
				continue
			}
			return nil, err
		}

		// A single symbol is answered with an object, several with an array
		var responses []realTimeResponse
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &responses); err != nil {
				return nil, fmt.Errorf("failed to decode bulk response: %w", err)
			}
		} else {
			var single realTimeResponse
			if err := json.Unmarshal(trimmed, &single); err != nil {
				return nil, fmt.Errorf("failed to decode response: %w", err)
			}
			if single.Code == "" {
				single.Code = batch[0]
			}
			responses = []realTimeResponse{single}
		}

		for i := range responses {
			code := strings.ToUpper(responses[i].Code)
			if q, ok := responses[i].toQuote(code); ok {
				out[code] = q
			}
		}
	}
	return out, nil
}

type searchResponse struct {
	Code          string      `json:"Code"`
	Exchange      string      `json:"Exchange"`
	Name          string      `json:"Name"`
	Type          string      `json:"Type"`
	Country       string      `json:"Country"`
	Currency      string      `json:"Currency"`
	ISIN          string      `json:"ISIN"`
	PreviousClose flexFloat64 `json:"previousClose"`
}

// SearchSymbols looks up instruments by ticker, name or ISIN.
func (c *Client) SearchSymbols(ctx context.Context, query string, limit int) ([]models.SymbolMatch, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var resp []searchResponse
	if err := c.get(ctx, "/search/"+url.PathEscape(query), params, &resp); err != nil {
		return nil, err
	}

	matches := make([]models.SymbolMatch, 0, len(resp))
	for _, r := range resp {
		if r.Code == "" {
			continue
		}
		matches = append(matches, models.SymbolMatch{
			Code:          r.Code,
			Exchange:      r.Exchange,
			Name:          r.Name,
			Type:          r.Type,
			Country:       r.Country,
			Currency:      r.Currency,
			ISIN:          r.ISIN,
			PreviousClose: r.PreviousClose.value,
		})
	}
	return matches, nil
}
