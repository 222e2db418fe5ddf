// Package kite provides a client for the Zerodha Kite Connect API
package kite

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

const (
	DefaultBaseURL   = "https://api.kite.trade"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 3 // requests per second, Kite's portfolio endpoint limit

	apiVersion = "3"

	errorTypeToken = "TokenException"
)

// Client implements the KiteClient interface
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

var _ interfaces.KiteClient = (*Client)(nil)

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

// NewClient creates a new Kite client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
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

// APIError is a non-authentication error reported by Kite
type APIError struct {
	StatusCode int
	ErrorType  string
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Kite API error: %s (status: %d, type: %s, endpoint: %s)", e.Message, e.StatusCode, e.ErrorType, e.Endpoint)
}

// envelope is every Kite response. Status "success" carries Data;
// status "error" carries Message and ErrorType.
type envelope struct {
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message"`
	ErrorType string          `json:"error_type"`
}

// Checksum is the session exchange checksum: hex SHA-256 of the api key,
// request token and api secret concatenated.
func Checksum(apiKey, requestToken, apiSecret string) string {
	sum := sha256.Sum256([]byte(apiKey + requestToken + apiSecret))
	return hex.EncodeToString(sum[:])
}

// do performs a rate-limited request and decodes the success payload into result
func (c *Client) do(ctx context.Context, req *http.Request, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	path := req.URL.Path
	req.Header.Set("X-Kite-Version", apiVersion)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("method", req.Method).Str("path", path).Msg("Kite API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	return decodeEnvelope(resp.StatusCode, path, body, result)
}

func decodeEnvelope(statusCode int, path string, body []byte, result interface{}) error {
	ok := statusCode >= 200 && statusCode < 300

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if statusCode == http.StatusUnauthorized {
			return &models.AuthRequiredError{Message: "Kite session expired."}
		}
		if !ok {
			return &APIError{StatusCode: statusCode, Message: string(body), Endpoint: path}
		}
		return fmt.Errorf("unexpected Kite response for %s: %w", path, models.ErrMalformedResponse)
	}

	if !ok || env.Status == "error" {
		if env.ErrorType == errorTypeToken || statusCode == http.StatusUnauthorized {
			return &models.AuthRequiredError{Message: env.Message}
		}
		msg := env.Message
		if msg == "" {
			msg = "Kite request failed"
		}
		return &APIError{StatusCode: statusCode, ErrorType: env.ErrorType, Message: msg, Endpoint: path}
	}

	if env.Status != "success" || len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("kite response for %s has no data: %w", path, models.ErrMalformedResponse)
	}

	if err := json.Unmarshal(env.Data, result); err != nil {
		return fmt.Errorf("kite response for %s: %v: %w", path, err, models.ErrMalformedResponse)
	}
	return nil
}

// get performs an authenticated GET
func (c *Client) get(ctx context.Context, path, apiKey, accessToken string, result interface{}) error {
	if accessToken == "" {
		return &models.AuthRequiredError{Message: "Kite access token missing."}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "token "+apiKey+":"+accessToken)

	return c.do(ctx, req, result)
}

// ExchangeRequestToken trades the login request token for an access token
func (c *Client) ExchangeRequestToken(ctx context.Context, apiKey, apiSecret, requestToken string) (*models.KiteSession, error) {
	form := url.Values{}
	form.Set("api_key", apiKey)
	form.Set("request_token", requestToken)
	form.Set("checksum", Checksum(apiKey, requestToken, apiSecret))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/session/token", bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var session models.KiteSession
	if err := c.do(ctx, req, &session); err != nil {
		// A rejected request token is a login failure, not an expired session
		var authErr *models.AuthRequiredError
		if errors.As(err, &authErr) {
			return nil, &APIError{StatusCode: http.StatusForbidden, ErrorType: errorTypeToken, Message: authErr.Error(), Endpoint: "/session/token"}
		}
		return nil, err
	}
	if session.AccessToken == "" {
		return nil, fmt.Errorf("session response missing access_token: %w", models.ErrMalformedResponse)
	}
	return &session, nil
}

// GetHoldings retrieves the holdings book
func (c *Client) GetHoldings(ctx context.Context, apiKey, accessToken string) ([]models.KiteHolding, error) {
	var holdings []models.KiteHolding
	if err := c.get(ctx, "/portfolio/holdings", apiKey, accessToken, &holdings); err != nil {
		return nil, err
	}
	return holdings, nil
}

// GetPositions retrieves the net and day position books
func (c *Client) GetPositions(ctx context.Context, apiKey, accessToken string) (*models.KitePositions, error) {
	var positions models.KitePositions
	if err := c.get(ctx, "/portfolio/positions", apiKey, accessToken, &positions); err != nil {
		return nil, err
	}
	return &positions, nil
}
