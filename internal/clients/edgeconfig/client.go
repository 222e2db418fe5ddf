// Package edgeconfig provides a key-value store backed by the Vercel Edge
// Config REST API.
package edgeconfig

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

const (
	DefaultBaseURL = "https://api.vercel.com/v1/edge-config"
	DefaultTimeout = 15 * time.Second
)

// Client implements the ConfigStore interface for one Edge Config
type Client struct {
	baseURL    string
	configID   string
	token      string
	httpClient *http.Client
	logger     *common.Logger
}

var _ interfaces.ConfigStore = (*Client)(nil)

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

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a client for the Edge Config with the given id
func NewClient(configID, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		configID: configID,
		token:    token,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: common.NewSilentLogger(),
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
	return fmt.Sprintf("Edge Config API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

func (c *Client) itemsURL() string {
	return fmt.Sprintf("%s/%s/items", c.baseURL, c.configID)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug().Str("method", req.Method).Int("status", resp.StatusCode).Dur("elapsed", time.Since(start)).Msg("Edge Config API call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body), Endpoint: "/items"}
	}
	return body, nil
}

// ListItems returns every item. The API answers with either a bare array or
// an object wrapping the array under "items".
func (c *Client) ListItems(ctx context.Context) ([]models.ConfigItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.itemsURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	var items []models.ConfigItem
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to decode items: %w", err)
		}
		return items, nil
	}

	var wrapped struct {
		Items []models.ConfigItem `json:"items"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	return wrapped.Items, nil
}

type patchItem struct {
	Operation string          `json:"operation"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
}

// Upsert creates or replaces one item
func (c *Client) Upsert(ctx context.Context, key string, value json.RawMessage) error {
	payload, err := json.Marshal(map[string][]patchItem{
		"items": {{Operation: "upsert", Key: key, Value: value}},
	})
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.itemsURL(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if _, err := c.do(req); err != nil {
		return fmt.Errorf("failed to update Edge Config: %w", err)
	}
	return nil
}
