// Package common provides shared utilities for Folio
package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Folio
type Config struct {
	Environment string            `toml:"environment"`
	AppURL      string            `toml:"app_url"` // public base URL used for OAuth redirects
	Server      ServerConfig      `toml:"server"`
	Storage     StorageConfig     `toml:"storage"`
	ConfigStore ConfigStoreConfig `toml:"config_store"`
	Kite        KiteConfig        `toml:"kite"`
	Quotes      QuotesConfig      `toml:"quotes"`
	Market      MarketConfig      `toml:"market"`
	Sync        SyncConfig        `toml:"sync"`
	Auth        AuthConfig        `toml:"auth"`
	Logging     LoggingConfig     `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig selects and configures the snapshot store.
type StorageConfig struct {
	Backend   string        `toml:"backend"` // "sqlite" or "surrealdb"
	SQLite    SQLiteConfig  `toml:"sqlite"`
	SurrealDB SurrealConfig `toml:"surrealdb"`
}

// SQLiteConfig holds the database file path.
type SQLiteConfig struct {
	Path string `toml:"path"`
}

// SurrealConfig holds SurrealDB connection settings.
type SurrealConfig struct {
	Address   string `toml:"address"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
}

// ConfigStoreConfig selects where the encrypted token map lives.
type ConfigStoreConfig struct {
	Backend      string `toml:"backend"` // "storage" or "edgeconfig"
	BaseURL      string `toml:"base_url"`
	EdgeConfigID string `toml:"edge_config_id"`
	AccessToken  string `toml:"access_token"`
	Timeout      string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *ConfigStoreConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 15*time.Second)
}

// KiteConfig holds brokerage API configuration and the configured accounts.
type KiteConfig struct {
	BaseURL   string        `toml:"base_url"`
	LoginURL  string        `toml:"login_url"`
	RateLimit int           `toml:"rate_limit"`
	Timeout   string        `toml:"timeout"`
	Accounts  []KiteAccount `toml:"accounts"`
}

// GetTimeout parses and returns the timeout duration
func (c *KiteConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// KiteAccount is one configured brokerage account.
type KiteAccount struct {
	ID        string `toml:"id"`
	Label     string `toml:"label"`
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
}

// QuotesConfig holds market quote configuration.
type QuotesConfig struct {
	BaseURL     string   `toml:"base_url"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	Timeout     string   `toml:"timeout"`
	Exchanges   []string `toml:"exchanges"` // suffixes tried in order for bare tickers
	Concurrency int      `toml:"concurrency"`
	CacheTTL    string   `toml:"cache_ttl"`
	RedisURL    string   `toml:"redis_url"`
}

// GetTimeout parses and returns the timeout duration
func (c *QuotesConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 10*time.Second)
}

// GetCacheTTL parses the quote cache TTL. Zero disables caching.
func (c *QuotesConfig) GetCacheTTL() time.Duration {
	return parseDuration(c.CacheTTL, 0)
}

// MarketConfig lists the instruments behind the market overview views.
// Symbols are in quote provider form, e.g. "NSEI.INDX" or "BTC-USD.CC".
type MarketConfig struct {
	Indices           []Instrument `toml:"indices"`
	GlobalIndices     []Instrument `toml:"global_indices"`
	Crypto            []Instrument `toml:"crypto"`
	MoversBasket      []string     `toml:"movers_basket"` // bare NSE tickers
	MoversExchange    string       `toml:"movers_exchange"`
	MoversLimit       int          `toml:"movers_limit"`
	SearchLimit       int          `toml:"search_limit"`
	ManualHoldingsKey string       `toml:"manual_holdings_key"`
}

// Instrument is one tracked market instrument.
type Instrument struct {
	Symbol   string `toml:"symbol"`
	Name     string `toml:"name"`
	Currency string `toml:"currency"`
}

// SyncConfig holds scheduled sync and live-fetch settings.
type SyncConfig struct {
	Schedule    string `toml:"schedule"` // cron expression, empty disables
	Concurrency int    `toml:"concurrency"`
}

// AuthConfig holds settings for the brokerage login flow.
type AuthConfig struct {
	TokenEncryptionKey string `toml:"token_encryption_key"`
	StateExpiry        string `toml:"state_expiry"`
}

// GetStateExpiry parses the OAuth state lifetime.
func (c *AuthConfig) GetStateExpiry() time.Duration {
	return parseDuration(c.StateExpiry, 5*time.Minute)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"`
	Outputs  []string `toml:"outputs"`
	FilePath string   `toml:"file_path"`
}

// MinEncryptionKeyLength is the shortest accepted token encryption passphrase.
const MinEncryptionKeyLength = 32

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		AppURL:      "http://localhost:8080",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			SQLite:  SQLiteConfig{Path: "data/folio.db"},
			SurrealDB: SurrealConfig{
				Address:   "ws://localhost:8000/rpc",
				Username:  "root",
				Password:  "root",
				Namespace: "folio",
				Database:  "folio",
			},
		},
		ConfigStore: ConfigStoreConfig{
			Backend: "storage",
			BaseURL: "https://api.vercel.com/v1/edge-config",
			Timeout: "15s",
		},
		Kite: KiteConfig{
			BaseURL:   "https://api.kite.trade",
			LoginURL:  "https://kite.zerodha.com/connect/login",
			RateLimit: 3,
			Timeout:   "30s",
		},
		Quotes: QuotesConfig{
			BaseURL:     "https://eodhd.com/api",
			RateLimit:   10,
			Timeout:     "10s",
			Exchanges:   []string{"NSE", "BSE"},
			Concurrency: 8,
			CacheTTL:    "1m",
		},
		Market: MarketConfig{
			Indices: []Instrument{
				{Symbol: "BSESN.INDX", Name: "S&P BSE SENSEX", Currency: "INR"},
				{Symbol: "NSEI.INDX", Name: "NIFTY 50", Currency: "INR"},
			},
			GlobalIndices: []Instrument{
				{Symbol: "DJI.INDX", Name: "Dow Jones", Currency: "USD"},
				{Symbol: "YM.COMM", Name: "Dow Futures", Currency: "USD"},
				{Symbol: "USDINR.FOREX", Name: "USD/INR", Currency: "INR"},
				{Symbol: "N225.INDX", Name: "Nikkei 225", Currency: "JPY"},
				{Symbol: "FTSE.INDX", Name: "FTSE 100", Currency: "GBP"},
				{Symbol: "GSPC.INDX", Name: "S&P 500", Currency: "USD"},
			},
			Crypto: []Instrument{
				{Symbol: "BTC-USD.CC", Name: "Bitcoin", Currency: "USD"},
				{Symbol: "XRP-USD.CC", Name: "XRP", Currency: "USD"},
				{Symbol: "ETH-USD.CC", Name: "Ethereum", Currency: "USD"},
				{Symbol: "SOL-USD.CC", Name: "Solana", Currency: "USD"},
			},
			MoversBasket: []string{
				"RELIANCE", "TCS", "HDFCBANK", "INFY", "ICICIBANK",
				"SBIN", "BHARTIARTL", "HINDUNILVR", "AXISBANK", "MARUTI",
				"ULTRACEMCO", "ASIANPAINT", "BAJFINANCE", "HCLTECH", "WIPRO",
				"LT", "TATAMOTORS", "TITAN", "POWERGRID", "NTPC",
			},
			MoversExchange:    "NSE",
			MoversLimit:       10,
			SearchLimit:       20,
			ManualHoldingsKey: "holdings",
		},
		Sync: SyncConfig{
			Concurrency: 4,
		},
		Auth: AuthConfig{
			StateExpiry: "5m",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "console",
			Outputs:  []string{"console"},
			FilePath: "./logs/folio.log",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// A .env file in the working directory is loaded first; it never overrides
// variables already present in the environment.
func LoadConfig(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FOLIO_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("FOLIO_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("FOLIO_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("FOLIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if v := os.Getenv("APP_URL"); v != "" {
		config.AppURL = strings.TrimRight(v, "/")
	}

	if v := os.Getenv("TOKEN_ENCRYPTION_KEY"); v != "" {
		config.Auth.TokenEncryptionKey = v
	}

	// Storage overrides
	if v := os.Getenv("FOLIO_STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = v
	}
	if v := os.Getenv("FOLIO_SQLITE_PATH"); v != "" {
		config.Storage.SQLite.Path = v
	}
	if v := os.Getenv("FOLIO_SURREALDB_ADDRESS"); v != "" {
		config.Storage.SurrealDB.Address = v
	}
	if v := os.Getenv("FOLIO_SURREALDB_USERNAME"); v != "" {
		config.Storage.SurrealDB.Username = v
	}
	if v := os.Getenv("FOLIO_SURREALDB_PASSWORD"); v != "" {
		config.Storage.SurrealDB.Password = v
	}

	// Hosted config store
	if v := os.Getenv("EDGE_CONFIG_ID"); v != "" {
		config.ConfigStore.EdgeConfigID = v
		if os.Getenv("FOLIO_CONFIG_STORE") == "" {
			config.ConfigStore.Backend = "edgeconfig"
		}
	}
	if v := os.Getenv("VERCEL_ACCESS_TOKEN"); v != "" {
		config.ConfigStore.AccessToken = v
	}
	if v := os.Getenv("FOLIO_CONFIG_STORE"); v != "" {
		config.ConfigStore.Backend = v
	}

	// Quotes
	if v := os.Getenv("EODHD_API_KEY"); v != "" {
		config.Quotes.APIKey = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		config.Quotes.RedisURL = v
	}

	if v := os.Getenv("FOLIO_SYNC_SCHEDULE"); v != "" {
		config.Sync.Schedule = v
	}

	if accounts := kiteAccountsFromEnv(); len(accounts) > 0 {
		config.Kite.Accounts = accounts
	}
}

// AccountEnvSuffix converts an account id into its environment variable
// suffix: non-alphanumerics become underscores, letters are upper-cased.
func AccountEnvSuffix(id string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(id) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.ToUpper(b.String())
}

// kiteAccountsFromEnv reads KITE_ACCOUNT_IDS and the per-account variables.
func kiteAccountsFromEnv() []KiteAccount {
	raw := os.Getenv("KITE_ACCOUNT_IDS")
	if raw == "" {
		return nil
	}

	var accounts []KiteAccount
	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		suffix := AccountEnvSuffix(id)
		label := os.Getenv("KITE_ACCOUNT_" + suffix + "_LABEL")
		if label == "" {
			label = id
		}
		accounts = append(accounts, KiteAccount{
			ID:        id,
			Label:     label,
			APIKey:    os.Getenv("KITE_API_KEY_" + suffix),
			APISecret: os.Getenv("KITE_API_SECRET_" + suffix),
		})
	}
	return accounts
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Kite.Accounts) == 0 {
		errs = append(errs, errors.New("no Kite accounts configured: set KITE_ACCOUNT_IDS"))
	}
	seen := make(map[string]bool, len(c.Kite.Accounts))
	for _, a := range c.Kite.Accounts {
		suffix := AccountEnvSuffix(a.ID)
		if a.ID == "" {
			errs = append(errs, errors.New("Kite account with empty id"))
			continue
		}
		if seen[a.ID] {
			errs = append(errs, fmt.Errorf("duplicate Kite account %q", a.ID))
		}
		seen[a.ID] = true
		if a.APIKey == "" {
			errs = append(errs, fmt.Errorf("missing KITE_API_KEY_%s for Kite account %q", suffix, a.ID))
		}
		if a.APISecret == "" {
			errs = append(errs, fmt.Errorf("missing KITE_API_SECRET_%s for Kite account %q", suffix, a.ID))
		}
	}

	if len(c.Auth.TokenEncryptionKey) < MinEncryptionKeyLength {
		errs = append(errs, fmt.Errorf("TOKEN_ENCRYPTION_KEY must be at least %d characters", MinEncryptionKeyLength))
	}

	switch c.Storage.Backend {
	case "sqlite", "surrealdb":
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}

	switch c.ConfigStore.Backend {
	case "storage":
	case "edgeconfig":
		if c.ConfigStore.EdgeConfigID == "" || c.ConfigStore.AccessToken == "" {
			errs = append(errs, errors.New("edgeconfig store requires EDGE_CONFIG_ID and VERCEL_ACCESS_TOKEN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown config store backend %q", c.ConfigStore.Backend))
	}

	return errors.Join(errs...)
}

// Account returns the configured account with the given id.
func (c *Config) Account(id string) (KiteAccount, bool) {
	for _, a := range c.Kite.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return KiteAccount{}, false
}

// AccountIDs returns the configured account ids in configuration order.
func (c *Config) AccountIDs() []string {
	ids := make([]string, len(c.Kite.Accounts))
	for i, a := range c.Kite.Accounts {
		ids[i] = a.ID
	}
	return ids
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
