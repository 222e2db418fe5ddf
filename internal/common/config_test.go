package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Auth.TokenEncryptionKey = "0123456789abcdef0123456789abcdef"
	cfg.Kite.Accounts = []KiteAccount{{ID: "self", Label: "Self", APIKey: "k", APISecret: "s"}}
	return cfg
}

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "storage", cfg.ConfigStore.Backend)
	assert.Equal(t, []string{"NSE", "BSE"}, cfg.Quotes.Exchanges)
	assert.Equal(t, "https://api.kite.trade", cfg.Kite.BaseURL)
}

func TestConfig_PortEnvOverride(t *testing.T) {
	t.Setenv("FOLIO_PORT", "9090")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestAccountEnvSuffix(t *testing.T) {
	tests := map[string]string{
		"self":       "SELF",
		"mom":        "MOM",
		"joint-acct": "JOINT_ACCT",
		" dad.2 ":    "DAD_2",
	}
	for id, want := range tests {
		assert.Equal(t, want, AccountEnvSuffix(id), id)
	}
}

func TestConfig_KiteAccountsFromEnv(t *testing.T) {
	t.Setenv("KITE_ACCOUNT_IDS", "self, joint-acct,,")
	t.Setenv("KITE_API_KEY_SELF", "key-self")
	t.Setenv("KITE_API_SECRET_SELF", "secret-self")
	t.Setenv("KITE_ACCOUNT_SELF_LABEL", "Me")
	t.Setenv("KITE_API_KEY_JOINT_ACCT", "key-joint")
	t.Setenv("KITE_API_SECRET_JOINT_ACCT", "secret-joint")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	require.Len(t, cfg.Kite.Accounts, 2)
	assert.Equal(t, KiteAccount{ID: "self", Label: "Me", APIKey: "key-self", APISecret: "secret-self"}, cfg.Kite.Accounts[0])
	assert.Equal(t, "joint-acct", cfg.Kite.Accounts[1].ID)
	assert.Equal(t, "joint-acct", cfg.Kite.Accounts[1].Label, "label defaults to id")
	assert.Equal(t, []string{"self", "joint-acct"}, cfg.AccountIDs())

	acct, ok := cfg.Account("joint-acct")
	require.True(t, ok)
	assert.Equal(t, "key-joint", acct.APIKey)
	_, ok = cfg.Account("unknown")
	assert.False(t, ok)
}

func TestConfig_EdgeConfigEnvSelectsBackend(t *testing.T) {
	t.Setenv("EDGE_CONFIG_ID", "ecfg_123")
	t.Setenv("VERCEL_ACCESS_TOKEN", "tok")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, "edgeconfig", cfg.ConfigStore.Backend)
	assert.Equal(t, "ecfg_123", cfg.ConfigStore.EdgeConfigID)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	cfg := validConfig()
	cfg.Kite.Accounts = nil
	assert.ErrorContains(t, cfg.Validate(), "KITE_ACCOUNT_IDS")

	cfg = validConfig()
	cfg.Kite.Accounts[0].APISecret = ""
	assert.ErrorContains(t, cfg.Validate(), "KITE_API_SECRET_SELF")

	cfg = validConfig()
	cfg.Auth.TokenEncryptionKey = "too-short"
	assert.ErrorContains(t, cfg.Validate(), "TOKEN_ENCRYPTION_KEY")

	cfg = validConfig()
	cfg.Storage.Backend = "postgres"
	assert.ErrorContains(t, cfg.Validate(), "postgres")

	cfg = validConfig()
	cfg.ConfigStore.Backend = "edgeconfig"
	assert.ErrorContains(t, cfg.Validate(), "EDGE_CONFIG_ID")
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "folio.toml")
	content := `
environment = "production"

[server]
port = 7000

[storage]
backend = "surrealdb"

[[kite.accounts]]
id = "self"
label = "Self"
api_key = "file-key"
api_secret = "file-secret"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("FOLIO_PORT", "7100")

	cfg, err := LoadConfig(path, filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 7100, cfg.Server.Port)
	assert.Equal(t, "surrealdb", cfg.Storage.Backend)
	require.Len(t, cfg.Kite.Accounts, 1)
	assert.Equal(t, "file-key", cfg.Kite.Accounts[0].APIKey)
}

func TestQuotesConfig_Durations(t *testing.T) {
	c := QuotesConfig{Timeout: "bad", CacheTTL: "30s"}
	assert.Equal(t, int64(10e9), int64(c.GetTimeout()))
	assert.Equal(t, int64(30e9), int64(c.GetCacheTTL()))
}

func TestConfig_MarketDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	require.Len(t, cfg.Market.Indices, 2)
	assert.Equal(t, "BSESN.INDX", cfg.Market.Indices[0].Symbol)
	assert.Len(t, cfg.Market.GlobalIndices, 6)
	assert.Len(t, cfg.Market.Crypto, 4)
	assert.Len(t, cfg.Market.MoversBasket, 20)
	assert.Equal(t, 10, cfg.Market.MoversLimit)
	assert.Equal(t, 20, cfg.Market.SearchLimit)
	assert.Equal(t, "holdings", cfg.Market.ManualHoldingsKey)
}

func TestLoadConfig_MarketSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.toml")
	content := `
[market]
movers_basket = ["INFY", "TCS"]
movers_limit = 5
crypto = [{ symbol = "DOGE-USD.CC", name = "Dogecoin", currency = "USD" }]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"INFY", "TCS"}, cfg.Market.MoversBasket)
	assert.Equal(t, 5, cfg.Market.MoversLimit)
	require.Len(t, cfg.Market.Crypto, 1)
	assert.Equal(t, "Dogecoin", cfg.Market.Crypto[0].Name)
	assert.Len(t, cfg.Market.Indices, 2, "untouched lists keep their defaults")
}
