// Package app wires configuration, storage, clients and services into the
// shared core used by cmd/folio-server and cmd/folio.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/folio/internal/clients/eodhd"
	"github.com/bobmcallan/folio/internal/clients/kite"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/metrics"
	"github.com/bobmcallan/folio/internal/secret"
	"github.com/bobmcallan/folio/internal/services/credentials"
	"github.com/bobmcallan/folio/internal/services/kitesync"
	"github.com/bobmcallan/folio/internal/services/market"
	"github.com/bobmcallan/folio/internal/services/portfolio"
	"github.com/bobmcallan/folio/internal/services/quote"
	"github.com/bobmcallan/folio/internal/services/session"
	"github.com/bobmcallan/folio/internal/storage"
)

// App holds all initialized services, clients and storage.
type App struct {
	Config  *common.Config
	Logger  *common.Logger
	Metrics *metrics.Metrics

	Storage     interfaces.StorageManager
	ConfigStore interfaces.ConfigStore
	QuoteCache  interfaces.QuoteCache
	Cipher      *secret.Cipher

	KiteClient  interfaces.KiteClient
	QuoteClient interfaces.MarketDataClient

	CredentialStore  interfaces.CredentialStore
	QuoteService     interfaces.QuoteService
	SyncService      interfaces.SyncService
	SessionService   interfaces.SessionService
	PortfolioService interfaces.PortfolioService
	MarketService    interfaces.MarketService

	StartupTime time.Time

	scheduler *Scheduler
	logCloser io.Closer
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath returns configPath, else FOLIO_CONFIG, else folio.toml
// next to the binary, else config/folio.toml.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("FOLIO_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "folio.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/folio.toml" // fallback for development
		}
	}
	return configPath
}

// NewApp loads configuration and initializes the application.
// configPath may be empty, in which case ResolveConfigPath applies.
func NewApp(configPath string) (*App, error) {
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, logCloser, err := common.NewLoggerFromConfig(config.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a, err := NewAppWithConfig(config, logger)
	if err != nil {
		if logCloser != nil {
			logCloser.Close()
		}
		return nil, err
	}
	a.logCloser = logCloser
	return a, nil
}

// NewAppWithConfig initializes the application from an already-loaded
// configuration. The configuration is validated first.
func NewAppWithConfig(config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cipher, err := secret.NewCipher(config.Auth.TokenEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token cipher: %w", err)
	}

	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	configStore, err := storage.NewConfigStore(logger, config, storageManager)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize config store: %w", err)
	}

	ctx := context.Background()
	m := metrics.New()

	kiteClient := kite.NewClient(
		kite.WithBaseURL(config.Kite.BaseURL),
		kite.WithLogger(logger),
		kite.WithRateLimit(config.Kite.RateLimit),
		kite.WithTimeout(config.Kite.GetTimeout()),
	)

	a := &App{
		Config:      config,
		Logger:      logger,
		Metrics:     m,
		Storage:     storageManager,
		ConfigStore: configStore,
		Cipher:      cipher,
		KiteClient:  kiteClient,
		StartupTime: startupStart,
	}

	// Quotes are optional; without a key holdings are served at cost.
	if config.Quotes.APIKey != "" {
		quoteClient := eodhd.NewClient(config.Quotes.APIKey,
			eodhd.WithBaseURL(config.Quotes.BaseURL),
			eodhd.WithLogger(logger),
			eodhd.WithRateLimit(config.Quotes.RateLimit),
			eodhd.WithTimeout(config.Quotes.GetTimeout()),
		)
		a.QuoteClient = quoteClient
		a.QuoteCache = storage.NewQuoteCache(ctx, logger, config)
		a.QuoteService = quote.NewService(quoteClient, logger,
			quote.WithCache(a.QuoteCache, config.Quotes.GetCacheTTL()),
			quote.WithExchanges(config.Quotes.Exchanges),
			quote.WithConcurrency(config.Quotes.Concurrency),
			quote.WithMetrics(m),
		)
	} else {
		logger.Warn().Msg("EODHD API key not configured - holdings will be valued at cost and market views are disabled")
	}

	credentialStore := credentials.NewService(configStore, cipher, logger)
	syncService := kitesync.NewService(config, storageManager, kiteClient, credentialStore, logger)
	syncService.SetMetrics(m)

	a.CredentialStore = credentialStore
	a.SyncService = syncService
	a.SessionService = session.NewService(config, kiteClient, credentialStore, syncService, logger)
	a.PortfolioService = portfolio.NewService(config, storageManager, syncService, a.QuoteService, logger)

	marketOpts := []market.Option{
		market.WithExchanges(config.Quotes.Exchanges),
		market.WithMetrics(m),
	}
	if a.QuoteCache != nil {
		marketOpts = append(marketOpts, market.WithCache(a.QuoteCache, config.Quotes.GetCacheTTL()))
	}
	a.MarketService = market.NewService(config.Market, a.QuoteClient, configStore, logger, marketOpts...)

	logger.Info().
		Int("accounts", len(config.Kite.Accounts)).
		Str("storage", storageManager.Backend()).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// StartScheduler starts the scheduled sync when sync.schedule is set.
func (a *App) StartScheduler() error {
	if a.Config.Sync.Schedule == "" {
		return nil
	}
	s := NewScheduler(a.SyncService, a.Logger)
	if err := s.Add(a.Config.Sync.Schedule); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", a.Config.Sync.Schedule, err)
	}
	s.Start()
	a.scheduler = s
	return nil
}

// Close releases all resources held by the App.
// Shutdown order: stop scheduler, close caches, close storage, close log file.
func (a *App) Close() {
	if a.scheduler != nil {
		a.scheduler.Stop()
		a.scheduler = nil
	}
	if a.QuoteCache != nil {
		a.QuoteCache.Close()
		a.QuoteCache = nil
	}
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
	if a.logCloser != nil {
		a.logCloser.Close()
		a.logCloser = nil
	}
}
