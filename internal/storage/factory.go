// Package storage selects and constructs the persistence backends.
package storage

import (
	"context"
	"fmt"

	"github.com/bobmcallan/folio/internal/clients/edgeconfig"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/storage/quotecache"
	"github.com/bobmcallan/folio/internal/storage/sqlite"
	"github.com/bobmcallan/folio/internal/storage/surrealdb"
)

// Backend type constants.
const (
	BackendSQLite    = "sqlite"
	BackendSurrealDB = "surrealdb"

	ConfigStoreStorage    = "storage"
	ConfigStoreEdgeConfig = "edgeconfig"
)

// NewStorageManager creates the snapshot/status storage based on the configuration.
// Supported backends: "sqlite" (default), "surrealdb".
func NewStorageManager(logger *common.Logger, config *common.Config) (interfaces.StorageManager, error) {
	backend := config.Storage.Backend
	if backend == "" {
		backend = BackendSQLite
	}

	switch backend {
	case BackendSQLite:
		return sqlite.NewManager(logger, config)

	case BackendSurrealDB:
		return surrealdb.NewManager(logger, config)

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: sqlite, surrealdb)", backend)
	}
}

// NewConfigStore returns the key-value store holding the token map: either
// the storage backend's own table or a hosted Edge Config.
func NewConfigStore(logger *common.Logger, config *common.Config, manager interfaces.StorageManager) (interfaces.ConfigStore, error) {
	cs := config.ConfigStore
	switch cs.Backend {
	case "", ConfigStoreStorage:
		return manager.ConfigStore(), nil

	case ConfigStoreEdgeConfig:
		if cs.EdgeConfigID == "" || cs.AccessToken == "" {
			return nil, fmt.Errorf("edgeconfig config store requires EDGE_CONFIG_ID and VERCEL_ACCESS_TOKEN")
		}
		opts := []edgeconfig.ClientOption{
			edgeconfig.WithLogger(logger),
			edgeconfig.WithTimeout(cs.GetTimeout()),
		}
		if cs.BaseURL != "" {
			opts = append(opts, edgeconfig.WithBaseURL(cs.BaseURL))
		}
		return edgeconfig.NewClient(cs.EdgeConfigID, cs.AccessToken, opts...), nil

	default:
		return nil, fmt.Errorf("unknown config store backend: %s (supported: storage, edgeconfig)", cs.Backend)
	}
}

// NewQuoteCache returns a Redis cache when quotes.redis_url is set and
// reachable, otherwise an in-memory cache.
func NewQuoteCache(ctx context.Context, logger *common.Logger, config *common.Config) interfaces.QuoteCache {
	if url := config.Quotes.RedisURL; url != "" {
		cache, err := quotecache.NewRedis(ctx, url)
		if err == nil {
			logger.Info().Msg("Quote cache: redis")
			return cache
		}
		logger.Warn().Err(err).Msg("Redis quote cache unavailable, using in-memory cache")
	}
	return quotecache.NewMemory()
}
