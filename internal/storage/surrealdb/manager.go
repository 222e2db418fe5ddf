// Package surrealdb implements StorageManager on SurrealDB.
package surrealdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
)

const (
	tableSnapshot   = "portfolio_snapshot"
	tableSyncStatus = "sync_status"
	tableConfigItem = "config_item"
)

// Manager implements interfaces.StorageManager using SurrealDB.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	snapshotStore *SnapshotStore
	statusStore   *SyncStatusStore
	configStore   *ConfigStore
}

// NewManager creates a new StorageManager connected to SurrealDB.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	ctx := context.Background()
	sc := config.Storage.SurrealDB

	db, err := surrealdb.New(sc.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": sc.Username,
		"pass": sc.Password,
	}); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, sc.Namespace, sc.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	m, err := newManager(ctx, db, logger)
	if err != nil {
		db.Close(ctx)
		return nil, err
	}

	logger.Info().
		Str("address", sc.Address).
		Str("namespace", sc.Namespace).
		Str("database", sc.Database).
		Msg("SurrealDB storage manager initialized")

	return m, nil
}

// newManager defines the tables and builds the stores on an open connection.
func newManager(ctx context.Context, db *surrealdb.DB, logger *common.Logger) (*Manager, error) {
	// Querying a table that does not exist is an error in SurrealDB v3
	for _, table := range []string{tableSnapshot, tableSyncStatus, tableConfigItem} {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}

	return &Manager{
		db:            db,
		logger:        logger,
		snapshotStore: NewSnapshotStore(db, logger),
		statusStore:   NewSyncStatusStore(db, logger),
		configStore:   NewConfigStore(db, logger),
	}, nil
}

func (m *Manager) SnapshotStore() interfaces.SnapshotStore {
	return m.snapshotStore
}

func (m *Manager) SyncStatusStore() interfaces.SyncStatusStore {
	return m.statusStore
}

func (m *Manager) ConfigStore() interfaces.ConfigStore {
	return m.configStore
}

func (m *Manager) Backend() string {
	return "surrealdb"
}

func (m *Manager) Close() error {
	m.db.Close(context.Background())
	return nil
}

// isNotFoundError reports whether err is SurrealDB's missing-record or
// missing-table error.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
