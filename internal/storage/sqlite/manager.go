// Package sqlite implements StorageManager on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS portfolio_snapshots (
	id             TEXT NOT NULL,
	account_id     TEXT NOT NULL PRIMARY KEY,
	holdings_json  TEXT NOT NULL,
	positions_json TEXT NOT NULL,
	fetched_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_status (
	account_id    TEXT NOT NULL PRIMARY KEY,
	last_sync_at  TEXT,
	last_error    TEXT,
	last_error_at TEXT
);

CREATE TABLE IF NOT EXISTS config_items (
	key   TEXT NOT NULL PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Manager implements interfaces.StorageManager using SQLite.
type Manager struct {
	db     *sql.DB
	path   string
	logger *common.Logger

	snapshotStore *SnapshotStore
	statusStore   *SyncStatusStore
	configStore   *ConfigStore
}

// NewManager opens (creating if needed) the database at config.Storage.SQLite.Path.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	path := config.Storage.SQLite.Path
	if path == "" {
		path = "data/folio.db"
	}

	dsn := MemoryPath
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		// WAL lets the dashboard read while a sync writes
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serialises writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	m := &Manager{
		db:            db,
		path:          path,
		logger:        logger,
		snapshotStore: NewSnapshotStore(db, logger),
		statusStore:   NewSyncStatusStore(db, logger),
		configStore:   NewConfigStore(db, logger),
	}

	logger.Info().Str("path", path).Msg("SQLite storage manager initialized")
	return m, nil
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
	return "sqlite"
}

// Path returns the database file path.
func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) Close() error {
	return m.db.Close()
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
