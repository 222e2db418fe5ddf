package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

// StorageManager coordinates the storage backends
type StorageManager interface {
	SnapshotStore() SnapshotStore
	SyncStatusStore() SyncStatusStore
	ConfigStore() ConfigStore

	// Backend returns the backend name ("sqlite" or "surrealdb")
	Backend() string

	Close() error
}

// SnapshotStore persists the latest portfolio snapshot per account.
type SnapshotStore interface {
	// UpsertSnapshot replaces the account's snapshot (last write wins)
	UpsertSnapshot(ctx context.Context, snapshot *models.Snapshot) error

	// GetSnapshot returns nil, nil when the account has never been synced
	GetSnapshot(ctx context.Context, accountID string) (*models.Snapshot, error)

	ListSnapshots(ctx context.Context) ([]*models.Snapshot, error)
}

// SyncStatusStore persists per-account sync bookkeeping.
type SyncStatusStore interface {
	// UpsertSyncStatus applies update; a nil LastSyncAt keeps the stored value
	UpsertSyncStatus(ctx context.Context, accountID string, update models.SyncStatusUpdate) error

	// GetSyncStatus returns nil, nil when no status was recorded
	GetSyncStatus(ctx context.Context, accountID string) (*models.SyncStatus, error)

	ListSyncStatuses(ctx context.Context) ([]*models.SyncStatus, error)
}

// QuoteCache holds recently fetched quotes across requests.
type QuoteCache interface {
	// Get returns nil, nil on a miss
	Get(ctx context.Context, symbol string) (*models.Quote, error)
	Set(ctx context.Context, symbol string, quote *models.Quote, ttl time.Duration) error
	Close() error
}
