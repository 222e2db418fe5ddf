package models

import (
	"encoding/json"
	"time"
)

// Snapshot is the latest persisted portfolio of one account.
// There is at most one snapshot per account (last write wins).
type Snapshot struct {
	ID        string     `json:"id"`
	AccountID string     `json:"account_id"`
	Holdings  []Holding  `json:"holdings"`
	Positions []Position `json:"positions"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// SyncStatus is per-account sync bookkeeping, used for display only.
type SyncStatus struct {
	AccountID   string     `json:"account_id"`
	LastSyncAt  *time.Time `json:"last_sync_at"`
	LastError   *string    `json:"last_error"`
	LastErrorAt *time.Time `json:"last_error_at"`
}

// SyncStatusUpdate is applied with upsert semantics: a nil LastSyncAt keeps
// the stored value, while LastError and LastErrorAt always overwrite.
type SyncStatusUpdate struct {
	LastSyncAt  *time.Time
	LastError   *string
	LastErrorAt *time.Time
}

// ConfigItem is one entry of the key-value configuration store.
type ConfigItem struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// StoredToken is an encrypted brokerage access token.
type StoredToken struct {
	Token     string    `json:"token"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TokenMap holds stored tokens keyed by account id.
type TokenMap map[string]StoredToken
