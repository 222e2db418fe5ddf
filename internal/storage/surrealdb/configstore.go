package surrealdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// configRecord holds the value as JSON text so arbitrary documents round-trip
// unchanged.
type configRecord struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ConfigStore is a key-value store of JSON values in config_item records.
type ConfigStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewConfigStore creates a new ConfigStore.
func NewConfigStore(db *surrealdb.DB, logger *common.Logger) *ConfigStore {
	return &ConfigStore{db: db, logger: logger}
}

func (s *ConfigStore) ListItems(ctx context.Context) ([]models.ConfigItem, error) {
	sql := "SELECT key, value FROM " + tableConfigItem + " ORDER BY key"

	results, err := surrealdb.Query[[]configRecord](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list config items: %w", err)
	}

	items := []models.ConfigItem{}
	if results != nil && len(*results) > 0 {
		for _, r := range (*results)[0].Result {
			items = append(items, models.ConfigItem{Key: r.Key, Value: json.RawMessage(r.Value)})
		}
	}
	return items, nil
}

func (s *ConfigStore) Upsert(ctx context.Context, key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("config item %s: value is not valid JSON", key)
	}

	sql := "UPSERT $rid CONTENT $item"
	vars := map[string]any{
		"rid":  surrealmodels.NewRecordID(tableConfigItem, key),
		"item": configRecord{Key: key, Value: string(value)},
	}

	err := retry(ctx, upsertAttempts, upsertBackoff, func() error {
		_, err := surrealdb.Query[[]configRecord](ctx, s.db, sql, vars)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert config item %s after retries: %w", key, err)
	}
	return nil
}

const (
	upsertAttempts = 3
	upsertBackoff  = 100 * time.Millisecond
)

// retry calls fn up to attempts times, doubling the wait after each failure.
// It returns the last error, or ctx.Err() if the context ends while waiting.
func retry(ctx context.Context, attempts int, backoff time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return lastErr
}

var _ interfaces.ConfigStore = (*ConfigStore)(nil)
