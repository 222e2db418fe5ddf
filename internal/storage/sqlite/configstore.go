package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// ConfigStore is a key-value store of JSON values in config_items.
type ConfigStore struct {
	db     *sql.DB
	logger *common.Logger
}

func NewConfigStore(db *sql.DB, logger *common.Logger) *ConfigStore {
	return &ConfigStore{db: db, logger: logger}
}

func (s *ConfigStore) ListItems(ctx context.Context) ([]models.ConfigItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM config_items ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list config items: %w", err)
	}
	defer rows.Close()

	items := []models.ConfigItem{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan config item: %w", err)
		}
		items = append(items, models.ConfigItem{Key: key, Value: json.RawMessage(value)})
	}
	return items, rows.Err()
}

func (s *ConfigStore) Upsert(ctx context.Context, key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("config item %s: value is not valid JSON", key)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config_items (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, string(value))
	if err != nil {
		return fmt.Errorf("failed to upsert config item %s: %w", key, err)
	}
	return nil
}

var _ interfaces.ConfigStore = (*ConfigStore)(nil)
