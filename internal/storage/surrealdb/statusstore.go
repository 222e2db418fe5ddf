package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

const statusSelectFields = `account_id, last_sync_at, last_error, last_error_at`

// SyncStatusStore persists sync_status:<account_id> records.
type SyncStatusStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewSyncStatusStore creates a new SyncStatusStore.
func NewSyncStatusStore(db *surrealdb.DB, logger *common.Logger) *SyncStatusStore {
	return &SyncStatusStore{db: db, logger: logger}
}

// UpsertSyncStatus keeps the stored last_sync_at when the update carries none.
func (s *SyncStatusStore) UpsertSyncStatus(ctx context.Context, accountID string, update models.SyncStatusUpdate) error {
	sql := `UPSERT $rid SET
		account_id = $account_id,
		last_sync_at = $last_sync_at ?? last_sync_at,
		last_error = $last_error, last_error_at = $last_error_at`
	vars := map[string]any{
		"rid":           surrealmodels.NewRecordID(tableSyncStatus, accountID),
		"account_id":    accountID,
		"last_sync_at":  utc(update.LastSyncAt),
		"last_error":    update.LastError,
		"last_error_at": utc(update.LastErrorAt),
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to upsert sync status: %w", err)
	}
	return nil
}

func (s *SyncStatusStore) GetSyncStatus(ctx context.Context, accountID string) (*models.SyncStatus, error) {
	sql := "SELECT " + statusSelectFields + " FROM $rid"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID(tableSyncStatus, accountID),
	}

	results, err := surrealdb.Query[[]models.SyncStatus](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get sync status: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return normaliseStatus((*results)[0].Result[0]), nil
}

func (s *SyncStatusStore) ListSyncStatuses(ctx context.Context) ([]*models.SyncStatus, error) {
	sql := "SELECT " + statusSelectFields + " FROM " + tableSyncStatus + " ORDER BY account_id"

	results, err := surrealdb.Query[[]models.SyncStatus](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync statuses: %w", err)
	}

	var out []*models.SyncStatus
	if results != nil && len(*results) > 0 {
		for _, st := range (*results)[0].Result {
			out = append(out, normaliseStatus(st))
		}
	}
	return out, nil
}

func normaliseStatus(st models.SyncStatus) *models.SyncStatus {
	st.LastSyncAt = utc(st.LastSyncAt)
	st.LastErrorAt = utc(st.LastErrorAt)
	return &st
}

var _ interfaces.SyncStatusStore = (*SyncStatusStore)(nil)
