package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// SyncStatusStore keeps one row per account in sync_status.
type SyncStatusStore struct {
	db     *sql.DB
	logger *common.Logger
}

func NewSyncStatusStore(db *sql.DB, logger *common.Logger) *SyncStatusStore {
	return &SyncStatusStore{db: db, logger: logger}
}

// UpsertSyncStatus keeps the stored last_sync_at when the update carries
// none; last_error and last_error_at are always overwritten.
func (s *SyncStatusStore) UpsertSyncStatus(ctx context.Context, accountID string, update models.SyncStatusUpdate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_status (account_id, last_sync_at, last_error, last_error_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (account_id) DO UPDATE SET
			last_sync_at = coalesce(excluded.last_sync_at, sync_status.last_sync_at),
			last_error = excluded.last_error,
			last_error_at = excluded.last_error_at`,
		accountID, nullTime(update.LastSyncAt), nullString(update.LastError), nullTime(update.LastErrorAt))
	if err != nil {
		return fmt.Errorf("failed to upsert sync status: %w", err)
	}
	return nil
}

func scanStatus(row rowScanner) (*models.SyncStatus, error) {
	var (
		st                           models.SyncStatus
		lastSync, lastErr, lastErrAt sql.NullString
	)
	if err := row.Scan(&st.AccountID, &lastSync, &lastErr, &lastErrAt); err != nil {
		return nil, err
	}
	var err error
	if st.LastSyncAt, err = parseNullTime(lastSync); err != nil {
		return nil, err
	}
	if st.LastErrorAt, err = parseNullTime(lastErrAt); err != nil {
		return nil, err
	}
	st.LastError = stringPtr(lastErr)
	return &st, nil
}

func (s *SyncStatusStore) GetSyncStatus(ctx context.Context, accountID string) (*models.SyncStatus, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT account_id, last_sync_at, last_error, last_error_at FROM sync_status WHERE account_id = ?`, accountID)
	st, err := scanStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync status: %w", err)
	}
	return st, nil
}

func (s *SyncStatusStore) ListSyncStatuses(ctx context.Context) ([]*models.SyncStatus, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT account_id, last_sync_at, last_error, last_error_at FROM sync_status ORDER BY account_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync statuses: %w", err)
	}
	defer rows.Close()

	var out []*models.SyncStatus
	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync status: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

var _ interfaces.SyncStatusStore = (*SyncStatusStore)(nil)
