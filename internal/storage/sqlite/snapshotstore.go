package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// SnapshotStore keeps one row per account in portfolio_snapshots.
type SnapshotStore struct {
	db     *sql.DB
	logger *common.Logger
}

func NewSnapshotStore(db *sql.DB, logger *common.Logger) *SnapshotStore {
	return &SnapshotStore{db: db, logger: logger}
}

// UpsertSnapshot replaces the account's snapshot. The row id is assigned on
// first insert and kept on later writes.
func (s *SnapshotStore) UpsertSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	holdings := snapshot.Holdings
	if holdings == nil {
		holdings = []models.Holding{}
	}
	positions := snapshot.Positions
	if positions == nil {
		positions = []models.Position{}
	}

	holdingsJSON, err := json.Marshal(holdings)
	if err != nil {
		return fmt.Errorf("failed to encode holdings: %w", err)
	}
	positionsJSON, err := json.Marshal(positions)
	if err != nil {
		return fmt.Errorf("failed to encode positions: %w", err)
	}

	id := snapshot.ID
	if id == "" {
		id = uuid.New().String()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO portfolio_snapshots (id, account_id, holdings_json, positions_json, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (account_id) DO UPDATE SET
			holdings_json = excluded.holdings_json,
			positions_json = excluded.positions_json,
			fetched_at = excluded.fetched_at`,
		id, snapshot.AccountID, string(holdingsJSON), string(positionsJSON), formatTime(snapshot.FetchedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

const snapshotColumns = `id, account_id, holdings_json, positions_json, fetched_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*models.Snapshot, error) {
	var (
		snap                        models.Snapshot
		holdingsJSON, positionsJSON string
		fetchedAt                   string
	)
	if err := row.Scan(&snap.ID, &snap.AccountID, &holdingsJSON, &positionsJSON, &fetchedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(holdingsJSON), &snap.Holdings); err != nil {
		return nil, fmt.Errorf("failed to decode holdings for %s: %w", snap.AccountID, err)
	}
	if err := json.Unmarshal([]byte(positionsJSON), &snap.Positions); err != nil {
		return nil, fmt.Errorf("failed to decode positions for %s: %w", snap.AccountID, err)
	}
	t, err := parseTime(fetchedAt)
	if err != nil {
		return nil, err
	}
	snap.FetchedAt = t
	return &snap, nil
}

func (s *SnapshotStore) GetSnapshot(ctx context.Context, accountID string) (*models.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM portfolio_snapshots WHERE account_id = ?`, accountID)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return snap, nil
}

// ListSnapshots returns every snapshot, most recent first.
func (s *SnapshotStore) ListSnapshots(ctx context.Context) ([]*models.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM portfolio_snapshots ORDER BY fetched_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []*models.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

var _ interfaces.SnapshotStore = (*SnapshotStore)(nil)
