package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// Snapshots are keyed by account id: portfolio_snapshot:<account_id>
const snapshotSelectFields = `snapshot_id as id, account_id, holdings, positions, fetched_at`

// SnapshotStore persists one snapshot record per account.
type SnapshotStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(db *surrealdb.DB, logger *common.Logger) *SnapshotStore {
	return &SnapshotStore{db: db, logger: logger}
}

func (s *SnapshotStore) UpsertSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	holdings := snapshot.Holdings
	if holdings == nil {
		holdings = []models.Holding{}
	}
	positions := snapshot.Positions
	if positions == nil {
		positions = []models.Position{}
	}
	id := snapshot.ID
	if id == "" {
		id = uuid.New().String()
	}

	sql := `UPSERT $rid SET
		snapshot_id = snapshot_id ?? $snapshot_id, account_id = $account_id,
		holdings = $holdings, positions = $positions, fetched_at = $fetched_at`
	vars := map[string]any{
		"rid":         surrealmodels.NewRecordID(tableSnapshot, snapshot.AccountID),
		"snapshot_id": id,
		"account_id":  snapshot.AccountID,
		"holdings":    holdings,
		"positions":   positions,
		"fetched_at":  snapshot.FetchedAt.UTC(),
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) GetSnapshot(ctx context.Context, accountID string) (*models.Snapshot, error) {
	sql := "SELECT " + snapshotSelectFields + " FROM $rid"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID(tableSnapshot, accountID),
	}

	results, err := surrealdb.Query[[]models.Snapshot](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	snap := (*results)[0].Result[0]
	snap.FetchedAt = snap.FetchedAt.UTC()
	return &snap, nil
}

func (s *SnapshotStore) ListSnapshots(ctx context.Context) ([]*models.Snapshot, error) {
	sql := "SELECT " + snapshotSelectFields + " FROM " + tableSnapshot + " ORDER BY fetched_at DESC"

	results, err := surrealdb.Query[[]models.Snapshot](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	var out []*models.Snapshot
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			snap := (*results)[0].Result[i]
			snap.FetchedAt = snap.FetchedAt.UTC()
			out = append(out, &snap)
		}
	}
	return out, nil
}

var _ interfaces.SnapshotStore = (*SnapshotStore)(nil)

// utc normalises an optional timestamp read back from the database.
func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
