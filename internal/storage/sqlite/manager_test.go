package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Storage.SQLite.Path = MemoryPath

	mgr, err := NewManager(common.NewSilentLogger(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func TestNewManager_File(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "nested", "folio.db")

	mgr, err := NewManager(common.NewSilentLogger(), cfg)
	require.NoError(t, err)
	defer mgr.Close()

	assert.Equal(t, "sqlite", mgr.Backend())
	assert.Equal(t, cfg.Storage.SQLite.Path, mgr.Path())
	assert.FileExists(t, cfg.Storage.SQLite.Path)
}

func TestSnapshotStore_UpsertAndGet(t *testing.T) {
	mgr := testManager(t)
	ctx := context.Background()
	store := mgr.SnapshotStore()

	missing, err := store.GetSnapshot(ctx, "self")
	require.NoError(t, err)
	assert.Nil(t, missing)

	first := time.Date(2025, 6, 1, 9, 15, 0, 123000000, time.UTC)
	require.NoError(t, store.UpsertSnapshot(ctx, &models.Snapshot{
		AccountID: "self",
		Holdings:  []models.Holding{{Ticker: "INFY", Quantity: 10, AverageBuyPrice: 1500}},
		FetchedAt: first,
	}))

	got, err := store.GetSnapshot(ctx, "self")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.NotEmpty(t, got.ID)
	assert.True(t, got.FetchedAt.Equal(first))
	require.Len(t, got.Holdings, 1)
	assert.Equal(t, "INFY", got.Holdings[0].Ticker)
	assert.NotNil(t, got.Positions, "nil positions are stored as an empty list")
	firstID := got.ID

	second := first.Add(time.Hour)
	require.NoError(t, store.UpsertSnapshot(ctx, &models.Snapshot{
		AccountID: "self",
		Holdings:  []models.Holding{{Ticker: "TCS", Quantity: 1}},
		Positions: []models.Position{{Ticker: "SBIN", Exchange: "NSE", Product: "MIS"}},
		FetchedAt: second,
	}))

	got, err = store.GetSnapshot(ctx, "self")
	require.NoError(t, err)
	assert.Equal(t, firstID, got.ID, "id survives later writes")
	assert.True(t, got.FetchedAt.Equal(second))
	require.Len(t, got.Holdings, 1)
	assert.Equal(t, "TCS", got.Holdings[0].Ticker)
	require.Len(t, got.Positions, 1)

	all, err := store.ListSnapshots(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "one snapshot per account")
}

func TestSnapshotStore_ListOrder(t *testing.T) {
	mgr := testManager(t)
	ctx := context.Background()
	store := mgr.SnapshotStore()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertSnapshot(ctx, &models.Snapshot{AccountID: "a", FetchedAt: base}))
	require.NoError(t, store.UpsertSnapshot(ctx, &models.Snapshot{AccountID: "b", FetchedAt: base.Add(time.Minute)}))

	all, err := store.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].AccountID)
	assert.Equal(t, "a", all[1].AccountID)
}

func TestSyncStatusStore_Coalesce(t *testing.T) {
	mgr := testManager(t)
	ctx := context.Background()
	store := mgr.SyncStatusStore()

	missing, err := store.GetSyncStatus(ctx, "self")
	require.NoError(t, err)
	assert.Nil(t, missing)

	synced := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertSyncStatus(ctx, "self", models.SyncStatusUpdate{LastSyncAt: &synced}))

	failed := synced.Add(time.Hour)
	msg := "Kite API error (Self /portfolio/holdings): timeout"
	require.NoError(t, store.UpsertSyncStatus(ctx, "self", models.SyncStatusUpdate{LastError: &msg, LastErrorAt: &failed}))

	st, err := store.GetSyncStatus(ctx, "self")
	require.NoError(t, err)
	require.NotNil(t, st.LastSyncAt)
	assert.True(t, st.LastSyncAt.Equal(synced), "failure keeps last_sync_at")
	require.NotNil(t, st.LastError)
	assert.Equal(t, msg, *st.LastError)
	assert.True(t, st.LastErrorAt.Equal(failed))

	recovered := failed.Add(time.Hour)
	require.NoError(t, store.UpsertSyncStatus(ctx, "self", models.SyncStatusUpdate{LastSyncAt: &recovered}))

	st, err = store.GetSyncStatus(ctx, "self")
	require.NoError(t, err)
	assert.True(t, st.LastSyncAt.Equal(recovered))
	assert.Nil(t, st.LastError, "success clears the error")
	assert.Nil(t, st.LastErrorAt)
}

func TestSyncStatusStore_FirstWriteIsFailure(t *testing.T) {
	mgr := testManager(t)
	ctx := context.Background()
	store := mgr.SyncStatusStore()

	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	msg := "Kite access token missing for Mom."
	require.NoError(t, store.UpsertSyncStatus(ctx, "mom", models.SyncStatusUpdate{LastError: &msg, LastErrorAt: &at}))

	list, err := store.ListSyncStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "mom", list[0].AccountID)
	assert.Nil(t, list[0].LastSyncAt)
	assert.Equal(t, msg, *list[0].LastError)
}

func TestConfigStore(t *testing.T) {
	mgr := testManager(t)
	ctx := context.Background()
	store := mgr.ConfigStore()

	items, err := store.ListItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, store.Upsert(ctx, "kite_tokens", json.RawMessage(`{"self":{"token":"a.b.c"}}`)))
	require.NoError(t, store.Upsert(ctx, "kite_tokens", json.RawMessage(`{"self":{"token":"d.e.f"}}`)))
	require.NoError(t, store.Upsert(ctx, "flags", json.RawMessage(`true`)))

	items, err = store.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "flags", items[0].Key)
	assert.Equal(t, "kite_tokens", items[1].Key)
	assert.JSONEq(t, `{"self":{"token":"d.e.f"}}`, string(items[1].Value))

	assert.Error(t, store.Upsert(ctx, "bad", json.RawMessage(`{not json`)))
}
