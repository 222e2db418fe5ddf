package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountPortfolioJSON_UnsyncedOmitsFetchedAt(t *testing.T) {
	p := AccountPortfolio{
		AccountID:    "mom",
		AccountLabel: "Mom",
		Holdings:     []Holding{},
		Positions:    []Position{},
		NeedsSync:    true,
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.NotContains(t, fields, "fetchedAt")
	assert.NotContains(t, string(data), "0001-01-01")
	assert.Equal(t, true, fields["needsSync"])
	assert.Contains(t, fields, "lastSyncedAt")
}

func TestAccountPortfolioJSON_SyncedKeepsFetchedAt(t *testing.T) {
	at := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	p := AccountPortfolio{AccountID: "self", FetchedAt: at, LastSyncedAt: &at}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "2025-06-02T09:00:00Z", fields["fetchedAt"])
}
