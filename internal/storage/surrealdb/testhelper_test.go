package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	surreal "github.com/surrealdb/surrealdb.go"

	"github.com/bobmcallan/folio/internal/common"
	tcommon "github.com/bobmcallan/folio/tests/common"
)

// testDBName returns a database name unique to the test. SurrealDB rejects
// "/" in database names, which subtests produce.
func testDBName(t *testing.T, prefix string) string {
	sanitized := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return fmt.Sprintf("%s_%s_%d", prefix, sanitized, time.Now().UnixNano()%100000)
}

// testManager connects to the shared container with a fresh database.
func testManager(t *testing.T) *Manager {
	t.Helper()

	sc := tcommon.StartSurrealDB(t)
	ctx := context.Background()

	db, err := surreal.New(sc.Address())
	require.NoError(t, err, "connect to SurrealDB")

	_, err = db.SignIn(ctx, map[string]interface{}{"user": "root", "pass": "root"})
	require.NoError(t, err, "sign in to SurrealDB")
	require.NoError(t, db.Use(ctx, "folio_test", testDBName(t, "t")))

	mgr, err := newManager(ctx, db, common.NewSilentLogger())
	require.NoError(t, err)

	t.Cleanup(func() { mgr.Close() })
	return mgr
}
