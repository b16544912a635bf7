// Package testdb opens throwaway in-memory databases carrying the production
// schema, for tests that exercise real queries without a Postgres server.
package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/extra/bundebug"
	_ "modernc.org/sqlite"

	"acidlab.dev/backend/internal/repo"
)

var seq atomic.Int64

// New returns a bun.DB over a fresh in-memory SQLite database with foreign
// keys enforced and the pattern schema created. It is closed on test cleanup.
func New(t testing.TB) *bun.DB {
	t.Helper()

	// a named shared-cache database keeps every pooled connection on the same data
	dsn := fmt.Sprintf("file:acidtest%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", seq.Add(1))
	sqldb, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	db.AddQueryHook(bundebug.NewQueryHook(bundebug.FromEnv("BUNDEBUG")))

	require.NoError(t, repo.CreateSchema(context.Background(), db))

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}
