// Package dbtest opens migrated in-memory sqlite databases for tests.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	dbfs "github.com/garnizeh/tasso/db"
	"github.com/garnizeh/tasso/internal/db"
)

var seq atomic.Int64

// DSN returns a private shared-cache in-memory DSN with foreign keys on.
func DSN(t testing.TB) string {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", name, seq.Add(1))
}

// Open returns an unmigrated handle closed at test cleanup.
func Open(t testing.TB, opts *db.Options) *db.DB {
	t.Helper()
	if opts == nil {
		opts = &db.Options{MaxConns: 1, AcquireTimeout: 2 * time.Second}
	}
	d, err := db.New(context.Background(), db.DriverSQLite, DSN(t), opts)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// New returns a handle with every embedded migration applied.
func New(t testing.TB) *db.DB {
	t.Helper()
	d := Open(t, nil)
	if err := db.Migrate(context.Background(), d, dbfs.Migrations); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return d
}
