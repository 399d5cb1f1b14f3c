package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	dbpkg "github.com/garnizeh/tasso/internal/db"
	"github.com/garnizeh/tasso/internal/dbtest"
	"github.com/garnizeh/tasso/pkg/resource"
)

func TestNew_Close_GetConn(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	d, err := dbpkg.New(ctx, dbpkg.DriverSQLite, dbtest.DSN(t), nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if d.GetConn() == nil {
		t.Fatalf("expected non-nil sqlx.DB from GetConn")
	}
	if d.Driver() != dbpkg.DriverSQLite || d.Dialect() != "sqlite" {
		t.Fatalf("unexpected driver/dialect: %q/%q", d.Driver(), d.Dialect())
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestNew_UnsupportedDriver(t *testing.T) {
	if _, err := dbpkg.New(context.Background(), "mysql", "root@/tasso", nil); err == nil {
		t.Fatalf("expected error for unsupported driver, got nil")
	}
}

func TestNew_BadDSN(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// nothing listens on port 1
	_, err := dbpkg.New(ctx, dbpkg.DriverPgx, "postgres://tasso@127.0.0.1:1/tasso?connect_timeout=1", nil)
	if err == nil {
		t.Fatalf("expected error for unreachable database, got nil")
	}
}

func TestExec_Query_Get(t *testing.T) {
	ctx := context.Background()
	d := dbtest.Open(t, nil)

	if _, err := d.Exec(ctx, `CREATE TABLE items (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT UNIQUE)`); err != nil {
		t.Fatalf("Exec create table returned error: %v", err)
	}

	res, err := d.Exec(ctx, `INSERT INTO items (name) VALUES (?)`, "foo")
	if err != nil {
		t.Fatalf("Exec insert returned error: %v", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		t.Fatalf("expected 1 row affected, got %d", n)
	}

	var names []string
	err = d.Query(ctx, `SELECT name FROM items ORDER BY id`, nil, func(rows *sql.Rows) error {
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			names = append(names, name)
		}
		return rows.Err()
	})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(names) != 1 || names[0] != "foo" {
		t.Fatalf("unexpected rows: %v", names)
	}

	var count int
	if err := d.Get(ctx, &count, `SELECT COUNT(1) FROM items WHERE name = ?`, "foo"); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}

	var missing string
	err = d.Get(ctx, &missing, `SELECT name FROM items WHERE id = ?`, 42)
	if !errors.Is(err, resource.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty Get, got %v", err)
	}

	_, err = d.Exec(ctx, `INSERT INTO items (name) VALUES (?)`, "foo")
	if !errors.Is(err, resource.ErrConstraint) {
		t.Fatalf("expected ErrConstraint for duplicate name, got %v", err)
	}
}

func TestQuery_PassesThroughSentinels(t *testing.T) {
	ctx := context.Background()
	d := dbtest.Open(t, nil)

	err := d.Query(ctx, `SELECT 1`, nil, func(*sql.Rows) error { return resource.ErrAmbiguous })
	if !errors.Is(err, resource.ErrAmbiguous) {
		t.Fatalf("expected ErrAmbiguous, got %v", err)
	}
}

func TestAcquire_TimeoutIsTransient(t *testing.T) {
	ctx := context.Background()
	d := dbtest.Open(t, &dbpkg.Options{MaxConns: 1, AcquireTimeout: 50 * time.Millisecond})

	held := make(chan struct{})
	done := make(chan struct{})

	var g errgroup.Group
	g.Go(func() error {
		return d.Query(ctx, `SELECT 1`, nil, func(*sql.Rows) error {
			close(held)
			<-done
			return nil
		})
	})

	<-held
	start := time.Now()
	_, err := d.Exec(ctx, `SELECT 1`)
	close(done)

	if !errors.Is(err, resource.ErrTransient) {
		t.Fatalf("expected ErrTransient while pool is exhausted, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("acquire gave up after %v, before the timeout", elapsed)
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("holder query failed: %v", err)
	}

	// the slot is free again
	if _, err := d.Exec(ctx, `SELECT 1`); err != nil {
		t.Fatalf("Exec after release returned error: %v", err)
	}
}

func TestAcquire_CancelledContext(t *testing.T) {
	d := dbtest.Open(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Exec(ctx, `SELECT 1`)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
