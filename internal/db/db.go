package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"golang.org/x/sync/semaphore"
	_ "modernc.org/sqlite"

	"github.com/garnizeh/tasso/pkg/resource"
)

// Supported driver names.
const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverSQLite   = "sqlite"
)

const (
	defaultMaxConns       = 5
	defaultAcquireTimeout = 5 * time.Second
)

// Options tunes the connection pool.
type Options struct {
	// MaxConns bounds both open connections and in-flight statements.
	MaxConns int
	// AcquireTimeout bounds the wait for a free slot.
	AcquireTimeout time.Duration
	Logger         *slog.Logger
}

// DB wraps the sqlx handle for connection management. It is safe for
// concurrent use and is borrowed, never owned, by resource operations.
type DB struct {
	conn           *sqlx.DB
	driver         string
	slots          *semaphore.Weighted
	acquireTimeout time.Duration
	logger         *slog.Logger
}

var _ resource.Conn = (*DB)(nil)

// New opens and pings a pool for driver and dsn.
func New(ctx context.Context, driver, dsn string, opts *Options) (*DB, error) {
	if opts == nil {
		opts = &Options{}
	}
	maxConns := opts.MaxConns
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	acquireTimeout := opts.AcquireTimeout
	if acquireTimeout <= 0 {
		acquireTimeout = defaultAcquireTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch driver {
	case DriverPostgres, DriverPgx, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	conn.SetMaxOpenConns(maxConns)
	conn.SetMaxIdleConns(maxConns)

	if err := conn.PingContext(ctx); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Warn("close db after failed ping", slog.Any("err", closeErr))
		}
		return nil, fmt.Errorf("failed to ping db: %w", Classify(err))
	}

	logger.Info("database connected", slog.String("driver", driver), slog.Int("max_conns", maxConns))
	return &DB{
		conn:           conn,
		driver:         driver,
		slots:          semaphore.NewWeighted(int64(maxConns)),
		acquireTimeout: acquireTimeout,
		logger:         logger,
	}, nil
}

// Close closes the DB connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Driver returns the driver name the pool was opened with.
func (db *DB) Driver() string { return db.driver }

// Dialect returns the SQL dialect family: "postgres" or "sqlite".
func (db *DB) Dialect() string {
	if db.driver == DriverSQLite {
		return DriverSQLite
	}
	return DriverPostgres
}

// acquire waits for a free slot, failing with resource.ErrTransient once
// the acquire timeout elapses.
func (db *DB) acquire(ctx context.Context) (func(), error) {
	actx, cancel := context.WithTimeout(ctx, db.acquireTimeout)
	defer cancel()
	if err := db.slots.Acquire(actx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: no connection available after %s", resource.ErrTransient, db.acquireTimeout)
	}
	return func() { db.slots.Release(1) }, nil
}

// Exec executes a statement written with "?" placeholders.
func (db *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	release, err := db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := db.conn.ExecContext(ctx, db.conn.Rebind(query), args...)
	if err != nil {
		return nil, Classify(err)
	}
	return res, nil
}

// Query runs a query and hands the rows to fn. The rows are closed and the
// slot released when fn returns.
func (db *DB) Query(ctx context.Context, query string, args []any, fn func(*sql.Rows) error) error {
	release, err := db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	rows, err := db.conn.QueryContext(ctx, db.conn.Rebind(query), args...)
	if err != nil {
		return Classify(err)
	}
	defer rows.Close()

	if err := fn(rows); err != nil {
		if errors.Is(err, resource.ErrNotFound) || errors.Is(err, resource.ErrAmbiguous) {
			return err
		}
		return Classify(err)
	}
	return nil
}

// Get scans a single-row result into dest.
func (db *DB) Get(ctx context.Context, dest any, query string, args ...any) error {
	release, err := db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := db.conn.GetContext(ctx, dest, db.conn.Rebind(query), args...); err != nil {
		return Classify(err)
	}
	return nil
}

// GetConn returns the underlying sqlx handle
func (db *DB) GetConn() *sqlx.DB {
	return db.conn
}
