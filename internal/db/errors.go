package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/garnizeh/tasso/pkg/resource"
)

// Postgres SQLSTATE classes.
const (
	pgClassConstraint     = "23" // integrity_constraint_violation
	pgClassConnection     = "08" // connection_exception
	pgClassResources      = "53" // insufficient_resources
	pgClassOperatorAction = "57" // operator_intervention (admin shutdown, cancel)
)

// Classify wraps a driver error with the resource sentinel it belongs to.
// Errors that fit no class are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, resource.ErrNotFound) || errors.Is(err, resource.ErrConstraint) || errors.Is(err, resource.ErrTransient) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", resource.ErrNotFound, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return classifySQLState(string(pqErr.Code.Class()), err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		return classifySQLState(pgErr.Code[:2], err)
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		// extended result codes carry the primary code in the low byte
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_CONSTRAINT:
			return fmt.Errorf("%w: %w", resource.ErrConstraint, err)
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %w", resource.ErrTransient, err)
		}
		return err
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", resource.ErrTransient, err)
	}
	return err
}

func classifySQLState(class string, err error) error {
	switch class {
	case pgClassConstraint:
		return fmt.Errorf("%w: %w", resource.ErrConstraint, err)
	case pgClassConnection, pgClassResources, pgClassOperatorAction:
		return fmt.Errorf("%w: %w", resource.ErrTransient, err)
	}
	return err
}
