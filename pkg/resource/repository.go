package resource

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Conn is the store handle a Repository borrows. Implementations rebind
// placeholders, bound concurrency and classify driver errors.
type Conn interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args []any, fn func(*sql.Rows) error) error
}

// Repository implements create/get/get-all/update/delete for one entity
// type. Every method issues exactly one statement.
type Repository[T any, P Record[T]] struct {
	conn   Conn
	schema *Schema
	logger *slog.Logger
}

// New derives T's schema and returns its repository. It panics if T's field
// declaration is malformed.
func New[T any, P Record[T]](conn Conn, logger *slog.Logger) *Repository[T, P] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository[T, P]{conn: conn, schema: MustDerive[T, P](), logger: logger}
}

// Schema returns the derived schema.
func (r *Repository[T, P]) Schema() *Schema { return r.schema }

// Create inserts e and stores the assigned primary key back into it.
func (r *Repository[T, P]) Create(ctx context.Context, e *T) (int64, error) {
	if e == nil {
		return 0, fmt.Errorf("create %s: nil value", r.schema.table)
	}
	fields := P(e).Fields()
	stmt, err := Insert(r.schema, fields)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", r.schema.table, err)
	}
	key, err := keyField(r.schema, fields)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", r.schema.table, err)
	}

	var n int64
	err = r.query(ctx, stmt, func(rows *sql.Rows) error {
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return err
			}
			*key.Ptr.(*int64) = id
			n++
		}
		return rows.Err()
	})
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", r.schema.table, err)
	}
	return n, nil
}

// Get fetches the row with the given primary key.
func (r *Repository[T, P]) Get(ctx context.Context, id int64) (*T, error) {
	e, err := r.one(ctx, SelectOne(r.schema, id))
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", r.schema.table, id, err)
	}
	return e, nil
}

// GetBy fetches the single row whose column equals value.
func (r *Repository[T, P]) GetBy(ctx context.Context, column string, value any) (*T, error) {
	stmt, err := SelectWhere(r.schema, column, value)
	if err != nil {
		return nil, err
	}
	e, err := r.one(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("get %s by %s: %w", r.schema.table, column, err)
	}
	return e, nil
}

// GetAll returns every row ordered by ascending primary key.
func (r *Repository[T, P]) GetAll(ctx context.Context) ([]T, error) {
	out := []T{}
	err := r.query(ctx, SelectAll(r.schema), func(rows *sql.Rows) error {
		cols, err := rows.Columns()
		if err != nil {
			return err
		}
		for rows.Next() {
			var e T
			if err := scan[T, P](rows, cols, P(&e)); err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.schema.table, err)
	}
	return out, nil
}

// Count returns the number of rows whose column equals value.
func (r *Repository[T, P]) Count(ctx context.Context, column string, value any) (int64, error) {
	stmt, err := Count(r.schema, column, value)
	if err != nil {
		return 0, err
	}
	var n int64
	err = r.query(ctx, stmt, func(rows *sql.Rows) error {
		if rows.Next() {
			if err := rows.Scan(&n); err != nil {
				return err
			}
		}
		return rows.Err()
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.schema.table, err)
	}
	return n, nil
}

// Update rewrites every writable column of the row keyed by e. It returns
// the affected row count, 0 when the row no longer exists.
func (r *Repository[T, P]) Update(ctx context.Context, e *T) (int64, error) {
	if e == nil {
		return 0, fmt.Errorf("update %s: nil value", r.schema.table)
	}
	stmt, err := Update(r.schema, P(e).Fields())
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", r.schema.table, err)
	}
	n, err := r.exec(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", r.schema.table, err)
	}
	return n, nil
}

// Assign sets one column of the row with the given key.
func (r *Repository[T, P]) Assign(ctx context.Context, id int64, column string, value any) (int64, error) {
	stmt, err := Assign(r.schema, id, column, value)
	if err != nil {
		return 0, err
	}
	n, err := r.exec(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("assign %s.%s: %w", r.schema.table, column, err)
	}
	return n, nil
}

// Delete removes the row with the given key. It returns 0 when the row was
// already absent.
func (r *Repository[T, P]) Delete(ctx context.Context, id int64) (int64, error) {
	n, err := r.exec(ctx, Delete(r.schema, id))
	if err != nil {
		return 0, fmt.Errorf("delete %s %d: %w", r.schema.table, id, err)
	}
	return n, nil
}

func (r *Repository[T, P]) one(ctx context.Context, stmt Statement) (*T, error) {
	var (
		e     T
		found bool
	)
	err := r.query(ctx, stmt, func(rows *sql.Rows) error {
		cols, err := rows.Columns()
		if err != nil {
			return err
		}
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return err
			}
			return ErrNotFound
		}
		if err := scan[T, P](rows, cols, P(&e)); err != nil {
			return err
		}
		found = true
		if rows.Next() {
			return ErrAmbiguous
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (r *Repository[T, P]) exec(ctx context.Context, stmt Statement) (int64, error) {
	r.logger.DebugContext(ctx, "exec statement", slog.String("table", r.schema.table), slog.String("sql", stmt.SQL))
	res, err := r.conn.Exec(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if n > 1 {
		return n, ErrAmbiguous
	}
	return n, nil
}

func (r *Repository[T, P]) query(ctx context.Context, stmt Statement, fn func(*sql.Rows) error) error {
	r.logger.DebugContext(ctx, "query statement", slog.String("table", r.schema.table), slog.String("sql", stmt.SQL))
	return r.conn.Query(ctx, stmt.SQL, stmt.Args, fn)
}

// scan reads the current row into e, matching result columns by name so
// SELECT * works regardless of the table's physical column order.
func scan[T any, P Record[T]](rows *sql.Rows, cols []string, e P) error {
	byColumn := make(map[string]any, len(cols))
	for _, f := range e.Fields() {
		byColumn[f.Column] = f.Ptr
	}
	dest := make([]any, len(cols))
	for i, c := range cols {
		if p, ok := byColumn[c]; ok {
			dest[i] = p
			continue
		}
		dest[i] = new(any)
	}
	return rows.Scan(dest...)
}
