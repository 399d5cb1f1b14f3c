package resource

import (
	"fmt"
	"strings"
)

// Statement is parameterised SQL with generic "?" placeholders. The
// connection layer rebinds placeholders to the driver's style.
type Statement struct {
	SQL  string
	Args []any
}

func (s Statement) String() string { return s.SQL }

// Explain renders the statement with its arguments inlined as literals.
// The result is for logs and debugging and must never be executed.
func (s Statement) Explain() string {
	var b strings.Builder
	arg := 0
	for _, r := range s.SQL {
		if r == '?' && arg < len(s.Args) {
			b.WriteString(literal(s.Args[arg]))
			arg++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type builder struct {
	sql  strings.Builder
	args []any
}

func (b *builder) push(parts ...string) *builder {
	for _, p := range parts {
		b.sql.WriteString(p)
	}
	return b
}

func (b *builder) bind(v any) *builder {
	b.sql.WriteByte('?')
	b.args = append(b.args, v)
	return b
}

func (b *builder) build() Statement {
	return Statement{SQL: b.sql.String(), Args: b.args}
}

func writableFields(s *Schema, fields []Field) ([]Field, error) {
	byColumn := make(map[string]Field, len(fields))
	for _, f := range fields {
		byColumn[f.Column] = f
	}
	out := make([]Field, 0, len(s.columns))
	for _, c := range s.columns {
		f, ok := byColumn[c]
		if !ok {
			return nil, fmt.Errorf("%w: %q missing from %s value", ErrUnknownColumn, c, s.table)
		}
		out = append(out, f)
	}
	return out, nil
}

func keyField(s *Schema, fields []Field) (Field, error) {
	for _, f := range fields {
		if f.Column == s.key {
			return f, nil
		}
	}
	return Field{}, fmt.Errorf("%w: key %q missing from %s value", ErrUnknownColumn, s.key, s.table)
}

// Insert builds INSERT INTO t (cols) VALUES (...) RETURNING key.
func Insert(s *Schema, fields []Field) (Statement, error) {
	cols, err := writableFields(s, fields)
	if err != nil {
		return Statement{}, err
	}

	var b builder
	b.push("INSERT INTO ", s.table, " (")
	for i, f := range cols {
		if i > 0 {
			b.push(", ")
		}
		b.push(f.Column)
	}
	b.push(") VALUES (")
	for i, f := range cols {
		v, err := Bind(f)
		if err != nil {
			return Statement{}, err
		}
		if i > 0 {
			b.push(", ")
		}
		b.bind(v)
	}
	b.push(") RETURNING ", s.key)
	return b.build(), nil
}

// SelectOne builds SELECT * FROM t WHERE key = ?.
func SelectOne(s *Schema, id int64) Statement {
	var b builder
	b.push("SELECT * FROM ", s.table, " WHERE ", s.key, " = ").bind(id)
	return b.build()
}

// SelectAll builds SELECT * FROM t ORDER BY key.
func SelectAll(s *Schema) Statement {
	var b builder
	b.push("SELECT * FROM ", s.table, " ORDER BY ", s.key)
	return b.build()
}

// SelectWhere builds SELECT * FROM t WHERE column = ? ORDER BY key.
func SelectWhere(s *Schema, column string, value any) (Statement, error) {
	if !s.Has(column) {
		return Statement{}, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, s.table, column)
	}
	var b builder
	b.push("SELECT * FROM ", s.table, " WHERE ", column, " = ").bind(value).push(" ORDER BY ", s.key)
	return b.build(), nil
}

// Count builds SELECT COUNT(*) FROM t WHERE column = ?.
func Count(s *Schema, column string, value any) (Statement, error) {
	if !s.Has(column) {
		return Statement{}, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, s.table, column)
	}
	var b builder
	b.push("SELECT COUNT(*) FROM ", s.table, " WHERE ", column, " = ").bind(value)
	return b.build(), nil
}

// Update builds UPDATE t SET col = ?, ... WHERE key = ?, rewriting every
// writable column.
func Update(s *Schema, fields []Field) (Statement, error) {
	cols, err := writableFields(s, fields)
	if err != nil {
		return Statement{}, err
	}
	key, err := keyField(s, fields)
	if err != nil {
		return Statement{}, err
	}

	var b builder
	b.push("UPDATE ", s.table, " SET ")
	for i, f := range cols {
		v, err := Bind(f)
		if err != nil {
			return Statement{}, err
		}
		if i > 0 {
			b.push(", ")
		}
		b.push(f.Column, " = ").bind(v)
	}
	id, err := Bind(key)
	if err != nil {
		return Statement{}, err
	}
	b.push(" WHERE ", s.key, " = ").bind(id)
	return b.build(), nil
}

// Assign builds UPDATE t SET column = ? WHERE key = ? for a single column,
// read-only columns included.
func Assign(s *Schema, id int64, column string, value any) (Statement, error) {
	if !s.writable(column) {
		return Statement{}, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, s.table, column)
	}
	var b builder
	b.push("UPDATE ", s.table, " SET ", column, " = ").bind(value).push(" WHERE ", s.key, " = ").bind(id)
	return b.build(), nil
}

// Delete builds DELETE FROM t WHERE key = ?.
func Delete(s *Schema, id int64) Statement {
	var b builder
	b.push("DELETE FROM ", s.table, " WHERE ", s.key, " = ").bind(id)
	return b.build()
}
