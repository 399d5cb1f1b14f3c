package resource

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"unicode"
)

// Record is satisfied by *T when T declares its column mapping.
type Record[T any] interface {
	*T
	Fields() []Field
}

// Tabler overrides the derived table name.
type Tabler interface {
	TableName() string
}

// Schema is the static table metadata of an entity type.
type Schema struct {
	table    string
	key      string
	columns  []string
	readOnly []string
}

// Derive builds the Schema of T from the fields a zero T declares.
func Derive[T any, P Record[T]]() (*Schema, error) {
	var zero T
	p := P(&zero)

	name := reflect.TypeOf(zero).Name()
	table := TableName(name)
	if t, ok := any(p).(Tabler); ok {
		table = t.TableName()
	}
	if table == "" {
		return nil, fmt.Errorf("derive schema for %T: empty table name", zero)
	}

	s, err := schemaOf(table, p.Fields())
	if err != nil {
		return nil, fmt.Errorf("derive schema for %s: %w", name, err)
	}
	return s, nil
}

// MustDerive is Derive for package initialisation and constructors; a
// malformed entity declaration is a programming error.
func MustDerive[T any, P Record[T]]() *Schema {
	s, err := Derive[T, P]()
	if err != nil {
		panic(err)
	}
	return s
}

func schemaOf(table string, fields []Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, ErrNoFields
	}

	s := &Schema{table: table}
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Column == "" {
			return nil, fmt.Errorf("%w: unnamed column", ErrNoFields)
		}
		if _, dup := seen[f.Column]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, f.Column)
		}
		seen[f.Column] = struct{}{}
		if err := f.check(); err != nil {
			return nil, err
		}

		switch {
		case f.Key:
			if s.key != "" {
				return nil, fmt.Errorf("%w: %q and %q", ErrMultiplePrimaryKeys, s.key, f.Column)
			}
			if f.Kind != KindInt64 {
				return nil, fmt.Errorf("%w: primary key %q must be int64", ErrKindMismatch, f.Column)
			}
			s.key = f.Column
		case f.ReadOnly:
			s.readOnly = append(s.readOnly, f.Column)
		default:
			s.columns = append(s.columns, f.Column)
		}
	}
	if s.key == "" {
		return nil, ErrNoPrimaryKey
	}
	return s, nil
}

// Table returns the table name.
func (s *Schema) Table() string { return s.table }

// Key returns the primary key column.
func (s *Schema) Key() string { return s.key }

// Columns returns the writable non-key columns in declaration order.
func (s *Schema) Columns() []string { return slices.Clone(s.columns) }

// Has reports whether column is mapped, including the key and read-only columns.
func (s *Schema) Has(column string) bool {
	return column == s.key || slices.Contains(s.columns, column) || slices.Contains(s.readOnly, column)
}

func (s *Schema) writable(column string) bool {
	return column != s.key && s.Has(column)
}

// TableName returns the pluralized snake_case form of a Go type name.
func TableName(typeName string) string {
	return pluralize(snakeCase(typeName))
}

func snakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func pluralize(s string) string {
	switch {
	case s == "":
		return s
	case strings.HasSuffix(s, "y") && len(s) > 1 && !strings.ContainsRune("aeiou", rune(s[len(s)-2])):
		return s[:len(s)-1] + "ies"
	case strings.HasSuffix(s, "s"), strings.HasSuffix(s, "x"), strings.HasSuffix(s, "z"),
		strings.HasSuffix(s, "ch"), strings.HasSuffix(s, "sh"):
		return s + "es"
	default:
		return s + "s"
	}
}
