package resource

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the scalar kind of a mapped field.
type Kind int

const (
	KindText Kind = iota + 1
	KindOptText
	KindInt64
	KindBool
	KindDate
	KindOptDate
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindOptText:
		return "optional text"
	case KindInt64:
		return "int64"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindOptDate:
		return "optional date"
	case KindTime:
		return "time"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Field maps one struct field to one column. Ptr points into the entity
// value, so the same Field serves both binding and scanning.
type Field struct {
	Column   string
	Kind     Kind
	Ptr      any
	Key      bool
	ReadOnly bool
}

// Key declares the integer primary key column.
func Key(column string, p *int64) Field {
	return Field{Column: column, Kind: KindInt64, Ptr: p, Key: true}
}

// Text declares a required text column.
func Text(column string, p *string) Field {
	return Field{Column: column, Kind: KindText, Ptr: p}
}

// OptText declares a nullable text column.
func OptText(column string, p **string) Field {
	return Field{Column: column, Kind: KindOptText, Ptr: p}
}

// Int64 declares an integer column, typically a foreign key.
func Int64(column string, p *int64) Field {
	return Field{Column: column, Kind: KindInt64, Ptr: p}
}

// Bool declares a boolean column.
func Bool(column string, p *bool) Field {
	return Field{Column: column, Kind: KindBool, Ptr: p}
}

// DateField declares a calendar date column.
func DateField(column string, p *Date) Field {
	return Field{Column: column, Kind: KindDate, Ptr: p}
}

// OptDateField declares a nullable calendar date column.
func OptDateField(column string, p **Date) Field {
	return Field{Column: column, Kind: KindOptDate, Ptr: p}
}

// TimeField declares a time-of-day column.
func TimeField(column string, p *TimeOfDay) Field {
	return Field{Column: column, Kind: KindTime, Ptr: p}
}

// AsReadOnly marks f as populated by reads but never written by Create or
// Update. Such columns change only through Repository.Assign.
func (f Field) AsReadOnly() Field {
	f.ReadOnly = true
	return f
}

// check verifies that Ptr has the Go type Kind expects.
func (f Field) check() error {
	ok := false
	switch f.Kind {
	case KindText:
		_, ok = f.Ptr.(*string)
	case KindOptText:
		_, ok = f.Ptr.(**string)
	case KindInt64:
		_, ok = f.Ptr.(*int64)
	case KindBool:
		_, ok = f.Ptr.(*bool)
	case KindDate:
		_, ok = f.Ptr.(*Date)
	case KindOptDate:
		_, ok = f.Ptr.(**Date)
	case KindTime:
		_, ok = f.Ptr.(*TimeOfDay)
	}
	if !ok {
		return fmt.Errorf("%w: column %q is %s but points to %T", ErrKindMismatch, f.Column, f.Kind, f.Ptr)
	}
	return nil
}

// Bind returns the driver bind parameter for the field's current value.
// Absent optional values bind as SQL NULL.
func Bind(f Field) (any, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	switch p := f.Ptr.(type) {
	case *string:
		return *p, nil
	case **string:
		if *p == nil {
			return nil, nil
		}
		return **p, nil
	case *int64:
		return *p, nil
	case *bool:
		return *p, nil
	case *Date:
		return bindDate(f.Column, *p)
	case **Date:
		if *p == nil {
			return nil, nil
		}
		return bindDate(f.Column, **p)
	case *TimeOfDay:
		if !p.Valid() {
			return nil, fmt.Errorf("%w: column %q holds time %s", ErrInvalidValue, f.Column, p)
		}
		return p.String(), nil
	}
	return nil, fmt.Errorf("%w: column %q", ErrKindMismatch, f.Column)
}

func bindDate(column string, d Date) (any, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: column %q holds date %s", ErrInvalidValue, column, d)
	}
	return d.String(), nil
}

// Literal renders the field's current value as a quoted SQL literal. It is
// for diagnostics only; executed statements always bind.
func Literal(f Field) string {
	v, err := Bind(f)
	if err != nil {
		return "?"
	}
	return literal(v)
}

func literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case fmt.Stringer:
		return literal(x.String())
	default:
		return literal(fmt.Sprint(x))
	}
}
