package resource

import "errors"

// Errors returned by the resource contract. Store drivers' errors are wrapped
// into these by the connection layer so callers only need errors.Is.
var (
	// ErrNotFound is returned when a keyed read matches no row.
	ErrNotFound = errors.New("resource not found")
	// ErrAmbiguous is returned when a keyed statement touches more than one row.
	ErrAmbiguous = errors.New("more than one row matched primary key")
	// ErrConstraint covers foreign key, unique and not-null failures on write.
	ErrConstraint = errors.New("constraint violation")
	// ErrTransient covers connectivity failures and pool exhaustion.
	ErrTransient = errors.New("transient store failure")
)

// Schema derivation errors. These indicate a programming error in an entity
// declaration and are detected when a repository is constructed.
var (
	ErrNoFields            = errors.New("entity declares no fields")
	ErrNoPrimaryKey        = errors.New("entity declares no primary key")
	ErrMultiplePrimaryKeys = errors.New("entity declares more than one primary key")
	ErrDuplicateColumn     = errors.New("entity declares a column twice")
	ErrKindMismatch        = errors.New("field pointer does not match its kind")
	ErrUnknownColumn       = errors.New("column is not part of the schema")
)

// ErrInvalidValue is returned when a field holds a value that cannot be
// written and read back unchanged, such as a zero Date.
var ErrInvalidValue = errors.New("field value cannot be stored")
