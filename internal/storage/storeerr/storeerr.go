// Package storeerr defines the storage engine's error taxonomy and the pure
// classifier that decides whether a raw backend failure is worth retrying.
package storeerr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// Kind is one tag of the error taxonomy described by the storage contract.
type Kind int

const (
	// KindUnknown is never returned by New; it is the zero value used when
	// an error carries no classification yet.
	KindUnknown Kind = iota
	KindInvalidArgument
	KindNotInitialized
	KindConstraintViolation
	KindTransientBackend
	KindDatabaseLocked
	KindDimensionMismatch
	KindInvalidConfiguration
	KindFileFormatError
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindNotInitialized:
		return "NotInitialized"
	case KindConstraintViolation:
		return "ConstraintViolation"
	case KindTransientBackend:
		return "TransientBackendError"
	case KindDatabaseLocked:
		return "DatabaseLocked"
	case KindDimensionMismatch:
		return "DimensionMismatch"
	case KindInvalidConfiguration:
		return "InvalidConfiguration"
	case KindFileFormatError:
		return "FileFormatError"
	default:
		return "Unknown"
	}
}

// Transient reports whether errors of this kind should be retried.
func (k Kind) Transient() bool {
	return k == KindTransientBackend || k == KindDatabaseLocked
}

// Error is the single wrapped-failure type every storage operation returns
// for non-absence failures. It preserves the original cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err as a classified storage error for operation op.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}

// KindOf extracts the classified Kind from err, or KindUnknown.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// Classify inspects a raw backend error and assigns it a Kind. It never
// mutates or discards the original error — callers should wrap the result
// with New(Classify(err), op, err).
//
// PostgreSQL classification follows SQLSTATE class prefixes: connection
// exception (08), insufficient resources (53), operator intervention (57,
// e.g. 57P03 cannot_connect_now), and serialization/deadlock failures
// (40001, 40P01) are transient. Integrity constraint violations (23), data
// exceptions (22), syntax/access rule violations (42), and invalid
// catalog/schema names (3D, 3F) are permanent. Any other SQLSTATE not
// named above is also treated as permanent — only the classes listed here
// are known retryable.
//
// SQLite classification maps sqlite3.ErrBusy/ErrLocked to DatabaseLocked
// and sqlite3.ErrConstraint to ConstraintViolation.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyPgError(pgErr)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return classifySQLiteError(sqliteErr)
	}

	return KindTransientBackend
}

func classifyPgError(pgErr *pgconn.PgError) Kind {
	code := pgErr.Code
	switch {
	case len(code) >= 2 && code[:2] == "08": // connection_exception
		return KindTransientBackend
	case len(code) >= 2 && code[:2] == "53": // insufficient_resources
		return KindTransientBackend
	case code == "40001", code == "40P01": // serialization_failure, deadlock_detected
		return KindTransientBackend
	case code == "57P03": // cannot_connect_now
		return KindTransientBackend
	case len(code) >= 2 && code[:2] == "23": // integrity_constraint_violation
		return KindConstraintViolation
	case len(code) >= 2 && code[:2] == "22": // data_exception
		return KindInvalidArgument
	case len(code) >= 2 && code[:2] == "42": // syntax_error_or_access_rule_violation
		return KindInvalidArgument
	case len(code) >= 2 && code[:2] == "3D", len(code) >= 2 && code[:2] == "3F": // invalid_catalog_name, invalid_schema_name
		return KindInvalidArgument
	default:
		// Unrecognized SQLSTATEs fall back to permanent, not transient:
		// retrying an error the classifier has no rule for risks burning
		// the full retry budget on something retrying can never fix.
		// Only the classes above (and pgconn's own connection-exception
		// surfacing) are known retryable.
		return KindInvalidArgument
	}
}

func classifySQLiteError(err sqlite3.Error) Kind {
	switch err.Code {
	case sqlite3.ErrBusy, sqlite3.ErrLocked:
		return KindDatabaseLocked
	case sqlite3.ErrConstraint:
		return KindConstraintViolation
	default:
		return KindTransientBackend
	}
}
