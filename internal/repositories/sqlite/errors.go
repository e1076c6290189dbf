package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/hansupo/shad-label/internal/repositories"
)

// Error classifies driver failures for the service layer.
type Error struct {
	op          string
	err         error
	notFound    bool
	conflict    bool
	unavailable bool
}

var _ repositories.RepositoryError = (*Error)(nil)

func (e *Error) Error() string {
	if e.err == nil {
		return "sqlite: " + e.op
	}
	return fmt.Sprintf("sqlite: %s: %v", e.op, e.err)
}

func (e *Error) Unwrap() error       { return e.err }
func (e *Error) IsNotFound() bool    { return e != nil && e.notFound }
func (e *Error) IsConflict() bool    { return e != nil && e.conflict }
func (e *Error) IsUnavailable() bool { return e != nil && e.unavailable }

func notFound(op string) error {
	return &Error{op: op, err: sql.ErrNoRows, notFound: true}
}

// wrapError maps sql.ErrNoRows to not found, UNIQUE violations to conflict and busy or locked
// databases to unavailable. Context errors pass through untouched.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	wrapped := &Error{op: op, err: err}
	if errors.Is(err, sql.ErrNoRows) {
		wrapped.notFound = true
		return wrapped
	}
	var driverErr *sqlite.Error
	if errors.As(err, &driverErr) {
		code := driverErr.Code()
		switch {
		case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			wrapped.conflict = true
		case primaryCode(code) == sqlite3.SQLITE_BUSY, primaryCode(code) == sqlite3.SQLITE_LOCKED,
			primaryCode(code) == sqlite3.SQLITE_CANTOPEN, primaryCode(code) == sqlite3.SQLITE_IOERR:
			wrapped.unavailable = true
		}
	}
	if errors.Is(err, sql.ErrConnDone) {
		wrapped.unavailable = true
	}
	return wrapped
}

// primaryCode strips the extended result code bits.
func primaryCode(code int) int {
	return code & 0xff
}
