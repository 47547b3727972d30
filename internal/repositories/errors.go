package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a specific record is not found.
	ErrNotFound = errors.New("requested record not found")

	// ErrDatabaseError is returned for unexpected database errors.
	// It can be used to wrap more specific driver errors.
	ErrDatabaseError = errors.New("database error")

	// ErrDuplicateKey is returned when an insert/update violates a unique constraint.
	ErrDuplicateKey = errors.New("duplicate key value violates unique constraint")

	// ErrLockTimeout is returned when a row lock could not be acquired within
	// the session lock_timeout. Callers may retry with backoff.
	ErrLockTimeout = errors.New("timed out waiting for row lock")
)

// Postgres error codes we branch on.
const (
	pqUniqueViolation  = "23505"
	pqLockNotAvailable = "55P03"
)

// SQLExecutor defines an interface that can be satisfied by *sql.DB or *sql.Tx.
// This allows repository methods to be used within transactions or with a
// direct DB connection. The allocation path always passes a *sql.Tx because
// its reads must happen under the row lock taken by that same transaction.
type SQLExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

// wrapDBError maps driver errors onto the repository sentinels so services
// can branch with errors.Is without importing pq.
func wrapDBError(err error, context string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicateKey, context)
		case pqLockNotAvailable:
			return fmt.Errorf("%w: %s", ErrLockTimeout, context)
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrDatabaseError, context, err)
}
