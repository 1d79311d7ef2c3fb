// Package sqlxrepos implements the domain repositories on Postgres via
// sqlx. Rows are mapped through package-local row structs so the domain
// models stay free of db tags.
package sqlxrepos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// DB is the database behavior the repositories are built on, satisfied
// by *sqlx.DB.
type DB interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	Exec(query string, args ...interface{}) (sql.Result, error)
	NamedExec(query string, arg interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Rebind(query string) string
	Beginx() (*sqlx.Tx, error)
}

var _ DB = (*sqlx.DB)(nil)

const pqUniqueViolation = "23505"

// isUniqueViolation reports whether err is a Postgres unique_violation,
// optionally on a specific constraint.
func isUniqueViolation(err error, constraint string) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	if !ok || pqErr.Code != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// trapNoRows maps sql.ErrNoRows to the given domain sentinel.
func trapNoRows(err error, sentinel error, msg string) error {
	if err == sql.ErrNoRows {
		return sentinel
	}
	return errors.Wrap(err, msg)
}
