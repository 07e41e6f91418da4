// Package repository holds the Postgres-backed stores. Every repository takes
// a *sql.DB so the same code runs on the pgx pool and on sqlmock.
package repository

import (
	"database/sql"
	"errors"
)

// ErrNotFound is returned when a tenant-scoped row does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidCSV wraps every rejection of an imported CSV's content.
var ErrInvalidCSV = errors.New("invalid csv")

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
