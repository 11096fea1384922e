// Package repository holds the MySQL data access layer.  The sentinel
// errors below let the service layer tell storage outcomes apart without
// inspecting driver errors itself.
package repository

import (
	"context"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrOverlap is returned by CreateIfFree when another reservation on the
// same listing already covers part of the requested interval.
var ErrOverlap = errors.New("reservation interval overlaps an existing one")

// ErrListingNotFound is returned by catalog lookups when no listing matches,
// including when the listing exists but belongs to another landlord.
var ErrListingNotFound = errors.New("listing not found")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrBusy wraps lock contention reported by MySQL.  The transaction was
// rolled back and may be retried by the caller.
var ErrBusy = errors.New("database busy")

// MySQL server error numbers the repositories react to.
const (
	errDupEntry        = 1062
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

func mysqlErrNo(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// classify maps lock contention onto ErrBusy and leaves everything else
// untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch mysqlErrNo(err) {
	case errDeadlock, errLockWaitTimeout:
		return errors.Join(ErrBusy, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrBusy, err)
	}
	return err
}
