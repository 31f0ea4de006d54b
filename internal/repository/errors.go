// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow the service layer to
// distinguish between different failure scenarios without inspecting
// driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when inserting a user whose email is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrConflict is returned when a compare-and-swap update matched no row
// because the stored state changed since it was read.
var ErrConflict = errors.New("conflict")

// ErrTokenInactive is returned by Rotate when the refresh record being
// consumed is missing, revoked or expired at rotation time.
var ErrTokenInactive = errors.New("refresh token inactive")

// isDuplicateKey reports whether err is a MySQL unique-key violation (1062).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
