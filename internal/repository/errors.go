// Package repository defines the MySQL data access layer and the error
// values that are reused across repositories. These sentinel values allow
// higher layers such as services and handlers to distinguish between
// different failure scenarios without inspecting driver errors.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist or has
// been soft deleted. Handlers translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as deleting a
// category that still has sweets. Handlers should translate this
// into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrEmailExists and ErrUsernameExists report unique key violations on users.
var (
	ErrEmailExists    = errors.New("email already exists")
	ErrUsernameExists = errors.New("username already exists")
)

// ErrDuplicateReview is returned when a user reviews the same sweet twice.
var ErrDuplicateReview = errors.New("sweet already reviewed by this user")

// InsufficientStockError reports that an inventory decrement would take
// a sweet's stock below zero.
type InsufficientStockError struct {
	SweetID   uint64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for sweet %d: requested %d, available %d",
		e.SweetID, e.Requested, e.Available)
}

// isDuplicateKey reports whether err is a MySQL unique key violation (1062).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// isForeignKeyViolation reports MySQL errors 1451/1452 (parent row missing
// or still referenced).
func isForeignKeyViolation(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && (me.Number == 1451 || me.Number == 1452)
}
