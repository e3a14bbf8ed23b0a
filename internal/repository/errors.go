// Package repository defines the persistence boundary used by the
// seat registry, booking ledger and activity recorder, together with
// the error values every store implementation must return.  Concrete
// stores live in the sqlstore (MySQL/PostgreSQL) and memstore
// sub-packages.
package repository

import "errors"

// ErrNotFound is returned when a lookup by key yields no row.
// Services translate this into their own NotFound error.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates a
// uniqueness constraint (admin email, refresh token hash).
var ErrDuplicate = errors.New("duplicate key")
