// Package repository holds the persistence layer of the booking engine: the
// per-date seat inventory ledger, the booking record store and the user
// directory.  Two backends exist, SQL (MySQL or SQLite) and Redis.  The
// sentinel errors below let the service layer tell storage conditions apart
// without knowing which backend produced them.
package repository

import "errors"

// ErrTxUnsupported is returned by Store.InTx when the backend cannot run
// several steps as one all-or-nothing unit.  The service reacts by switching
// to its compensating executor.
var ErrTxUnsupported = errors.New("transactions not supported by store")

// ErrInventoryNotFound is returned when a ledger mutation targets a date
// whose inventory row was never created.  Callers should Ensure first.
var ErrInventoryNotFound = errors.New("inventory not found")

// ErrLedgerConflict is returned when a release or rollback would break one
// of the inventory invariants (for example releasing a seat nobody holds).
var ErrLedgerConflict = errors.New("ledger update rejected")

// ErrConflict is returned when a user upsert collides with another user's
// unique employee id.  Handlers should translate this into HTTP 409.
var ErrConflict = errors.New("conflict")
