package database

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalState is the base class for every API misuse failure. All
	// derived sentinels match it via errors.Is.
	ErrIllegalState = errors.New("database: illegal state")
	// ErrClosed is returned by any operation on a closed handle.
	ErrClosed = fmt.Errorf("%w: database is closed", ErrIllegalState)
	// ErrInTransaction is returned when a write or a close is attempted
	// from inside a running write transaction body.
	ErrInTransaction = fmt.Errorf("%w: already inside a write transaction", ErrIllegalState)
	// ErrWriteInterrupted is returned to a write that was in flight while
	// the handle was closed. The transaction is rolled back first.
	ErrWriteInterrupted = fmt.Errorf("%w: database closed while write was in flight", ErrIllegalState)
)
