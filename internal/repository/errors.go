// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as the
// conversation engine and the HTTP handlers to distinguish between the
// failure scenarios of the inventory store.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrStorageUnavailable is wrapped around every driver, network or
// timeout failure.  It is the only fatal error class of the store:
// callers report it as "try again later" and never as a sold-out result.
var ErrStorageUnavailable = errors.New("storage unavailable")

// unavailable annotates a driver error with the failing operation and
// marks it as ErrStorageUnavailable while keeping the original cause
// reachable through errors.Is / errors.As.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
