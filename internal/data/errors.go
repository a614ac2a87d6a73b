package data

import (
	"context"
	"database/sql"
	"errors"
)

var (
	// ErrValidation marks malformed or missing required input. Rejected before persistence.
	ErrValidation = errors.New("validation error")
	// ErrStorage marks an unavailable backing store or a failed write.
	ErrStorage = errors.New("storage error")
	// ErrNotFound is resolved to documented defaults by callers, never surfaced over HTTP.
	ErrNotFound = errors.New("record not found")
	// ErrProtocol marks a real-time envelope that could not be parsed.
	ErrProtocol = errors.New("protocol error")
)

// DBTX is a common interface for *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}
