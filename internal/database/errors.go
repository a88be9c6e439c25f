package database

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNoRows is returned by Row.Scan and ExecuteOne on both transports.
	ErrNoRows = pgx.ErrNoRows
	// ErrTxClosed is returned when a finished transaction is used again.
	ErrTxClosed = pgx.ErrTxClosed
)

const (
	SQLStateUniqueViolation     = "23505"
	SQLStateForeignKeyViolation = "23503"
	SQLStateCheckViolation      = "23514"
)

// ConfigurationError reports a missing or malformed connection descriptor.
// It is fatal at startup and never retried.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid connection descriptor: %s: %v", e.Reason, e.Err)
	}
	return "invalid connection descriptor: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ConnectionError reports that the transport could not be reached or the call
// ran out of time.
type ConnectionError struct {
	Transport Transport
	Err       error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s transport unavailable: %v", e.Transport, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryError reports that the database rejected a statement. Code carries the
// SQLSTATE when the database supplied one.
type QueryError struct {
	Code    string
	Message string
	Err     error
}

func (e *QueryError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("query failed (SQLSTATE %s): %s", e.Code, e.Message)
	}
	return "query failed: " + e.Message
}

func (e *QueryError) Unwrap() error { return e.Err }

// IsUniqueViolation reports whether err is a unique constraint failure on
// either transport.
func IsUniqueViolation(err error) bool {
	return hasSQLState(err, SQLStateUniqueViolation)
}

// IsForeignKeyViolation reports whether err is a foreign key failure on either
// transport.
func IsForeignKeyViolation(err error) bool {
	return hasSQLState(err, SQLStateForeignKeyViolation)
}

func hasSQLState(err error, code string) bool {
	return SQLState(err) == code
}

// SQLState returns the SQLSTATE carried by err, or "" when there is none.
func SQLState(err error) string {
	var qe *QueryError
	if errors.As(err, &qe) && qe.Code != "" {
		return qe.Code
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// classify maps a raw transport error onto the executor taxonomy. Errors that
// are already classified and ErrNoRows pass through untouched.
func classify(transport Transport, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNoRows) {
		return err
	}

	var cfgErr *ConfigurationError
	var connErr *ConnectionError
	var queryErr *QueryError
	if errors.As(err, &cfgErr) || errors.As(err, &connErr) || errors.As(err, &queryErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &QueryError{Code: pgErr.Code, Message: pgErr.Message, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &ConnectionError{Transport: transport, Err: err}
	}

	var pgConnectErr *pgconn.ConnectError
	if errors.As(err, &pgConnectErr) || pgconn.Timeout(err) {
		return &ConnectionError{Transport: transport, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &ConnectionError{Transport: transport, Err: err}
	}

	return &QueryError{Message: err.Error(), Err: err}
}
