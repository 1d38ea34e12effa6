/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package journal

import (
	"errors"
	"fmt"
)

// Transaction state errors, wrapped by *TransactionError.
var (
	ErrTxInProgress = errors.New("transaction already in progress")
	ErrNoTx         = errors.New("no transaction in progress")
)

// ErrClosed is returned by operations on a client that was already closed.
var ErrClosed = errors.New("journal client is closed")

// ConnectionError is returned when a backend cannot be reached or initialized.
type ConnectionError struct {
	Backend string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s journal backend: %v", e.Backend, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// TransactionError is returned on an invalid transaction state transition, e.g. a nested BeginTx.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// NoSuchJournalError is returned when a journal table is used before EnsureJournal created it.
// Err holds the native backend error, if any.
type NoSuchJournalError struct {
	Table string
	Err   error
}

func (e *NoSuchJournalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("journal %q does not exist: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("journal %q does not exist", e.Table)
}

func (e *NoSuchJournalError) Unwrap() error {
	return e.Err
}

// StatementError is returned when the backend rejects a raw or constructed statement.
// Code is the backend-native error code (SQLSTATE, MySQL error number, etc.) when known.
type StatementError struct {
	Statement string
	Code      string
	Retryable bool
	Err       error
}

func (e *StatementError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("statement %q failed (code %s): %v", e.Statement, e.Code, e.Err)
	}
	return fmt.Sprintf("statement %q failed: %v", e.Statement, e.Err)
}

func (e *StatementError) Unwrap() error {
	return e.Err
}

// OperationDecodeError is returned when a stored operation label is not a known Operation.
type OperationDecodeError struct {
	Value string
}

func (e *OperationDecodeError) Error() string {
	return fmt.Sprintf("unknown journal operation %q, should be one of [%s %s]",
		e.Value, operationApplyLabel, operationRevertLabel)
}

// IsNoSuchJournal reports whether err means the journal table does not exist.
func IsNoSuchJournal(err error) bool {
	var nsjErr *NoSuchJournalError
	return errors.As(err, &nsjErr)
}

// IsRetryable reports whether err is a statement failure the backend marked as transient
// (deadlock, serialization failure, busy database).
func IsRetryable(err error) bool {
	var stmtErr *StatementError
	return errors.As(err, &stmtErr) && stmtErr.Retryable
}
