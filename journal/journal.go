/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package journal defines the contract of a migration journal client.
//
// A journal is an append-only, timestamp-ordered table of APPLY/REVERT records
// kept by a migration engine. Backends (see the memory and sqldb sub-packages)
// implement Client with identical observable semantics, so an engine can hold
// a Client and never know which datastore it talks to.
package journal

import (
	"context"
	"time"
)

// EntryIn is the write-side shape of a journal record. The timestamp is assigned by the backend.
type EntryIn struct {
	Operation     Operation `mapstructure:"operation" yaml:"operation" json:"operation"`
	MigrationID   string    `mapstructure:"migrationID" yaml:"migrationID" json:"migrationID"`
	MigrationName string    `mapstructure:"migrationName" yaml:"migrationName" json:"migrationName"`
}

// Entry is a journal record as stored by a backend.
type Entry struct {
	Timestamp     time.Time `mapstructure:"timestamp" yaml:"timestamp" json:"timestamp"`
	Operation     Operation `mapstructure:"operation" yaml:"operation" json:"operation"`
	MigrationID   string    `mapstructure:"migrationID" yaml:"migrationID" json:"migrationID"`
	MigrationName string    `mapstructure:"migrationName" yaml:"migrationName" json:"migrationName"`
}

// NewEntry stamps in with ts.
func NewEntry(ts time.Time, in EntryIn) Entry {
	return Entry{
		Timestamp:     ts,
		Operation:     in.Operation,
		MigrationID:   in.MigrationID,
		MigrationName: in.MigrationName,
	}
}

// Client is a single live connection to a journal backend plus at most one in-flight transaction.
//
// A Client is owned by one caller from construction to Close, and its methods must not be
// called concurrently (EnsureJournal is the only exception). Between BeginTx and Commit/Rollback
// every journal and raw statement operation is scoped to the transaction's working view.
// No method retries, and a failure inside a transaction never rolls it back implicitly.
type Client interface {
	// Close releases all resources held by the client. An open transaction is rolled back.
	Close(ctx context.Context) error

	// BeginTx opens a transaction. It fails with *TransactionError if one is already open.
	BeginTx(ctx context.Context) error

	// Commit makes the working view the new live state.
	// It fails with *TransactionError if no transaction is open.
	Commit(ctx context.Context) error

	// Rollback discards the working view, restoring the state observed at BeginTx.
	// It fails with *TransactionError if no transaction is open.
	Rollback(ctx context.Context) error

	// InTx reports whether a transaction is open.
	InTx() bool

	// EnsureJournal creates the journal table if it does not exist yet. It never clears entries.
	EnsureJournal(ctx context.Context, table string) error

	// AppendJournal appends an entry stamped with the backend's current time.
	// It fails with *NoSuchJournalError if the table was never ensured.
	AppendJournal(ctx context.Context, table string, in EntryIn) (Entry, error)

	// ReadJournal returns a snapshot of all entries ordered by timestamp ascending.
	ReadJournal(ctx context.Context, table string) ([]Entry, error)

	// RunMigrationSQL executes a backend-native statement.
	// A rejected statement fails with *StatementError and has no effect.
	RunMigrationSQL(ctx context.Context, statement string) error
}
