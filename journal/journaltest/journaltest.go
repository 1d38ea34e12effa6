/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package journaltest implements a conformance suite for journal.Client backends.
//
// Every backend runs the same suite, which is what makes the in-memory backend a faithful
// stand-in for a real database:
//
//	func TestConformance(t *testing.T) {
//	    journaltest.TestClient(t, func(t *testing.T) journal.Client {
//	        return mustConnect(t)
//	    })
//	}
package journaltest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-dbjournal/journal"
)

// DefaultFailingStatement is rejected by every supported backend.
const DefaultFailingStatement = "ERROR: bad"

// DefaultValidStatement is accepted by every supported backend.
const DefaultValidStatement = "SELECT 1"

// ConnectFunc returns a fresh client. The suite closes it when the subtest finishes.
type ConnectFunc func(t *testing.T) journal.Client

// Option customizes the suite for a backend.
type Option func(*suiteOptions)

type suiteOptions struct {
	failingStatement string
	validStatement   string
}

// WithFailingStatement overrides the statement that the backend must reject.
func WithFailingStatement(stmt string) Option {
	return func(o *suiteOptions) {
		o.failingStatement = stmt
	}
}

// WithValidStatement overrides the statement that the backend must accept.
func WithValidStatement(stmt string) Option {
	return func(o *suiteOptions) {
		o.validStatement = stmt
	}
}

// TableName returns a unique journal table name, so suites may share one database.
func TableName() string {
	return "journal_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// TestClient runs the conformance suite against clients produced by connect.
func TestClient(t *testing.T, connect ConnectFunc, options ...Option) {
	opts := suiteOptions{failingStatement: DefaultFailingStatement, validStatement: DefaultValidStatement}
	for _, opt := range options {
		opt(&opts)
	}

	open := func(t *testing.T) journal.Client {
		t.Helper()
		c := connect(t)
		t.Cleanup(func() {
			assert.NoError(t, c.Close(context.Background()))
		})
		return c
	}

	t.Run("append then read", func(t *testing.T) {
		ctx := context.Background()
		c := open(t)
		table := TableName()

		require.NoError(t, c.EnsureJournal(ctx, table))
		appended, err := c.AppendJournal(ctx, table,
			journal.EntryIn{Operation: journal.OperationApply, MigrationID: "001", MigrationName: "init"})
		require.NoError(t, err)
		require.False(t, appended.Timestamp.IsZero())

		entries, err := c.ReadJournal(ctx, table)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, "001", entries[0].MigrationID)
		require.Equal(t, "init", entries[0].MigrationName)
		require.Equal(t, journal.OperationApply, entries[0].Operation)
		require.False(t, entries[0].Timestamp.IsZero())
	})

	t.Run("entries are read in append order", func(t *testing.T) {
		ctx := context.Background()
		c := open(t)
		table := TableName()
		require.NoError(t, c.EnsureJournal(ctx, table))

		inputs := []journal.EntryIn{
			{Operation: journal.OperationApply, MigrationID: "001", MigrationName: "init"},
			{Operation: journal.OperationApply, MigrationID: "002", MigrationName: "users"},
			{Operation: journal.OperationRevert, MigrationID: "002", MigrationName: "users"},
			{Operation: journal.OperationApply, MigrationID: "002", MigrationName: "users 'quoted'"},
		}
		for _, in := range inputs {
			_, err := c.AppendJournal(ctx, table, in)
			require.NoError(t, err)
		}

		entries, err := c.ReadJournal(ctx, table)
		require.NoError(t, err)
		require.Len(t, entries, len(inputs))
		for i, in := range inputs {
			require.Equal(t, in.Operation, entries[i].Operation)
			require.Equal(t, in.MigrationID, entries[i].MigrationID)
			require.Equal(t, in.MigrationName, entries[i].MigrationName)
			if i > 0 {
				require.False(t, entries[i].Timestamp.Before(entries[i-1].Timestamp),
					"timestamps must be non-decreasing")
			}
		}
	})

	t.Run("ensure journal is idempotent", func(t *testing.T) {
		ctx := context.Background()
		c := open(t)
		table := TableName()

		require.NoError(t, c.EnsureJournal(ctx, table))
		_, err := c.AppendJournal(ctx, table, journal.EntryIn{Operation: journal.OperationApply, MigrationID: "001", MigrationName: "init"})
		require.NoError(t, err)
		require.NoError(t, c.EnsureJournal(ctx, table))

		entries, err := c.ReadJournal(ctx, table)
		require.NoError(t, err)
		require.Len(t, entries, 1)
	})

	t.Run("append to missing journal", func(t *testing.T) {
		ctx := context.Background()
		c := open(t)
		table := TableName()

		_, err := c.AppendJournal(ctx, table, journal.EntryIn{Operation: journal.OperationApply, MigrationID: "001", MigrationName: "init"})
		var nsjErr *journal.NoSuchJournalError
		require.True(t, errors.As(err, &nsjErr), "got %v", err)
		require.Equal(t, table, nsjErr.Table)

		_, err = c.ReadJournal(ctx, table)
		require.True(t, journal.IsNoSuchJournal(err), "got %v", err)
	})

	t.Run("rollback discards appended entries", func(t *testing.T) {
		ctx := context.Background()
		c := open(t)
		table := TableName()
		require.NoError(t, c.EnsureJournal(ctx, table))

		require.NoError(t, c.BeginTx(ctx))
		require.True(t, c.InTx())
		_, err := c.AppendJournal(ctx, table, journal.EntryIn{Operation: journal.OperationApply, MigrationID: "001", MigrationName: "init"})
		require.NoError(t, err)
		require.NoError(t, c.RunMigrationSQL(ctx, opts.validStatement))

		inTx, err := c.ReadJournal(ctx, table)
		require.NoError(t, err)
		require.Len(t, inTx, 1, "working view must show in-transaction writes")

		require.NoError(t, c.Rollback(ctx))
		require.False(t, c.InTx())

		entries, err := c.ReadJournal(ctx, table)
		require.NoError(t, err)
		require.Empty(t, entries)
	})

	t.Run("commit publishes appended entries", func(t *testing.T) {
		ctx := context.Background()
		c := open(t)
		table := TableName()
		require.NoError(t, c.EnsureJournal(ctx, table))

		require.NoError(t, c.BeginTx(ctx))
		_, err := c.AppendJournal(ctx, table, journal.EntryIn{Operation: journal.OperationApply, MigrationID: "001", MigrationName: "init"})
		require.NoError(t, err)
		_, err = c.AppendJournal(ctx, table, journal.EntryIn{Operation: journal.OperationApply, MigrationID: "002", MigrationName: "users"})
		require.NoError(t, err)
		require.NoError(t, c.Commit(ctx))
		require.False(t, c.InTx())

		entries, err := c.ReadJournal(ctx, table)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		require.Equal(t, "001", entries[0].MigrationID)
		require.Equal(t, "002", entries[1].MigrationID)
	})

	t.Run("nested begin fails and keeps the working view", func(t *testing.T) {
		ctx := context.Background()
		c := open(t)
		table := TableName()
		require.NoError(t, c.EnsureJournal(ctx, table))

		require.NoError(t, c.BeginTx(ctx))
		_, err := c.AppendJournal(ctx, table, journal.EntryIn{Operation: journal.OperationApply, MigrationID: "001", MigrationName: "init"})
		require.NoError(t, err)

		err = c.BeginTx(ctx)
		var txErr *journal.TransactionError
		require.True(t, errors.As(err, &txErr), "got %v", err)
		require.ErrorIs(t, err, journal.ErrTxInProgress)
		require.True(t, c.InTx())

		entries, err := c.ReadJournal(ctx, table)
		require.NoError(t, err)
		require.Len(t, entries, 1)

		require.NoError(t, c.Commit(ctx))
		entries, err = c.ReadJournal(ctx, table)
		require.NoError(t, err)
		require.Len(t, entries, 1)
	})

	t.Run("commit and rollback without transaction", func(t *testing.T) {
		ctx := context.Background()
		c := open(t)

		require.ErrorIs(t, c.Commit(ctx), journal.ErrNoTx)
		require.ErrorIs(t, c.Rollback(ctx), journal.ErrNoTx)
		require.False(t, c.InTx())
	})

	t.Run("rejected statement", func(t *testing.T) {
		ctx := context.Background()
		c := open(t)

		require.NoError(t, c.RunMigrationSQL(ctx, opts.validStatement))

		err := c.RunMigrationSQL(ctx, opts.failingStatement)
		var stmtErr *journal.StatementError
		require.True(t, errors.As(err, &stmtErr), "got %v", err)
		require.Equal(t, opts.failingStatement, stmtErr.Statement)
		require.NotNil(t, stmtErr.Unwrap())
	})

	t.Run("rejected statement keeps the transaction open", func(t *testing.T) {
		ctx := context.Background()
		c := open(t)
		table := TableName()
		require.NoError(t, c.EnsureJournal(ctx, table))

		require.NoError(t, c.BeginTx(ctx))
		_, err := c.AppendJournal(ctx, table, journal.EntryIn{Operation: journal.OperationApply, MigrationID: "001", MigrationName: "init"})
		require.NoError(t, err)
		require.Error(t, c.RunMigrationSQL(ctx, opts.failingStatement))
		require.True(t, c.InTx())
		require.NoError(t, c.Rollback(ctx))

		entries, err := c.ReadJournal(ctx, table)
		require.NoError(t, err)
		require.Empty(t, entries)
	})
}
