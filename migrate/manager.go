/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/acronis/go-appkit/log"
	"github.com/cenkalti/backoff/v4"

	"github.com/acronis/go-dbjournal/journal"
	"github.com/acronis/go-dbjournal/journal/memory"
)

// DefaultTableName is the default name of the migration journal.
const DefaultTableName = "schema_migrations"

// AppliedMigration is a migration that is currently applied according to the journal.
type AppliedMigration struct {
	ID        string
	Name      string
	AppliedAt time.Time
}

// Manager handles migration execution and tracks it in a journal.
// It only talks to the database through journal.Client, so any backend can be used.
type Manager struct {
	client      journal.Client
	logger      log.FieldLogger
	tableName   string
	retryPolicy backoff.BackOff
}

// Option is a functional option for Manager configuration.
type Option func(*Manager)

// WithTableName sets a custom journal table name.
func WithTableName(name string) Option {
	return func(m *Manager) {
		m.tableName = name
	}
}

// WithRetryPolicy enables retrying transactional migrations that failed with a retryable error
// (deadlock, serialization failure). Every retry starts from a fresh transaction.
func WithRetryPolicy(policy backoff.BackOff) Option {
	return func(m *Manager) {
		m.retryPolicy = policy
	}
}

// NewManager creates a new migration manager.
func NewManager(client journal.Client, logger log.FieldLogger, opts ...Option) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("journal client cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	m := &Manager{client: client, logger: logger, tableName: DefaultTableName}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Applied returns the migrations that are currently applied, in the order they were applied.
// A missing journal means nothing was applied.
func (m *Manager) Applied(ctx context.Context) ([]AppliedMigration, error) {
	entries, err := m.readJournal(ctx)
	if err != nil {
		return nil, err
	}
	return foldJournal(entries), nil
}

// Run executes all pending migrations in the specified direction.
func (m *Manager) Run(ctx context.Context, migrations []Migration, direction Direction) (int, error) {
	return m.RunLimit(ctx, migrations, direction, NoLimit)
}

// RunLimit executes up to 'limit' migrations in the specified direction.
// Use NoLimit (0) to apply all pending migrations.
func (m *Manager) RunLimit(ctx context.Context, migrations []Migration, direction Direction, limit int) (int, error) {
	if err := m.client.EnsureJournal(ctx, m.tableName); err != nil {
		return 0, fmt.Errorf("ensure migration journal: %w", err)
	}

	applied, err := m.Applied(ctx)
	if err != nil {
		return 0, fmt.Errorf("get applied migrations: %w", err)
	}

	toApply := filterMigrations(migrations, applied, direction, limit)
	m.logger.Info(fmt.Sprintf("Applying %d migration(s) (%s)", len(toApply), direction))

	count := 0
	for _, mig := range toApply {
		if err = m.executeMigration(ctx, mig, direction); err != nil {
			return count, fmt.Errorf("execute migration %s: %w", mig.ID(), err)
		}
		count++
		m.logger.Info(fmt.Sprintf("Applied migration: %s", mig.ID()),
			log.String("name", mig.Name()), log.String("direction", string(direction)))
	}
	return count, nil
}

// DryRun plans the run against an in-memory copy of the journal and returns the statements
// that Run would execute. The database is only read.
func (m *Manager) DryRun(ctx context.Context, migrations []Migration, direction Direction) ([]string, error) {
	entries, err := m.readJournal(ctx)
	if err != nil {
		return nil, err
	}

	sandbox, err := memory.Connect(ctx, memory.Config{Tables: map[string][]journal.Entry{m.tableName: entries}})
	if err != nil {
		return nil, err
	}
	defer sandbox.Close(ctx) // nolint: errcheck

	planner := &Manager{client: sandbox, logger: m.logger.With(log.String("mode", "dry-run")), tableName: m.tableName}
	if _, err = planner.Run(ctx, migrations, direction); err != nil {
		return nil, err
	}
	return sandbox.Statements(), nil
}

func (m *Manager) readJournal(ctx context.Context) ([]journal.Entry, error) {
	entries, err := m.client.ReadJournal(ctx, m.tableName)
	if err != nil {
		if journal.IsNoSuchJournal(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read migration journal: %w", err)
	}
	return entries, nil
}

// foldJournal replays the journal: APPLY adds a migration, REVERT removes it.
func foldJournal(entries []journal.Entry) []AppliedMigration {
	var applied []AppliedMigration
	for _, entry := range entries {
		idx := -1
		for i := range applied {
			if applied[i].ID == entry.MigrationID {
				idx = i
				break
			}
		}
		switch entry.Operation {
		case journal.OperationApply:
			if idx == -1 {
				applied = append(applied, AppliedMigration{ID: entry.MigrationID, Name: entry.MigrationName, AppliedAt: entry.Timestamp})
			}
		case journal.OperationRevert:
			if idx != -1 {
				applied = append(applied[:idx], applied[idx+1:]...)
			}
		}
	}
	return applied
}

// filterMigrations determines which migrations to apply based on direction and current state.
func filterMigrations(migrations []Migration, applied []AppliedMigration, direction Direction, limit int) []Migration {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID() < sorted[j].ID()
	})

	appliedIDs := make(map[string]struct{}, len(applied))
	for _, a := range applied {
		appliedIDs[a.ID] = struct{}{}
	}

	var toApply []Migration
	if direction == DirectionUp {
		for _, mig := range sorted {
			if _, exists := appliedIDs[mig.ID()]; !exists {
				toApply = append(toApply, mig)
				if limit > 0 && len(toApply) >= limit {
					break
				}
			}
		}
	} else {
		// Rollback applied migrations in reverse order
		for i := len(sorted) - 1; i >= 0; i-- {
			mig := sorted[i]
			if _, exists := appliedIDs[mig.ID()]; exists {
				toApply = append(toApply, mig)
				if limit > 0 && len(toApply) >= limit {
					break
				}
			}
		}
	}
	return toApply
}

// executeMigration executes a single migration in the specified direction.
func (m *Manager) executeMigration(ctx context.Context, mig Migration, direction Direction) error {
	if txDisabler, ok := mig.(TxDisabler); ok && txDisabler.DisableTx() {
		return m.executeWithoutTx(ctx, mig, direction)
	}
	if m.retryPolicy == nil {
		return m.executeWithTx(ctx, mig, direction)
	}

	attempt := func() error {
		if err := m.executeWithTx(ctx, mig, direction); err != nil {
			if journal.IsRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		m.logger.Warn(fmt.Sprintf("Retrying migration %s in %s", mig.ID(), next), log.Error(err))
	}
	return backoff.RetryNotify(attempt, backoff.WithContext(m.retryPolicy, ctx), notify)
}

// executeWithTx runs the statements and the journal record in one transaction.
// The client never rolls back on its own, so every failure path does it here.
func (m *Manager) executeWithTx(ctx context.Context, mig Migration, direction Direction) (err error) {
	if err = m.client.BeginTx(ctx); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil && m.client.InTx() {
			if rbErr := m.client.Rollback(ctx); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback transaction: %w", rbErr))
			}
		}
	}()

	if err = m.executeStatements(ctx, mig, direction); err != nil {
		return err
	}
	if err = m.recordMigration(ctx, mig, direction); err != nil {
		return err
	}
	if err = m.client.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// executeWithoutTx runs the statements and records the migration once all of them succeeded.
func (m *Manager) executeWithoutTx(ctx context.Context, mig Migration, direction Direction) error {
	if err := m.executeStatements(ctx, mig, direction); err != nil {
		return err
	}
	return m.recordMigration(ctx, mig, direction)
}

func (m *Manager) executeStatements(ctx context.Context, mig Migration, direction Direction) error {
	statements := mig.UpSQL()
	if direction == DirectionDown {
		statements = mig.DownSQL()
	}
	for i, stmt := range statements {
		if stmt == "" {
			continue
		}
		if err := m.client.RunMigrationSQL(ctx, stmt); err != nil {
			return fmt.Errorf("execute statement %d: %w", i+1, err)
		}
	}
	return nil
}

func (m *Manager) recordMigration(ctx context.Context, mig Migration, direction Direction) error {
	in := journal.EntryIn{Operation: direction.Operation(), MigrationID: mig.ID(), MigrationName: mig.Name()}
	if _, err := m.client.AppendJournal(ctx, m.tableName, in); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return nil
}
