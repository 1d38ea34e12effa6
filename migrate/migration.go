/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"github.com/acronis/go-dbjournal/journal"
)

// Direction defines the direction of database migrations.
type Direction string

// Migration directions.
const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Operation returns the journal operation recorded for a migration run in this direction.
func (d Direction) Operation() journal.Operation {
	if d == DirectionDown {
		return journal.OperationRevert
	}
	return journal.OperationApply
}

// NoLimit contains a special value that will not limit the number of migrations to apply.
const NoLimit = 0

// Migration is the interface for all database migrations.
type Migration interface {
	// ID returns a unique identifier for the migration.
	// Must be unique across all migrations and sortable (use numeric prefixes like "0001_").
	ID() string

	// Name returns a human-readable name recorded in the journal next to the ID.
	Name() string

	// UpSQL returns SQL statements to execute when applying the migration.
	// Each statement will be executed in order within a transaction (unless disabled).
	UpSQL() []string

	// DownSQL returns SQL statements to execute when rolling back the migration.
	DownSQL() []string
}

// TxDisabler is an optional interface that migrations can implement to disable
// transactional execution. Some database operations (like CREATE INDEX CONCURRENTLY
// in PostgreSQL) cannot run within a transaction.
type TxDisabler interface {
	DisableTx() bool
}

// BaseMigration is a basic implementation of Migration that can be embedded in
// custom migrations to reduce boilerplate.
type BaseMigration struct {
	id        string
	name      string
	upSQL     []string
	downSQL   []string
	disableTx bool
}

var _ TxDisabler = (*BaseMigration)(nil)

// NewMigration creates a new BaseMigration. An empty name is derived from the ID.
func NewMigration(id, name string, upSQL, downSQL []string) *BaseMigration {
	if name == "" {
		name = nameFromID(id)
	}
	return &BaseMigration{id: id, name: name, upSQL: upSQL, downSQL: downSQL}
}

// WithoutTx makes the migration run outside of a transaction.
func (m *BaseMigration) WithoutTx() *BaseMigration {
	m.disableTx = true
	return m
}

// ID returns the migration identifier.
func (m *BaseMigration) ID() string {
	return m.id
}

// Name returns the migration name.
func (m *BaseMigration) Name() string {
	return m.name
}

// UpSQL returns the up SQL statements.
func (m *BaseMigration) UpSQL() []string {
	return m.upSQL
}

// DownSQL returns the down SQL statements.
func (m *BaseMigration) DownSQL() []string {
	return m.downSQL
}

// DisableTx reports whether the migration runs outside of a transaction.
func (m *BaseMigration) DisableTx() bool {
	return m.disableTx
}
