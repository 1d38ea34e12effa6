/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package sqldb

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"     // register goqu dialect
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"  // register goqu dialect
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"   // register goqu dialect
	_ "github.com/doug-martin/goqu/v9/dialect/sqlserver" // register goqu dialect

	"github.com/acronis/go-dbjournal"
)

// Journal table columns.
const (
	colTimestamp     = "timestamp"
	colOperation     = "operation"
	colMigrationID   = "migration_id"
	colMigrationName = "migration_name"
)

// timestampSource defines where the timestamp of an appended entry comes from.
type timestampSource int

const (
	// The insert evaluates the engine clock and returns the stored value.
	timestampReturning timestampSource = iota
	// The engine clock is read by a separate query and bound into the insert.
	timestampEngineQuery
	// The host clock is bound into the insert. Used for embedded engines, whose clock is the host clock.
	timestampHostClock
)

type dbQueries struct {
	dialect     dbjournal.Dialect
	goquDialect goqu.DialectWrapper
	createTable string
	tsSource    timestampSource
	nowExpr     string // for timestampReturning
	clockQuery  string // for timestampEngineQuery
}

func newDBQueries(dialect dbjournal.Dialect) (dbQueries, error) {
	switch {
	case dialect.IsPostgres():
		return dbQueries{
			dialect:     dialect,
			goquDialect: goqu.Dialect("postgres"),
			createTable: postgresCreateTableQuery,
			tsSource:    timestampReturning,
			nowExpr:     "clock_timestamp()",
		}, nil
	case dialect == dbjournal.DialectMySQL:
		return dbQueries{
			dialect:     dialect,
			goquDialect: goqu.Dialect("mysql"),
			createTable: mySQLCreateTableQuery,
			tsSource:    timestampEngineQuery,
			clockQuery:  "SELECT NOW(6)",
		}, nil
	case dialect.IsSQLite():
		return dbQueries{
			dialect:     dialect,
			goquDialect: goqu.Dialect("sqlite3"),
			createTable: sqliteCreateTableQuery,
			tsSource:    timestampHostClock,
		}, nil
	case dialect == dbjournal.DialectMSSQL:
		return dbQueries{
			dialect:     dialect,
			goquDialect: goqu.Dialect("sqlserver"),
			createTable: msSQLCreateTableQuery,
			tsSource:    timestampEngineQuery,
			clockQuery:  "SELECT SYSDATETIME()",
		}, nil
	default:
		return dbQueries{}, fmt.Errorf("unsupported sql dialect %q", dialect)
	}
}

// createTableSQL returns the DDL creating the journal table unless it exists.
func (q dbQueries) createTableSQL(table string) string {
	if q.dialect == dbjournal.DialectMSSQL {
		return fmt.Sprintf(q.createTable, table, table)
	}
	return fmt.Sprintf(q.createTable, table)
}

// insertSQL returns the parameterized insert of one entry.
// ts is the bound timestamp, ignored when the insert evaluates the engine clock itself.
func (q dbQueries) insertSQL(table string, ts interface{}, operation, migrationID, migrationName string) (string, []interface{}, error) {
	if q.tsSource == timestampReturning {
		ts = goqu.L(q.nowExpr)
	}
	ds := q.goquDialect.Insert(goqu.T(table)).
		Prepared(true).
		Cols(colTimestamp, colOperation, colMigrationID, colMigrationName).
		Vals(goqu.Vals{ts, operation, migrationID, migrationName})
	if q.tsSource == timestampReturning {
		ds = ds.Returning(goqu.C(colTimestamp))
	}
	return ds.ToSQL()
}

// selectSQL returns the query reading the whole journal ordered by timestamp.
func (q dbQueries) selectSQL(table string) (string, []interface{}, error) {
	return q.goquDialect.From(goqu.T(table)).
		Prepared(true).
		Select(colTimestamp, colOperation, colMigrationID, colMigrationName).
		Order(goqu.C(colTimestamp).Asc()).
		ToSQL()
}

//nolint:lll
const (
	postgresCreateTableQuery = `CREATE TABLE IF NOT EXISTS "%s" ("timestamp" TIMESTAMP PRIMARY KEY, operation TEXT NOT NULL, migration_id TEXT NOT NULL, migration_name TEXT NOT NULL);`
	mySQLCreateTableQuery    = "CREATE TABLE IF NOT EXISTS `%s` (`timestamp` DATETIME(6) NOT NULL PRIMARY KEY, operation TEXT NOT NULL, migration_id TEXT NOT NULL, migration_name TEXT NOT NULL);"
	sqliteCreateTableQuery   = `CREATE TABLE IF NOT EXISTS "%s" ("timestamp" TIMESTAMP NOT NULL PRIMARY KEY, operation TEXT NOT NULL, migration_id TEXT NOT NULL, migration_name TEXT NOT NULL);`
	msSQLCreateTableQuery    = `IF NOT EXISTS (SELECT * FROM sys.tables WHERE name = '%s') CREATE TABLE [%s] ([timestamp] DATETIME2 NOT NULL PRIMARY KEY, operation NVARCHAR(MAX) NOT NULL, migration_id NVARCHAR(MAX) NOT NULL, migration_name NVARCHAR(MAX) NOT NULL);`
)
