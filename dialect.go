/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package dbjournal

import (
	"database/sql"
	"time"
)

// Dialect defines possible values for planned supported SQL dialects.
type Dialect string

// SQL dialects.
const (
	DialectSQLite     Dialect = "sqlite3"
	DialectSQLitePure Dialect = "sqlite"
	DialectMySQL      Dialect = "mysql"
	DialectPostgres   Dialect = "postgres"
	DialectPgx        Dialect = "pgx"
	DialectMSSQL      Dialect = "mssql"
)

// IsPostgres reports whether the dialect talks to PostgreSQL, regardless of the driver.
func (d Dialect) IsPostgres() bool {
	return d == DialectPostgres || d == DialectPgx
}

// IsSQLite reports whether the dialect talks to SQLite, regardless of the driver.
func (d Dialect) IsSQLite() bool {
	return d == DialectSQLite || d == DialectSQLitePure
}

// DriverName returns the database/sql driver name registered for the dialect.
func (d Dialect) DriverName() string {
	switch d {
	case DialectSQLite:
		return "sqlite3"
	case DialectSQLitePure:
		return "sqlite"
	case DialectMySQL:
		return "mysql"
	case DialectPostgres:
		return "postgres"
	case DialectPgx:
		return "pgx"
	case DialectMSSQL:
		return "sqlserver"
	}
	return ""
}

// PostgresSSLMode defines possible values for Postgres sslmode connection parameter.
type PostgresSSLMode string

// Postgres SSL modes.
const (
	PostgresSSLModeDisable    PostgresSSLMode = "disable"
	PostgresSSLModeRequire    PostgresSSLMode = "require"
	PostgresSSLModeVerifyCA   PostgresSSLMode = "verify-ca"
	PostgresSSLModeVerifyFull PostgresSSLMode = "verify-full"
)

// Default values of connection parameters.
const (
	DefaultConnectTimeout  = 10 * time.Second
	DefaultConnMaxLifetime = 10 * time.Minute

	MySQLDefaultTxLevel    = sql.LevelReadCommitted
	PostgresDefaultTxLevel = sql.LevelReadCommitted
	MSSQLDefaultTxLevel    = sql.LevelReadCommitted

	PostgresDefaultSSLMode = PostgresSSLModeVerifyCA
)
