/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package sqldb

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	sqlite3 "github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/acronis/go-dbjournal/journal"
)

// Native error numbers and messages.
const (
	mySQLErrTableExists      = 1050
	mySQLErrNoSuchTable      = 1146
	mySQLErrLockWaitTimeout  = 1205
	mySQLErrLockDeadlock     = 1213
	msSQLErrInvalidObject    = 208
	msSQLErrDeadlockVictim   = 1205
	msSQLErrObjectExists     = 2714
	sqliteNoSuchTableMessage = "no such table"
	sqliteTableExistsMessage = "already exists"
)

// nativeError is the dialect-independent classification of a driver error.
type nativeError struct {
	code           string
	retryable      bool
	undefinedTable bool
	duplicateTable bool
}

func classifyError(err error) nativeError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyPostgresCode(pgErr.Code)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return classifyPostgresCode(string(pqErr.Code))
	}
	var mySQLErr *mysql.MySQLError
	if errors.As(err, &mySQLErr) {
		return nativeError{
			code:           strconv.Itoa(int(mySQLErr.Number)),
			retryable:      mySQLErr.Number == mySQLErrLockDeadlock || mySQLErr.Number == mySQLErrLockWaitTimeout,
			undefinedTable: mySQLErr.Number == mySQLErrNoSuchTable,
			duplicateTable: mySQLErr.Number == mySQLErrTableExists,
		}
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return classifySQLite(int(sqliteErr.Code), sqliteErr.Error())
	}
	var pureSQLiteErr *sqlite.Error
	if errors.As(err, &pureSQLiteErr) {
		return classifySQLite(pureSQLiteErr.Code()&0xff, pureSQLiteErr.Error())
	}
	var msSQLErr interface{ SQLErrorNumber() int32 }
	if errors.As(err, &msSQLErr) {
		number := msSQLErr.SQLErrorNumber()
		return nativeError{
			code:           strconv.Itoa(int(number)),
			retryable:      number == msSQLErrDeadlockVictim,
			undefinedTable: number == msSQLErrInvalidObject,
			duplicateTable: number == msSQLErrObjectExists,
		}
	}
	return nativeError{}
}

func classifyPostgresCode(code string) nativeError {
	return nativeError{
		code:           code,
		retryable:      code == pgerrcode.SerializationFailure || code == pgerrcode.DeadlockDetected,
		undefinedTable: code == pgerrcode.UndefinedTable,
		// Concurrent CREATE TABLE IF NOT EXISTS may fail on the catalog's unique index.
		duplicateTable: code == pgerrcode.DuplicateTable || code == pgerrcode.UniqueViolation,
	}
}

func classifySQLite(primaryCode int, msg string) nativeError {
	return nativeError{
		code:           strconv.Itoa(primaryCode),
		retryable:      primaryCode == sqlitelib.SQLITE_BUSY || primaryCode == sqlitelib.SQLITE_LOCKED,
		undefinedTable: primaryCode == sqlitelib.SQLITE_ERROR && strings.Contains(msg, sqliteNoSuchTableMessage),
		duplicateTable: primaryCode == sqlitelib.SQLITE_ERROR && strings.Contains(msg, sqliteTableExistsMessage),
	}
}

// newStatementError wraps the driver error keeping the native diagnostic.
func newStatementError(statement string, err error) *journal.StatementError {
	ne := classifyError(err)
	return &journal.StatementError{Statement: statement, Code: ne.code, Retryable: ne.retryable, Err: err}
}

// newTableStatementError is newStatementError for statements on a journal table:
// a missing table is reported as *journal.NoSuchJournalError.
func newTableStatementError(table, statement string, err error) error {
	stmtErr := newStatementError(statement, err)
	if classifyError(err).undefinedTable {
		return &journal.NoSuchJournalError{Table: table, Err: stmtErr}
	}
	return stmtErr
}
