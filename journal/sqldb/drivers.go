/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package sqldb

// Register database/sql drivers for every supported dialect.
import (
	_ "github.com/go-sql-driver/mysql"  // mysql
	_ "github.com/jackc/pgx/v5/stdlib"  // pgx
	_ "github.com/lib/pq"               // postgres
	_ "github.com/mattn/go-sqlite3"     // sqlite3
	_ "github.com/microsoft/go-mssqldb" // sqlserver
	_ "modernc.org/sqlite"              // sqlite
)
