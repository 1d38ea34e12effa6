/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package dbjournal

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// MakeMSSQLDSN makes DSN for opening MSSQL database with the "sqlserver" driver.
func MakeMSSQLDSN(cfg *MSSQLConfig) string {
	const dbKey = "database"
	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		RawQuery: url.Values{dbKey: []string{cfg.Database}}.Encode(),
	}
	return appendURLParameters(u, cfg.AdditionalParameters, dbKey)
}

// MakeMySQLDSN makes DSN for opening MySQL database.
// Statements are auto-committed outside of explicit transactions, so journal writes made without
// BeginTx are durable immediately. Multi-statement migration scripts are allowed.
func MakeMySQLDSN(cfg *MySQLConfig) string {
	c := mysql.NewConfig()
	c.Net = "tcp"
	c.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.DBName = cfg.Database
	c.ParseTime = true
	c.MultiStatements = true
	return c.FormatDSN()
}

// MakePostgresDSN makes DSN for opening Postgres database.
func MakePostgresDSN(cfg *PostgresConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = PostgresDefaultSSLMode
	}
	query := "sslmode=" + url.QueryEscape(string(sslMode))
	ignore := []string{"sslmode"}
	if cfg.SearchPath != "" {
		query += "&search_path=" + url.QueryEscape(cfg.SearchPath)
		ignore = append(ignore, "search_path")
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     cfg.Database,
		RawQuery: query,
	}
	return appendURLParameters(u, cfg.AdditionalParameters, ignore...)
}

// MakeSQLiteDSN makes DSN for opening SQLite database.
func MakeSQLiteDSN(cfg *SQLiteConfig) string {
	return cfg.Path
}

// appendURLParameters adds params to the query of u in a deterministic order.
// Parameters named in reserved are already part of the query and are never overridden.
func appendURLParameters(u url.URL, params map[string]string, reserved ...string) string {
	if len(params) == 0 {
		return u.String()
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		skip := false
		for _, r := range reserved {
			if k == r {
				skip = true
				break
			}
		}
		if !skip {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+url.QueryEscape(params[k]))
	}
	if len(parts) != 0 {
		u.RawQuery += "&" + strings.Join(parts, "&")
	}
	return u.String()
}
