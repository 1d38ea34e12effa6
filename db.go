/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package dbjournal provides configuration, connection and instrumentation helpers for the
// relational migration journal backend (see the journal/sqldb package).
package dbjournal

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Open opens the database described by cfg and configures the connection pool.
// The driver for cfg.Dialect must be registered (importing journal/sqldb registers all supported drivers).
// If ping is true, the database is pinged within cfg.ConnectTimeout.
func Open(cfg *Config, ping bool) (*sql.DB, error) {
	driverName, dsn := cfg.DriverNameAndDSN()
	if driverName == "" {
		return nil, fmt.Errorf("unsupported dialect %q", cfg.Dialect)
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A journal client pins a single connection for its whole life.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime))

	if ping {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeoutOrDefault())
		defer cancel()
		if err = db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
	}
	return db, nil
}

// ConnectTimeoutOrDefault returns ConnectTimeout, or DefaultConnectTimeout when it is not set.
func (c *Config) ConnectTimeoutOrDefault() time.Duration {
	if c.ConnectTimeout <= 0 {
		return DefaultConnectTimeout
	}
	return time.Duration(c.ConnectTimeout)
}
