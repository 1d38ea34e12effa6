/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/acronis/go-appkit/log"
	"github.com/cenkalti/backoff/v4"

	"github.com/acronis/go-dbjournal"
	"github.com/acronis/go-dbjournal/journal/sqldb"
	"github.com/acronis/go-dbjournal/migrate"
)

//go:embed mysql/*.sql
//go:embed postgres/*.sql
var migrationFS embed.FS

const (
	driverMySQL    = "mysql"
	driverPostgres = "postgres"
)

func main() {
	if err := runMigrations(); err != nil {
		stdlog.Fatal(err)
	}
}

func runMigrations() error {
	var migrateDown bool
	flag.BoolVar(&migrateDown, "down", false, "migrate down")
	var dryRun bool
	flag.BoolVar(&dryRun, "dry-run", false, "print statements without executing them")
	var driverName string
	flag.StringVar(&driverName, "driver", "", "driver name, supported values: mysql, postgres, pgx")
	flag.Parse()

	migrationDirection := migrate.DirectionUp
	if migrateDown {
		migrationDirection = migrate.DirectionDown
	}

	dialect, migrationDirName, err := parseDialectFromDriver(driverName)
	if err != nil {
		return fmt.Errorf("parse dialect: %w", err)
	}

	logger, loggerClose := log.NewLogger(&log.Config{Output: log.OutputStderr, Level: log.LevelInfo})
	defer loggerClose()

	ctx := context.Background()
	cfg := dbjournal.NewDefaultConfig(nil)
	cfg.Dialect = dialect
	cfg.URL = os.Getenv("DB_DSN")

	client, err := sqldb.Connect(ctx, cfg, sqldb.WithLogger(logger))
	if err != nil {
		return err
	}
	defer client.Close(ctx) // nolint: errcheck

	retryPolicy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(backoff.WithInitialInterval(50*time.Millisecond)), 3)
	migrationManager, err := migrate.NewManager(client, logger, migrate.WithRetryPolicy(retryPolicy))
	if err != nil {
		return err
	}
	migrations, err := migrate.LoadAllFSMigrations(migrationFS, migrationDirName)
	if err != nil {
		return fmt.Errorf("make embed fs migrations: %w", err)
	}

	if dryRun {
		statements, dryRunErr := migrationManager.DryRun(ctx, migrations, migrationDirection)
		if dryRunErr != nil {
			return dryRunErr
		}
		fmt.Println(strings.Join(statements, "\n"))
		return nil
	}
	_, err = migrationManager.Run(ctx, migrations, migrationDirection)
	return err
}

func parseDialectFromDriver(driverName string) (dialect dbjournal.Dialect, migrationDirName string, err error) {
	switch driverName {
	case driverMySQL:
		return dbjournal.DialectMySQL, driverMySQL, nil
	case driverPostgres:
		return dbjournal.DialectPostgres, driverPostgres, nil
	case "pgx":
		return dbjournal.DialectPgx, driverPostgres, nil
	default:
		return "", "", fmt.Errorf("unknown driver name: %s", driverName)
	}
}
