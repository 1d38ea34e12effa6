/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package dbjournal_test

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/acronis/go-appkit/config"
	applog "github.com/acronis/go-appkit/log"

	"github.com/acronis/go-dbjournal"
	"github.com/acronis/go-dbjournal/journal"
	"github.com/acronis/go-dbjournal/journal/memory"
	"github.com/acronis/go-dbjournal/journal/sqldb"
	"github.com/acronis/go-dbjournal/migrate"
)

func Example() {
	ctx := context.Background()

	// Load the journal database settings. Any config.DataProvider source works (files, env).
	dir, err := os.MkdirTemp("", "dbjournal-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir) // nolint: errcheck
	cfgData := fmt.Sprintf("db:\n  dialect: sqlite\n  sqlite3:\n    path: %s\n", filepath.Join(dir, "app.db"))
	cfg := dbjournal.NewDefaultConfig(nil)
	if err = config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(cfgData), config.DataTypeYAML, cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	client, err := sqldb.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer client.Close(ctx) // nolint: errcheck

	// Run the migration and its journal record in one transaction.
	if err = client.EnsureJournal(ctx, "schema_migrations"); err != nil {
		log.Fatal(err)
	}
	if err = client.BeginTx(ctx); err != nil {
		log.Fatal(err)
	}
	if err = client.RunMigrationSQL(ctx, "CREATE TABLE users (id INTEGER PRIMARY KEY)"); err != nil {
		_ = client.Rollback(ctx)
		log.Fatal(err)
	}
	in := journal.EntryIn{Operation: journal.OperationApply, MigrationID: "0001", MigrationName: "create users"}
	if _, err = client.AppendJournal(ctx, "schema_migrations", in); err != nil {
		_ = client.Rollback(ctx)
		log.Fatal(err)
	}
	if err = client.Commit(ctx); err != nil {
		log.Fatal(err)
	}

	entries, err := client.ReadJournal(ctx, "schema_migrations")
	if err != nil {
		log.Fatal(err)
	}
	for _, entry := range entries {
		fmt.Println(entry.Operation, entry.MigrationID, entry.MigrationName)
	}

	// Output:
	// APPLY 0001 create users
}

func Example_memoryBackend() {
	ctx := context.Background()

	// The in-memory backend behaves like a database and records every statement it was given.
	client, err := memory.Connect(ctx, memory.Config{})
	if err != nil {
		log.Fatal(err)
	}
	mgr, err := migrate.NewManager(client, applog.NewDisabledLogger())
	if err != nil {
		log.Fatal(err)
	}
	migrations := []migrate.Migration{
		migrate.NewMigration("0001_create_users", "", []string{"CREATE TABLE users (id INT)"}, []string{"DROP TABLE users"}),
		migrate.NewMigration("0002_create_posts", "", []string{"CREATE TABLE posts (id INT)"}, []string{"DROP TABLE posts"}),
	}
	if _, err = mgr.Run(ctx, migrations, migrate.DirectionUp); err != nil {
		log.Fatal(err)
	}
	if _, err = mgr.RunLimit(ctx, migrations, migrate.DirectionDown, 1); err != nil {
		log.Fatal(err)
	}

	entries, err := client.ReadJournal(ctx, migrate.DefaultTableName)
	if err != nil {
		log.Fatal(err)
	}
	for _, entry := range entries {
		fmt.Println(entry.Operation, entry.MigrationID)
	}
	fmt.Println(client.Statements())

	// Output:
	// APPLY 0001_create_users
	// APPLY 0002_create_posts
	// REVERT 0002_create_posts
	// [CREATE TABLE users (id INT) CREATE TABLE posts (id INT) DROP TABLE posts]
}
