/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package migrate runs schema migrations and records them in a migration journal.
//
// The Manager only depends on journal.Client, so the same migrations run against a real
// database (journal/sqldb) and against the in-memory backend (journal/memory) in tests.
// Every applied or reverted migration appends one APPLY or REVERT entry to the journal;
// the set of applied migrations is the fold of the journal in timestamp order.
//
// Key features:
//   - Support for SQL migrations from any fs.FS (embed.FS included)
//   - Per-migration transaction control (TxDisabler interface)
//   - Retries of transactional migrations on deadlocks and serialization failures
//   - Dry runs against an in-memory copy of the journal
//
// Basic usage:
//
//	//go:embed migrations/*.sql
//	var migrationFS embed.FS
//
//	func applyMigrations(ctx context.Context, cfg *dbjournal.Config, logger log.FieldLogger) error {
//	    client, err := sqldb.Connect(ctx, cfg, sqldb.WithLogger(logger))
//	    if err != nil {
//	        return err
//	    }
//	    defer client.Close(ctx)
//
//	    mgr, err := migrate.NewManager(client, logger)
//	    if err != nil {
//	        return err
//	    }
//
//	    migrations, err := migrate.LoadAllFSMigrations(migrationFS, "migrations")
//	    if err != nil {
//	        return err
//	    }
//
//	    _, err = mgr.Run(ctx, migrations, migrate.DirectionUp)
//	    return err
//	}
package migrate
