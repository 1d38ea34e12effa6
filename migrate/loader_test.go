/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate_test

import (
	"embed"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-dbjournal/migrate"
)

//go:embed testdata/*.sql
var testdataFS embed.FS

func TestLoadAllFSMigrations(t *testing.T) {
	migrations, err := migrate.LoadAllFSMigrations(testdataFS, "testdata")
	require.NoError(t, err, "Failed to load migrations")
	require.Len(t, migrations, 2, "Expected 2 migrations")

	assert.Equal(t, "0001_create_users", migrations[0].ID())
	assert.Equal(t, "create users", migrations[0].Name())
	assert.Equal(t, "0002_create_posts", migrations[1].ID())
	assert.Equal(t, "create posts", migrations[1].Name())

	assert.Equal(t, []string{
		"CREATE TABLE users (\n    id INTEGER PRIMARY KEY,\n    name TEXT NOT NULL\n);",
		"CREATE INDEX users_name_idx ON users (name);",
	}, migrations[0].UpSQL())
	assert.Equal(t, []string{"DROP INDEX users_name_idx;", "DROP TABLE users;"}, migrations[0].DownSQL())
}

func TestLoadFSMigrations_Selective(t *testing.T) {
	migrations, err := migrate.LoadFSMigrations(testdataFS, "testdata", []string{"0002_create_posts"})
	require.NoError(t, err, "Failed to load migrations")
	require.Len(t, migrations, 1, "Expected 1 migration")

	assert.Equal(t, "0002_create_posts", migrations[0].ID())
	assert.NotEmpty(t, migrations[0].UpSQL(), "Expected up SQL to be loaded")
	assert.NotEmpty(t, migrations[0].DownSQL(), "Expected down SQL to be loaded")
}

func TestLoadFSMigrations_MissingFile(t *testing.T) {
	_, err := migrate.LoadFSMigrations(testdataFS, "testdata", []string{"9999_nonexistent"})
	assert.Error(t, err, "Expected error when loading nonexistent migration")

	fsys := fstest.MapFS{
		"migrations/0001_init.up.sql": &fstest.MapFile{Data: []byte("CREATE TABLE t (id INT);")},
	}
	_, err = migrate.LoadAllFSMigrations(fsys, "migrations")
	assert.ErrorContains(t, err, "read down migration 0001_init")
}

func TestLoadAllFSMigrations_StatementsWithoutTrailingSemicolon(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0001_init.up.sql":   &fstest.MapFile{Data: []byte("# comment\nCREATE TABLE t (id INT)\n")},
		"m/0001_init.down.sql": &fstest.MapFile{Data: []byte("\n;\n")},
		"m/README.md":          &fstest.MapFile{Data: []byte("ignored")},
	}
	migrations, err := migrate.LoadAllFSMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, migrations, 1)
	assert.Equal(t, []string{"CREATE TABLE t (id INT)"}, migrations[0].UpSQL())
	assert.Empty(t, migrations[0].DownSQL())
	assert.Equal(t, "init", migrations[0].Name())
}
