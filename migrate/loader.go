/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

const (
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
)

// LoadAllFSMigrations loads all migrations from a directory of fsys (usually an embed.FS).
// It expects files in the format: <id>.up.sql and <id>.down.sql
func LoadAllFSMigrations(fsys fs.FS, dirName string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dirName)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dirName, err)
	}

	migrationIDs := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, upSuffix):
			migrationIDs[strings.TrimSuffix(name, upSuffix)] = struct{}{}
		case strings.HasSuffix(name, downSuffix):
			migrationIDs[strings.TrimSuffix(name, downSuffix)] = struct{}{}
		}
	}

	ids := make([]string, 0, len(migrationIDs))
	for id := range migrationIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return LoadFSMigrations(fsys, dirName, ids)
}

// LoadFSMigrations loads specific migrations by ID from a directory of fsys.
// Both the up and the down file must exist.
func LoadFSMigrations(fsys fs.FS, dirName string, ids []string) ([]Migration, error) {
	migrations := make([]Migration, 0, len(ids))
	for _, id := range ids {
		upContent, err := fs.ReadFile(fsys, path.Join(dirName, id+upSuffix))
		if err != nil {
			return nil, fmt.Errorf("read up migration %s: %w", id, err)
		}
		downContent, err := fs.ReadFile(fsys, path.Join(dirName, id+downSuffix))
		if err != nil {
			return nil, fmt.Errorf("read down migration %s: %w", id, err)
		}
		migrations = append(migrations, NewMigration(id, "", parseSQL(string(upContent)), parseSQL(string(downContent))))
	}
	return migrations, nil
}

// nameFromID turns "0002_create_posts" into "create posts".
func nameFromID(id string) string {
	name := id
	if i := strings.IndexByte(id, '_'); i >= 0 && i < len(id)-1 {
		name = id[i+1:]
	}
	return strings.ReplaceAll(name, "_", " ")
}

// parseSQL splits SQL content into individual statements.
// Statements end with a semicolon at the end of a line. Whole-line comments are dropped.
func parseSQL(content string) []string {
	var statements []string
	var currentStmt strings.Builder

	flush := func() {
		stmt := strings.TrimSpace(currentStmt.String())
		if stmt != "" && stmt != ";" {
			statements = append(statements, stmt)
		}
		currentStmt.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") || strings.HasPrefix(trimmed, "#") {
			continue
		}
		currentStmt.WriteString(line)
		currentStmt.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			flush()
		}
	}
	flush()

	return statements
}
