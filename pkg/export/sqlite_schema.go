package export

import (
	"database/sql"
	"fmt"
)

// TimelineSchemaVersion is stored in the meta table of every timeline file.
const TimelineSchemaVersion = 1

// CreateTimelineSchema creates the balance history tables.
func CreateTimelineSchema(db *sql.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"nodes", `
			CREATE TABLE IF NOT EXISTS nodes (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				type TEXT NOT NULL,
				role TEXT NOT NULL
			)`},
		{"timeline", `
			CREATE TABLE IF NOT EXISTS timeline (
				date TEXT NOT NULL,
				node_id TEXT NOT NULL,
				value REAL NOT NULL,
				balance REAL,
				PRIMARY KEY (date, node_id),
				FOREIGN KEY (node_id) REFERENCES nodes(id)
			)`},
		{"transfers", `
			CREATE TABLE IF NOT EXISTS transfers (
				date TEXT NOT NULL,
				edge_index INTEGER NOT NULL,
				source TEXT NOT NULL,
				target TEXT NOT NULL,
				weight REAL NOT NULL,
				type TEXT NOT NULL DEFAULT 'default',
				PRIMARY KEY (date, edge_index)
			)`},
		{"meta", `
			CREATE TABLE IF NOT EXISTS meta (
				key TEXT PRIMARY KEY,
				value TEXT
			)`},
	}
	for _, s := range stmts {
		if _, err := db.Exec(s.sql); err != nil {
			return fmt.Errorf("create %s table: %w", s.name, err)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_timeline_node ON timeline(node_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_transfers_source ON transfers(source)`,
		`CREATE INDEX IF NOT EXISTS idx_transfers_target ON transfers(target)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// OptimizeDatabase compacts the file. Call it as the final step before
// closing the database.
func OptimizeDatabase(db *sql.DB) error {
	for _, pragma := range []string{`PRAGMA journal_mode=DELETE`, `ANALYZE`, `PRAGMA optimize`} {
		if _, err := db.Exec(pragma); err != nil {
			// Some pragmas may fail depending on state, continue
			continue
		}
	}
	if _, err := db.Exec(`VACUUM`); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// InsertMetaValue inserts or updates a metadata key-value pair.
func InsertMetaValue(db execer, key, value string) error {
	_, err := db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, value)
	return err
}
