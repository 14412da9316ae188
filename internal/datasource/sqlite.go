package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/graph3d/pkg/debug"
	"github.com/vanderheijden86/graph3d/pkg/loader"
	"github.com/vanderheijden86/graph3d/pkg/model"
)

// Schema is the layout a SQLite dataset must follow. Tags are JSON arrays
// stored as text.
const Schema = `
CREATE TABLE IF NOT EXISTS nodes (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL DEFAULT '',
    type          TEXT NOT NULL DEFAULT 'default',
    tags          TEXT NOT NULL DEFAULT '[]',
    current_value REAL
);
CREATE TABLE IF NOT EXISTS edges (
    rowid_order   INTEGER PRIMARY KEY AUTOINCREMENT,
    source        TEXT NOT NULL,
    target        TEXT NOT NULL,
    weight        REAL NOT NULL DEFAULT 0,
    type          TEXT NOT NULL DEFAULT 'default',
    day_of_month  INTEGER,
    tags          TEXT NOT NULL DEFAULT '[]',
    notes         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_edges_day ON edges(day_of_month);
`

// SQLiteSource reads a graph from a SQLite database.
type SQLiteSource struct {
	db   *sql.DB
	path string
	opts loader.Options
}

// NewSQLiteSource opens path read-only.
func NewSQLiteSource(path string, opts loader.Options) (*SQLiteSource, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite source needs a path")
	}
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA cache_size = -16000",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := db.Exec(pragma); err != nil {
			debug.Log("datasource: %s failed: %v", pragma, err)
		}
	}
	return &SQLiteSource{db: db, path: path, opts: opts}, nil
}

func (s *SQLiteSource) Load(ctx context.Context) (model.Graph, error) {
	nodes, err := s.queryNodes(ctx)
	if err != nil {
		return model.Graph{}, &loader.LoadError{Location: s.path, Err: err}
	}
	edges, err := s.queryEdges(ctx)
	if err != nil {
		return model.Graph{}, &loader.LoadError{Location: s.path, Err: err}
	}
	g, err := fromRecords(nodes, edges, s.opts)
	if err != nil {
		return model.Graph{}, &loader.LoadError{Location: s.path, Err: err}
	}
	return g, nil
}

func (s *SQLiteSource) queryNodes(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, type, tags, current_value FROM nodes ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var id, name, typ, tags string
		var current sql.NullFloat64
		if err := rows.Scan(&id, &name, &typ, &tags, &current); err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		rec := Record{"id": id, "name": name, "type": typ, "tags": parseJSONStringArray(tags)}
		if current.Valid {
			rec["currentValue"] = current.Float64
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteSource) queryEdges(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, target, weight, type, day_of_month, tags, notes FROM edges ORDER BY rowid_order`)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var source, target, typ, tags, notes string
		var weight float64
		var day sql.NullInt64
		if err := rows.Scan(&source, &target, &weight, &typ, &day, &tags, &notes); err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}
		rec := Record{
			"source": source,
			"target": target,
			"weight": weight,
			"type":   typ,
			"tags":   parseJSONStringArray(tags),
			"notes":  notes,
		}
		if day.Valid {
			rec["dayOfMonth"] = day.Int64
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteSource) WatchPaths() []string { return []string{s.path} }

func (s *SQLiteSource) String() string { return "sqlite(" + s.path + ")" }

// Close closes the database connection.
func (s *SQLiteSource) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// WriteSQLite stores g in a new or existing database at path, replacing any
// previous graph. Balances are written as current_value.
func WriteSQLite(ctx context.Context, path string, g model.Graph) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM nodes", "DELETE FROM edges"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clearing tables: %w", err)
		}
	}

	nodeStmt, err := tx.PrepareContext(ctx, `INSERT INTO nodes (id, name, type, tags, current_value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare node insert: %w", err)
	}
	defer nodeStmt.Close()
	for _, n := range g.Nodes {
		var current any
		if n.CurrentValue != nil {
			current = *n.CurrentValue
		}
		if _, err := nodeStmt.ExecContext(ctx, n.ID, n.Name, string(n.Type), encodeTags(n.Tags), current); err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO edges (source, target, weight, type, day_of_month, tags, notes) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare edge insert: %w", err)
	}
	defer edgeStmt.Close()
	for _, e := range g.Edges {
		var day any
		if e.DayOfMonth != nil {
			day = *e.DayOfMonth
		}
		if _, err := edgeStmt.ExecContext(ctx, e.From, e.To, e.Weight, e.Type, day, encodeTags(e.Tags), e.Notes); err != nil {
			return fmt.Errorf("insert edge %s->%s: %w", e.From, e.To, err)
		}
	}
	return tx.Commit()
}

func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// parseJSONStringArray parses a JSON array of strings, tolerating the
// bracketed comma lists older tools wrote.
func parseJSONStringArray(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" || s == "[]" {
		return []string{}
	}

	var result []string
	if err := json.Unmarshal([]byte(s), &result); err != nil {
		result = nil
		s = strings.TrimPrefix(s, "[")
		s = strings.TrimSuffix(s, "]")
		for _, item := range strings.Split(s, ",") {
			item = strings.TrimSpace(item)
			item = strings.Trim(item, `"`)
			if item != "" {
				result = append(result, item)
			}
		}
	}
	if result == nil {
		result = []string{}
	}
	return result
}
