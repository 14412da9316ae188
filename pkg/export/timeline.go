package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/vanderheijden86/graph3d/pkg/datestate"
	"github.com/vanderheijden86/graph3d/pkg/debug"
	"github.com/vanderheijden86/graph3d/pkg/metrics"
	"github.com/vanderheijden86/graph3d/pkg/model"
	"github.com/vanderheijden86/graph3d/pkg/simulation"
	"github.com/vanderheijden86/graph3d/pkg/valuation"
	"github.com/vanderheijden86/graph3d/pkg/version"

	_ "modernc.org/sqlite"
)

const isoDate = "2006-01-02"

// TimelineExporter steps a simulation day by day and records every node's
// value and running balance. Positions are never stored.
type TimelineExporter struct {
	Graph   model.Graph
	Start   time.Time
	Days    int
	Dataset string

	// Now stamps the meta table; defaults to time.Now.
	Now func() time.Time
}

// TimelineResult summarises an export.
type TimelineResult struct {
	Path      string
	Days      int
	Rows      int
	Transfers int
}

// NewTimelineExporter creates an exporter for days steps after start.
func NewTimelineExporter(g model.Graph, start time.Time, days int) *TimelineExporter {
	return &TimelineExporter{Graph: g, Start: start, Days: days}
}

// Export writes the timeline database to path, replacing any existing file.
func (e *TimelineExporter) Export(ctx context.Context, path string) (TimelineResult, error) {
	defer metrics.Timer(metrics.Export)()

	res := TimelineResult{Path: path}
	if path == "" {
		return res, fmt.Errorf("output path is required")
	}
	if e.Days < 0 {
		return res, fmt.Errorf("days must be >= 0, got %d", e.Days)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return res, fmt.Errorf("create parent dir: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return res, fmt.Errorf("remove existing database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return res, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := CreateTimelineSchema(db); err != nil {
		return res, fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := e.insertNodes(tx); err != nil {
		return res, fmt.Errorf("insert nodes: %w", err)
	}

	timelineStmt, err := tx.Prepare(`INSERT INTO timeline (date, node_id, value, balance) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return res, err
	}
	defer timelineStmt.Close()
	transferStmt, err := tx.Prepare(`INSERT INTO transfers (date, edge_index, source, target, weight, type) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return res, err
	}
	defer transferStmt.Close()

	start := datestate.Midnight(e.Start)
	sess := simulation.New(e.Graph, false,
		datestate.WithStartDate(start),
		datestate.WithScheduler(datestate.NewManualScheduler()),
	)
	defer sess.Close()

	record := func(date time.Time) error {
		g := sess.Graph()
		values := valuation.ComputeNodeValues(g.Nodes, g.Edges)
		day := date.Format(isoDate)
		for i := range g.Nodes {
			n := &g.Nodes[i]
			var bal any
			if n.CurrentValue != nil {
				bal = *n.CurrentValue
			}
			if _, err := timelineStmt.Exec(day, n.ID, values[n.ID], bal); err != nil {
				return fmt.Errorf("timeline row %s/%s: %w", day, n.ID, err)
			}
			res.Rows++
		}
		return nil
	}

	if err := record(start); err != nil {
		return res, err
	}
	for step := 1; step <= e.Days; step++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		sess.Machine().NextDay()
		date := sess.Machine().Date()
		day := date.Format(isoDate)
		for i := range e.Graph.Edges {
			edge := &e.Graph.Edges[i]
			if !edge.ScheduledOn(date.Day()) {
				continue
			}
			if _, err := transferStmt.Exec(day, i, edge.From, edge.To, edge.Weight, edge.Type); err != nil {
				return res, fmt.Errorf("transfer row %s/%d: %w", day, i, err)
			}
			res.Transfers++
		}
		if err := record(date); err != nil {
			return res, err
		}
		res.Days++
	}

	if err := e.insertMeta(tx, start); err != nil {
		return res, fmt.Errorf("insert meta: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}
	if err := OptimizeDatabase(db); err != nil {
		return res, fmt.Errorf("optimize database: %w", err)
	}

	debug.Log("export: timeline %s: %d days, %d rows, %d transfers", path, res.Days, res.Rows, res.Transfers)
	return res, nil
}

func (e *TimelineExporter) insertNodes(tx *sql.Tx) error {
	stmt, err := tx.Prepare(`INSERT INTO nodes (id, name, type, role) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	roles := valuation.Roles(e.Graph.Nodes, e.Graph.Edges)
	for _, n := range e.Graph.Nodes {
		if _, err := stmt.Exec(n.ID, n.Name, string(n.Type.Normalize()), string(roles[n.ID])); err != nil {
			return fmt.Errorf("node %s: %w", n.ID, err)
		}
	}
	return nil
}

func (e *TimelineExporter) insertMeta(tx *sql.Tx, start time.Time) error {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	meta := map[string]string{
		"schema_version": strconv.Itoa(TimelineSchemaVersion),
		"version":        version.Version,
		"dataset":        e.Dataset,
		"start_date":     start.Format(isoDate),
		"days":           strconv.Itoa(e.Days),
		"node_count":     strconv.Itoa(len(e.Graph.Nodes)),
		"edge_count":     strconv.Itoa(len(e.Graph.Edges)),
		"generated_at":   now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if err := InsertMetaValue(tx, k, v); err != nil {
			return fmt.Errorf("meta %s: %w", k, err)
		}
	}
	return nil
}
