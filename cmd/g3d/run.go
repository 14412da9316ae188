package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/vanderheijden86/graph3d/internal/datasource"
	"github.com/vanderheijden86/graph3d/pkg/analysis"
	"github.com/vanderheijden86/graph3d/pkg/config"
	"github.com/vanderheijden86/graph3d/pkg/datestate"
	"github.com/vanderheijden86/graph3d/pkg/export"
	"github.com/vanderheijden86/graph3d/pkg/hooks"
	"github.com/vanderheijden86/graph3d/pkg/loader"
	"github.com/vanderheijden86/graph3d/pkg/model"
	"github.com/vanderheijden86/graph3d/pkg/simulation"
)

// customDataset names a graph given directly with --nodes/--edges.
const customDataset = "custom"

// resolveDataset picks the dataset from --nodes/--edges or the config.
func resolveDataset(cfg config.Config, opts options) (string, config.Dataset, error) {
	if opts.nodes != "" || opts.edges != "" {
		if opts.nodes == "" || opts.edges == "" {
			return "", config.Dataset{}, usageError{"--nodes and --edges must be given together"}
		}
		return customDataset, config.Dataset{Kind: config.KindJSON, Nodes: opts.nodes, Edges: opts.edges}, nil
	}
	name, ds, err := cfg.Resolve(config.SelectedName(opts.dataset))
	if err != nil {
		return "", config.Dataset{}, err
	}
	return name, ds, nil
}

// startDate is --date, then playback.start_date, then today.
func startDate(cfg config.Config, flagValue string, clock func() time.Time) (time.Time, error) {
	if flagValue != "" {
		d, err := config.ParseDate(flagValue)
		if err != nil {
			return time.Time{}, usageError{fmt.Sprintf("invalid --date %q: want YYYY-MM-DD", flagValue)}
		}
		return d, nil
	}
	if d, ok := cfg.StartDate(); ok {
		return d, nil
	}
	return datestate.Today(clock), nil
}

// newSession builds a playback session from the config. Extra options are
// appended last so callers can swap the scheduler or clock.
func newSession(g model.Graph, start time.Time, labels bool, pb config.PlaybackConfig, extra ...datestate.Option) *simulation.Session {
	sched := datestate.NewFrameScheduler()
	if pb.FrameInterval > 0 {
		sched.Interval = pb.FrameInterval
	}
	opts := []datestate.Option{
		datestate.WithStartDate(start),
		datestate.WithDayDuration(pb.DayDuration),
		datestate.WithScheduler(sched),
	}
	sess := simulation.New(g, labels, append(opts, extra...)...)
	sess.Machine().SetSpeedMultiplier(pb.Speed)
	if pb.Autoplay {
		sess.Machine().Play()
	}
	return sess
}

// watchPaths lists the local files behind a dataset. Remote and database
// sources are not watched.
func watchPaths(ds config.Dataset) []string {
	var locs []string
	switch ds.EffectiveKind() {
	case config.KindJSON:
		locs = []string{ds.Nodes, ds.Edges}
	case config.KindSQLite:
		locs = []string{ds.Path}
	}
	var paths []string
	for _, loc := range locs {
		if loc == "" {
			continue
		}
		if p, ok := loader.LocalPath(loc, ""); ok {
			if abs, err := filepath.Abs(p); err == nil {
				p = abs
			}
			paths = append(paths, p)
		}
	}
	return paths
}

// exportTargets lists the requested outputs as paths and format names.
func exportTargets(opts options) (paths, formats []string) {
	for _, t := range []struct{ path, format string }{
		{opts.toSQLite, "sqlite"},
		{opts.timeline, "timeline"},
		{opts.exportGraph, "graph"},
		{opts.exportScene, "scene"},
		{opts.exportSVG, "svg"},
		{opts.exportPNG, "png"},
	} {
		if t.path != "" {
			paths = append(paths, t.path)
			formats = append(formats, t.format)
		}
	}
	return paths, formats
}

// runOneShot performs every requested export between the pre- and
// post-export hooks, then returns.
func runOneShot(ctx context.Context, opts options, name string, g model.Graph, start time.Time, out io.Writer) error {
	paths, formats := exportTargets(opts)
	hookCtx := hooks.ExportContext{
		Dataset:   name,
		Paths:     paths,
		Formats:   formats,
		NodeCount: len(g.Nodes),
		EdgeCount: len(g.Edges),
		Date:      start,
		Timestamp: time.Now(),
	}
	executor, err := hooks.RunHooks(opts.hooksDir, hookCtx, opts.noHooks)
	if err != nil {
		return fmt.Errorf("hooks: %w", err)
	}
	if executor != nil {
		if err := executor.RunPreExport(); err != nil {
			fmt.Fprint(out, executor.Summary())
			return err
		}
	}

	if err := writeExports(ctx, opts, name, g, start, out); err != nil {
		return err
	}

	if executor != nil {
		err := executor.RunPostExport()
		fmt.Fprint(out, executor.Summary())
		return err
	}
	return nil
}

func writeExports(ctx context.Context, opts options, name string, g model.Graph, start time.Time, out io.Writer) error {
	if opts.toSQLite != "" {
		if err := datasource.WriteSQLite(ctx, opts.toSQLite, g); err != nil {
			return fmt.Errorf("writing %s: %w", opts.toSQLite, err)
		}
		fmt.Fprintf(out, "Wrote %d nodes and %d edges to %s\n", len(g.Nodes), len(g.Edges), opts.toSQLite)
	}

	if opts.timeline != "" {
		exp := export.NewTimelineExporter(g, start, opts.days)
		exp.Dataset = name
		res, err := exp.Export(ctx, opts.timeline)
		if err != nil {
			return fmt.Errorf("timeline: %w", err)
		}
		fmt.Fprintf(out, "Wrote %d days (%d balance rows, %d transfers) to %s\n", res.Days, res.Rows, res.Transfers, res.Path)
	}

	if opts.exportGraph != "" {
		if err := writeGraph(opts, g, out); err != nil {
			return err
		}
	}

	if opts.exportScene == "" && opts.exportSVG == "" && opts.exportPNG == "" {
		return nil
	}

	sess := simulation.New(g, opts.labels, datestate.WithStartDate(start), datestate.WithScheduler(datestate.NewManualScheduler()))
	defer sess.Close()
	if opts.selected != "" {
		if _, ok := g.NodeIndex()[opts.selected]; !ok {
			return usageError{fmt.Sprintf("--select: unknown node %q", opts.selected)}
		}
		sess.Click(opts.selected)
	}
	stats := analysis.GetGlobalCache().Analyze(g)
	scene := export.BuildScene(sess.Snapshot(), export.SceneOptions{Dataset: name, Edges: g.Edges, Stats: &stats})

	if opts.exportScene != "" {
		if err := export.SaveScene(opts.exportScene, scene); err != nil {
			return fmt.Errorf("scene: %w", err)
		}
		fmt.Fprintf(out, "Wrote scene with %d nodes to %s\n", len(scene.Nodes), opts.exportScene)
	}
	for _, snap := range []struct{ path, format string }{{opts.exportSVG, "svg"}, {opts.exportPNG, "png"}} {
		if snap.path == "" {
			continue
		}
		if err := export.SaveSnapshot(export.SnapshotOptions{Path: snap.path, Format: snap.format, Scene: scene}); err != nil {
			return fmt.Errorf("%s snapshot: %w", snap.format, err)
		}
		fmt.Fprintf(out, "Wrote %s snapshot to %s\n", snap.format, snap.path)
	}
	return nil
}

// graphFormat is --graph-format, else guessed from the output extension.
func graphFormat(opts options) export.GraphExportFormat {
	if opts.graphFormat != "" {
		return export.GraphExportFormat(strings.ToLower(opts.graphFormat))
	}
	switch strings.ToLower(filepath.Ext(opts.exportGraph)) {
	case ".dot", ".gv":
		return export.GraphFormatDOT
	case ".mmd", ".mermaid":
		return export.GraphFormatMermaid
	default:
		return export.GraphFormatJSON
	}
}

func writeGraph(opts options, g model.Graph, out io.Writer) error {
	if opts.graphRoot != "" {
		if _, ok := g.NodeIndex()[opts.graphRoot]; !ok {
			return usageError{fmt.Sprintf("--graph-root: unknown node %q", opts.graphRoot)}
		}
	}
	stats := analysis.GetGlobalCache().Analyze(g)
	res, err := export.ExportGraph(g, &stats, export.GraphExportConfig{
		Format: graphFormat(opts),
		Tag:    opts.graphTag,
		Root:   opts.graphRoot,
		Depth:  opts.graphDepth,
	})
	if err != nil {
		return usageError{err.Error()}
	}
	if err := export.SaveGraph(opts.exportGraph, res); err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	fmt.Fprintf(out, "Wrote %s graph (%d nodes, %d edges) to %s\n", res.Format, res.Nodes, res.Edges, opts.exportGraph)
	return nil
}
