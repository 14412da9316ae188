package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/vanderheijden86/graph3d/internal/datasource"
	"github.com/vanderheijden86/graph3d/pkg/config"
	"github.com/vanderheijden86/graph3d/pkg/debug"
	"github.com/vanderheijden86/graph3d/pkg/loader"
	"github.com/vanderheijden86/graph3d/pkg/metrics"
	"github.com/vanderheijden86/graph3d/pkg/model"
	"github.com/vanderheijden86/graph3d/pkg/server"
	"github.com/vanderheijden86/graph3d/pkg/ui"
	"github.com/vanderheijden86/graph3d/pkg/version"
	"github.com/vanderheijden86/graph3d/pkg/watcher"

	tea "github.com/charmbracelet/bubbletea"
)

type options struct {
	dataset  string
	nodes    string
	edges    string
	date     string
	labels   bool
	selected string

	exportScene string
	exportSVG   string
	exportPNG   string
	timeline    string
	exportGraph string
	graphFormat string
	graphRoot   string
	graphDepth  int
	graphTag    string
	days        int
	toSQLite    string
	serve       string
	noWatch     bool
	noHooks     bool
	hooksDir    string
}

func (o options) oneShot() bool {
	return o.exportScene != "" || o.exportSVG != "" || o.exportPNG != "" || o.timeline != "" || o.toSQLite != "" || o.exportGraph != ""
}

func main() {
	var opts options
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	stats := flag.Bool("stats", false, "Print timing stats to stderr on exit")
	flag.StringVar(&opts.dataset, "config", "", "Dataset name from config.yaml (default: $G3D_CONFIG or 'default')")
	flag.StringVar(&opts.nodes, "nodes", "", "Nodes JSON file or URL (overrides --config, needs --edges)")
	flag.StringVar(&opts.edges, "edges", "", "Edges JSON file or URL (overrides --config, needs --nodes)")
	flag.StringVar(&opts.date, "date", "", "Start date YYYY-MM-DD (default: playback.start_date or today)")
	flag.BoolVar(&opts.labels, "labels", false, "Start with labels shown")
	flag.StringVar(&opts.selected, "select", "", "Focus this node ID in exports")
	flag.StringVar(&opts.exportScene, "export-scene", "", "Write the scene as JSON and exit")
	flag.StringVar(&opts.exportSVG, "export-svg", "", "Write an SVG snapshot and exit")
	flag.StringVar(&opts.exportPNG, "export-png", "", "Write a PNG snapshot and exit")
	flag.StringVar(&opts.timeline, "timeline", "", "Write a SQLite balance timeline and exit")
	flag.IntVar(&opts.days, "days", 31, "Days to simulate for --timeline")
	flag.StringVar(&opts.exportGraph, "export-graph", "", "Write the flow graph as DOT, Mermaid or JSON and exit")
	flag.StringVar(&opts.graphFormat, "graph-format", "", "Format for --export-graph: dot, mermaid or json (default: from file extension)")
	flag.StringVar(&opts.graphRoot, "graph-root", "", "Limit --export-graph to nodes reachable from this node ID")
	flag.IntVar(&opts.graphDepth, "graph-depth", 0, "Max hops from --graph-root (0 = unlimited)")
	flag.StringVar(&opts.graphTag, "graph-tag", "", "Limit --export-graph to nodes with this tag")
	flag.StringVar(&opts.toSQLite, "to-sqlite", "", "Convert the dataset into a SQLite graph database and exit")
	flag.StringVar(&opts.serve, "serve", "", "Serve the scene API on ADDR (e.g. 127.0.0.1:8080)")
	flag.BoolVar(&opts.noWatch, "no-watch", false, "Do not reload when data files change")
	flag.BoolVar(&opts.noHooks, "no-hooks", false, "Skip .g3d/hooks.yaml around exports")
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fmt.Println("Usage: g3d [options]")
		fmt.Println("\nA 3D money-flow graph viewer for the terminal.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("g3d %s\n", version.Version)
		os.Exit(0)
	}

	if *stats {
		defer printStats(os.Stderr)
	}

	if err := run(opts); err != nil {
		var usage usageError
		if errors.As(err, &usage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// usageError marks bad flag combinations (exit code 2).
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func run(opts options) error {
	cfg, err := config.Load()
	if err != nil {
		// Non-fatal: continue with built-in datasets
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}
	debug.Dump("playback", cfg.Playback)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.serve != "" {
		addr := opts.serve
		fmt.Fprintf(os.Stderr, "g3d %s serving on http://%s\n", version.Version, addr)
		return server.New(cfg).Run(ctx, addr)
	}

	name, ds, err := resolveDataset(cfg, opts)
	if err != nil {
		return err
	}
	start, err := startDate(cfg, opts.date, time.Now)
	if err != nil {
		return err
	}
	debug.Log("dataset %q (%s), start %s", name, ds.EffectiveKind(), start.Format("2006-01-02"))

	g, err := datasource.Load(ctx, ds, loader.Options{})
	if err != nil {
		return fmt.Errorf("loading dataset %q: %w", name, err)
	}

	if opts.oneShot() {
		return runOneShot(ctx, opts, name, g, start, os.Stdout)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return usageError{"the viewer needs a terminal; use --export-scene, --export-svg, --export-png, --export-graph, --timeline or --serve"}
	}

	sess := newSession(g, start, opts.labels || cfg.UI.Labels, cfg.Playback)
	defer sess.Close()

	uiOpts := []ui.Option{
		ui.WithDataset(name),
		ui.WithDetailPane(cfg.UI.DetailPane),
		ui.WithMarkdownStyle(cfg.UI.Theme),
	}
	if cfg.UI.Watch && !opts.noWatch {
		if w := startWatcher(ds); w != nil {
			defer w.Stop()
			uiOpts = append(uiOpts, ui.WithWatcher(w, func() (model.Graph, error) {
				return datasource.Load(ctx, ds, loader.Options{WarningHandler: func(msg string) {
					debug.Log("reload warning: %s", msg)
				}})
			}))
		}
	}

	// The TUI owns stderr while running.
	debug.SetOutput(io.Discard)
	if path := os.Getenv("G3D_DEBUG_LOG"); path != "" {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			defer f.Close()
			debug.SetOutput(f)
		}
	}

	return runTUIProgram(ui.NewModel(sess, uiOpts...))
}

func startWatcher(ds config.Dataset) *watcher.Watcher {
	paths := watchPaths(ds)
	if len(paths) == 0 {
		return nil
	}
	w, err := watcher.New(paths, watcher.WithOnError(func(err error) {
		debug.Log("watcher: %v", err)
	}))
	if err != nil {
		debug.Log("watcher disabled: %v", err)
		return nil
	}
	if err := w.Start(); err != nil {
		debug.Log("watcher disabled: %v", err)
		return nil
	}
	return w
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set G3D_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("G3D_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()
			}()
		}
	}

	_, err := p.Run()
	if err != nil && (errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted)) {
		return nil
	}
	return err
}

func printStats(w io.Writer) {
	all := metrics.AllTimingStats()
	if len(all) == 0 {
		return
	}
	fmt.Fprintln(w, "\nTiming:")
	for _, s := range all {
		fmt.Fprintf(w, "  %-14s %6d calls  avg %s  max %s\n", s.Name, s.Count, formatMs(s.AvgMs), formatMs(s.MaxMs))
	}
	fmt.Fprintf(w, "  %-14s %6d\n", metrics.DayAdvances.Name(), metrics.DayAdvances.Value())
}

func formatMs(ms float64) string {
	if ms < 1 {
		return fmt.Sprintf("%6.2fms", ms)
	}
	return fmt.Sprintf("%6.0fms", ms)
}
