// Package loader reads the node and edge documents from disk or HTTP and
// normalises them into model types.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/graph3d/pkg/debug"
	"github.com/vanderheijden86/graph3d/pkg/metrics"
	"github.com/vanderheijden86/graph3d/pkg/model"
)

// QuietEnvVar suppresses load warnings on stderr when set to 1.
const QuietEnvVar = "G3D_QUIET"

// DefaultMaxDocumentSize caps how much of a single document is read.
const DefaultMaxDocumentSize = 64 << 20

// ErrLoad matches every *LoadError via errors.Is.
var ErrLoad = errors.New("load failed")

// ErrTooLarge is wrapped by the LoadError of a document over the size limit.
var ErrTooLarge = errors.New("document exceeds size limit")

// LoadError reports a failed fetch or decode of one document.
type LoadError struct {
	Location string
	// Status is the HTTP status line for non-2xx responses, empty otherwise.
	Status string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("Failed to load %s: %s", e.Location, e.Status)
	}
	return fmt.Sprintf("Failed to load %s: %v", e.Location, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrLoad) true for any LoadError.
func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// Options tunes loading. The zero value is usable.
type Options struct {
	// WarningHandler receives one message per recoverable problem. Defaults
	// to stderr, or silence when G3D_QUIET=1.
	WarningHandler func(msg string)
	// BaseDir resolves relative file locations. Defaults to the working dir.
	BaseDir string
	// Client fetches http(s) locations. Defaults to a client with a 30s timeout.
	Client *http.Client
	// MaxDocumentSize caps the bytes read per document.
	MaxDocumentSize int64
}

func (o Options) warn() func(string) {
	if o.WarningHandler != nil {
		return o.WarningHandler
	}
	if os.Getenv(QuietEnvVar) == "1" {
		return func(string) {}
	}
	return func(msg string) {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
	}
}

var defaultClient = &http.Client{Timeout: 30 * time.Second}

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	u, err := url.Parse(location)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

// LocalPath resolves a file location (plain path or file:// URL) against
// baseDir. It returns false for remote locations.
func LocalPath(location, baseDir string) (string, bool) {
	if IsRemote(location) {
		return "", false
	}
	path := strings.TrimPrefix(location, "file://")
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	return path, true
}

// Fetch returns the raw bytes behind location.
func Fetch(ctx context.Context, location string, opts Options) ([]byte, error) {
	limit := opts.MaxDocumentSize
	if limit <= 0 {
		limit = DefaultMaxDocumentSize
	}

	if path, ok := LocalPath(location, opts.BaseDir); ok {
		f, err := os.Open(path)
		if err != nil {
			return nil, &LoadError{Location: location, Err: err}
		}
		defer f.Close()
		data, err := readLimited(f, limit)
		if err != nil {
			return nil, &LoadError{Location: location, Err: err}
		}
		return data, nil
	}

	client := opts.Client
	if client == nil {
		client = defaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, &LoadError{Location: location, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, &LoadError{Location: location, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &LoadError{
			Location: location,
			Status:   resp.Status,
			Err:      fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	data, err := readLimited(resp.Body, limit)
	if err != nil {
		return nil, &LoadError{Location: location, Err: err}
	}
	return data, nil
}

// readLimited reads r to the end, failing instead of truncating when it
// holds more than limit bytes.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, limit)
	}
	return data, nil
}

// LoadJSON fetches location and decodes it into v.
func LoadJSON(ctx context.Context, location string, v any, opts Options) error {
	data, err := Fetch(ctx, location, opts)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(stripBOM(data), v); err != nil {
		return &LoadError{Location: location, Err: fmt.Errorf("decoding JSON: %w", err)}
	}
	return nil
}

// LoadGraph fetches both documents concurrently and parses them. Any fetch
// or top-level decode failure aborts the whole load.
func LoadGraph(ctx context.Context, nodesLocation, edgesLocation string, opts Options) (model.Graph, error) {
	defer metrics.Timer(metrics.GraphLoad)()
	defer debug.LogEnterExit("loader.LoadGraph")()

	var nodeData, edgeData []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		nodeData, err = Fetch(gctx, nodesLocation, opts)
		return err
	})
	g.Go(func() error {
		var err error
		edgeData, err = Fetch(gctx, edgesLocation, opts)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Graph{}, err
	}

	nodes, err := ParseNodes(bytes.NewReader(nodeData), opts)
	if err != nil {
		return model.Graph{}, &LoadError{Location: nodesLocation, Err: err}
	}
	edges, err := ParseEdges(bytes.NewReader(edgeData), opts)
	if err != nil {
		return model.Graph{}, &LoadError{Location: edgesLocation, Err: err}
	}
	debug.Log("loader: %d nodes from %s, %d edges from %s", len(nodes), nodesLocation, len(edges), edgesLocation)
	return model.Graph{Nodes: nodes, Edges: edges}, nil
}

type rawNode struct {
	ID           json.RawMessage `json:"id"`
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Tags         []string        `json:"tags"`
	CurrentValue json.RawMessage `json:"currentValue"`
}

// ParseNodes decodes a node array. Entries without an id are skipped and a
// repeated id keeps its first occurrence; both produce a warning.
func ParseNodes(r io.Reader, opts Options) ([]model.Node, error) {
	warn := opts.warn()
	items, err := decodeArray(r)
	if err != nil {
		return nil, err
	}

	nodes := make([]model.Node, 0, len(items))
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		var raw rawNode
		if err := json.Unmarshal(item, &raw); err != nil {
			warn(fmt.Sprintf("skipping malformed node %d: %v", i, err))
			continue
		}
		id, ok := scalarString(raw.ID)
		if !ok || id == "" {
			warn(fmt.Sprintf("skipping node %d: missing id", i))
			continue
		}
		if seen[id] {
			warn(fmt.Sprintf("duplicate node id %q at index %d ignored", id, i))
			continue
		}
		seen[id] = true

		n := model.Node{
			ID:   id,
			Name: raw.Name,
			Type: model.NodeType(raw.Type).Normalize(),
			Tags: raw.Tags,
		}
		if n.Name == "" {
			n.Name = id
		}
		if n.Tags == nil {
			n.Tags = []string{}
		}
		if v, present, ok := number(raw.CurrentValue); present {
			if ok {
				n.CurrentValue = &v
			} else {
				warn(fmt.Sprintf("node %s: ignoring non-numeric currentValue %s", id, raw.CurrentValue))
			}
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

type rawEdge struct {
	Source     json.RawMessage `json:"source"`
	Target     json.RawMessage `json:"target"`
	Weight     json.RawMessage `json:"weight"`
	Type       string          `json:"type"`
	DayOfMonth json.RawMessage `json:"dayOfMonth"`
	Tags       []string        `json:"tags"`
	Notes      string          `json:"notes"`
}

// ParseEdges decodes an edge array, renaming source/target to from/to and
// filling defaults: weight 0, type "default", no day, no tags, empty notes.
// Malformed weights or days fall back to the default with a warning.
func ParseEdges(r io.Reader, opts Options) ([]model.Edge, error) {
	warn := opts.warn()
	items, err := decodeArray(r)
	if err != nil {
		return nil, err
	}

	edges := make([]model.Edge, 0, len(items))
	for i, item := range items {
		var raw rawEdge
		if err := json.Unmarshal(item, &raw); err != nil {
			warn(fmt.Sprintf("skipping malformed edge %d: %v", i, err))
			continue
		}
		from, okFrom := scalarString(raw.Source)
		to, okTo := scalarString(raw.Target)
		if !okFrom || !okTo || from == "" || to == "" {
			warn(fmt.Sprintf("skipping edge %d: missing source or target", i))
			continue
		}

		e := model.Edge{
			From:  from,
			To:    to,
			Type:  strings.TrimSpace(raw.Type),
			Tags:  raw.Tags,
			Notes: raw.Notes,
		}
		if e.Type == "" {
			e.Type = "default"
		}
		if e.Tags == nil {
			e.Tags = []string{}
		}

		if w, present, ok := number(raw.Weight); present {
			switch {
			case !ok:
				warn(fmt.Sprintf("edge %d (%s->%s): non-numeric weight %s, using 0", i, from, to, raw.Weight))
			case w < 0:
				warn(fmt.Sprintf("edge %d (%s->%s): invalid weight %v, using 0", i, from, to, w))
			default:
				e.Weight = w
			}
		}

		if d, present, ok := number(raw.DayOfMonth); present {
			day := int(d)
			if !ok || float64(day) != d || day < 1 || day > 31 {
				warn(fmt.Sprintf("edge %d (%s->%s): invalid dayOfMonth %s, leaving unscheduled", i, from, to, raw.DayOfMonth))
			} else {
				e.DayOfMonth = model.Day(day)
			}
		}
		edges = append(edges, e)
	}
	return edges, nil
}

func decodeArray(r io.Reader) ([]json.RawMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	data = bytes.TrimSpace(stripBOM(data))
	if len(data) == 0 {
		return nil, errors.New("empty document")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("expected a JSON array: %w", err)
	}
	return items, nil
}

// scalarString accepts a JSON string or number as an identifier.
func scalarString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), true
	}
	var f json.Number
	if err := json.Unmarshal(raw, &f); err == nil {
		return f.String(), true
	}
	return "", false
}

// number decodes a finite JSON number, or a string holding one. present is
// false for a missing or null field.
func number(raw json.RawMessage) (v float64, present, ok bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false, false
	}
	if err := json.Unmarshal(raw, &v); err == nil {
		return v, true, finite(v)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && finite(f) {
			return f, true, true
		}
	}
	return 0, true, false
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}
