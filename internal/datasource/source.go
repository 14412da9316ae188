// Package datasource opens the graph behind a configured dataset: a pair of
// JSON documents, a SQLite database or a Neo4j graph. Every source funnels its
// records through the loader so defaults and warnings are identical.
package datasource

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/graph3d/pkg/config"
	"github.com/vanderheijden86/graph3d/pkg/debug"
	"github.com/vanderheijden86/graph3d/pkg/loader"
	"github.com/vanderheijden86/graph3d/pkg/model"
)

// ErrUnknownSource is returned for a dataset kind with no reader.
var ErrUnknownSource = errors.New("unknown data source kind")

// Source yields a graph snapshot on demand.
type Source interface {
	Load(ctx context.Context) (model.Graph, error)
	// WatchPaths lists local files whose change should trigger a reload.
	WatchPaths() []string
	String() string
	Close() error
}

// Open returns the source for ds.
func Open(ctx context.Context, ds config.Dataset, opts loader.Options) (Source, error) {
	switch ds.EffectiveKind() {
	case config.KindJSON:
		return &JSONSource{Nodes: ds.Nodes, Edges: ds.Edges, Options: opts}, nil
	case config.KindSQLite:
		return NewSQLiteSource(ds.Path, opts)
	case config.KindNeo4j:
		return NewNeo4jSource(ctx, Neo4jOptions{
			URI:      ds.URI,
			Username: ds.Username,
			Password: ds.Password,
			Database: ds.Database,
		}, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, ds.Kind)
	}
}

// Load opens ds, reads one snapshot and closes the source.
func Load(ctx context.Context, ds config.Dataset, opts loader.Options) (model.Graph, error) {
	src, err := Open(ctx, ds, opts)
	if err != nil {
		return model.Graph{}, err
	}
	defer src.Close()
	debug.Log("datasource: loading from %s", src)
	return src.Load(ctx)
}

// JSONSource reads the classic node/edge document pair.
type JSONSource struct {
	Nodes   string
	Edges   string
	Options loader.Options
}

func (s *JSONSource) Load(ctx context.Context) (model.Graph, error) {
	return loader.LoadGraph(ctx, s.Nodes, s.Edges, s.Options)
}

func (s *JSONSource) WatchPaths() []string {
	var paths []string
	for _, loc := range []string{s.Nodes, s.Edges} {
		if p, ok := loader.LocalPath(loc, s.Options.BaseDir); ok {
			paths = append(paths, p)
		}
	}
	return paths
}

func (s *JSONSource) String() string { return fmt.Sprintf("json(%s, %s)", s.Nodes, s.Edges) }

func (s *JSONSource) Close() error { return nil }

// Record is one row or graph record keyed by column name.
type Record map[string]any

// fromRecords re-encodes records as the JSON documents the loader expects.
func fromRecords(nodes, edges []Record, opts loader.Options) (model.Graph, error) {
	nodeDoc, err := json.Marshal(nodes)
	if err != nil {
		return model.Graph{}, fmt.Errorf("encoding node records: %w", err)
	}
	edgeDoc, err := json.Marshal(edges)
	if err != nil {
		return model.Graph{}, fmt.Errorf("encoding edge records: %w", err)
	}
	if nodes == nil {
		nodeDoc = []byte("[]")
	}
	if edges == nil {
		edgeDoc = []byte("[]")
	}
	ns, err := loader.ParseNodes(bytes.NewReader(nodeDoc), opts)
	if err != nil {
		return model.Graph{}, err
	}
	es, err := loader.ParseEdges(bytes.NewReader(edgeDoc), opts)
	if err != nil {
		return model.Graph{}, err
	}
	return model.Graph{Nodes: ns, Edges: es}, nil
}
