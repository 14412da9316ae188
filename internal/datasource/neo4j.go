package datasource

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/vanderheijden86/graph3d/pkg/debug"
	"github.com/vanderheijden86/graph3d/pkg/loader"
	"github.com/vanderheijden86/graph3d/pkg/model"
)

// Cypher used to read a money-flow graph. Accounts are nodes and transfers
// are relationships; property names mirror the JSON documents.
const (
	NodeQuery = `MATCH (n:Account)
RETURN n.id AS id, n.name AS name, n.type AS type, n.tags AS tags, n.currentValue AS currentValue
ORDER BY n.id`
	EdgeQuery = `MATCH (a:Account)-[t:TRANSFER]->(b:Account)
RETURN a.id AS source, b.id AS target, t.weight AS weight, t.type AS type,
       t.dayOfMonth AS dayOfMonth, t.tags AS tags, t.notes AS notes
ORDER BY a.id, b.id`
)

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("graph URI is required")

// Querier runs read-only Cypher. The Neo4j driver backs it in production and
// MemoryQuerier in tests.
type Querier interface {
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) ([]Record, error)
	Close(ctx context.Context) error
}

// Neo4jOptions configures the driver.
type Neo4jOptions struct {
	URI            string
	Username       string
	Password       string
	Database       string
	MaxConnections int
}

// NewNeo4jQuerier establishes a Bolt connection and verifies it.
func NewNeo4jQuerier(ctx context.Context, opts Neo4jOptions) (Querier, error) {
	if opts.URI == "" {
		return nil, ErrMissingURI
	}

	auth := neo4j.NoAuth()
	if opts.Username != "" {
		auth = neo4j.BasicAuth(opts.Username, opts.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(opts.URI, auth, func(c *neo4j.Config) {
		if opts.MaxConnections > 0 {
			c.MaxConnectionPoolSize = opts.MaxConnections
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify graph connectivity: %w", err)
	}
	return &neo4jQuerier{driver: driver, database: opts.Database}, nil
}

type neo4jQuerier struct {
	driver   neo4j.DriverWithContext
	database string
}

func (q *neo4jQuerier) ExecuteRead(ctx context.Context, cypher string, params map[string]any) ([]Record, error) {
	session := q.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: q.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	res, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	var records []Record
	for res.Next(ctx) {
		rec := res.Record()
		record := make(Record, len(rec.Keys))
		for _, key := range rec.Keys {
			value, _ := rec.Get(key)
			record[key] = value
		}
		records = append(records, record)
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (q *neo4jQuerier) Close(ctx context.Context) error {
	return q.driver.Close(ctx)
}

// Neo4jSource reads the graph from a Neo4j database.
type Neo4jSource struct {
	q    Querier
	name string
	opts loader.Options
}

// NewNeo4jSource connects to the database described by no.
func NewNeo4jSource(ctx context.Context, no Neo4jOptions, opts loader.Options) (*Neo4jSource, error) {
	q, err := NewNeo4jQuerier(ctx, no)
	if err != nil {
		return nil, err
	}
	return NewNeo4jSourceWithQuerier(q, no.URI, opts), nil
}

// NewNeo4jSourceWithQuerier wraps an existing querier.
func NewNeo4jSourceWithQuerier(q Querier, name string, opts loader.Options) *Neo4jSource {
	return &Neo4jSource{q: q, name: name, opts: opts}
}

func (s *Neo4jSource) Load(ctx context.Context) (model.Graph, error) {
	nodes, err := s.q.ExecuteRead(ctx, NodeQuery, nil)
	if err != nil {
		return model.Graph{}, &loader.LoadError{Location: s.name, Err: fmt.Errorf("reading accounts: %w", err)}
	}
	edges, err := s.q.ExecuteRead(ctx, EdgeQuery, nil)
	if err != nil {
		return model.Graph{}, &loader.LoadError{Location: s.name, Err: fmt.Errorf("reading transfers: %w", err)}
	}
	debug.Log("datasource: neo4j returned %d accounts, %d transfers", len(nodes), len(edges))
	g, err := fromRecords(nodes, edges, s.opts)
	if err != nil {
		return model.Graph{}, &loader.LoadError{Location: s.name, Err: err}
	}
	return g, nil
}

// WatchPaths is empty: remote graphs are not watched.
func (s *Neo4jSource) WatchPaths() []string { return nil }

func (s *Neo4jSource) String() string { return "neo4j(" + s.name + ")" }

func (s *Neo4jSource) Close() error {
	return s.q.Close(context.Background())
}

// ExecutedQuery captures a Cypher statement run against a MemoryQuerier.
type ExecutedQuery struct {
	Query  string
	Params map[string]any
}

// MemoryQuerier returns canned results keyed by query text.
type MemoryQuerier struct {
	mu      sync.Mutex
	results map[string][]Record
	calls   []ExecutedQuery
	err     error
	closed  bool
}

// NewMemoryQuerier returns an empty querier.
func NewMemoryQuerier() *MemoryQuerier {
	return &MemoryQuerier{results: make(map[string][]Record)}
}

// SetResult registers the records returned for cypher.
func (m *MemoryQuerier) SetResult(cypher string, records []Record) *MemoryQuerier {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[cypher] = records
	return m
}

// WithError makes every query fail with err.
func (m *MemoryQuerier) WithError(err error) *MemoryQuerier {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MemoryQuerier) ExecuteRead(_ context.Context, cypher string, params map[string]any) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, ExecutedQuery{Query: cypher, Params: params})
	if m.err != nil {
		return nil, m.err
	}
	return m.results[cypher], nil
}

func (m *MemoryQuerier) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Calls returns the queries executed so far.
func (m *MemoryQuerier) Calls() []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.calls...)
}

// Closed reports whether Close was called.
func (m *MemoryQuerier) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
