// Package testutil provides money-flow graph fixtures for tests. All
// generators are deterministic for a given seed.
package testutil

import (
	"fmt"
	"math/rand"

	"github.com/vanderheijden86/graph3d/pkg/model"
)

// GraphFixture is an abstract topology: node names plus [from, to] index
// pairs meaning "from pays to".
type GraphFixture struct {
	Description string     `json:"description"`
	Nodes       []string   `json:"nodes"`
	Edges       [][2]int   `json:"edges"`
	Properties  Properties `json:"properties,omitempty"`
}

// Properties holds optional metadata about the fixture.
type Properties struct {
	HasCycles   bool `json:"has_cycles,omitempty"`
	IsConnected bool `json:"is_connected,omitempty"`
	Sources     int  `json:"sources,omitempty"`
	Sinks       int  `json:"sinks,omitempty"`
}

// GeneratorConfig controls how fixtures become graphs.
type GeneratorConfig struct {
	Seed          int64            // Random seed (0 = 42)
	IDPrefix      string           // Prefix for node IDs (default: none)
	MinWeight     int              // Smallest edge weight (default 1)
	MaxWeight     int              // Largest edge weight (default 1000)
	ScheduleRatio float64          // Share of edges with a dayOfMonth (default 1)
	MaxDay        int              // Largest dayOfMonth drawn (default 28)
	TypeMix       []model.NodeType // Node types cycled through (default all four)
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:          42,
		MinWeight:     1,
		MaxWeight:     1000,
		ScheduleRatio: 1,
		MaxDay:        28,
		TypeMix: []model.NodeType{
			model.TypePrimary, model.TypeSecondary, model.TypeTertiary, model.TypeDefault,
		},
	}
}

// Generator creates fixtures with various topologies.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator, filling unset config fields from DefaultConfig.
func New(cfg GeneratorConfig) *Generator {
	def := DefaultConfig()
	if cfg.Seed == 0 {
		cfg.Seed = def.Seed
	}
	if cfg.MinWeight <= 0 {
		cfg.MinWeight = def.MinWeight
	}
	if cfg.MaxWeight < cfg.MinWeight {
		cfg.MaxWeight = max(def.MaxWeight, cfg.MinWeight)
	}
	if cfg.ScheduleRatio <= 0 {
		cfg.ScheduleRatio = def.ScheduleRatio
	}
	if cfg.MaxDay <= 0 || cfg.MaxDay > 31 {
		cfg.MaxDay = def.MaxDay
	}
	if len(cfg.TypeMix) == 0 {
		cfg.TypeMix = def.TypeMix
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// NewDefault creates a Generator with DefaultConfig.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// ============================================================================
// Topologies
// ============================================================================

// Chain creates n0 -> n1 -> ... -> n{size-1}. n0 is the only source and the
// last node the only sink; everything between is intermediate.
func (g *Generator) Chain(size int) GraphFixture {
	nodes := make([]string, size)
	var edges [][2]int
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		if i > 0 {
			edges = append(edges, [2]int{i - 1, i})
		}
	}
	p := Properties{IsConnected: true}
	if size > 1 {
		p.Sources, p.Sinks = 1, 1
	}
	return GraphFixture{
		Description: fmt.Sprintf("Chain of %d nodes: n0 -> ... -> n%d", size, size-1),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  p,
	}
}

// Star creates a hub paying every spoke.
func (g *Generator) Star(spokes int) GraphFixture {
	nodes := make([]string, spokes+1)
	edges := make([][2]int, spokes)
	nodes[0] = "hub"
	for i := 1; i <= spokes; i++ {
		nodes[i] = fmt.Sprintf("spoke%d", i)
		edges[i-1] = [2]int{0, i}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Hub paying %d spokes", spokes),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{IsConnected: true, Sources: 1, Sinks: spokes},
	}
}

// ReverseStar creates spokes all paying the hub.
func (g *Generator) ReverseStar(spokes int) GraphFixture {
	gf := g.Star(spokes)
	for i := range gf.Edges {
		gf.Edges[i] = [2]int{gf.Edges[i][1], gf.Edges[i][0]}
	}
	gf.Description = fmt.Sprintf("%d spokes paying a hub", spokes)
	gf.Properties.Sources, gf.Properties.Sinks = spokes, 1
	return gf
}

// Cycle creates n0 -> n1 -> ... -> n{size-1} -> n0; every node is
// intermediate.
func (g *Generator) Cycle(size int) GraphFixture {
	gf := g.Chain(size)
	if size > 1 {
		gf.Edges = append(gf.Edges, [2]int{size - 1, 0})
	}
	gf.Description = fmt.Sprintf("Cycle of %d nodes", size)
	gf.Properties = Properties{HasCycles: true, IsConnected: true}
	return gf
}

// SelfLoop creates a single account paying itself.
func (g *Generator) SelfLoop() GraphFixture {
	return GraphFixture{
		Description: "Single node with a self loop",
		Nodes:       []string{"self"},
		Edges:       [][2]int{{0, 0}},
		Properties:  Properties{HasCycles: true, IsConnected: true},
	}
}

// Disconnected creates components separate chains.
func (g *Generator) Disconnected(components, componentSize int) GraphFixture {
	var nodes []string
	var edges [][2]int
	for c := 0; c < components; c++ {
		base := len(nodes)
		for i := 0; i < componentSize; i++ {
			nodes = append(nodes, fmt.Sprintf("c%d_n%d", c, i))
			if i > 0 {
				edges = append(edges, [2]int{base + i - 1, base + i})
			}
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("%d disconnected chains of %d", components, componentSize),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{IsConnected: components <= 1},
	}
}

// Random creates size nodes with edges drawn independently with probability
// density. Parallel edges and self loops are allowed when loops is true.
func (g *Generator) Random(size int, density float64, loops bool) GraphFixture {
	density = min(max(density, 0), 1)
	nodes := make([]string, size)
	for i := range nodes {
		nodes[i] = fmt.Sprintf("n%d", i)
	}
	var edges [][2]int
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			if i == j && !loops {
				continue
			}
			if g.rng.Float64() < density {
				edges = append(edges, [2]int{i, j})
			}
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Random graph with %d nodes, density=%.2f (%d edges)", size, density, len(edges)),
		Nodes:       nodes,
		Edges:       edges,
	}
}

// ============================================================================
// Conversion
// ============================================================================

// ToGraph turns a fixture into a graph with integral weights (so balance
// round trips are exact) and random days of the month.
func (g *Generator) ToGraph(gf GraphFixture) model.Graph {
	out := model.Graph{
		Nodes: make([]model.Node, len(gf.Nodes)),
		Edges: make([]model.Edge, 0, len(gf.Edges)),
	}
	for i, name := range gf.Nodes {
		out.Nodes[i] = model.Node{
			ID:   g.cfg.IDPrefix + name,
			Name: "Account " + name,
			Type: g.cfg.TypeMix[i%len(g.cfg.TypeMix)],
			Tags: []string{},
		}
	}
	for _, e := range gf.Edges {
		edge := model.Edge{
			From:   out.Nodes[e[0]].ID,
			To:     out.Nodes[e[1]].ID,
			Weight: float64(g.cfg.MinWeight + g.rng.Intn(g.cfg.MaxWeight-g.cfg.MinWeight+1)),
			Type:   "default",
			Tags:   []string{},
		}
		if g.rng.Float64() < g.cfg.ScheduleRatio {
			edge.DayOfMonth = model.Day(1 + g.rng.Intn(g.cfg.MaxDay))
		}
		out.Edges = append(out.Edges, edge)
	}
	return out
}

// Quick helpers with the default generator.

func QuickChain(size int) model.Graph {
	g := NewDefault()
	return g.ToGraph(g.Chain(size))
}

func QuickStar(spokes int) model.Graph {
	g := NewDefault()
	return g.ToGraph(g.Star(spokes))
}

func QuickCycle(size int) model.Graph {
	g := NewDefault()
	return g.ToGraph(g.Cycle(size))
}

func QuickRandom(size int, density float64) model.Graph {
	g := NewDefault()
	return g.ToGraph(g.Random(size, density, true))
}

// Empty returns a graph with no nodes.
func Empty() model.Graph { return model.Graph{} }

// Single returns one disconnected node.
func Single() model.Graph {
	return model.Graph{Nodes: []model.Node{{ID: "solo", Name: "Solo", Type: model.TypeDefault, Tags: []string{}}}}
}
