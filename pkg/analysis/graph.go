// Package analysis computes structural statistics over the money-flow graph:
// multi-edge degrees, PageRank, hub/authority scores, weak components and
// cycles. It feeds the layout ordering and the TUI/scene summaries.
package analysis

import (
	"sort"
	"time"

	"github.com/vanderheijden86/graph3d/pkg/debug"
	"github.com/vanderheijden86/graph3d/pkg/metrics"
	"github.com/vanderheijden86/graph3d/pkg/model"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// GraphStats holds the result of one analysis pass.
type GraphStats struct {
	NodeCount int `json:"nodeCount"`
	EdgeCount int `json:"edgeCount"`

	// Degrees count every parallel edge. A self-loop counts once in each
	// direction.
	OutDegree map[string]int `json:"outDegree"`
	InDegree  map[string]int `json:"inDegree"`

	// Density is over distinct ordered pairs, ignoring parallel edges.
	Density float64 `json:"density"`

	PageRank    map[string]float64 `json:"pageRank,omitempty"`
	PageRankTO  bool               `json:"pageRankTimeout,omitempty"`
	Hubs        map[string]float64 `json:"hubs,omitempty"`
	Authorities map[string]float64 `json:"authorities,omitempty"`
	HITSTO      bool               `json:"hitsTimeout,omitempty"`

	// Components are weakly connected components, largest first.
	Components [][]string `json:"components"`
	// Cycles lists strongly connected components with more than one node.
	Cycles [][]string `json:"cycles,omitempty"`

	Elapsed time.Duration `json:"elapsed"`
}

// Degree returns in+out degree for id.
func (s *GraphStats) Degree(id string) int {
	return s.InDegree[id] + s.OutDegree[id]
}

// TopHubs returns up to n node ids ordered by degree, then PageRank, then id.
func (s *GraphStats) TopHubs(n int) []string {
	ids := make([]string, 0, len(s.OutDegree)+len(s.InDegree))
	seen := make(map[string]bool)
	for _, m := range []map[string]int{s.OutDegree, s.InDegree} {
		for id := range m {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		di, dj := s.Degree(ids[i]), s.Degree(ids[j])
		if di != dj {
			return di > dj
		}
		pi, pj := s.PageRank[ids[i]], s.PageRank[ids[j]]
		if pi != pj {
			return pi > pj
		}
		return ids[i] < ids[j]
	})
	if n >= 0 && len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

// Degrees returns in+out degree per node id, counting parallel edges. Only
// ids present in nodes appear in the result.
func Degrees(nodes []model.Node, edges []model.Edge) map[string]int {
	deg := make(map[string]int, len(nodes))
	for i := range nodes {
		deg[nodes[i].ID] = 0
	}
	for i := range edges {
		if _, ok := deg[edges[i].From]; ok {
			deg[edges[i].From]++
		}
		if _, ok := deg[edges[i].To]; ok {
			deg[edges[i].To]++
		}
	}
	return deg
}

// Analyzer wraps a gonum graph built from the node and edge lists.
type Analyzer struct {
	g        *simple.DirectedGraph
	idToNode map[string]int64
	nodeToID map[int64]string
	nodes    []model.Node
	edges    []model.Edge
	config   *Config
}

// NewAnalyzer builds the analysis graph. Parallel edges collapse to one gonum
// edge and self-loops are left out, since simple graphs admit neither; the
// degree maps still see every edge.
func NewAnalyzer(nodes []model.Node, edges []model.Edge) *Analyzer {
	g := simple.NewDirectedGraph()
	idToNode := make(map[string]int64, len(nodes))
	nodeToID := make(map[int64]string, len(nodes))

	for i := range nodes {
		if _, dup := idToNode[nodes[i].ID]; dup {
			continue
		}
		n := g.NewNode()
		g.AddNode(n)
		idToNode[nodes[i].ID] = n.ID()
		nodeToID[n.ID()] = nodes[i].ID
	}

	for i := range edges {
		u, ok := idToNode[edges[i].From]
		if !ok {
			continue
		}
		v, ok := idToNode[edges[i].To]
		if !ok || u == v {
			continue
		}
		g.SetEdge(g.NewEdge(g.Node(u), g.Node(v)))
	}

	return &Analyzer{
		g:        g,
		idToNode: idToNode,
		nodeToID: nodeToID,
		nodes:    nodes,
		edges:    edges,
	}
}

// SetConfig overrides the size-based configuration. Pass nil to restore it.
func (a *Analyzer) SetConfig(cfg *Config) {
	a.config = cfg
}

// Analyze runs every enabled metric synchronously.
func (a *Analyzer) Analyze() GraphStats {
	defer metrics.Timer(metrics.Analysis)()
	start := time.Now()

	cfg := ConfigForSize(len(a.idToNode), len(a.edges))
	if a.config != nil {
		cfg = *a.config
	}

	stats := GraphStats{
		NodeCount: len(a.idToNode),
		EdgeCount: len(a.edges),
		OutDegree: make(map[string]int, len(a.idToNode)),
		InDegree:  make(map[string]int, len(a.idToNode)),
	}
	for id := range a.idToNode {
		stats.OutDegree[id] = 0
		stats.InDegree[id] = 0
	}
	for i := range a.edges {
		if _, ok := a.idToNode[a.edges[i].From]; ok {
			stats.OutDegree[a.edges[i].From]++
		}
		if _, ok := a.idToNode[a.edges[i].To]; ok {
			stats.InDegree[a.edges[i].To]++
		}
	}

	n := stats.NodeCount
	if n > 1 {
		distinct := a.g.Edges().Len()
		stats.Density = float64(distinct) / float64(n*(n-1))
	}

	stats.Components = a.weakComponents()

	if cfg.ComputeCycles {
		for _, scc := range topo.TarjanSCC(a.g) {
			if len(scc) > 1 {
				stats.Cycles = append(stats.Cycles, a.idsOf(scc))
			}
		}
	}

	if cfg.ComputePageRank && n > 0 {
		stats.PageRank, stats.PageRankTO = a.pageRank(cfg.PageRankTimeout)
	}
	if cfg.ComputeHITS && n > 0 {
		stats.Hubs, stats.Authorities, stats.HITSTO = a.hits(cfg.HITSTimeout)
	}

	stats.Elapsed = time.Since(start)
	debug.LogTiming("analysis", stats.Elapsed)
	return stats
}

func (a *Analyzer) pageRank(timeout time.Duration) (map[string]float64, bool) {
	done := make(chan map[int64]float64, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				debug.Log("pagerank panicked: %v", r)
			}
		}()
		done <- network.PageRank(a.g, 0.85, 1e-6)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	out := make(map[string]float64, len(a.idToNode))
	select {
	case pr := <-done:
		for id, score := range pr {
			out[a.nodeToID[id]] = score
		}
		return out, false
	case <-timer.C:
		uniform := 1.0 / float64(len(a.idToNode))
		for id := range a.idToNode {
			out[id] = uniform
		}
		return out, true
	}
}

func (a *Analyzer) hits(timeout time.Duration) (map[string]float64, map[string]float64, bool) {
	done := make(chan map[int64]network.HubAuthority, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				debug.Log("hits panicked: %v", r)
			}
		}()
		done <- network.HITS(a.g, 1e-3)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ha := <-done:
		hubs := make(map[string]float64, len(ha))
		auth := make(map[string]float64, len(ha))
		for id, v := range ha {
			hubs[a.nodeToID[id]] = v.Hub
			auth[a.nodeToID[id]] = v.Authority
		}
		return hubs, auth, false
	case <-timer.C:
		return nil, nil, true
	}
}

func (a *Analyzer) weakComponents() [][]string {
	u := simple.NewUndirectedGraph()
	nodes := a.g.Nodes()
	for nodes.Next() {
		u.AddNode(simple.Node(nodes.Node().ID()))
	}
	edges := a.g.Edges()
	for edges.Next() {
		e := edges.Edge()
		if !u.HasEdgeBetween(e.From().ID(), e.To().ID()) {
			u.SetEdge(u.NewEdge(u.Node(e.From().ID()), u.Node(e.To().ID())))
		}
	}

	var comps [][]string
	for _, cc := range topo.ConnectedComponents(u) {
		comps = append(comps, a.idsOf(cc))
	}
	sort.SliceStable(comps, func(i, j int) bool {
		if len(comps[i]) != len(comps[j]) {
			return len(comps[i]) > len(comps[j])
		}
		return comps[i][0] < comps[j][0]
	})
	return comps
}

func (a *Analyzer) idsOf(ns []graph.Node) []string {
	ids := make([]string, 0, len(ns))
	for _, n := range ns {
		ids = append(ids, a.nodeToID[n.ID()])
	}
	sort.Strings(ids)
	return ids
}
