package testutil

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/graph3d/pkg/model"

	json "github.com/goccy/go-json"
)

// AssertNodeCount fails if the graph does not have expected nodes.
func AssertNodeCount(t *testing.T, g model.Graph, expected int) {
	t.Helper()
	if len(g.Nodes) != expected {
		t.Errorf("expected %d nodes, got %d", expected, len(g.Nodes))
	}
}

// AssertAllValid runs Validate on the graph.
func AssertAllValid(t *testing.T, g model.Graph) {
	t.Helper()
	if err := g.Validate(); err != nil {
		t.Errorf("graph invalid: %v", err)
	}
}

// AssertEdgeExists fails unless some edge runs from -> to.
func AssertEdgeExists(t *testing.T, g model.Graph, from, to string) {
	t.Helper()
	for _, e := range g.Edges {
		if e.From == from && e.To == to {
			return
		}
	}
	t.Errorf("expected edge %s -> %s", from, to)
}

// AssertBalance checks a node's running balance; an absent balance counts
// as zero.
func AssertBalance(t *testing.T, g model.Graph, id string, want float64) {
	t.Helper()
	n := findNode(g, id)
	if n == nil {
		t.Errorf("node %s not found", id)
		return
	}
	if got := n.Balance(); math.Abs(got-want) > 1e-9 {
		t.Errorf("balance of %s = %v, want %v", id, got, want)
	}
}

// AssertBalancesZero fails for any node with a non-zero running balance.
func AssertBalancesZero(t *testing.T, g model.Graph) {
	t.Helper()
	for _, n := range g.Nodes {
		if b := n.Balance(); math.Abs(b) > 1e-9 {
			t.Errorf("balance of %s = %v, want 0", n.ID, b)
		}
	}
}

// findNode returns a pointer into g.Nodes, or nil.
func findNode(g model.Graph, id string) *model.Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// GetIDs returns node ids in order.
func GetIDs(g model.Graph) []string {
	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	return ids
}

type wireNode struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Tags         []string `json:"tags"`
	CurrentValue *float64 `json:"currentValue,omitempty"`
}

type wireEdge struct {
	Source     string   `json:"source"`
	Target     string   `json:"target"`
	Weight     float64  `json:"weight"`
	Type       string   `json:"type"`
	DayOfMonth *int     `json:"dayOfMonth"`
	Tags       []string `json:"tags"`
	Notes      string   `json:"notes"`
}

// MarshalDocuments encodes g as the nodes and edges JSON documents the
// loader reads.
func MarshalDocuments(g model.Graph) (nodes, edges []byte, err error) {
	wn := make([]wireNode, len(g.Nodes))
	for i, n := range g.Nodes {
		wn[i] = wireNode{ID: n.ID, Name: n.Name, Type: string(n.Type), Tags: n.Tags, CurrentValue: n.CurrentValue}
	}
	we := make([]wireEdge, len(g.Edges))
	for i, e := range g.Edges {
		we[i] = wireEdge{
			Source: e.From, Target: e.To, Weight: e.Weight, Type: e.Type,
			DayOfMonth: e.DayOfMonth, Tags: e.Tags, Notes: e.Notes,
		}
	}
	if nodes, err = json.Marshal(wn); err != nil {
		return nil, nil, err
	}
	if edges, err = json.Marshal(we); err != nil {
		return nil, nil, err
	}
	return nodes, edges, nil
}

// WriteGraphFiles writes nodes.json and edges.json into dir and returns
// their paths.
func WriteGraphFiles(t testing.TB, dir string, g model.Graph) (string, string) {
	t.Helper()
	nodes, edges, err := MarshalDocuments(g)
	if err != nil {
		t.Fatalf("marshal graph: %v", err)
	}
	np := filepath.Join(dir, "nodes.json")
	ep := filepath.Join(dir, "edges.json")
	if err := os.WriteFile(np, nodes, 0o644); err != nil {
		t.Fatalf("write nodes: %v", err)
	}
	if err := os.WriteFile(ep, edges, 0o644); err != nil {
		t.Fatalf("write edges: %v", err)
	}
	return np, ep
}
