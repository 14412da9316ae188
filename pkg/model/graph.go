package model

import (
	"fmt"
	"math"
	"strings"
)

// NodeType selects the colour palette entry for a node.
type NodeType string

const (
	TypePrimary   NodeType = "primary"
	TypeSecondary NodeType = "secondary"
	TypeTertiary  NodeType = "tertiary"
	TypeDefault   NodeType = "default"
)

// IsKnown reports whether the type has its own palette entry.
func (t NodeType) IsKnown() bool {
	switch t {
	case TypePrimary, TypeSecondary, TypeTertiary, TypeDefault:
		return true
	}
	return false
}

// Normalize lower-cases and trims the type. Empty becomes TypeDefault.
func (t NodeType) Normalize() NodeType {
	trimmed := strings.ToLower(strings.TrimSpace(string(t)))
	if trimmed == "" {
		return TypeDefault
	}
	return NodeType(trimmed)
}

// Role is the structural role of a node, derived from edge directions.
type Role string

const (
	RoleSource       Role = "source"
	RoleSink         Role = "sink"
	RoleIntermediate Role = "intermediate"
	RoleDisconnected Role = "disconnected"
)

// Node is a vertex of the money-flow graph.
//
// CurrentValue is the running balance of an intermediate node. A nil pointer
// means the balance was never written and reads as zero.
type Node struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Type         NodeType `json:"type"`
	Tags         []string `json:"tags"`
	CurrentValue *float64 `json:"currentValue,omitempty"`
}

// Balance returns the running balance, treating an absent value as zero.
func (n *Node) Balance() float64 {
	if n.CurrentValue == nil {
		return 0
	}
	return *n.CurrentValue
}

// AddBalance adds delta to the running balance, materialising it on first write.
func (n *Node) AddBalance(delta float64) {
	v := n.Balance() + delta
	n.CurrentValue = &v
}

// Clone returns a deep copy so callers can mutate balances independently.
func (n Node) Clone() Node {
	c := n
	if n.Tags != nil {
		c.Tags = append([]string(nil), n.Tags...)
	}
	if n.CurrentValue != nil {
		v := *n.CurrentValue
		c.CurrentValue = &v
	}
	return c
}

// Validate checks the fields that the rest of the pipeline relies on.
func (n *Node) Validate() error {
	if strings.TrimSpace(n.ID) == "" {
		return fmt.Errorf("node ID cannot be empty")
	}
	if n.CurrentValue != nil && (math.IsNaN(*n.CurrentValue) || math.IsInf(*n.CurrentValue, 0)) {
		return fmt.Errorf("node %s has non-finite currentValue", n.ID)
	}
	return nil
}

// Edge is a directed, weighted transfer between two nodes. Parallel edges
// between the same pair are allowed and are never merged.
type Edge struct {
	From       string   `json:"from"`
	To         string   `json:"to"`
	Weight     float64  `json:"weight"`
	Type       string   `json:"type"`
	DayOfMonth *int     `json:"dayOfMonth"`
	Tags       []string `json:"tags"`
	Notes      string   `json:"notes"`
}

// ScheduledOn reports whether the edge fires on the given day of month.
func (e *Edge) ScheduledOn(day int) bool {
	return e.DayOfMonth != nil && *e.DayOfMonth == day
}

// IsSelfLoop reports whether the edge starts and ends at the same node.
func (e *Edge) IsSelfLoop() bool {
	return e.From == e.To
}

// Validate checks invariants guaranteed by the loader.
func (e *Edge) Validate() error {
	if e.From == "" || e.To == "" {
		return fmt.Errorf("edge endpoints cannot be empty")
	}
	if e.Weight < 0 || math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) {
		return fmt.Errorf("edge %s->%s has invalid weight %v", e.From, e.To, e.Weight)
	}
	if e.DayOfMonth != nil && (*e.DayOfMonth < 1 || *e.DayOfMonth > 31) {
		return fmt.Errorf("edge %s->%s has dayOfMonth %d outside 1..31", e.From, e.To, *e.DayOfMonth)
	}
	return nil
}

// Day returns a pointer to d, for building edges in code.
func Day(d int) *int {
	return &d
}

// Graph is a node/edge snapshot.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Clone deep-copies the graph.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = n.Clone()
	}
	for i, e := range g.Edges {
		c := e
		if e.Tags != nil {
			c.Tags = append([]string(nil), e.Tags...)
		}
		if e.DayOfMonth != nil {
			c.DayOfMonth = Day(*e.DayOfMonth)
		}
		out.Edges[i] = c
	}
	return out
}

// NodeIndex maps node ids to their slice index.
func (g Graph) NodeIndex() map[string]int {
	idx := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		if _, dup := idx[n.ID]; !dup {
			idx[n.ID] = i
		}
	}
	return idx
}

// Validate checks node id uniqueness and per-record invariants.
func (g Graph) Validate() error {
	seen := make(map[string]bool, len(g.Nodes))
	for i := range g.Nodes {
		if err := g.Nodes[i].Validate(); err != nil {
			return err
		}
		if seen[g.Nodes[i].ID] {
			return fmt.Errorf("duplicate node ID %q", g.Nodes[i].ID)
		}
		seen[g.Nodes[i].ID] = true
	}
	for i := range g.Edges {
		if err := g.Edges[i].Validate(); err != nil {
			return fmt.Errorf("edge %d: %w", i, err)
		}
	}
	return nil
}
