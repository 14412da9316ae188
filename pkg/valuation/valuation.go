// Package valuation classifies nodes by edge direction and derives the value
// and sphere radius shown for each node. All functions are pure.
package valuation

import (
	"math"

	"github.com/vanderheijden86/graph3d/pkg/metrics"
	"github.com/vanderheijden86/graph3d/pkg/model"
)

// MinRadius is the smallest radius handed to the renderer.
const MinRadius = 0.5

// ClassifyRole derives the role of nodeID from the edge set. A single edge in
// a direction is enough; weights are ignored.
func ClassifyRole(nodeID string, edges []model.Edge) model.Role {
	var out, in bool
	for i := range edges {
		if edges[i].From == nodeID {
			out = true
		}
		if edges[i].To == nodeID {
			in = true
		}
		if out && in {
			break
		}
	}
	return roleFor(out, in)
}

// Roles classifies every node in one pass over the edges.
func Roles(nodes []model.Node, edges []model.Edge) map[string]model.Role {
	out := make(map[string]bool, len(nodes))
	in := make(map[string]bool, len(nodes))
	for i := range edges {
		out[edges[i].From] = true
		in[edges[i].To] = true
	}
	roles := make(map[string]model.Role, len(nodes))
	for i := range nodes {
		id := nodes[i].ID
		roles[id] = roleFor(out[id], in[id])
	}
	return roles
}

func roleFor(out, in bool) model.Role {
	switch {
	case out && in:
		return model.RoleIntermediate
	case out:
		return model.RoleSource
	case in:
		return model.RoleSink
	default:
		return model.RoleDisconnected
	}
}

// ComputeNodeValues returns the displayed value of every node.
//
// Sources show their outgoing total and sinks their incoming total. An
// intermediate shows its running balance (CurrentValue, zero when absent),
// which the balance engine maintains incrementally. Disconnected nodes are 0.
func ComputeNodeValues(nodes []model.Node, edges []model.Edge) map[string]float64 {
	defer metrics.Timer(metrics.Valuation)()

	outgoing := make(map[string]float64, len(nodes))
	incoming := make(map[string]float64, len(nodes))
	for i := range edges {
		outgoing[edges[i].From] += edges[i].Weight
		incoming[edges[i].To] += edges[i].Weight
	}

	roles := Roles(nodes, edges)
	values := make(map[string]float64, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		switch roles[n.ID] {
		case model.RoleSource:
			values[n.ID] = outgoing[n.ID]
		case model.RoleSink:
			values[n.ID] = incoming[n.ID]
		case model.RoleIntermediate:
			values[n.ID] = n.Balance()
		default:
			values[n.ID] = 0
		}
	}
	return values
}

// ComputeRadius maps a value to a sphere radius on a log10 scale:
// max(0.5, 0.5*log10(|v|)), with 0 mapped to exactly 0.5.
func ComputeRadius(value float64) float64 {
	abs := math.Abs(value)
	if abs == 0 || math.IsNaN(abs) {
		return MinRadius
	}
	return math.Max(MinRadius, 0.5*math.Log10(abs))
}

var palette = map[model.NodeType]model.RGB{
	model.TypePrimary:   {R: 1, G: 0.3, B: 0.3},
	model.TypeSecondary: {R: 0.3, G: 1, B: 0.3},
	model.TypeTertiary:  {R: 0.3, G: 0.3, B: 1},
	model.TypeDefault:   {R: 0.8, G: 0.8, B: 0.3},
}

// ColorForType returns the palette colour for a node type; unknown types get
// the default yellow.
func ColorForType(t model.NodeType) model.RGB {
	if c, ok := palette[t.Normalize()]; ok {
		return c
	}
	return palette[model.TypeDefault]
}
