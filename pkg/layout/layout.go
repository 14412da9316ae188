// Package layout places valued nodes on concentric spheres around the
// best-connected node.
package layout

import (
	"math"
	"sort"

	"github.com/vanderheijden86/graph3d/pkg/analysis"
	"github.com/vanderheijden86/graph3d/pkg/debug"
	"github.com/vanderheijden86/graph3d/pkg/metrics"
	"github.com/vanderheijden86/graph3d/pkg/model"
	"github.com/vanderheijden86/graph3d/pkg/valuation"
)

// LayerSpacing is the radial distance between consecutive layers.
const LayerSpacing = 5.0

var goldenAngle = math.Pi * (1 + math.Sqrt(5))

// LayerCapacity returns how many nodes layer L holds. Layer 0 is the centre.
func LayerCapacity(layer int) int {
	if layer <= 0 {
		return 1
	}
	return int(math.Ceil(8 + float64(layer-1)*4))
}

// LayerRadius returns the sphere radius of layer L.
func LayerRadius(layer int) float64 {
	if layer <= 0 {
		return 0
	}
	return LayerSpacing * float64(layer)
}

// SpherePoint returns the k-th of n points spread over a sphere of radius r
// by the golden-angle spiral.
func SpherePoint(k, n int, r float64) model.Vec3 {
	phi := math.Acos(1 - 2*(float64(k)+0.5)/float64(n))
	theta := goldenAngle * float64(k)
	return model.Vec3{
		X: r * math.Sin(phi) * math.Cos(theta),
		Y: r * math.Cos(phi),
		Z: r * math.Sin(phi) * math.Sin(theta),
	}
}

// Hierarchical positions every node. The input slices are not modified and
// the output is a pure function of (node order, edges).
//
// Nodes are stably sorted by degree, highest first. The first lands at the
// origin and the rest fill layers outward, so the output order is the sorted
// order, not the input order.
func Hierarchical(nodes []model.Node, edges []model.Edge) []model.PositionedNode {
	defer metrics.Timer(metrics.Layout)()

	degree := analysis.Degrees(nodes, edges)
	values := valuation.ComputeNodeValues(nodes, edges)
	roles := valuation.Roles(nodes, edges)

	order := make([]int, len(nodes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return degree[nodes[order[a]].ID] > degree[nodes[order[b]].ID]
	})

	out := make([]model.PositionedNode, len(nodes))
	layer, k := 0, 0
	for i, idx := range order {
		n := nodes[idx].Clone()
		var pos model.Vec3
		if i > 0 {
			if layer == 0 || k >= LayerCapacity(layer) {
				layer++
				k = 0
			}
			pos = SpherePoint(k, LayerCapacity(layer), LayerRadius(layer))
			k++
		}
		v := values[n.ID]
		out[i] = model.PositionedNode{
			Node:     n,
			Position: pos,
			Radius:   valuation.ComputeRadius(v),
			Color:    valuation.ColorForType(n.Type),
			Value:    v,
			Role:     roles[n.ID],
			Degree:   degree[n.ID],
		}
	}
	debug.Log("layout: %d nodes across %d layers", len(out), layer+1)
	return out
}

// Index maps node ids to positions in a layout result.
func Index(positioned []model.PositionedNode) map[string]int {
	idx := make(map[string]int, len(positioned))
	for i := range positioned {
		if _, dup := idx[positioned[i].ID]; !dup {
			idx[positioned[i].ID] = i
		}
	}
	return idx
}
