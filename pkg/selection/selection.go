// Package selection tracks the focused node and the label toggle, and derives
// which nodes, edges and labels are visible.
package selection

import (
	"strings"

	"github.com/vanderheijden86/graph3d/pkg/model"
)

// MeshPrefix is the naming convention for node meshes in a rendered scene.
const MeshPrefix = "node-"

// MeshName returns the mesh name for a node id.
func MeshName(nodeID string) string { return MeshPrefix + nodeID }

// NodeIDFromMeshName strips the node mesh prefix. It returns false for
// anything that is not a node mesh (arrows, labels, the background).
func NodeIDFromMeshName(name string) (string, bool) {
	id, ok := strings.CutPrefix(name, MeshPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Visibility is the derived view of what should be drawn.
type Visibility struct {
	Nodes  map[string]bool
	Edges  []bool // parallel to the edge slice
	Labels map[string]bool
}

// NodeVisible reports whether id is visible.
func (v Visibility) NodeVisible(id string) bool { return v.Nodes[id] }

// LabelVisible reports whether the label of id is visible.
func (v Visibility) LabelVisible(id string) bool { return v.Labels[id] }

// EdgeVisible reports whether edge i is visible.
func (v Visibility) EdgeVisible(i int) bool {
	return i >= 0 && i < len(v.Edges) && v.Edges[i]
}

// VisibleNodeCount returns how many nodes are visible.
func (v Visibility) VisibleNodeCount() int {
	n := 0
	for _, ok := range v.Nodes {
		if ok {
			n++
		}
	}
	return n
}

// State is the selection state machine. The zero value is unselected with
// labels off.
type State struct {
	selected      string
	hasSelection  bool
	labelsEnabled bool

	nodes []model.Node
	edges []model.Edge
	vis   Visibility
}

// New returns an unselected state over the given graph.
func New(nodes []model.Node, edges []model.Edge, labelsEnabled bool) *State {
	s := &State{labelsEnabled: labelsEnabled}
	s.SetGraph(nodes, edges)
	return s
}

// SetGraph replaces the graph and recomputes visibility. A selection whose
// node no longer exists is cleared.
func (s *State) SetGraph(nodes []model.Node, edges []model.Edge) {
	s.nodes = nodes
	s.edges = edges
	if s.hasSelection && !s.hasNode(s.selected) {
		s.selected, s.hasSelection = "", false
	}
	s.recompute()
}

func (s *State) hasNode(id string) bool {
	for i := range s.nodes {
		if s.nodes[i].ID == id {
			return true
		}
	}
	return false
}

// Selected returns the focused node id, if any.
func (s *State) Selected() (string, bool) {
	return s.selected, s.hasSelection
}

// LabelsEnabled reports the global label flag.
func (s *State) LabelsEnabled() bool { return s.labelsEnabled }

// Visibility returns the current derived visibility.
func (s *State) Visibility() Visibility { return s.vis }

// Click toggles focus on nodeID: clicking the focused node clears the
// selection, clicking any other node focuses it directly. Ids that are not
// in the graph are ignored and Click reports false.
func (s *State) Click(nodeID string) bool {
	if !s.hasNode(nodeID) {
		return false
	}
	if s.hasSelection && s.selected == nodeID {
		s.selected, s.hasSelection = "", false
	} else {
		s.selected, s.hasSelection = nodeID, true
	}
	s.recompute()
	return true
}

// ClickMesh translates a mesh name into a Click. Non-node meshes and meshes
// of unknown nodes are ignored; it reports whether a transition happened.
func (s *State) ClickMesh(name string) bool {
	id, ok := NodeIDFromMeshName(name)
	return ok && s.Click(id)
}

// Clear returns to the unselected state.
func (s *State) Clear() {
	s.selected, s.hasSelection = "", false
	s.recompute()
}

// ToggleLabels flips the global label flag.
func (s *State) ToggleLabels() {
	s.SetLabelsEnabled(!s.labelsEnabled)
}

// SetLabelsEnabled sets the global label flag.
func (s *State) SetLabelsEnabled(on bool) {
	s.labelsEnabled = on
	s.recompute()
}

// recompute derives visibility from scratch.
func (s *State) recompute() {
	vis := Visibility{
		Nodes:  make(map[string]bool, len(s.nodes)),
		Edges:  make([]bool, len(s.edges)),
		Labels: make(map[string]bool, len(s.nodes)),
	}

	if !s.hasSelection {
		for i := range s.nodes {
			vis.Nodes[s.nodes[i].ID] = true
		}
	} else {
		for i := range s.nodes {
			vis.Nodes[s.nodes[i].ID] = false
		}
		vis.Nodes[s.selected] = true
		for i := range s.edges {
			e := &s.edges[i]
			if _, known := vis.Nodes[e.To]; known && e.From == s.selected {
				vis.Nodes[e.To] = true
			}
			if _, known := vis.Nodes[e.From]; known && e.To == s.selected {
				vis.Nodes[e.From] = true
			}
		}
	}

	for i := range s.edges {
		vis.Edges[i] = !s.hasSelection || (vis.Nodes[s.edges[i].From] && vis.Nodes[s.edges[i].To])
	}
	for id, visible := range vis.Nodes {
		vis.Labels[id] = s.labelsEnabled && visible
	}
	s.vis = vis
}
