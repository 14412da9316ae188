// Package simulation glues the date machine to the balance engine and owns
// the mutable graph, selection and derived layout for one viewer.
package simulation

import (
	"sync"
	"time"

	"github.com/vanderheijden86/graph3d/pkg/balance"
	"github.com/vanderheijden86/graph3d/pkg/datestate"
	"github.com/vanderheijden86/graph3d/pkg/debug"
	"github.com/vanderheijden86/graph3d/pkg/layout"
	"github.com/vanderheijden86/graph3d/pkg/model"
	"github.com/vanderheijden86/graph3d/pkg/selection"
)

// MaxReplayDays bounds how many single-day transitions a date jump replays.
// Longer jumps rebase the tracked date without touching balances.
const MaxReplayDays = 3660

// Snapshot is everything a renderer needs for one frame.
type Snapshot struct {
	State         datestate.State
	Nodes         []model.PositionedNode
	Arrows        []layout.Arrow
	Visibility    selection.Visibility
	Selected      string
	HasSelection  bool
	LabelsEnabled bool
}

// Session owns one graph instance. Date changes coming from the machine
// (including its frame goroutine) are applied to balances before the
// observer hears about them.
type Session struct {
	mu       sync.Mutex
	graph    model.Graph
	machine  *datestate.Machine
	sel      *selection.State
	tracked  time.Time
	observer func(datestate.State)

	layoutCache []model.PositionedNode
	arrowCache  []layout.Arrow
	dirty       bool
}

// New clones g and starts a paused session over it.
func New(g model.Graph, labelsEnabled bool, opts ...datestate.Option) *Session {
	s := &Session{
		graph: g.Clone(),
		dirty: true,
	}
	s.machine = datestate.NewMachine(opts...)
	s.tracked = s.machine.Date()
	s.sel = selection.New(s.graph.Nodes, s.graph.Edges, labelsEnabled)
	s.machine.OnUpdate(s.onDate)
	return s
}

// Machine exposes the date machine for play/pause/step commands.
func (s *Session) Machine() *datestate.Machine { return s.machine }

// OnChange sets the single observer for date-driven updates.
func (s *Session) OnChange(fn func(datestate.State)) {
	s.mu.Lock()
	s.observer = fn
	s.mu.Unlock()
}

func (s *Session) onDate(st datestate.State) {
	s.mu.Lock()
	n := s.replayLocked(st.Date)
	obs := s.observer
	s.mu.Unlock()

	debug.LogIf(n > 0, "simulation: %d balance updates entering %s", n, st.FormattedDate())
	if obs != nil {
		obs(st)
	}
}

// replayLocked walks from the tracked date to target one day at a time.
// Entering day D applies +1 for D's day of month; leaving D backwards
// applies -1 for it, so a step forward and back cancels exactly.
func (s *Session) replayLocked(target time.Time) int {
	days := datestate.DaysBetween(s.tracked, target)
	if days == 0 {
		return 0
	}
	if days > MaxReplayDays || days < -MaxReplayDays {
		debug.Log("simulation: rebasing %d-day jump without replay", days)
		s.tracked = datestate.Midnight(target)
		return 0
	}

	updates := 0
	for days > 0 {
		s.tracked = datestate.AddDays(s.tracked, 1)
		updates += balance.ApplyDateTransition(s.graph.Nodes, s.graph.Edges, s.tracked.Day(), balance.Forward)
		days--
	}
	for days < 0 {
		updates += balance.ApplyDateTransition(s.graph.Nodes, s.graph.Edges, s.tracked.Day(), balance.Backward)
		s.tracked = datestate.AddDays(s.tracked, -1)
		days++
	}
	if updates > 0 {
		s.dirty = true
	}
	return updates
}

// Click toggles focus on a node. Unknown ids leave the selection as is.
func (s *Session) Click(nodeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.Click(nodeID)
}

// ClickMesh toggles focus on the node behind a mesh name.
func (s *Session) ClickMesh(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.ClickMesh(name)
}

// ToggleLabels flips the global label flag.
func (s *Session) ToggleLabels() {
	s.mu.Lock()
	s.sel.ToggleLabels()
	s.mu.Unlock()
}

// Balances returns the running balance of every node that has one.
func (s *Session) Balances() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64)
	for i := range s.graph.Nodes {
		if s.graph.Nodes[i].CurrentValue != nil {
			out[s.graph.Nodes[i].ID] = *s.graph.Nodes[i].CurrentValue
		}
	}
	return out
}

// Graph returns a deep copy of the current graph, balances included.
func (s *Session) Graph() model.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Clone()
}

// Reload swaps in a freshly loaded graph. Balances start over from the new
// data; the date, speed and play state are kept.
func (s *Session) Reload(g model.Graph) {
	s.mu.Lock()
	s.graph = g.Clone()
	s.tracked = s.machine.Date()
	s.sel.SetGraph(s.graph.Nodes, s.graph.Edges)
	s.dirty = true
	s.mu.Unlock()
	debug.Log("simulation: reloaded %d nodes, %d edges", len(g.Nodes), len(g.Edges))
}

// Snapshot lays out the graph if balances or data changed since the last
// call and returns the frame state. The node and arrow slices are shared
// between snapshots and must not be modified.
func (s *Session) Snapshot() Snapshot {
	st := s.machine.State()

	s.mu.Lock()
	defer s.mu.Unlock()
	// A notification may still be in flight; catch up so the snapshot is
	// consistent with the date it reports.
	s.replayLocked(st.Date)
	if s.dirty {
		s.layoutCache = layout.Hierarchical(s.graph.Nodes, s.graph.Edges)
		s.arrowCache = layout.Arrows(s.layoutCache, s.graph.Edges)
		s.dirty = false
	}
	id, ok := s.sel.Selected()
	return Snapshot{
		State:         st,
		Nodes:         s.layoutCache,
		Arrows:        s.arrowCache,
		Visibility:    s.sel.Visibility(),
		Selected:      id,
		HasSelection:  ok,
		LabelsEnabled: s.sel.LabelsEnabled(),
	}
}

// Close disposes the date machine.
func (s *Session) Close() {
	s.machine.Dispose()
}
