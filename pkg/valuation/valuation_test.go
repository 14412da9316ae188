package valuation

import (
	"fmt"
	"math"
	"testing"

	"github.com/vanderheijden86/graph3d/pkg/model"

	"pgregory.net/rapid"
)

func TestClassifyRole(t *testing.T) {
	edges := []model.Edge{
		{From: "a", To: "b", Weight: 100},
		{From: "b", To: "c", Weight: 0},
	}
	tests := []struct {
		id   string
		want model.Role
	}{
		{"a", model.RoleSource},
		{"b", model.RoleIntermediate},
		{"c", model.RoleSink},
		{"z", model.RoleDisconnected},
	}
	for _, tt := range tests {
		if got := ClassifyRole(tt.id, edges); got != tt.want {
			t.Errorf("ClassifyRole(%s) = %s, want %s", tt.id, got, tt.want)
		}
	}
}

func TestClassifyRoleIgnoresWeight(t *testing.T) {
	edges := []model.Edge{{From: "a", To: "b", Weight: 0}}
	if got := ClassifyRole("b", edges); got != model.RoleSink {
		t.Errorf("zero-weight edge should still classify b as sink, got %s", got)
	}
}

func TestClassifyRoleSelfLoop(t *testing.T) {
	edges := []model.Edge{{From: "a", To: "a", Weight: 5}}
	if got := ClassifyRole("a", edges); got != model.RoleIntermediate {
		t.Errorf("self loop should be intermediate, got %s", got)
	}
}

func TestComputeNodeValuesEndToEnd(t *testing.T) {
	nodes := []model.Node{
		{ID: "A", Name: "A", Type: model.TypePrimary},
		{ID: "B", Name: "B", Type: model.TypeSecondary},
		{ID: "C", Name: "C", Type: model.TypeTertiary},
	}
	edges := []model.Edge{
		{From: "A", To: "B", Weight: 100},
		{From: "B", To: "C", Weight: 50},
	}
	values := ComputeNodeValues(nodes, edges)
	if values["A"] != 100 {
		t.Errorf("A = %v, want 100", values["A"])
	}
	if values["B"] != 0 {
		t.Errorf("B = %v, want 0 (no balance yet)", values["B"])
	}
	if values["C"] != 50 {
		t.Errorf("C = %v, want 50", values["C"])
	}
}

func TestComputeNodeValuesIntermediateUsesBalance(t *testing.T) {
	bal := -25.0
	nodes := []model.Node{{ID: "A"}, {ID: "B", CurrentValue: &bal}, {ID: "C"}, {ID: "D"}}
	edges := []model.Edge{
		{From: "A", To: "B", Weight: 100},
		{From: "B", To: "C", Weight: 50},
	}
	values := ComputeNodeValues(nodes, edges)
	if values["B"] != -25 {
		t.Errorf("B = %v, want running balance -25", values["B"])
	}
	if values["D"] != 0 {
		t.Errorf("disconnected D = %v, want 0", values["D"])
	}
}

func TestComputeNodeValuesParallelEdgesSum(t *testing.T) {
	nodes := []model.Node{{ID: "A"}, {ID: "B"}}
	edges := []model.Edge{
		{From: "A", To: "B", Weight: 10},
		{From: "A", To: "B", Weight: 15},
	}
	values := ComputeNodeValues(nodes, edges)
	if values["A"] != 25 || values["B"] != 25 {
		t.Errorf("expected parallel edges summed to 25, got A=%v B=%v", values["A"], values["B"])
	}
}

func TestComputeRadius(t *testing.T) {
	tests := []struct {
		value float64
		want  float64
	}{
		{0, 0.5},
		{1, 0.5},
		{10, 0.5},
		{100, 1.0},
		{1000, 1.5},
		{-100, 1.0},
		{1e6, 3.0},
	}
	for _, tt := range tests {
		got := ComputeRadius(tt.value)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ComputeRadius(%v) = %v, want %v", tt.value, got, tt.want)
		}
	}
	if ComputeRadius(0) != 0.5 {
		t.Error("ComputeRadius(0) must be exactly 0.5")
	}
}

func TestColorForType(t *testing.T) {
	if ColorForType(model.TypePrimary) != (model.RGB{R: 1, G: 0.3, B: 0.3}) {
		t.Error("primary should be red")
	}
	if ColorForType(model.TypeSecondary) != (model.RGB{R: 0.3, G: 1, B: 0.3}) {
		t.Error("secondary should be green")
	}
	if ColorForType(model.TypeTertiary) != (model.RGB{R: 0.3, G: 0.3, B: 1}) {
		t.Error("tertiary should be blue")
	}
	if ColorForType("mystery") != ColorForType(model.TypeDefault) {
		t.Error("unknown type should fall back to default yellow")
	}
}

func genGraph(t *rapid.T) ([]model.Node, []model.Edge) {
	n := rapid.IntRange(0, 12).Draw(t, "nodes")
	nodes := make([]model.Node, n)
	for i := range nodes {
		nodes[i] = model.Node{ID: fmt.Sprintf("n%d", i)}
	}
	var edges []model.Edge
	if n > 0 {
		m := rapid.IntRange(0, 30).Draw(t, "edges")
		for i := 0; i < m; i++ {
			edges = append(edges, model.Edge{
				From:   nodes[rapid.IntRange(0, n-1).Draw(t, "from")].ID,
				To:     nodes[rapid.IntRange(0, n-1).Draw(t, "to")].ID,
				Weight: rapid.Float64Range(0, 1e6).Draw(t, "weight"),
			})
		}
	}
	return nodes, edges
}

func TestRolesPartitionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		nodes, edges := genGraph(t)
		roles := Roles(nodes, edges)
		if len(roles) != len(nodes) {
			t.Fatalf("expected %d roles, got %d", len(nodes), len(roles))
		}
		for _, n := range nodes {
			r := roles[n.ID]
			if r != ClassifyRole(n.ID, edges) {
				t.Fatalf("Roles and ClassifyRole disagree for %s", n.ID)
			}
			touched := false
			for _, e := range edges {
				if e.From == n.ID || e.To == n.ID {
					touched = true
					break
				}
			}
			if !touched && r != model.RoleDisconnected {
				t.Fatalf("node %s with no edges classified %s", n.ID, r)
			}
		}
	})
}

func TestRadiusSignIndependentProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Float64Range(-1e12, 1e12).Draw(t, "v")
		r := ComputeRadius(v)
		if r != ComputeRadius(-v) {
			t.Fatalf("radius differs for %v and %v", v, -v)
		}
		if r < MinRadius {
			t.Fatalf("radius %v below floor", r)
		}
		w := math.Abs(v) * 2
		if ComputeRadius(w) < r {
			t.Fatalf("radius not monotonic in |v|: r(%v)=%v > r(%v)", v, r, w)
		}
	})
}
