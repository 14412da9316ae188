package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/graph3d/pkg/analysis"

	json "github.com/goccy/go-json"
)

func TestBuildSceneUnselected(t *testing.T) {
	s := newTestSession(t, true)
	g := payrollGraph()
	stats := analysis.NewAnalyzer(g.Nodes, g.Edges).Analyze()

	scene := BuildScene(s.Snapshot(), SceneOptions{Dataset: "example", Edges: g.Edges, Stats: &stats})

	if scene.Date != "January 14, 2025" || scene.ISODate != "2025-01-14" {
		t.Errorf("date = %q / %q", scene.Date, scene.ISODate)
	}
	if len(scene.Nodes) != 4 {
		t.Fatalf("expected 4 nodes, got %d", len(scene.Nodes))
	}
	// B has the highest degree and sits alone in the centre layer.
	if scene.Nodes[0].ID != "B" || scene.Nodes[0].Layer != 0 {
		t.Errorf("centre node = %s (layer %d), want B in layer 0", scene.Nodes[0].ID, scene.Nodes[0].Layer)
	}
	for _, n := range scene.Nodes[1:] {
		if n.Layer != 1 {
			t.Errorf("node %s in layer %d, want 1", n.ID, n.Layer)
		}
	}
	for _, n := range scene.Nodes {
		if !n.Visible || !n.LabelVisible {
			t.Errorf("node %s should be visible with a label", n.ID)
		}
		if n.Mesh != "node-"+n.ID {
			t.Errorf("mesh name = %q", n.Mesh)
		}
	}
	if got := scene.Nodes[0].Label; got != "Checking (0)" {
		t.Errorf("label = %q", got)
	}

	// The dangling edge to "ghost" has no geometry.
	if len(scene.Edges) != 2 {
		t.Fatalf("expected 2 rendered edges, got %d", len(scene.Edges))
	}
	if scene.Edges[0].Type != "salary" || scene.Edges[0].DayOfMonth == nil || *scene.Edges[0].DayOfMonth != 15 {
		t.Errorf("edge metadata not copied: %+v", scene.Edges[0])
	}
	if scene.Summary.EdgeCount != 3 || scene.Summary.Rendered != 2 {
		t.Errorf("edge counts = %d/%d, want 3/2", scene.Summary.EdgeCount, scene.Summary.Rendered)
	}
	if scene.Summary.TopHub != "B" {
		t.Errorf("top hub = %q, want B", scene.Summary.TopHub)
	}
	want := RoleCounts{Sources: 1, Sinks: 1, Intermediates: 1, Disconnected: 1}
	if scene.Summary.Roles != want {
		t.Errorf("roles = %+v, want %+v", scene.Summary.Roles, want)
	}
}

func TestBuildSceneFocusHidesUnrelated(t *testing.T) {
	s := newTestSession(t, false)
	s.Click("A")
	g := payrollGraph()

	scene := BuildScene(s.Snapshot(), SceneOptions{Edges: g.Edges})
	if scene.Selected != "A" {
		t.Fatalf("selected = %q", scene.Selected)
	}
	visible := map[string]bool{}
	for _, n := range scene.Nodes {
		visible[n.ID] = n.Visible
		if n.LabelVisible {
			t.Errorf("labels are off but %s has one", n.ID)
		}
	}
	if !visible["A"] || !visible["B"] || visible["C"] || visible["D"] {
		t.Errorf("visibility = %v, want only A and B", visible)
	}
	for _, e := range scene.Edges {
		if e.Visible != (e.From == "A") {
			t.Errorf("edge %s->%s visible=%v", e.From, e.To, e.Visible)
		}
	}
	if scene.Summary.VisibleNodes != 2 {
		t.Errorf("visible nodes = %d", scene.Summary.VisibleNodes)
	}
}

func TestBuildSceneReflectsBalance(t *testing.T) {
	s := newTestSession(t, false)
	s.Machine().NextDay()

	scene := BuildScene(s.Snapshot(), SceneOptions{})
	var b *SceneNode
	for i := range scene.Nodes {
		if scene.Nodes[i].ID == "B" {
			b = &scene.Nodes[i]
		}
	}
	if b == nil {
		t.Fatal("B missing")
	}
	if b.Value != 50 || b.Balance == nil || *b.Balance != 50 {
		t.Errorf("B value=%v balance=%v, want 50", b.Value, b.Balance)
	}
	if scene.Date != "January 15, 2025" {
		t.Errorf("date = %q", scene.Date)
	}
}

func TestWriteSceneJSON(t *testing.T) {
	s := newTestSession(t, true)
	scene := BuildScene(s.Snapshot(), SceneOptions{Dataset: "example"})

	var buf bytes.Buffer
	if err := WriteScene(&buf, scene); err != nil {
		t.Fatalf("WriteScene: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"nodes", "edges", "summary", "date", "speed_multiplier"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if !strings.Contains(buf.String(), `"color": "#ff4d4d"`) {
		t.Errorf("primary colour hex not found in output")
	}

	out := filepath.Join(t.TempDir(), "nested", "scene.json")
	if err := SaveScene(out, scene); err != nil {
		t.Fatalf("SaveScene: %v", err)
	}
	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		t.Fatalf("scene file not written: %v", err)
	}
}

func TestLayerOf(t *testing.T) {
	tests := []struct{ i, want int }{{0, 0}, {1, 1}, {8, 1}, {9, 2}, {20, 2}, {21, 3}}
	for _, tt := range tests {
		if got := layerOf(tt.i); got != tt.want {
			t.Errorf("layerOf(%d) = %d, want %d", tt.i, got, tt.want)
		}
	}
}
