package layout

import (
	"math"
	"testing"

	"github.com/vanderheijden86/graph3d/pkg/model"
)

func TestArrowsTouchSphereSurfaces(t *testing.T) {
	positioned := []model.PositionedNode{
		{Node: model.Node{ID: "a"}, Position: model.Vec3{}, Radius: 1},
		{Node: model.Node{ID: "b"}, Position: model.Vec3{X: 10}, Radius: 2},
	}
	edges := []model.Edge{{From: "a", To: "b", Weight: 5}}

	arrows := Arrows(positioned, edges)
	if len(arrows) != 1 {
		t.Fatalf("expected 1 arrow, got %d", len(arrows))
	}
	ar := arrows[0]
	if ar.Start != (model.Vec3{X: 1}) || ar.End != (model.Vec3{X: 8}) {
		t.Errorf("start/end = %+v/%+v, want x=1/x=8", ar.Start, ar.End)
	}
	if math.Abs(ar.ShaftLength-4.9) > 1e-9 {
		t.Errorf("shaft length = %v, want 4.9", ar.ShaftLength)
	}
	if math.Abs(ar.ShaftCenter.X-3.45) > 1e-9 || math.Abs(ar.HeadCenter.X-6.25) > 1e-9 {
		t.Errorf("shaft/head centre = %v/%v", ar.ShaftCenter.X, ar.HeadCenter.X)
	}
}

func TestArrowsSkipDanglingAndSelfLoops(t *testing.T) {
	positioned := []model.PositionedNode{
		{Node: model.Node{ID: "a"}, Radius: 0.5},
		{Node: model.Node{ID: "b"}, Position: model.Vec3{Y: 5}, Radius: 0.5},
	}
	edges := []model.Edge{
		{From: "a", To: "ghost"},
		{From: "a", To: "a"},
		{From: "b", To: "a"},
	}
	arrows := Arrows(positioned, edges)
	if len(arrows) != 1 || arrows[0].EdgeIndex != 2 {
		t.Fatalf("expected only edge 2 to render, got %+v", arrows)
	}
	if arrows[0].Direction != (model.Vec3{Y: -1}) {
		t.Errorf("direction = %+v, want -Y", arrows[0].Direction)
	}
}
