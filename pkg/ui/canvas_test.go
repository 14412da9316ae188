package ui

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/graph3d/pkg/projection"
)

func TestCanvasTextAndLine(t *testing.T) {
	c := newCanvas(10, 3)
	c.text(1, 0, "hi", 0)
	c.line(0, 2, 9, 2, '-', 0)
	c.text(8, 1, "long", 0)

	lines := strings.Split(c.String(), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(lines))
	}
	if lines[0] != " hi       " {
		t.Errorf("row 0 = %q", lines[0])
	}
	if lines[1] != "        lo" {
		t.Errorf("text should clip at the edge, row 1 = %q", lines[1])
	}
	if lines[2] != "----------" {
		t.Errorf("row 2 = %q", lines[2])
	}
}

func TestCanvasLineKeepsExistingCells(t *testing.T) {
	c := newCanvas(5, 1)
	c.set(2, 0, '●', 0)
	c.line(0, 0, 4, 0, '·', 0)
	if got := c.String(); got != "··●··" {
		t.Errorf("got %q", got)
	}
}

func TestCanvasWideRunes(t *testing.T) {
	c := newCanvas(4, 1)
	c.text(0, 0, "日本", 0)
	if got := c.String(); got != "日本" {
		t.Errorf("got %q", got)
	}
}

func TestArrowGlyph(t *testing.T) {
	tests := []struct {
		dx, dy float64
		want   rune
	}{
		{1, 0, '→'},
		{-1, 0, '←'},
		{0, 1, '↓'},
		{0, -1, '↑'},
		{1, 1, '↘'},
		{-1, -1, '↖'},
	}
	for _, tt := range tests {
		if got := arrowGlyph(tt.dx, tt.dy); got != tt.want {
			t.Errorf("arrowGlyph(%v,%v) = %c, want %c", tt.dx, tt.dy, got, tt.want)
		}
	}
}

func TestRenderSceneFocusAndLabels(t *testing.T) {
	_, s := newTestModel(t)
	s.ToggleLabels()
	s.Click("C")
	snap := s.Snapshot()

	out := renderScene(snap, projection.Frame(snap.Nodes), 120, 40, TestTheme())
	if !strings.Contains(out, "◉") {
		t.Error("focused node should be drawn with ◉")
	}
	if !strings.Contains(out, "Rent (50)") {
		t.Error("focused node label missing")
	}
	if !strings.Contains(out, "Checking (0)") {
		t.Error("neighbor label missing")
	}
	if strings.Contains(out, "Payroll") {
		t.Error("node outside the focus should be hidden")
	}
}

func TestRenderSceneEmpty(t *testing.T) {
	_, s := newTestModel(t)
	snap := s.Snapshot()
	if out := renderScene(snap, projection.Frame(snap.Nodes), 0, 10, TestTheme()); out != "" {
		t.Errorf("zero width should render nothing, got %q", out)
	}
}
