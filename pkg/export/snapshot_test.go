package export

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/graph3d/pkg/projection"
)

func TestSaveSnapshot_SVGAndPNG(t *testing.T) {
	s := newTestSession(t, true)
	scene := BuildScene(s.Snapshot(), SceneOptions{Dataset: "example", Edges: payrollGraph().Edges})

	tmp := t.TempDir()
	cases := []struct {
		name   string
		format string
	}{
		{"svg", "scene.svg"},
		{"png", "scene.png"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := filepath.Join(tmp, tc.format)
			if err := SaveSnapshot(SnapshotOptions{Path: out, Scene: scene}); err != nil {
				t.Fatalf("SaveSnapshot error: %v", err)
			}
			info, err := os.Stat(out)
			if err != nil {
				t.Fatalf("output not created: %v", err)
			}
			if info.Size() == 0 {
				t.Fatalf("output file is empty")
			}
		})
	}

	f, err := os.Open(filepath.Join(tmp, "scene.png"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("png decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 1200 || b.Dy() != 860 {
		t.Errorf("png size = %v, want 1200x860", b)
	}
}

func TestSaveSnapshot_InvalidFormat(t *testing.T) {
	s := newTestSession(t, false)
	scene := BuildScene(s.Snapshot(), SceneOptions{})
	err := SaveSnapshot(SnapshotOptions{Path: filepath.Join(t.TempDir(), "scene.txt"), Format: "gif", Scene: scene})
	if err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
	if err := SaveSnapshot(SnapshotOptions{Path: "x.svg"}); err == nil {
		t.Fatal("expected error for empty scene")
	}
}

func TestSaveSnapshot_DefaultsToSVGExtension(t *testing.T) {
	s := newTestSession(t, false)
	scene := BuildScene(s.Snapshot(), SceneOptions{})
	base := filepath.Join(t.TempDir(), "scene")
	if err := SaveSnapshot(SnapshotOptions{Path: base, Scene: scene}); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if _, err := os.Stat(base + ".svg"); err != nil {
		t.Fatalf("expected %s.svg: %v", base, err)
	}
}

func TestWriteSVGHonoursVisibilityAndLabels(t *testing.T) {
	s := newTestSession(t, true)
	s.Click("A")
	scene := BuildScene(s.Snapshot(), SceneOptions{Edges: payrollGraph().Edges})

	var buf bytes.Buffer
	if err := WriteSVG(&buf, SnapshotOptions{Scene: scene, Title: "Focus"}); err != nil {
		t.Fatalf("WriteSVG: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`id="node-A"`, `id="node-B"`, "Payroll (100)", "selected: A", "Focus"} {
		if !strings.Contains(out, want) {
			t.Errorf("svg missing %q", want)
		}
	}
	for _, hidden := range []string{`id="node-C"`, `id="node-D"`, "Rent ("} {
		if strings.Contains(out, hidden) {
			t.Errorf("svg should not contain hidden %q", hidden)
		}
	}
	if strings.Count(out, "<polygon") != 1 {
		t.Errorf("expected exactly one arrow head, got %d", strings.Count(out, "<polygon"))
	}
}

func TestBuildFrameUsesCamera(t *testing.T) {
	s := newTestSession(t, false)
	scene := BuildScene(s.Snapshot(), SceneOptions{})

	cam := projection.Frame(s.Snapshot().Nodes)
	near := buildFrame(SnapshotOptions{Scene: scene, Camera: &cam})
	zoomed := cam.Zoom(0.5)
	closer := buildFrame(SnapshotOptions{Scene: scene, Camera: &zoomed})
	if len(near.Discs) == 0 || len(closer.Discs) == 0 {
		t.Fatal("no discs rendered")
	}
	radius := func(f frame, id string) float64 {
		for _, d := range f.Discs {
			if d.ID == id {
				return d.R
			}
		}
		return 0
	}
	if radius(closer, "B") <= radius(near, "B") {
		t.Errorf("zooming in should enlarge discs: %v <= %v", radius(closer, "B"), radius(near, "B"))
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Checking account", 8); got != "Check..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 2); got != "ab" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("abc", 10); got != "abc" {
		t.Errorf("truncate noop = %q", got)
	}
}
