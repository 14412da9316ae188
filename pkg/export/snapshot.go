package export

import (
	"fmt"
	"html"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/graph3d/pkg/layout"
	"github.com/vanderheijden86/graph3d/pkg/metrics"
	"github.com/vanderheijden86/graph3d/pkg/model"
	"github.com/vanderheijden86/graph3d/pkg/projection"
	"github.com/vanderheijden86/graph3d/pkg/selection"
	"github.com/vanderheijden86/graph3d/pkg/valuation"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"
)

// SnapshotOptions controls static scene rendering.
type SnapshotOptions struct {
	Path   string // Output path; format inferred from extension when Format empty
	Format string // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title  string // Optional title rendered in summary block
	Width  int    // Canvas width in pixels (default 1200)
	Height int    // Canvas height in pixels (default 860)
	Scene  Scene
	Camera *projection.Camera // nil frames the whole scene
}

var (
	colorBackdrop = color.RGBA{R: 0x11, G: 0x14, B: 0x1a, A: 0xff}
	colorHeaderBG = color.RGBA{R: 0x1d, G: 0x22, B: 0x2c, A: 0xff}
	colorLegendBG = color.RGBA{R: 0x1a, G: 0x1f, B: 0x28, A: 0xff}
	colorStroke   = color.RGBA{R: 0x3b, G: 0x43, B: 0x52, A: 0xff}
	colorText     = color.RGBA{R: 0xec, G: 0xef, B: 0xf4, A: 0xff}
	colorSubtle   = color.RGBA{R: 0x9a, G: 0xa3, B: 0xb5, A: 0xff}
	colorEdge     = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	colorFocus    = color.RGBA{R: 0xff, G: 0xd7, B: 0x00, A: 0xff}
)

const headerHeight = 124.0

// SaveSnapshot renders the scene to an SVG or PNG file.
func SaveSnapshot(opts SnapshotOptions) error {
	defer metrics.Timer(metrics.Export)()

	if len(opts.Scene.Nodes) == 0 {
		return fmt.Errorf("no nodes to export")
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		default:
			format = "svg"
			if opts.Path != "" && filepath.Ext(opts.Path) == "" {
				opts.Path = opts.Path + ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	f := buildFrame(opts)
	switch format {
	case "png":
		return renderPNG(opts.Path, f)
	default:
		file, err := os.Create(opts.Path)
		if err != nil {
			return err
		}
		defer file.Close()
		return renderSVG(file, f)
	}
}

// WriteSVG renders the scene as SVG into w.
func WriteSVG(w io.Writer, opts SnapshotOptions) error {
	return renderSVG(w, buildFrame(opts))
}

// --- projection --------------------------------------------------------------

type disc struct {
	ID      string
	X, Y, R float64
	Fill    color.RGBA
	Label   string
	ShowTag bool
	Focused bool
}

type arrowShape struct {
	X1, Y1, X2, Y2 float64 // shaft from sphere surface to head base
	Head           [3][2]float64
}

type frame struct {
	Width, Height int
	Title         string
	Lines         []string
	Discs         []disc // far to near
	Arrows        []arrowShape
}

func buildFrame(opts SnapshotOptions) frame {
	if opts.Width <= 0 {
		opts.Width = 1200
	}
	if opts.Height <= 0 {
		opts.Height = 860
	}
	sc := opts.Scene
	f := frame{Width: opts.Width, Height: opts.Height, Title: opts.Title}
	if f.Title == "" {
		f.Title = "Money flow"
		if sc.Dataset != "" {
			f.Title += ": " + sc.Dataset
		}
	}
	state := "paused"
	if sc.IsPlaying {
		state = "playing"
	}
	f.Lines = []string{
		fmt.Sprintf("date: %s  (%s, %dx)", sc.Date, state, max(sc.Speed, 1)),
		fmt.Sprintf("nodes: %d  edges: %d  components: %d", sc.Summary.NodeCount, sc.Summary.EdgeCount, sc.Summary.Components),
		fmt.Sprintf("top hub: %s", orDash(sc.Summary.TopHub)),
		fmt.Sprintf("selected: %s", orDash(sc.Selected)),
	}

	positioned := make([]model.PositionedNode, len(sc.Nodes))
	for i, n := range sc.Nodes {
		positioned[i] = model.PositionedNode{Position: n.Position, Radius: n.Radius}
	}
	cam := projection.Frame(positioned)
	if opts.Camera != nil {
		cam = *opts.Camera
	}

	vw := float64(f.Width)
	vh := float64(f.Height) - headerHeight
	project := func(p model.Vec3) projection.Point {
		pt := cam.Project(p, vw, vh)
		pt.Y += headerHeight
		return pt
	}

	for _, e := range sc.Edges {
		if !e.Visible {
			continue
		}
		a, b := project(e.Start), project(e.End)
		if !a.Visible || !b.Visible {
			continue
		}
		f.Arrows = append(f.Arrows, arrowHead(a, b))
	}

	for _, i := range cam.DepthOrder(positioned) {
		n := sc.Nodes[i]
		if !n.Visible {
			continue
		}
		pt := project(n.Position)
		if !pt.Visible {
			continue
		}
		f.Discs = append(f.Discs, disc{
			ID:      n.ID,
			X:       pt.X,
			Y:       pt.Y,
			R:       math.Max(2, n.Radius*pt.Scale),
			Fill:    rgba(n.RGB),
			Label:   truncate(n.Label, 32),
			ShowTag: n.LabelVisible,
			Focused: sc.Selected != "" && n.ID == sc.Selected,
		})
	}
	return f
}

func arrowHead(a, b projection.Point) arrowShape {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	s := arrowShape{X1: a.X, Y1: a.Y, X2: b.X, Y2: b.Y}
	if l == 0 {
		s.Head = [3][2]float64{{b.X, b.Y}, {b.X, b.Y}, {b.X, b.Y}}
		return s
	}
	ux, uy := dx/l, dy/l
	hl := math.Max(6, layout.HeadHeight*b.Scale)
	hl = math.Min(hl, l*0.6)
	hw := math.Max(3, layout.HeadDiameter/2*b.Scale)
	bx, by := b.X-ux*hl, b.Y-uy*hl
	s.X2, s.Y2 = bx, by
	s.Head = [3][2]float64{
		{b.X, b.Y},
		{bx - uy*hw, by + ux*hw},
		{bx + uy*hw, by - ux*hw},
	}
	return s
}

// --- PNG -----------------------------------------------------------------------

func renderPNG(path string, f frame) error {
	dc := gg.NewContext(f.Width, f.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(f.Width)-32, headerHeight-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	drawSummaryBlock(dc, f)
	drawLegend(dc, f)

	dc.SetLineWidth(1.5)
	for _, a := range f.Arrows {
		dc.SetColor(colorEdge)
		dc.DrawLine(a.X1, a.Y1, a.X2, a.Y2)
		dc.Stroke()
		dc.NewSubPath()
		dc.MoveTo(a.Head[0][0], a.Head[0][1])
		dc.LineTo(a.Head[1][0], a.Head[1][1])
		dc.LineTo(a.Head[2][0], a.Head[2][1])
		dc.ClosePath()
		dc.Fill()
	}

	for _, d := range f.Discs {
		dc.SetColor(d.Fill)
		dc.DrawCircle(d.X, d.Y, d.R)
		dc.Fill()
		if d.Focused {
			dc.SetColor(colorFocus)
			dc.SetLineWidth(2.5)
		} else {
			dc.SetColor(colorStroke)
			dc.SetLineWidth(1)
		}
		dc.DrawCircle(d.X, d.Y, d.R)
		dc.Stroke()
	}

	dc.SetColor(colorText)
	for _, d := range f.Discs {
		if d.ShowTag {
			dc.DrawStringAnchored(d.Label, d.X, d.Y-d.R-8, 0.5, 0.5)
		}
	}

	return dc.SavePNG(path)
}

func drawSummaryBlock(dc *gg.Context, f frame) {
	dc.SetColor(colorText)
	dc.DrawStringAnchored(f.Title, 32, 40, 0, 0.5)
	dc.SetColor(colorSubtle)
	for i, line := range f.Lines {
		dc.DrawStringAnchored(line, 32, 58+float64(i)*16, 0, 0.5)
	}
}

func drawLegend(dc *gg.Context, f frame) {
	boxW := 160.0
	boxH := 88.0
	x := float64(f.Width) - boxW - 28
	y := 22.0
	dc.SetColor(colorLegendBG)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Stroke()

	for i, t := range legendTypes {
		cy := y + 16 + float64(i)*18
		dc.SetColor(rgba(valuation.ColorForType(t)))
		dc.DrawCircle(x+18, cy, 6)
		dc.Fill()
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(string(t), x+32, cy, 0, 0.5)
	}
}

// --- SVG -----------------------------------------------------------------------

func renderSVG(w io.Writer, f frame) error {
	canvas := svg.New(w)
	canvas.Start(f.Width, f.Height)
	canvas.Rect(0, 0, f.Width, f.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, f.Width-32, int(headerHeight-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	canvas.Text(32, 44, f.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	for i, line := range f.Lines {
		canvas.Text(32, 64+i*16, line, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
	}

	boxW, boxH := 160, 88
	x := f.Width - boxW - 28
	canvas.Roundrect(x, 22, boxW, boxH, 10, 10, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(colorLegendBG), css(colorStroke)))
	for i, t := range legendTypes {
		cy := 38 + i*18
		canvas.Circle(x+18, cy, 6, fmt.Sprintf("fill:%s", css(rgba(valuation.ColorForType(t)))))
		canvas.Text(x+32, cy+4, string(t), fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}

	for _, a := range f.Arrows {
		canvas.Line(round(a.X1), round(a.Y1), round(a.X2), round(a.Y2),
			fmt.Sprintf("stroke:%s;stroke-width:1.5", css(colorEdge)))
		canvas.Polygon(
			[]int{round(a.Head[0][0]), round(a.Head[1][0]), round(a.Head[2][0])},
			[]int{round(a.Head[0][1]), round(a.Head[1][1]), round(a.Head[2][1])},
			fmt.Sprintf("fill:%s", css(colorEdge)),
		)
	}

	for _, d := range f.Discs {
		stroke, width := colorStroke, "1"
		if d.Focused {
			stroke, width = colorFocus, "2.5"
		}
		canvas.Circle(round(d.X), round(d.Y), max(round(d.R), 2),
			fmt.Sprintf(`id="%s"`, html.EscapeString(selection.MeshName(d.ID))),
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%s", css(d.Fill), css(stroke), width))
	}
	for _, d := range f.Discs {
		if d.ShowTag {
			canvas.Text(round(d.X), round(d.Y-d.R-8), d.Label,
				fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace;text-anchor:middle", css(colorText)))
		}
	}

	canvas.End()
	return nil
}

// --- helpers -------------------------------------------------------------------

var legendTypes = []model.NodeType{model.TypePrimary, model.TypeSecondary, model.TypeTertiary, model.TypeDefault}

func rgba(c model.RGB) color.RGBA {
	ch := func(v float64) uint8 { return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255)) }
	return color.RGBA{R: ch(c.R), G: ch(c.G), B: ch(c.B), A: 0xff}
}

func round(v float64) int { return int(math.Round(v)) }

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
