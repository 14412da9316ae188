package ui

import (
	"math"
	"strings"

	"github.com/vanderheijden86/graph3d/pkg/projection"
	"github.com/vanderheijden86/graph3d/pkg/simulation"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// cellAspect is how much taller a terminal cell is than it is wide.
const cellAspect = 2.0

const continuation = rune(-1)

type cell struct {
	r     rune
	style int
}

// canvas is a character grid with one style per cell. Style 0 is unstyled.
type canvas struct {
	w, h   int
	cells  []cell
	styles []lipgloss.Style
}

func newCanvas(w, h int) *canvas {
	c := &canvas{w: w, h: h, cells: make([]cell, w*h)}
	for i := range c.cells {
		c.cells[i].r = ' '
	}
	c.styles = []lipgloss.Style{{}}
	return c
}

func (c *canvas) addStyle(s lipgloss.Style) int {
	c.styles = append(c.styles, s)
	return len(c.styles) - 1
}

func (c *canvas) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < c.w && y < c.h
}

func (c *canvas) at(x, y int) rune {
	if !c.inside(x, y) {
		return 0
	}
	return c.cells[y*c.w+x].r
}

func (c *canvas) set(x, y int, r rune, style int) {
	if !c.inside(x, y) {
		return
	}
	c.cells[y*c.w+x] = cell{r: r, style: style}
}

// text writes s starting at (x, y), clipped at the right edge. Wide runes
// occupy two cells.
func (c *canvas) text(x, y int, s string, style int) {
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		if x+rw > c.w {
			return
		}
		c.set(x, y, r, style)
		if rw == 2 {
			c.set(x+1, y, continuation, style)
		}
		x += rw
	}
}

// line draws a Bresenham segment without overwriting non-blank cells.
func (c *canvas) line(x0, y0, x1, y1 int, r rune, style int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for steps := 0; steps < c.w+c.h+dx-dy; steps++ {
		if c.at(x0, y0) == ' ' {
			c.set(x0, y0, r, style)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (c *canvas) String() string {
	var b strings.Builder
	for y := 0; y < c.h; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		row := c.cells[y*c.w : (y+1)*c.w]
		var run strings.Builder
		cur := row[0].style
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if cur == 0 {
				b.WriteString(run.String())
			} else {
				b.WriteString(c.styles[cur].Render(run.String()))
			}
			run.Reset()
		}
		for _, cl := range row {
			if cl.r == continuation {
				continue
			}
			if cl.style != cur {
				flush()
				cur = cl.style
			}
			run.WriteRune(cl.r)
		}
		flush()
	}
	return b.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// arrowGlyph picks the arrow rune closest to the screen direction (dx, dy),
// with y growing downwards.
func arrowGlyph(dx, dy float64) rune {
	glyphs := [8]rune{'→', '↘', '↓', '↙', '←', '↖', '↑', '↗'}
	angle := math.Atan2(dy, dx)
	octant := int(math.Round(angle/(math.Pi/4))+8) % 8
	return glyphs[octant]
}

// renderScene projects a snapshot onto a w x h character grid. Hidden nodes
// and edges are skipped; nodes are painted far to near so nearer spheres
// cover the ones behind them.
func renderScene(snap simulation.Snapshot, cam projection.Camera, w, h int, theme Theme) string {
	if w <= 0 || h <= 0 {
		return ""
	}
	c := newCanvas(w, h)
	pxW, pxH := float64(w), float64(h)*cellAspect

	project := func(pt projection.Point) (int, int) {
		return int(math.Round(pt.X)), int(math.Round(pt.Y / cellAspect))
	}

	edgeStyle := c.addStyle(theme.EdgeLine)
	for _, a := range snap.Arrows {
		if !snap.Visibility.EdgeVisible(a.EdgeIndex) {
			continue
		}
		s := cam.Project(a.Start, pxW, pxH)
		e := cam.Project(a.End, pxW, pxH)
		if !s.Visible || !e.Visible {
			continue
		}
		x0, y0 := project(s)
		x1, y1 := project(e)
		c.line(x0, y0, x1, y1, '·', edgeStyle)
		c.set(x1, y1, arrowGlyph(e.X-s.X, e.Y-s.Y), edgeStyle)
	}

	nodeStyles := make(map[string]int)
	focus := c.addStyle(theme.FocusMark)
	labelStyle := c.addStyle(theme.Base)
	for _, i := range cam.DepthOrder(snap.Nodes) {
		n := snap.Nodes[i]
		if !snap.Visibility.NodeVisible(n.ID) {
			continue
		}
		pt := cam.Project(n.Position, pxW, pxH)
		if !pt.Visible {
			continue
		}
		x, y := project(pt)
		typ := string(n.Type.Normalize())
		style, ok := nodeStyles[typ]
		if !ok {
			style = c.addStyle(theme.NodeStyle(n.Type))
			nodeStyles[typ] = style
		}

		rx := n.Radius * pt.Scale
		ry := rx / cellAspect
		glyph := '•'
		if rx >= 1 {
			glyph = '●'
		}
		if rx >= 1.5 {
			for dy := -int(ry); dy <= int(ry); dy++ {
				for dx := -int(rx); dx <= int(rx); dx++ {
					fx, fy := float64(dx)/rx, float64(dy)/math.Max(ry, 0.5)
					if fx*fx+fy*fy <= 1 {
						c.set(x+dx, y+dy, '●', style)
					}
				}
			}
		}
		if snap.HasSelection && n.ID == snap.Selected {
			c.set(x, y, '◉', focus)
		} else {
			c.set(x, y, glyph, style)
		}

		if snap.Visibility.LabelVisible(n.ID) {
			c.text(x+int(math.Max(rx, 1))+1, y, n.Label(), labelStyle)
		}
	}
	return c.String()
}
