package layout

import (
	"github.com/vanderheijden86/graph3d/pkg/model"
)

// Arrow shape constants, in scene units.
const (
	ShaftDiameter    = 0.1
	HeadHeight       = 0.5
	HeadDiameter     = 0.3
	shaftCenterLerp  = 0.35
	shaftLengthRatio = 0.7
	headCenterLerp   = 0.75
)

// Arrow is the renderable geometry of one edge. Start and End sit on the
// surfaces of the endpoint spheres.
type Arrow struct {
	EdgeIndex   int        `json:"edgeIndex"`
	From        string     `json:"from"`
	To          string     `json:"to"`
	Weight      float64    `json:"weight"`
	Start       model.Vec3 `json:"start"`
	End         model.Vec3 `json:"end"`
	Direction   model.Vec3 `json:"direction"`
	ShaftCenter model.Vec3 `json:"shaftCenter"`
	ShaftLength float64    `json:"shaftLength"`
	HeadCenter  model.Vec3 `json:"headCenter"`
}

// Arrows builds geometry for every edge whose endpoints were laid out.
// Edges naming a missing node, and edges whose endpoints coincide, are
// skipped.
func Arrows(positioned []model.PositionedNode, edges []model.Edge) []Arrow {
	idx := Index(positioned)
	arrows := make([]Arrow, 0, len(edges))
	for i := range edges {
		e := &edges[i]
		if e.IsSelfLoop() {
			continue
		}
		fi, ok := idx[e.From]
		if !ok {
			continue
		}
		ti, ok := idx[e.To]
		if !ok {
			continue
		}
		from, to := positioned[fi], positioned[ti]
		delta := to.Position.Sub(from.Position)
		if delta.Length() == 0 {
			continue
		}
		dir := delta.Normalize()
		start := from.Position.Add(dir.Scale(from.Radius))
		end := to.Position.Sub(dir.Scale(to.Radius))
		arrows = append(arrows, Arrow{
			EdgeIndex:   i,
			From:        e.From,
			To:          e.To,
			Weight:      e.Weight,
			Start:       start,
			End:         end,
			Direction:   dir,
			ShaftCenter: model.Lerp(start, end, shaftCenterLerp),
			ShaftLength: end.Sub(start).Length() * shaftLengthRatio,
			HeadCenter:  model.Lerp(start, end, headCenterLerp),
		})
	}
	return arrows
}
