// Package projection maps scene space onto a 2D viewport with a simple
// perspective orbit camera. Renderers (terminal canvas, SVG, PNG) share it so
// every view of a graph agrees on what is in front.
package projection

import (
	"math"
	"sort"

	"github.com/vanderheijden86/graph3d/pkg/model"
)

const (
	// DefaultFOV is the vertical field of view in radians.
	DefaultFOV = math.Pi / 3
	// NearPlane clips anything closer than this to the eye.
	NearPlane = 0.1

	minDistance = 2.0
	maxPitch    = math.Pi/2 - 0.05
)

// Camera orbits Target at Distance. Yaw turns around the Y axis, Pitch tilts
// towards the poles.
type Camera struct {
	Yaw      float64
	Pitch    float64
	Distance float64
	FOV      float64
	Target   model.Vec3
}

// Point is a projected scene point in viewport pixels.
type Point struct {
	X, Y    float64
	Depth   float64 // distance along the view axis, larger is further away
	Scale   float64 // pixels per scene unit at this depth
	Visible bool
}

// DefaultCamera frames a scene of the given bounding radius from a slightly
// raised three-quarter view.
func DefaultCamera(sceneRadius float64) Camera {
	if sceneRadius < 1 {
		sceneRadius = 1
	}
	c := Camera{
		Yaw:   math.Pi / 6,
		Pitch: math.Pi / 9,
		FOV:   DefaultFOV,
	}
	c.Distance = math.Max(minDistance, sceneRadius/math.Sin(c.FOV/2)*1.1)
	return c
}

// Frame returns a default camera sized to fit every node sphere.
func Frame(nodes []model.PositionedNode) Camera {
	return DefaultCamera(SceneRadius(nodes))
}

// SceneRadius is the radius of the origin-centred sphere enclosing all nodes.
func SceneRadius(nodes []model.PositionedNode) float64 {
	var r float64
	for i := range nodes {
		r = math.Max(r, nodes[i].Position.Length()+nodes[i].Radius)
	}
	return r
}

// Orbit rotates the camera. Pitch is clamped short of the poles.
func (c Camera) Orbit(dYaw, dPitch float64) Camera {
	c.Yaw = math.Mod(c.Yaw+dYaw, 2*math.Pi)
	c.Pitch = math.Max(-maxPitch, math.Min(maxPitch, c.Pitch+dPitch))
	return c
}

// Zoom scales the orbit distance; factor < 1 moves closer.
func (c Camera) Zoom(factor float64) Camera {
	if factor <= 0 {
		return c
	}
	c.Distance = math.Max(minDistance, c.Distance*factor)
	return c
}

// view transforms p into camera space, where the eye sits at +Distance on
// the Z axis looking towards the origin.
func (c Camera) view(p model.Vec3) model.Vec3 {
	p = p.Sub(c.Target)
	sy, cy := math.Sincos(c.Yaw)
	x := p.X*cy - p.Z*sy
	z := p.X*sy + p.Z*cy
	sp, cp := math.Sincos(c.Pitch)
	y := p.Y*cp - z*sp
	z = p.Y*sp + z*cp
	return model.Vec3{X: x, Y: y, Z: z}
}

// Project maps p into a width×height viewport with the origin top-left.
func (c Camera) Project(p model.Vec3, width, height float64) Point {
	v := c.view(p)
	depth := c.Distance - v.Z
	if depth < NearPlane {
		return Point{Depth: depth}
	}
	fov := c.FOV
	if fov <= 0 {
		fov = DefaultFOV
	}
	f := (height / 2) / math.Tan(fov/2)
	scale := f / depth
	return Point{
		X:       width/2 + v.X*scale,
		Y:       height/2 - v.Y*scale,
		Depth:   depth,
		Scale:   scale,
		Visible: true,
	}
}

// DepthOrder returns node indexes sorted far to near (painter's order).
func (c Camera) DepthOrder(nodes []model.PositionedNode) []int {
	depth := make([]float64, len(nodes))
	order := make([]int, len(nodes))
	for i := range nodes {
		order[i] = i
		depth[i] = c.Distance - c.view(nodes[i].Position).Z
	}
	sort.SliceStable(order, func(a, b int) bool {
		return depth[order[a]] > depth[order[b]]
	})
	return order
}
