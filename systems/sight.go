package systems

import (
	"math"

	"github.com/jakecoffman/cp"
	"gonum.org/v1/gonum/spatial/r3"
)

// Tags carried by sight occluders.
const (
	TagPlayer = "Player"
	TagWall   = "Wall"
)

// RayHit is the result of a sight trace.
type RayHit struct {
	Hit      bool
	Tag      string
	Distance float64 // along the 3D ray
}

// SightTracer casts sight rays through the level.
type SightTracer interface {
	Raycast(origin, dir r3.Vec, maxDist float64) RayHit
}

// SightWorld is a top-down occluder space. Walls are full height, so a 3D
// ray is traced by its horizontal projection.
type SightWorld struct {
	space       *cp.Space
	playerBody  *cp.Body
	playerShape *cp.Shape
}

// NewSightWorld builds static wall occluders from the level and a player
// shape with the given radius. Horizontal runs of wall cells share one box.
func NewSightWorld(level *Level, playerRadius float64) *SightWorld {
	space := cp.NewSpace()
	cs := level.CellSize()

	for gz := 0; gz < level.Depth(); gz++ {
		for gx := 0; gx < level.Width(); {
			if !level.IsWall(gx, gz) {
				gx++
				continue
			}
			start := gx
			for gx < level.Width() && level.IsWall(gx, gz) {
				gx++
			}
			bb := cp.BB{
				L: float64(start) * cs,
				B: float64(gz) * cs,
				R: float64(gx) * cs,
				T: float64(gz+1) * cs,
			}
			shape := space.AddShape(cp.NewBox2(space.StaticBody, bb, 0))
			shape.UserData = TagWall
		}
	}

	body := space.AddBody(cp.NewKinematicBody())
	shape := space.AddShape(cp.NewCircle(body, playerRadius, cp.Vector{}))
	shape.UserData = TagPlayer

	return &SightWorld{
		space:       space,
		playerBody:  body,
		playerShape: shape,
	}
}

// SetPlayerPosition moves the player occluder. The shape is re-inserted so
// the spatial index sees the new bounds without stepping the space.
func (w *SightWorld) SetPlayerPosition(pos r3.Vec) {
	w.space.RemoveShape(w.playerShape)
	w.playerBody.SetPosition(cp.Vector{X: pos.X, Y: pos.Z})
	w.space.AddShape(w.playerShape)
}

// Raycast returns the first occluder along the ray within maxDist.
// A ray with no horizontal component hits nothing.
func (w *SightWorld) Raycast(origin, dir r3.Vec, maxDist float64) RayHit {
	n := r3.Norm(dir)
	if n == 0 || maxDist <= 0 {
		return RayHit{}
	}
	unit := r3.Scale(1/n, dir)
	horizontal := math.Hypot(unit.X, unit.Z)
	if horizontal < 1e-9 {
		return RayHit{}
	}

	start := cp.Vector{X: origin.X, Y: origin.Z}
	end := cp.Vector{X: origin.X + unit.X*maxDist, Y: origin.Z + unit.Z*maxDist}
	info := w.space.SegmentQueryFirst(start, end, 0, cp.SHAPE_FILTER_ALL)
	if info.Shape == nil {
		return RayHit{}
	}

	tag, _ := info.Shape.UserData.(string)
	return RayHit{
		Hit:      true,
		Tag:      tag,
		Distance: info.Alpha * maxDist,
	}
}
