package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/stalk/components"
)

// collisionEpsilon absorbs floating point error at cell faces.
const collisionEpsilon = 1e-9

// LevelCollider resolves capsule movement and ground probes against a level.
// Walls are treated as infinitely tall; floors are slabs of the level's floor thickness.
type LevelCollider struct {
	level *Level
}

// NewLevelCollider creates a collider for the given level.
func NewLevelCollider(level *Level) *LevelCollider {
	return &LevelCollider{level: level}
}

// IsGrounded reports whether a sphere touches any surface on the given layers.
func (c *LevelCollider) IsGrounded(center r3.Vec, radius float64, mask Layer) bool {
	l := c.level
	cs := l.cellSize
	minGX, minGZ := l.WorldToCell(center.X-radius, center.Z-radius)
	maxGX, maxGZ := l.WorldToCell(center.X+radius, center.Z+radius)

	for gz := minGZ; gz <= maxGZ; gz++ {
		for gx := minGX; gx <= maxGX; gx++ {
			var bottom, top float64
			switch kind := l.Cell(gx, gz); {
			case kind == CellFloor && mask&LayerGround != 0:
				bottom, top = l.FloorTop()-l.floorThickness, l.FloorTop()
			case kind == CellWall && mask&LayerWall != 0:
				bottom, top = l.FloorTop()-l.floorThickness, math.Inf(1)
			default:
				continue
			}

			// Closest point of the cell box to the sphere center
			px := math.Max(float64(gx)*cs, math.Min(center.X, float64(gx+1)*cs))
			py := math.Max(bottom, math.Min(center.Y, top))
			pz := math.Max(float64(gz)*cs, math.Min(center.Z, float64(gz+1)*cs))
			d := r3.Sub(center, r3.Vec{X: px, Y: py, Z: pz})
			if r3.Norm2(d) <= radius*radius {
				return true
			}
		}
	}
	return false
}

// Move translates a capsule by delta, stopping at floors and sliding along walls.
// Axes resolve in Y, X, Z order. Returns the resolved center.
func (c *LevelCollider) Move(center r3.Vec, body components.Capsule, delta r3.Vec) r3.Vec {
	out := center
	out.Y = c.resolveY(out, body, delta.Y)
	out.X = c.sweep(out.X, out.Z, delta.X, body.Radius, func(i, j int) bool {
		return c.level.IsWall(i, j)
	})
	out.Z = c.sweep(out.Z, out.X, delta.Z, body.Radius, func(i, j int) bool {
		return c.level.IsWall(j, i)
	})
	return out
}

// resolveY stops downward motion at the floor under the capsule footprint.
func (c *LevelCollider) resolveY(center r3.Vec, body components.Capsule, delta float64) float64 {
	if delta >= 0 {
		return center.Y + delta
	}

	l := c.level
	r := body.Radius - collisionEpsilon
	minGX, minGZ := l.WorldToCell(center.X-r, center.Z-r)
	maxGX, maxGZ := l.WorldToCell(center.X+r, center.Z+r)

	bottom := center.Y - body.Height/2
	allowed := delta
	for gz := minGZ; gz <= maxGZ; gz++ {
		for gx := minGX; gx <= maxGX; gx++ {
			if !l.HasFloor(gx, gz) {
				continue
			}
			top := l.FloorTop()
			if top > bottom+collisionEpsilon {
				// Already below this floor; ignore it
				continue
			}
			if candidate := top - bottom; candidate > allowed {
				allowed = candidate
			}
		}
	}
	return center.Y + allowed
}

// sweep moves pos by delta along one axis, clamping at the first wall face.
// cross is the coordinate on the other horizontal axis; wallAt takes
// (along, across) cell indices.
func (c *LevelCollider) sweep(pos, cross, delta, r float64, wallAt func(i, j int) bool) float64 {
	if delta == 0 {
		return pos
	}

	cs := c.level.cellSize
	jMin := int(math.Floor((cross - r + collisionEpsilon) / cs))
	jMax := int(math.Floor((cross + r - collisionEpsilon) / cs))
	blocked := func(i int) bool {
		for j := jMin; j <= jMax; j++ {
			if wallAt(i, j) {
				return true
			}
		}
		return false
	}

	allowed := delta
	if delta > 0 {
		edge := pos + r
		last := int(math.Floor((edge + delta) / cs))
		for i := int(math.Floor((edge - collisionEpsilon) / cs)); i <= last; i++ {
			face := float64(i) * cs
			if face < edge-collisionEpsilon || !blocked(i) {
				continue
			}
			allowed = math.Min(allowed, face-edge)
			break
		}
		allowed = math.Max(allowed, 0)
	} else {
		edge := pos - r
		last := int(math.Floor((edge + delta) / cs))
		for i := int(math.Floor((edge + collisionEpsilon) / cs)); i >= last; i-- {
			face := float64(i+1) * cs
			if face > edge+collisionEpsilon || !blocked(i) {
				continue
			}
			allowed = math.Max(allowed, face-edge)
			break
		}
		allowed = math.Min(allowed, 0)
	}
	return pos + allowed
}
