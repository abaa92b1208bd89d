package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// NavGrid stores a navigation grid for A* pathfinding.
// Cells are marked as blocked (true) or open (false).
type NavGrid struct {
	cells    []bool  // true = blocked
	cellSize float64 // world units per cell
	width    int     // grid width in cells (X)
	depth    int     // grid depth in cells (Z)
}

// NewNavGridFromLevel creates a navigation grid from a level, inflated by an agent radius.
// A cell is blocked if it has no floor or a wall lies within 'inflation' of its center.
func NewNavGridFromLevel(level *Level, inflation float64) *NavGrid {
	w, d := level.Width(), level.Depth()
	cs := level.CellSize()

	grid := &NavGrid{
		cells:    make([]bool, w*d),
		cellSize: cs,
		width:    w,
		depth:    d,
	}

	// Cells to scan around each center
	reach := int(math.Ceil(inflation/cs)) + 1

	for gz := 0; gz < d; gz++ {
		for gx := 0; gx < w; gx++ {
			if !level.HasFloor(gx, gz) {
				grid.cells[gz*w+gx] = true
				continue
			}

			center := level.CellCenter(gx, gz)
			blocked := false

			// Check walls nearby against the agent footprint
			for tz := gz - reach; tz <= gz+reach && !blocked; tz++ {
				for tx := gx - reach; tx <= gx+reach && !blocked; tx++ {
					if !level.IsWall(tx, tz) {
						continue
					}
					// Distance from the center to the wall cell's box
					px := math.Max(float64(tx)*cs, math.Min(center.X, float64(tx+1)*cs))
					pz := math.Max(float64(tz)*cs, math.Min(center.Z, float64(tz+1)*cs))
					dx := center.X - px
					dz := center.Z - pz
					// Strictly inside the inflation radius; touching is allowed
					if dx*dx+dz*dz < inflation*inflation-collisionEpsilon {
						blocked = true
					}
				}
			}

			grid.cells[gz*w+gx] = blocked
		}
	}

	return grid
}

// IsBlocked returns true if the given nav grid cell is blocked.
func (g *NavGrid) IsBlocked(gx, gz int) bool {
	if gx < 0 || gx >= g.width || gz < 0 || gz >= g.depth {
		return true // Out of bounds is blocked
	}
	return g.cells[gz*g.width+gx]
}

// IsBlockedWorld returns true if the world position is in a blocked cell.
func (g *NavGrid) IsBlockedWorld(x, z float64) bool {
	gx, gz := g.WorldToGrid(x, z)
	return g.IsBlocked(gx, gz)
}

// WorldToGrid converts world coordinates to nav grid coordinates.
func (g *NavGrid) WorldToGrid(x, z float64) (gx, gz int) {
	gx = int(math.Floor(x / g.cellSize))
	gz = int(math.Floor(z / g.cellSize))
	return
}

// GridToWorld converts nav grid coordinates to world coordinates (cell center, Y=0).
func (g *NavGrid) GridToWorld(gx, gz int) r3.Vec {
	return r3.Vec{
		X: (float64(gx) + 0.5) * g.cellSize,
		Z: (float64(gz) + 0.5) * g.cellSize,
	}
}

// OpenCount returns the number of open cells.
func (g *NavGrid) OpenCount() int {
	n := 0
	for _, blocked := range g.cells {
		if !blocked {
			n++
		}
	}
	return n
}
