package systems

import (
	"container/heap"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// AStarPlanner provides A* pathfinding over a navigation grid.
type AStarPlanner struct {
	grid *NavGrid

	// Maximum ring radius searched when snapping a blocked cell to open space
	searchRadius int

	// Reusable data structures (cleared between searches)
	openHeap  *nodeHeap
	closedSet map[int]struct{}
	cameFrom  map[int]int
	gScore    map[int]float64
}

// astarNode is a node in the A* search.
type astarNode struct {
	gx, gz int     // Grid coordinates
	f      float64 // f = g + h (priority)
	index  int     // Heap index
}

// nodeHeap implements heap.Interface for A* open set.
type nodeHeap []*astarNode

func (h nodeHeap) Len() int           { return len(h) }
func (h nodeHeap) Less(i, j int) bool { return h[i].f < h[j].f }
func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*astarNode)
	n.index = len(*h)
	*h = append(*h, n)
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[0 : n-1]
	return node
}

// NewAStarPlanner creates an A* planner over the given grid.
func NewAStarPlanner(grid *NavGrid, searchRadius int) *AStarPlanner {
	if searchRadius < 1 {
		searchRadius = 1
	}
	return &AStarPlanner{
		grid:         grid,
		searchRadius: searchRadius,
		openHeap:     &nodeHeap{},
		closedSet:    make(map[int]struct{}, 256),
		cameFrom:     make(map[int]int, 256),
		gScore:       make(map[int]float64, 256),
	}
}

// Grid returns the planner's navigation grid.
func (a *AStarPlanner) Grid() *NavGrid {
	return a.grid
}

// FindPath computes a path from start to goal using A*.
// Returns waypoints on the floor (Y=0), or nil if no path found.
// The final waypoint is the goal itself when the goal cell is open.
func (a *AStarPlanner) FindPath(start, goal r3.Vec) []r3.Vec {
	grid := a.grid

	// Convert to grid coordinates
	startGX, startGZ := grid.WorldToGrid(start.X, start.Z)
	goalGX, goalGZ := grid.WorldToGrid(goal.X, goal.Z)
	exactGoal := true

	// Check if start or goal is blocked
	if grid.IsBlocked(startGX, startGZ) {
		// Try to find nearest unblocked cell for start
		startGX, startGZ = a.findNearestOpen(startGX, startGZ)
		if startGX < 0 {
			return nil
		}
	}
	if grid.IsBlocked(goalGX, goalGZ) {
		// Try to find nearest unblocked cell for goal
		goalGX, goalGZ = a.findNearestOpen(goalGX, goalGZ)
		if goalGX < 0 {
			return nil
		}
		exactGoal = false
	}

	finish := func(path []r3.Vec) []r3.Vec {
		if exactGoal {
			path[len(path)-1] = r3.Vec{X: goal.X, Z: goal.Z}
		}
		return path
	}

	// Same cell - no path needed
	if startGX == goalGX && startGZ == goalGZ {
		return finish([]r3.Vec{grid.GridToWorld(goalGX, goalGZ)})
	}

	// Clear reusable data structures
	*a.openHeap = (*a.openHeap)[:0]
	clear(a.closedSet)
	clear(a.cameFrom)
	clear(a.gScore)

	// Initialize start node
	startID := startGZ*grid.width + startGX
	goalID := goalGZ*grid.width + goalGX

	a.gScore[startID] = 0
	heap.Push(a.openHeap, &astarNode{gx: startGX, gz: startGZ, f: a.heuristic(startGX, startGZ, goalGX, goalGZ)})

	// A* main loop
	maxIterations := grid.width * grid.depth * 8 // Limit iterations
	iterations := 0

	for a.openHeap.Len() > 0 && iterations < maxIterations {
		iterations++

		current := heap.Pop(a.openHeap).(*astarNode)
		currentID := current.gz*grid.width + current.gx

		// Goal reached
		if currentID == goalID {
			return finish(a.reconstructPath(startID, goalID))
		}

		// Stale heap entry for an already expanded node
		if _, ok := a.closedSet[currentID]; ok {
			continue
		}
		a.closedSet[currentID] = struct{}{}

		// Check 8-connected neighbors
		neighbors := [8][2]int{
			{current.gx - 1, current.gz},     // W
			{current.gx + 1, current.gz},     // E
			{current.gx, current.gz - 1},     // N
			{current.gx, current.gz + 1},     // S
			{current.gx - 1, current.gz - 1}, // NW
			{current.gx + 1, current.gz - 1}, // NE
			{current.gx - 1, current.gz + 1}, // SW
			{current.gx + 1, current.gz + 1}, // SE
		}

		for i, n := range neighbors {
			ngx, ngz := n[0], n[1]

			// Skip if blocked
			if grid.IsBlocked(ngx, ngz) {
				continue
			}

			// For diagonal moves, check that both adjacent cells are open
			// to prevent cutting corners
			if i >= 4 {
				dx := ngx - current.gx
				dz := ngz - current.gz
				if grid.IsBlocked(current.gx+dx, current.gz) || grid.IsBlocked(current.gx, current.gz+dz) {
					continue
				}
			}

			neighborID := ngz*grid.width + ngx

			// Skip if already evaluated
			if _, ok := a.closedSet[neighborID]; ok {
				continue
			}

			moveCost := 1.0
			if i >= 4 {
				moveCost = math.Sqrt2
			}
			tentativeG := a.gScore[currentID] + moveCost

			// Check if this path is better
			if existingG, exists := a.gScore[neighborID]; exists && tentativeG >= existingG {
				continue
			}

			// This is a better path; lazy deletion handles duplicates in the heap
			a.cameFrom[neighborID] = currentID
			a.gScore[neighborID] = tentativeG
			heap.Push(a.openHeap, &astarNode{
				gx: ngx,
				gz: ngz,
				f:  tentativeG + a.heuristic(ngx, ngz, goalGX, goalGZ),
			})
		}
	}

	// No path found
	return nil
}

// heuristic computes the Euclidean distance heuristic for A*.
func (a *AStarPlanner) heuristic(gx1, gz1, gx2, gz2 int) float64 {
	return math.Hypot(float64(gx2-gx1), float64(gz2-gz1))
}

// reconstructPath builds the path from cameFrom map.
func (a *AStarPlanner) reconstructPath(startID, goalID int) []r3.Vec {
	grid := a.grid

	// Build path in reverse
	var pathIDs []int
	current := goalID
	for current != startID {
		pathIDs = append(pathIDs, current)
		var ok bool
		current, ok = a.cameFrom[current]
		if !ok {
			break
		}
	}
	pathIDs = append(pathIDs, startID)

	// Reverse and convert to world coordinates
	path := make([]r3.Vec, len(pathIDs))
	for i := 0; i < len(pathIDs); i++ {
		id := pathIDs[len(pathIDs)-1-i]
		path[i] = grid.GridToWorld(id%grid.width, id/grid.width)
	}

	// Simplify path by removing redundant waypoints
	return a.simplifyPath(path)
}

// simplifyPath removes waypoints that are in a straight line of sight.
func (a *AStarPlanner) simplifyPath(path []r3.Vec) []r3.Vec {
	if len(path) <= 2 {
		return path
	}

	simplified := make([]r3.Vec, 0, len(path))
	simplified = append(simplified, path[0])

	anchor := path[0]
	for i := 1; i < len(path)-1; i++ {
		// Keep path[i] only if the anchor cannot see past it
		if !a.hasLineOfSight(anchor, path[i+1]) {
			simplified = append(simplified, path[i])
			anchor = path[i]
		}
	}

	simplified = append(simplified, path[len(path)-1])
	return simplified
}

// hasLineOfSight checks if there's a clear line between two points on the nav grid.
func (a *AStarPlanner) hasLineOfSight(from, to r3.Vec) bool {
	grid := a.grid
	dx := to.X - from.X
	dz := to.Z - from.Z
	dist := math.Hypot(dx, dz)

	if dist < 0.01 {
		return true
	}

	// Step along the line, checking each nav cell
	stepSize := grid.cellSize * 0.25
	steps := int(dist/stepSize) + 1

	dx /= dist
	dz /= dist

	for i := 0; i <= steps; i++ {
		t := math.Min(float64(i)*stepSize, dist)
		if grid.IsBlockedWorld(from.X+dx*t, from.Z+dz*t) {
			return false
		}
	}

	return true
}

// findNearestOpen finds the nearest unblocked cell to the given position.
// Returns (-1, -1) if no open cell found within search radius.
func (a *AStarPlanner) findNearestOpen(gx, gz int) (int, int) {
	// Spiral search outward
	for radius := 1; radius <= a.searchRadius; radius++ {
		for dz := -radius; dz <= radius; dz++ {
			for dx := -radius; dx <= radius; dx++ {
				// Only check cells at the current radius
				if abs(dx) != radius && abs(dz) != radius {
					continue
				}
				if !a.grid.IsBlocked(gx+dx, gz+dz) {
					return gx + dx, gz + dz
				}
			}
		}
	}
	return -1, -1
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// GetNextWaypoint returns the next waypoint to navigate toward.
// Advances the index past waypoints closer than arrivalDist.
func GetNextWaypoint(waypoints []r3.Vec, index *int, pos r3.Vec, arrivalDist float64) (r3.Vec, bool) {
	for *index < len(waypoints) {
		wp := waypoints[*index]
		if PlanarDistance(wp, pos) >= arrivalDist || *index == len(waypoints)-1 {
			return wp, true
		}
		*index++
	}
	return pos, false
}
