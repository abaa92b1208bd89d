package systems

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"os"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// CellKind is the content of one level cell.
type CellKind uint8

const (
	CellFloor CellKind = iota // walkable floor
	CellWall                  // solid, blocks movement and sight
	CellPit                   // no floor
)

// Layer is a collision layer bitmask.
type Layer uint8

const (
	LayerGround Layer = 1 << iota
	LayerWall
	LayerAll = LayerGround | LayerWall
)

// Level is a grid of cells on the XZ plane. Cell (gx, gz) spans
// [gx*cellSize, (gx+1)*cellSize) on X and the same on Z. The floor surface is Y=0.
type Level struct {
	cells          []CellKind
	width          int // cells along X
	depth          int // cells along Z
	cellSize       float64
	floorThickness float64

	PlayerSpawn    r3.Vec
	HasPlayerSpawn bool
	EnemySpawns    []r3.Vec
	Interactables  []r3.Vec
}

// ParseLevel builds a level from text rows. Row index maps to Z, column to X.
// '#' wall, '.' floor, '~' pit, 'P' player spawn, 'E' enemy spawn, 'I' interactable.
// Spawn and interactable markers stand on floor. Positions are cell centers at Y=0.
func ParseLevel(rows []string, cellSize, floorThickness float64) (*Level, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("level has no rows")
	}
	if cellSize <= 0 {
		return nil, fmt.Errorf("level cell size must be positive, got %v", cellSize)
	}

	width := len(rows[0])
	if width == 0 {
		return nil, fmt.Errorf("level row 0 is empty")
	}

	l := &Level{
		cells:          make([]CellKind, width*len(rows)),
		width:          width,
		depth:          len(rows),
		cellSize:       cellSize,
		floorThickness: floorThickness,
	}

	for gz, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("level row %d has width %d, want %d", gz, len(row), width)
		}
		for gx, ch := range []byte(row) {
			kind := CellFloor
			switch ch {
			case '.':
			case '#':
				kind = CellWall
			case '~':
				kind = CellPit
			case 'P':
				if l.HasPlayerSpawn {
					return nil, fmt.Errorf("level has more than one player spawn (second at %d,%d)", gx, gz)
				}
				l.PlayerSpawn = l.CellCenter(gx, gz)
				l.HasPlayerSpawn = true
			case 'E':
				l.EnemySpawns = append(l.EnemySpawns, l.CellCenter(gx, gz))
			case 'I':
				l.Interactables = append(l.Interactables, l.CellCenter(gx, gz))
			default:
				return nil, fmt.Errorf("level cell %d,%d: unknown symbol %q", gx, gz, ch)
			}
			l.cells[gz*width+gx] = kind
		}
	}

	return l, nil
}

// ReadLevelRows reads level rows from a text file, skipping blank lines
// and lines starting with ';'.
func ReadLevelRows(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading level file: %w", err)
	}

	var rows []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, ";") {
			continue
		}
		rows = append(rows, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning level file: %w", err)
	}
	return rows, nil
}

// Width returns the level size in cells along X.
func (l *Level) Width() int { return l.width }

// Depth returns the level size in cells along Z.
func (l *Level) Depth() int { return l.depth }

// CellSize returns the cell edge length in world units.
func (l *Level) CellSize() float64 { return l.cellSize }

// Cell returns the cell kind. Out of bounds cells are walls.
func (l *Level) Cell(gx, gz int) CellKind {
	if gx < 0 || gx >= l.width || gz < 0 || gz >= l.depth {
		return CellWall
	}
	return l.cells[gz*l.width+gx]
}

// IsWall reports whether the cell blocks movement and sight.
func (l *Level) IsWall(gx, gz int) bool {
	return l.Cell(gx, gz) == CellWall
}

// HasFloor reports whether the cell has a walkable floor.
func (l *Level) HasFloor(gx, gz int) bool {
	return l.Cell(gx, gz) == CellFloor
}

// WorldToCell converts world X/Z to cell coordinates.
func (l *Level) WorldToCell(x, z float64) (gx, gz int) {
	gx = int(math.Floor(x / l.cellSize))
	gz = int(math.Floor(z / l.cellSize))
	return
}

// CellCenter returns the center of a cell on the floor surface.
func (l *Level) CellCenter(gx, gz int) r3.Vec {
	return r3.Vec{
		X: (float64(gx) + 0.5) * l.cellSize,
		Z: (float64(gz) + 0.5) * l.cellSize,
	}
}

// FloorTop returns the height of the floor surface.
func (l *Level) FloorTop() float64 {
	return 0
}

// ForEachWall calls fn for every wall cell inside the level bounds.
func (l *Level) ForEachWall(fn func(gx, gz int)) {
	for gz := 0; gz < l.depth; gz++ {
		for gx := 0; gx < l.width; gx++ {
			if l.cells[gz*l.width+gx] == CellWall {
				fn(gx, gz)
			}
		}
	}
}
