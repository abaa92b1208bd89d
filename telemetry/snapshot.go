package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Vec3 is a JSON-friendly position.
type Vec3 [3]float64

// V converts a vector for serialization.
func V(v r3.Vec) Vec3 {
	return Vec3{v.X, v.Y, v.Z}
}

// OptV converts a possibly absent vector; absent becomes nil.
func OptV(v r3.Vec, ok bool) *Vec3 {
	if !ok {
		return nil
	}
	out := V(v)
	return &out
}

// R3 converts back to a vector.
func (v Vec3) R3() r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

// Snapshot holds the run state at one tick.
type Snapshot struct {
	Version int    `json:"version"`
	RunID   string `json:"run_id"`
	RNGSeed int64  `json:"rng_seed"`

	Tick       int32   `json:"tick"`
	SimTimeSec float64 `json:"sim_time_sec"`

	LevelRows []string `json:"level_rows"`
	CellSize  float64  `json:"cell_size"`

	Player        *PlayerState        `json:"player,omitempty"`
	Agents        []AgentState        `json:"agents"`
	Interactables []InteractableState `json:"interactables,omitempty"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// PlayerState holds the player's movement state.
type PlayerState struct {
	ID               uint32  `json:"id"`
	Position         Vec3    `json:"position"`
	Yaw              float64 `json:"yaw"`
	Height           float64 `json:"height"`
	VerticalVelocity float64 `json:"vertical_velocity"`
	Grounded         bool    `json:"grounded"`
	Sprinting        bool    `json:"sprinting"`
	Walking          bool    `json:"walking"`
	Crouching        bool    `json:"crouching"`
}

// AgentState holds one enemy's behavior and navigation state.
type AgentState struct {
	ID       uint32  `json:"id"`
	Seed     int64   `json:"seed"`
	Position Vec3    `json:"position"`
	Yaw      float64 `json:"yaw"`

	State          string  `json:"state"`
	PlayerDetected bool    `json:"player_detected"`
	LastKnown      *Vec3   `json:"last_known,omitempty"`
	PatrolPoint    *Vec3   `json:"patrol_point,omitempty"`
	WaitTimer      float64 `json:"wait_timer"`
	Draws          uint64  `json:"draws"`

	Destination *Vec3  `json:"destination,omitempty"`
	PathStatus  string `json:"path_status"`
	Waypoints   int    `json:"waypoints"`
}

// InteractableState holds one interaction point.
type InteractableState struct {
	ID       uint32 `json:"id"`
	Label    string `json:"label"`
	Position Vec3   `json:"position"`
	InRange  bool   `json:"in_range"`
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	// Build filename
	name := fmt.Sprintf("snapshot_%d", snapshot.Tick)
	if snapshot.Bookmark != nil {
		// Sanitize bookmark type for filename
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Tick, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}
