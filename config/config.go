// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all simulation configuration parameters.
type Config struct {
	Sim         SimConfig         `yaml:"sim"`
	Player      PlayerConfig      `yaml:"player"`
	Enemy       EnemyConfig       `yaml:"enemy"`
	Navigation  NavigationConfig  `yaml:"navigation"`
	Level       LevelConfig       `yaml:"level"`
	Interaction InteractionConfig `yaml:"interaction"`
	Reactions   ReactionsConfig   `yaml:"reactions"`
	Intruder    IntruderConfig    `yaml:"intruder"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimConfig holds tick settings.
type SimConfig struct {
	DT   float64 `yaml:"dt"`
	Seed int64   `yaml:"seed"` // 0 = time-based
}

// PlayerConfig holds locomotion tunables.
type PlayerConfig struct {
	WalkSpeed             float64 `yaml:"walk_speed"`
	SprintSpeed           float64 `yaml:"sprint_speed"`
	CrouchSpeed           float64 `yaml:"crouch_speed"`
	JumpHeight            float64 `yaml:"jump_height"`
	Gravity               float64 `yaml:"gravity"`         // negative, units/s^2
	GroundDistance        float64 `yaml:"ground_distance"` // ground probe sphere radius
	StandingHeight        float64 `yaml:"standing_height"`
	CrouchHeight          float64 `yaml:"crouch_height"`
	CrouchTransitionSpeed float64 `yaml:"crouch_transition_speed"`
	Radius                float64 `yaml:"radius"`
	WalkStepInterval      float64 `yaml:"walk_step_interval"`
	SprintStepInterval    float64 `yaml:"sprint_step_interval"`
	CrouchStepInterval    float64 `yaml:"crouch_step_interval"`
	FootstepVariants      int     `yaml:"footstep_variants"` // number of footstep clips to pick from
}

// EnemyConfig holds perception and behavior tunables.
type EnemyConfig struct {
	SprintDetectionRadius float64 `yaml:"sprint_detection_radius"`
	WalkDetectionRadius   float64 `yaml:"walk_detection_radius"`
	CrouchDetectionRadius float64 `yaml:"crouch_detection_radius"`
	DetectionInterval     float64 `yaml:"detection_interval"`
	PatrolSpeed           float64 `yaml:"patrol_speed"`
	ChaseSpeed            float64 `yaml:"chase_speed"`
	RotationSpeed         float64 `yaml:"rotation_speed"` // degrees per second
	MinDistanceToTarget   float64 `yaml:"min_distance_to_target"`
	PatrolRadius          float64 `yaml:"patrol_radius"`
	MinPatrolWaitTime     float64 `yaml:"min_patrol_wait_time"`
	MaxPatrolWaitTime     float64 `yaml:"max_patrol_wait_time"`
	MaxPatrolAttempts     int     `yaml:"max_patrol_attempts"`
	SampleTolerance       float64 `yaml:"sample_tolerance"`
}

// NavigationConfig holds nav grid and path following settings.
type NavigationConfig struct {
	AgentRadius       float64 `yaml:"agent_radius"`
	BaseOffset        float64 `yaml:"base_offset"`
	AngularSpeed      float64 `yaml:"angular_speed"`
	ReplanDistance    float64 `yaml:"replan_distance"`
	NearestOpenSearch int     `yaml:"nearest_open_search"` // cells searched when snapping to open space
}

// LevelConfig describes the level layout.
// Rows use '#' wall, '.' floor, '~' pit, 'P' player spawn, 'E' enemy spawn, 'I' interactable.
type LevelConfig struct {
	CellSize       float64  `yaml:"cell_size"`
	FloorThickness float64  `yaml:"floor_thickness"`
	Path           string   `yaml:"path"` // optional file with rows, overrides Rows
	Rows           []string `yaml:"rows"`
}

// InteractionConfig holds interaction prompt settings.
type InteractionConfig struct {
	Radius float64 `yaml:"radius"`
}

// ReactionsConfig holds the detection reaction script.
type ReactionsConfig struct {
	Path   string `yaml:"path"`   // script file, overrides Source
	Source string `yaml:"source"` // inline script
}

// WaypointConfig is one leg of the intruder route.
type WaypointConfig struct {
	X        float64 `yaml:"x"`
	Z        float64 `yaml:"z"`
	Mode     string  `yaml:"mode"` // walk, sprint or crouch
	Jump     bool    `yaml:"jump"`
	Interact bool    `yaml:"interact"`
}

// IntruderConfig holds the scripted player route.
type IntruderConfig struct {
	ArriveDistance float64          `yaml:"arrive_distance"`
	StuckTimeout   float64          `yaml:"stuck_timeout"`
	Loop           bool             `yaml:"loop"`
	Waypoints      []WaypointConfig `yaml:"waypoints"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	BookmarkHistorySize int     `yaml:"bookmark_history_size"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
	CloseCallFactor     float64 `yaml:"close_call_factor"` // close call when nearest agent is within crouch radius times this
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	TicksPerSecond   float64 // 1 / Sim.DT
	StatsWindowTicks int32   // Telemetry.StatsWindow in ticks
	MaxSightDistance float64 // raycast length, equal to the sprint radius
	JumpVelocity     float64 // exit velocity reaching Player.JumpHeight
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Set replaces the global configuration. Used by hot reload.
func Set(cfg *Config) {
	global = cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return Parse(data)
}

// Parse merges the given YAML over the embedded defaults, validates and derives.
func Parse(data []byte) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Unmarshal into same struct - only overwrites fields present in data
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate checks the construction-time assertions on tunables.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	p := c.Player
	check(c.Sim.DT > 0, "sim.dt must be positive, got %v", c.Sim.DT)
	check(p.CrouchHeight > 0, "player.crouch_height must be positive, got %v", p.CrouchHeight)
	check(p.StandingHeight > p.CrouchHeight, "player.standing_height (%v) must exceed crouch_height (%v)", p.StandingHeight, p.CrouchHeight)
	check(p.Gravity < 0, "player.gravity must be negative, got %v", p.Gravity)
	check(p.JumpHeight >= 0, "player.jump_height must not be negative, got %v", p.JumpHeight)
	check(p.GroundDistance > 0, "player.ground_distance must be positive, got %v", p.GroundDistance)
	check(p.Radius > 0, "player.radius must be positive, got %v", p.Radius)
	check(p.CrouchTransitionSpeed > 0, "player.crouch_transition_speed must be positive, got %v", p.CrouchTransitionSpeed)
	check(p.WalkStepInterval > 0 && p.SprintStepInterval > 0 && p.CrouchStepInterval > 0, "player step intervals must be positive")
	check(p.FootstepVariants >= 1, "player.footstep_variants must be at least 1, got %d", p.FootstepVariants)
	check(p.SprintSpeed >= p.WalkSpeed && p.WalkSpeed >= p.CrouchSpeed && p.CrouchSpeed > 0,
		"player speeds must satisfy sprint >= walk >= crouch > 0")

	e := c.Enemy
	check(e.CrouchDetectionRadius > 0, "enemy.crouch_detection_radius must be positive, got %v", e.CrouchDetectionRadius)
	check(e.WalkDetectionRadius >= e.CrouchDetectionRadius, "enemy.walk_detection_radius must be >= crouch_detection_radius")
	check(e.SprintDetectionRadius >= e.WalkDetectionRadius, "enemy.sprint_detection_radius must be >= walk_detection_radius")
	check(e.DetectionInterval > 0, "enemy.detection_interval must be positive, got %v", e.DetectionInterval)
	check(e.PatrolSpeed > 0 && e.ChaseSpeed > 0, "enemy speeds must be positive")
	check(e.RotationSpeed > 0, "enemy.rotation_speed must be positive, got %v", e.RotationSpeed)
	check(e.MinDistanceToTarget > 0, "enemy.min_distance_to_target must be positive, got %v", e.MinDistanceToTarget)
	check(e.PatrolRadius > 0, "enemy.patrol_radius must be positive, got %v", e.PatrolRadius)
	check(e.MinPatrolWaitTime >= 0 && e.MaxPatrolWaitTime >= e.MinPatrolWaitTime, "enemy patrol wait range [%v, %v) is invalid", e.MinPatrolWaitTime, e.MaxPatrolWaitTime)
	check(e.MaxPatrolAttempts >= 1, "enemy.max_patrol_attempts must be at least 1, got %d", e.MaxPatrolAttempts)
	check(e.SampleTolerance > 0, "enemy.sample_tolerance must be positive, got %v", e.SampleTolerance)

	check(c.Navigation.AgentRadius >= 0, "navigation.agent_radius must not be negative")
	check(c.Navigation.NearestOpenSearch >= 1, "navigation.nearest_open_search must be at least 1")
	check(c.Level.CellSize > 0, "level.cell_size must be positive, got %v", c.Level.CellSize)
	check(len(c.Level.Rows) > 0 || c.Level.Path != "", "level needs rows or a path")
	check(c.Interaction.Radius > 0, "interaction.radius must be positive, got %v", c.Interaction.Radius)
	check(c.Telemetry.StatsWindow > 0, "telemetry.stats_window must be positive, got %v", c.Telemetry.StatsWindow)

	for i, wp := range c.Intruder.Waypoints {
		switch wp.Mode {
		case "walk", "sprint", "crouch":
		default:
			check(false, "intruder.waypoints[%d].mode %q is not walk, sprint or crouch", i, wp.Mode)
		}
	}

	return errors.Join(errs...)
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.TicksPerSecond = 1.0 / c.Sim.DT
	c.Derived.StatsWindowTicks = int32(math.Round(c.Telemetry.StatsWindow / c.Sim.DT))
	if c.Derived.StatsWindowTicks < 1 {
		c.Derived.StatsWindowTicks = 1
	}
	c.Derived.MaxSightDistance = c.Enemy.SprintDetectionRadius
	c.Derived.JumpVelocity = math.Sqrt(2 * c.Player.JumpHeight * math.Abs(c.Player.Gravity))
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
