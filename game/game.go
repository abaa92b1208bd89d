package game

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/stalk/components"
	"github.com/pthm-cable/stalk/config"
	"github.com/pthm-cable/stalk/script"
	"github.com/pthm-cable/stalk/systems"
	"github.com/pthm-cable/stalk/telemetry"
)

// Options configures a game instance.
type Options struct {
	Seed           int64   // 0 = config seed, then time-based
	RunID          string  // attached to logs and snapshots
	LogStats       bool    // log window stats and bookmarks
	StatsWindowSec float64 // 0 = config
	SnapshotDir    string  // bookmark and end-of-run snapshots, empty = off
	OutputDir      string  // CSV output, empty = off
	NoIntruder     bool    // leave the player idle instead of running the scripted route

	// Config overrides the global config when set.
	Config *config.Config
	// Logger defaults to slog.Default.
	Logger *slog.Logger
	// StatsCallback receives every flushed stats window.
	StatsCallback func(telemetry.WindowStats)
}

// Game holds the complete simulation state.
type Game struct {
	cfg     *config.Config
	world   *ecs.World
	rng     *rand.Rand
	rngSeed int64
	runID   string
	logger  *slog.Logger

	// Entity mappers
	playerMapper   *ecs.Map5[components.Identity, components.Transform, components.Locomotion, components.MoveInput, components.PlayerTag]
	enemyMapper    *ecs.Map4[components.Identity, components.Transform, components.Enemy, components.NavAgent]
	interactMapper *ecs.Map3[components.Identity, components.Transform, components.Interactable]

	enemyFilter    *ecs.Filter4[components.Identity, components.Transform, components.Enemy, components.NavAgent]
	interactFilter *ecs.Filter3[components.Identity, components.Transform, components.Interactable]

	// Individual component mappers for lookups
	transformMap *ecs.Map1[components.Transform]
	enemyMap     *ecs.Map1[components.Enemy]

	player      ecs.Entity
	playerID    uint32
	hasPlayer   bool
	manualInput components.MoveInput // used when there is no intruder
	snapshot    playerView
	enemyByID   map[uint32]ecs.Entity
	firstSeen   int32 // tick of the first detection, 0 = never
	detections  int

	// Level and services
	level      *systems.Level
	levelRows  []string
	collider   *systems.LevelCollider
	sight      *systems.SightWorld
	nav        *systems.NavigationService
	locomotion *systems.LocomotionController
	enemies    *systems.EnemyController
	reactions  *script.Reactions
	intruder   *Intruder

	// Telemetry
	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	pending          []telemetry.Event
	states           []components.BehaviorState
	logStats         bool
	snapshotDir      string
	statsCallback    func(telemetry.WindowStats)

	// State
	tick   int32
	nextID uint32
}

// playerView is the per-tick player snapshot agents perceive.
type playerView struct {
	snap systems.PlayerSnapshot
	ok   bool
}

func (p *playerView) PlayerState() (systems.PlayerSnapshot, bool) {
	return p.snap, p.ok
}

// NewGameWithOptions builds the level, services and entities.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}

	seed := opts.Seed
	if seed == 0 {
		seed = cfg.Sim.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.RunID != "" {
		logger = logger.With("run_id", opts.RunID)
	}

	world := ecs.NewWorld()
	g := &Game{
		cfg:     cfg,
		world:   world,
		rng:     rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1)),
		rngSeed: seed,
		runID:   opts.RunID,
		logger:  logger,

		playerMapper:   ecs.NewMap5[components.Identity, components.Transform, components.Locomotion, components.MoveInput, components.PlayerTag](world),
		enemyMapper:    ecs.NewMap4[components.Identity, components.Transform, components.Enemy, components.NavAgent](world),
		interactMapper: ecs.NewMap3[components.Identity, components.Transform, components.Interactable](world),
		enemyFilter:    ecs.NewFilter4[components.Identity, components.Transform, components.Enemy, components.NavAgent](world),
		interactFilter: ecs.NewFilter3[components.Identity, components.Transform, components.Interactable](world),
		transformMap:   ecs.NewMap1[components.Transform](world),
		enemyMap:       ecs.NewMap1[components.Enemy](world),

		enemyByID:     make(map[uint32]ecs.Entity),
		logStats:      opts.LogStats,
		snapshotDir:   opts.SnapshotDir,
		statsCallback: opts.StatsCallback,
	}

	if err := g.buildServices(); err != nil {
		return nil, err
	}
	if !opts.NoIntruder {
		g.intruder = NewIntruder(cfg.Intruder, g.nav, logger)
	}

	// Telemetry
	statsWindow := opts.StatsWindowSec
	if statsWindow <= 0 {
		statsWindow = cfg.Telemetry.StatsWindow
	}
	g.collector = telemetry.NewCollector(statsWindow, cfg.Sim.DT)
	g.perfCollector = telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)
	g.bookmarkDetector = telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistorySize)

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	g.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		om.Close()
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}

	g.spawnFromLevel()

	g.logger.Info("game ready",
		"seed", seed,
		"level_width", g.level.Width(),
		"level_depth", g.level.Depth(),
		"enemies", len(g.enemyByID),
		"player", g.hasPlayer,
		"open_cells", g.nav.Grid().OpenCount(),
	)
	return g, nil
}

// buildServices parses the level and wires the controllers over it.
func (g *Game) buildServices() error {
	cfg := g.cfg

	rows := cfg.Level.Rows
	if cfg.Level.Path != "" {
		var err error
		if rows, err = systems.ReadLevelRows(cfg.Level.Path); err != nil {
			return err
		}
	}
	level, err := systems.ParseLevel(rows, cfg.Level.CellSize, cfg.Level.FloorThickness)
	if err != nil {
		return fmt.Errorf("parsing level: %w", err)
	}
	g.level = level
	g.levelRows = rows

	g.collider = systems.NewLevelCollider(level)
	g.sight = systems.NewSightWorld(level, cfg.Player.Radius)
	g.nav = systems.NewNavigationService(level, systems.NavigationOptions{
		AgentRadius:       cfg.Navigation.AgentRadius,
		BaseOffset:        cfg.Navigation.BaseOffset,
		ReplanDistance:    cfg.Navigation.ReplanDistance,
		NearestOpenSearch: cfg.Navigation.NearestOpenSearch,
	})

	hooks := &telemetryHooks{g: g}
	g.locomotion, err = systems.NewLocomotionController(cfg.Player, g.collider, g.collider, hooks, g.rng)
	if err != nil {
		return err
	}
	g.enemies, err = systems.NewEnemyController(cfg.Enemy, &g.snapshot, g.sight, g.nav, hooks)
	if err != nil {
		return err
	}
	g.reactions, err = script.FromConfig(cfg.Reactions)
	if err != nil {
		return err
	}
	return nil
}

// ApplyConfig swaps in new player, enemy and reaction tunables between ticks.
// Level, navigation and telemetry settings only take effect on restart.
func (g *Game) ApplyConfig(cfg *config.Config) error {
	reactions, err := script.FromConfig(cfg.Reactions)
	if err != nil {
		return err
	}
	prevPlayer := g.locomotion.Config()
	if err := g.locomotion.SetConfig(cfg.Player); err != nil {
		return err
	}
	if err := g.enemies.SetConfig(cfg.Enemy); err != nil {
		_ = g.locomotion.SetConfig(prevPlayer)
		return err
	}
	g.reactions = reactions
	g.cfg = cfg
	g.logger.Info("config applied", "tick", g.tick)
	return nil
}

// SetInput sets the player input used on the next tick when the game runs
// without the intruder. Edge inputs (jump, crouch, interact) apply once.
func (g *Game) SetInput(in components.MoveInput) {
	g.manualInput = in
}

// Update advances the simulation by one tick.
func (g *Game) Update() {
	g.simulationStep()
}

// Tick returns the number of ticks simulated.
func (g *Game) Tick() int32 {
	return g.tick
}

// Seed returns the seed the run was started with.
func (g *Game) Seed() int64 {
	return g.rngSeed
}

// FirstDetectionTick returns the tick the player was first detected.
func (g *Game) FirstDetectionTick() (int32, bool) {
	return g.firstSeen, g.firstSeen > 0
}

// Detections returns the number of detection edges so far.
func (g *Game) Detections() int {
	return g.detections
}

// IntruderDone reports whether the scripted route has finished.
func (g *Game) IntruderDone() bool {
	return g.intruder == nil || g.intruder.Done()
}

// Unload writes the end-of-run snapshot and closes output files.
func (g *Game) Unload() {
	g.flushEvents()
	if g.snapshotDir != "" {
		g.saveSnapshot(nil)
	}
	if err := g.outputManager.Close(); err != nil {
		g.logger.Error("failed to close output", "error", err)
	}
}
