package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"

	"github.com/pthm-cable/stalk/config"
	"github.com/pthm-cable/stalk/game"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = config, then time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	noIntruder := flag.Bool("no-intruder", false, "Leave the player idle instead of walking the scripted route")
	realtime := flag.Bool("realtime", false, "Pace ticks at sim.dt instead of running as fast as possible")
	watch := flag.Bool("watch", false, "Reload player, enemy and reaction tunables when the config file changes")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	runID := uuid.NewString()
	g, err := game.NewGameWithOptions(game.Options{
		Seed:           *seed,
		RunID:          runID,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
		SnapshotDir:    *snapshotDir,
		OutputDir:      *outputDir,
		NoIntruder:     *noIntruder,
		Config:         cfg,
		Logger:         logger,
	})
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer g.Unload()

	var watcher *config.Watcher
	if *watch {
		if *configPath == "" {
			slog.Warn("--watch needs --config; hot reload disabled")
		} else if watcher, err = config.NewWatcher(*configPath); err != nil {
			slog.Error("failed to watch config", "error", err)
		} else {
			defer watcher.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var pace *time.Ticker
	if *realtime {
		pace = time.NewTicker(time.Duration(cfg.Sim.DT * float64(time.Second)))
		defer pace.Stop()
	}

	slog.Info("starting simulation",
		"run_id", runID,
		"seed", g.Seed(),
		"max_ticks", *maxTicks,
		"realtime", *realtime,
		"watch", watcher != nil,
	)

	for {
		if watcher != nil {
			drainReloads(g, watcher)
		}

		g.Update()

		if *maxTicks > 0 && int(g.Tick()) >= *maxTicks {
			slog.Info("max ticks reached", "tick", g.Tick())
			return
		}
		if !*noIntruder && g.IntruderDone() {
			slog.Info("intruder route finished", "tick", g.Tick(), "detections", g.Detections())
			return
		}

		if pace != nil {
			select {
			case <-pace.C:
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			slog.Info("interrupted", "tick", g.Tick())
			return
		}
	}
}

// drainReloads applies pending config reloads between ticks.
func drainReloads(g *game.Game, w *config.Watcher) {
	for {
		select {
		case cfg, ok := <-w.Updates:
			if !ok {
				return
			}
			if err := g.ApplyConfig(cfg); err != nil {
				slog.Warn("config reload rejected", "error", err)
				continue
			}
			config.Set(cfg)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Warn("config reload failed", "error", err)
		default:
			return
		}
	}
}
