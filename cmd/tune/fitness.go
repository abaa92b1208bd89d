package main

import (
	"io"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/stalk/config"
	"github.com/pthm-cable/stalk/game"
	"github.com/pthm-cable/stalk/telemetry"
)

// Targets describes the play experience the tuner aims for.
type Targets struct {
	FirstDetectionSec float64 // typical time before the intruder is first heard
	DetectedShare     float64 // share of ticks with the player detected
}

// Fitness weights.
const (
	weightFirst    = 1.0
	weightPressure = 0.5
	pressureScale  = 0.1 // detected share error that costs as much as weightPressure
	failedFitness  = 1e6
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params      *ParamVector
	maxTicks    int32
	seeds       []int64
	baseConfig  *config.Config
	targets     Targets
	statsWindow float64
	logger      *slog.Logger

	mu   sync.Mutex
	last runMetrics // averaged metrics from the most recent Evaluate call
}

// runMetrics holds the results from a single simulation run.
type runMetrics struct {
	FirstDetectionSec float64 // censored at the run length when never detected
	Detected          bool
	DetectedShare     float64
	Detections        int
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, baseCfg *config.Config, targets Targets) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		targets:     targets,
		statsWindow: 10.0,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Last returns the averaged metrics from the most recent evaluation.
func (fe *FitnessEvaluator) Last() runMetrics {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.last
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]runMetrics, len(fe.seeds))
	errs := make([]error, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx], errs[idx] = fe.runSimulation(x, s)
		}(i, seed)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			fe.logger.Warn("evaluation failed", "error", err)
			return failedFitness
		}
	}

	first := make([]float64, len(results))
	share := make([]float64, len(results))
	detections := 0
	for i, r := range results {
		first[i] = r.FirstDetectionSec
		share[i] = r.DetectedShare
		detections += r.Detections
	}
	avg := runMetrics{
		FirstDetectionSec: stat.Mean(first, nil),
		DetectedShare:     stat.Mean(share, nil),
		Detections:        detections / len(results),
	}

	fe.mu.Lock()
	fe.last = avg
	fe.mu.Unlock()

	return computeFitness(first, avg.DetectedShare, fe.targets)
}

// computeFitness is the weighted squared error against the targets. The
// first-detection error is taken in log space so early and late misses by the
// same factor cost the same.
func computeFitness(firstSec []float64, detectedShare float64, t Targets) float64 {
	var firstErr float64
	for _, s := range firstSec {
		e := math.Log(math.Max(s, 1e-3) / t.FirstDetectionSec)
		firstErr += e * e
	}
	firstErr /= float64(len(firstSec))

	p := (detectedShare - t.DetectedShare) / pressureScale
	return weightFirst*firstErr + weightPressure*p*p
}

// runSimulation executes a single headless run of the intruder route.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) (runMetrics, error) {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	var windows []telemetry.WindowStats
	g, err := game.NewGameWithOptions(game.Options{
		Seed:           seed,
		StatsWindowSec: fe.statsWindow,
		Config:         cfg,
		Logger:         fe.logger,
		StatsCallback: func(stats telemetry.WindowStats) {
			windows = append(windows, stats)
		},
	})
	if err != nil {
		return runMetrics{}, err
	}
	defer g.Unload()

	for g.Tick() < fe.maxTicks && !g.IntruderDone() {
		g.Update()
	}

	m := runMetrics{
		FirstDetectionSec: float64(g.Tick()) * cfg.Sim.DT,
		Detections:        g.Detections(),
		DetectedShare:     detectedShare(windows),
	}
	if tick, ok := g.FirstDetectionTick(); ok {
		m.FirstDetectionSec = float64(tick) * cfg.Sim.DT
		m.Detected = true
	}
	return m, nil
}

// detectedShare averages the per-window detected share.
func detectedShare(windows []telemetry.WindowStats) float64 {
	if len(windows) == 0 {
		return 0
	}
	shares := make([]float64, len(windows))
	for i, w := range windows {
		shares[i] = w.DetectedPct
	}
	return stat.Mean(shares, nil)
}

// copyConfig creates a copy of the base config the evaluation can modify.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}
