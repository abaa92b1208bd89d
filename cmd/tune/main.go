// Package main tunes enemy perception and movement with CMA-ES so that a
// scripted intruder is first heard after a target time.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/stalk/config"
)

// tuneRecord is one row of tune_log.csv.
type tuneRecord struct {
	Eval              int     `csv:"eval"`
	Fitness           float64 `csv:"fitness"`
	FirstDetectionSec float64 `csv:"first_detection_sec"`
	DetectedShare     float64 `csv:"detected_share"`
	Detections        int     `csv:"detections"`
	SprintRadius      float64 `csv:"sprint_radius"`
	WalkRadius        float64 `csv:"walk_radius"`
	CrouchRadius      float64 `csv:"crouch_radius"`
	DetectionInterval float64 `csv:"detection_interval"`
	PatrolSpeed       float64 `csv:"patrol_speed"`
	ChaseSpeed        float64 `csv:"chase_speed"`
	PatrolRadius      float64 `csv:"patrol_radius"`
	MinWait           float64 `csv:"min_wait"`
	MaxWait           float64 `csv:"max_wait"`
}

// newTuneRecord fills a row from the config the values produce, so the
// logged radii are the reordered ones the run actually used.
func newTuneRecord(eval int, fitness float64, m runMetrics, cfg *config.Config) tuneRecord {
	e := cfg.Enemy
	return tuneRecord{
		Eval:              eval,
		Fitness:           fitness,
		FirstDetectionSec: m.FirstDetectionSec,
		DetectedShare:     m.DetectedShare,
		Detections:        m.Detections,
		SprintRadius:      e.SprintDetectionRadius,
		WalkRadius:        e.WalkDetectionRadius,
		CrouchRadius:      e.CrouchDetectionRadius,
		DetectionInterval: e.DetectionInterval,
		PatrolSpeed:       e.PatrolSpeed,
		ChaseSpeed:        e.ChaseSpeed,
		PatrolRadius:      e.PatrolRadius,
		MinWait:           e.MinPatrolWaitTime,
		MaxWait:           e.MaxPatrolWaitTime,
	}
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	maxTicks := flag.Int("max-ticks", 36000, "Maximum run length in ticks")
	seeds := flag.Int("seeds", 4, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	targetFirst := flag.Float64("target-first", 45, "Target seconds until the first detection")
	targetShare := flag.Float64("target-detected", 0.15, "Target share of ticks with the player detected")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	baseCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if len(baseCfg.Intruder.Waypoints) == 0 {
		log.Fatal("config has no intruder waypoints to evaluate against")
	}

	params := NewParamVector()

	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}

	evaluator := NewFitnessEvaluator(params, int32(*maxTicks), evalSeeds, baseCfg, Targets{
		FirstDetectionSec: *targetFirst,
		DetectedShare:     *targetShare,
	})

	dim := params.Dim()
	initX := params.Normalize(params.Clamp(params.ExtractFromConfig(baseCfg)))

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}
	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // Seeds already run in parallel
	}

	logPath := filepath.Join(*outputDir, "tune_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()

	evalCount := 0
	bestFitness := 1e18
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Denormalize(x)
			fitness := evaluator.Evaluate(raw)
			evalCount++

			clamped := params.Clamp(raw)
			if fitness < bestFitness {
				bestFitness = fitness
				bestParams = clamped
			}

			applied := *baseCfg
			params.ApplyToConfig(&applied, clamped)
			metrics := evaluator.Last()
			row := []tuneRecord{newTuneRecord(evalCount, fitness, metrics, &applied)}

			var werr error
			if evalCount == 1 {
				werr = gocsv.Marshal(row, logFile)
			} else {
				werr = gocsv.MarshalWithoutHeaders(row, logFile)
			}
			if werr != nil {
				log.Printf("failed to write tune log: %v", werr)
			}

			elapsed := time.Since(startTime)
			avgPerEval := elapsed / time.Duration(evalCount)
			remaining := time.Duration(*maxEvals-evalCount) * avgPerEval

			fmt.Printf("Eval %d/%d: first=%.1fs detected=%.2f (fitness=%.4f best=%.4f) | elapsed: %s, ETA: %s\n",
				evalCount, *maxEvals, metrics.FirstDetectionSec, metrics.DetectedShare, fitness, bestFitness,
				formatDuration(elapsed), formatDuration(remaining))

			return fitness
		},
	}

	fmt.Printf("Starting CMA-ES tuning with %d parameters, population=%d, max_evals=%d\n",
		dim, popSize, *maxEvals)
	fmt.Printf("Seeds per evaluation: %d, ticks per run: %d\n", *seeds, *maxTicks)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}

	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		log.Fatal("no evaluations completed")
	}

	fmt.Printf("\nTuning complete after %d evaluations in %s\n", evalCount, formatDuration(time.Since(startTime)))
	fmt.Printf("Best fitness: %.4f\n", bestFitness)

	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.4f\n", spec.Path, bestParams[i])
	}

	bestCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to reload config: %v", err)
	}
	params.ApplyToConfig(bestCfg, bestParams)

	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}
}
