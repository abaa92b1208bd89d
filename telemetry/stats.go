package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Events during window
	Detections   int `csv:"detections"`
	Losses       int `csv:"losses"`
	StateChanges int `csv:"state_changes"`
	Footsteps    int `csv:"footsteps"`
	Interactions int `csv:"interactions"`
	Cues         int `csv:"cues"`

	// Share of agent-ticks spent in each behavior
	PatrolPct      float64 `csv:"patrol_pct"`
	WaitPct        float64 `csv:"wait_pct"`
	InvestigatePct float64 `csv:"investigate_pct"`
	ChasePct       float64 `csv:"chase_pct"`

	// Share of ticks where at least one agent had the player detected
	DetectedPct float64 `csv:"detected_pct"`

	// Distance from the player to the nearest agent
	NearestMean float64 `csv:"nearest_mean"`
	NearestStd  float64 `csv:"nearest_std"`
	NearestMin  float64 `csv:"nearest_min"`
	NearestP10  float64 `csv:"nearest_p10"`
	NearestP50  float64 `csv:"nearest_p50"`
	NearestP90  float64 `csv:"nearest_p90"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// DistanceStats summarizes a set of distance samples.
type DistanceStats struct {
	Mean, Std, Min float64
	P10, P50, P90  float64
}

// ComputeDistanceStats calculates the summary of the given samples.
// Std is the sample standard deviation and is 0 for fewer than two samples.
func ComputeDistanceStats(values []float64) DistanceStats {
	n := len(values)
	if n == 0 {
		return DistanceStats{}
	}

	var d DistanceStats
	if n == 1 {
		d.Mean = values[0]
	} else {
		d.Mean, d.Std = stat.MeanStdDev(values, nil)
	}
	d.Min = floats.Min(values)

	// Sort for percentiles
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	d.P10 = Percentile(sorted, 0.10)
	d.P50 = Percentile(sorted, 0.50)
	d.P90 = Percentile(sorted, 0.90)

	return d
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("detections", s.Detections),
		slog.Int("losses", s.Losses),
		slog.Int("state_changes", s.StateChanges),
		slog.Int("footsteps", s.Footsteps),
		slog.Int("interactions", s.Interactions),
		slog.Int("cues", s.Cues),
		slog.Float64("patrol_pct", s.PatrolPct),
		slog.Float64("wait_pct", s.WaitPct),
		slog.Float64("investigate_pct", s.InvestigatePct),
		slog.Float64("chase_pct", s.ChasePct),
		slog.Float64("detected_pct", s.DetectedPct),
		slog.Float64("nearest_mean", s.NearestMean),
		slog.Float64("nearest_std", s.NearestStd),
		slog.Float64("nearest_min", s.NearestMin),
		slog.Float64("nearest_p10", s.NearestP10),
		slog.Float64("nearest_p50", s.NearestP50),
		slog.Float64("nearest_p90", s.NearestP90),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"detections", s.Detections,
		"losses", s.Losses,
		"footsteps", s.Footsteps,
		"interactions", s.Interactions,
		"chase_pct", s.ChasePct,
		"detected_pct", s.DetectedPct,
		"nearest_mean", s.NearestMean,
		"nearest_min", s.NearestMin,
	)
}
