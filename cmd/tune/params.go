package main

import (
	"math"

	"github.com/pthm-cable/stalk/config"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of enemy tunables.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Hearing
			{Name: "sprint_radius", Path: "enemy.sprint_detection_radius", Min: 10, Max: 40, Default: 30},
			{Name: "walk_radius", Path: "enemy.walk_detection_radius", Min: 5, Max: 25, Default: 15},
			{Name: "crouch_radius", Path: "enemy.crouch_detection_radius", Min: 1, Max: 10, Default: 5},
			{Name: "detection_interval", Path: "enemy.detection_interval", Min: 0.05, Max: 1.0, Default: 0.2},
			// Movement
			{Name: "patrol_speed", Path: "enemy.patrol_speed", Min: 1, Max: 6, Default: 3.5},
			{Name: "chase_speed", Path: "enemy.chase_speed", Min: 3, Max: 12, Default: 7},
			{Name: "patrol_radius", Path: "enemy.patrol_radius", Min: 5, Max: 40, Default: 20},
			// Patrol pauses
			{Name: "min_wait", Path: "enemy.min_patrol_wait_time", Min: 0, Max: 5, Default: 2},
			{Name: "max_wait", Path: "enemy.max_patrol_wait_time", Min: 1, Max: 10, Default: 5},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = math.Max(spec.Min, math.Min(spec.Max, v[i]))
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Radii and wait bounds are reordered so the result always validates.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	// Order must match Specs order
	i := 0
	e := &cfg.Enemy
	e.SprintDetectionRadius = clamped[i]; i++
	e.WalkDetectionRadius = clamped[i]; i++
	e.CrouchDetectionRadius = clamped[i]; i++
	e.DetectionInterval = clamped[i]; i++
	e.PatrolSpeed = clamped[i]; i++
	e.ChaseSpeed = clamped[i]; i++
	e.PatrolRadius = clamped[i]; i++
	e.MinPatrolWaitTime = clamped[i]; i++
	e.MaxPatrolWaitTime = clamped[i]

	e.WalkDetectionRadius = math.Min(e.WalkDetectionRadius, e.SprintDetectionRadius)
	e.CrouchDetectionRadius = math.Min(e.CrouchDetectionRadius, e.WalkDetectionRadius)
	e.MaxPatrolWaitTime = math.Max(e.MaxPatrolWaitTime, e.MinPatrolWaitTime)

	cfg.Derived.MaxSightDistance = e.SprintDetectionRadius
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	e := cfg.Enemy
	return []float64{
		e.SprintDetectionRadius,
		e.WalkDetectionRadius,
		e.CrouchDetectionRadius,
		e.DetectionInterval,
		e.PatrolSpeed,
		e.ChaseSpeed,
		e.PatrolRadius,
		e.MinPatrolWaitTime,
		e.MaxPatrolWaitTime,
	}
}
