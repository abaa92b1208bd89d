package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/stalk/config"
)

func TestNormalizeRoundTrip(t *testing.T) {
	pv := NewParamVector()
	def := pv.DefaultVector()
	back := pv.Denormalize(pv.Normalize(def))
	for i := range def {
		if math.Abs(back[i]-def[i]) > 1e-9 {
			t.Errorf("%s: got %v, want %v", pv.Specs[i].Name, back[i], def[i])
		}
	}
}

func TestDefaultsMatchConfig(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	pv := NewParamVector()
	got := pv.ExtractFromConfig(cfg)
	if len(got) != pv.Dim() {
		t.Fatalf("extracted %d values, want %d", len(got), pv.Dim())
	}
	for i, spec := range pv.Specs {
		if got[i] != spec.Default {
			t.Errorf("%s: config has %v, default is %v", spec.Path, got[i], spec.Default)
		}
	}
}

func TestApplyKeepsConfigValid(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	pv := NewParamVector()

	// Walk louder than sprint, crouch louder than walk, waits inverted
	values := []float64{12, 20, 9, 0.2, 3, 7, 20, 4, 1}
	pv.ApplyToConfig(cfg, values)

	e := cfg.Enemy
	if e.WalkDetectionRadius > e.SprintDetectionRadius || e.CrouchDetectionRadius > e.WalkDetectionRadius {
		t.Errorf("radii out of order: %+v", e)
	}
	if e.MaxPatrolWaitTime < e.MinPatrolWaitTime {
		t.Errorf("wait range inverted: [%v, %v]", e.MinPatrolWaitTime, e.MaxPatrolWaitTime)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestClamp(t *testing.T) {
	pv := NewParamVector()
	v := make([]float64, pv.Dim())
	for i := range v {
		v[i] = -1e9
	}
	for i, c := range pv.Clamp(v) {
		if c != pv.Specs[i].Min {
			t.Errorf("%s: clamped to %v, want %v", pv.Specs[i].Name, c, pv.Specs[i].Min)
		}
	}
}

func TestComputeFitness(t *testing.T) {
	target := Targets{FirstDetectionSec: 30, DetectedShare: 0.2}

	if f := computeFitness([]float64{30, 30}, 0.2, target); math.Abs(f) > 1e-12 {
		t.Errorf("on-target fitness = %v, want 0", f)
	}

	early := computeFitness([]float64{15}, 0.2, target)
	late := computeFitness([]float64{60}, 0.2, target)
	if math.Abs(early-late) > 1e-12 {
		t.Errorf("half and double the target should cost the same: %v vs %v", early, late)
	}

	if computeFitness([]float64{30}, 0.5, target) <= 0 {
		t.Error("expected a pressure penalty")
	}
}
