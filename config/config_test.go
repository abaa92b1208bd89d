package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}

	if cfg.Player.WalkSpeed != 5 || cfg.Player.SprintSpeed != 10 || cfg.Player.CrouchSpeed != 2.5 {
		t.Errorf("unexpected player speeds: %+v", cfg.Player)
	}
	if cfg.Enemy.SprintDetectionRadius != 30 || cfg.Enemy.WalkDetectionRadius != 15 || cfg.Enemy.CrouchDetectionRadius != 5 {
		t.Errorf("unexpected detection radii: %+v", cfg.Enemy)
	}
	if cfg.Enemy.MaxPatrolAttempts != 30 {
		t.Errorf("max_patrol_attempts = %d, want 30", cfg.Enemy.MaxPatrolAttempts)
	}
	if len(cfg.Level.Rows) == 0 {
		t.Fatal("expected default level rows")
	}
	for i, row := range cfg.Level.Rows {
		if len(row) != len(cfg.Level.Rows[0]) {
			t.Errorf("row %d has width %d, want %d", i, len(row), len(cfg.Level.Rows[0]))
		}
	}
	if !strings.Contains(cfg.Reactions.Source, "emit(") {
		t.Error("expected default reaction script")
	}
}

func TestDerivedValues(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	wantJump := math.Sqrt(2 * cfg.Player.JumpHeight * math.Abs(cfg.Player.Gravity))
	if cfg.Derived.JumpVelocity != wantJump {
		t.Errorf("JumpVelocity = %v, want %v", cfg.Derived.JumpVelocity, wantJump)
	}
	if cfg.Derived.MaxSightDistance != cfg.Enemy.SprintDetectionRadius {
		t.Errorf("MaxSightDistance = %v, want sprint radius", cfg.Derived.MaxSightDistance)
	}
	if cfg.Derived.StatsWindowTicks != 600 {
		t.Errorf("StatsWindowTicks = %d, want 600", cfg.Derived.StatsWindowTicks)
	}
}

func TestLoadMergesUserFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("enemy:\n  chase_speed: 9.5\nplayer:\n  walk_speed: 4\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Enemy.ChaseSpeed != 9.5 {
		t.Errorf("chase_speed = %v, want 9.5", cfg.Enemy.ChaseSpeed)
	}
	if cfg.Player.WalkSpeed != 4 {
		t.Errorf("walk_speed = %v, want 4", cfg.Player.WalkSpeed)
	}
	// Untouched fields keep defaults
	if cfg.Enemy.PatrolSpeed != 3.5 {
		t.Errorf("patrol_speed = %v, want default 3.5", cfg.Enemy.PatrolSpeed)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateRejectsBadTunables(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"crouch not below standing", "player:\n  crouch_height: 2.0\n"},
		{"zero crouch height", "player:\n  crouch_height: 0\n"},
		{"negative radius", "enemy:\n  crouch_detection_radius: -1\n"},
		{"sprint radius below walk", "enemy:\n  sprint_detection_radius: 10\n"},
		{"inverted wait range", "enemy:\n  min_patrol_wait_time: 6\n"},
		{"no patrol attempts", "enemy:\n  max_patrol_attempts: 0\n"},
		{"positive gravity", "player:\n  gravity: 9.8\n"},
		{"bad intruder mode", "intruder:\n  waypoints:\n    - {x: 1, z: 1, mode: run}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("error %v does not wrap ErrInvalid", err)
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Enemy.PatrolRadius = 12.5

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load written config: %v", err)
	}
	if loaded.Enemy.PatrolRadius != 12.5 {
		t.Errorf("patrol_radius = %v, want 12.5", loaded.Enemy.PatrolRadius)
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("enemy:\n  chase_speed: 7\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	// Replace atomically so the watcher never sees a half-written file
	tmp := filepath.Join(dir, "config.yaml.tmp")
	if err := os.WriteFile(tmp, []byte("enemy:\n  chase_speed: 8.25\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-w.Updates:
		if cfg.Enemy.ChaseSpeed != 8.25 {
			t.Errorf("reloaded chase_speed = %v, want 8.25", cfg.Enemy.ChaseSpeed)
		}
	case err := <-w.Errors:
		t.Fatalf("watcher error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherLoadsSettledFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("enemy:\n  chase_speed: 7\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	// An in-place save that lands in two writes
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("enemy:\n  chase_speed: "); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := f.WriteString("9.5\n"); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-w.Updates:
		if cfg.Enemy.ChaseSpeed != 9.5 {
			t.Errorf("reloaded chase_speed = %v, want 9.5", cfg.Enemy.ChaseSpeed)
		}
	case err := <-w.Errors:
		t.Fatalf("loaded the partial file: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	select {
	case cfg := <-w.Updates:
		t.Errorf("second reload for one save: chase_speed %v", cfg.Enemy.ChaseSpeed)
	case err := <-w.Errors:
		t.Errorf("watcher error: %v", err)
	case <-time.After(3 * reloadDebounce):
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-w.Updates:
		t.Fatalf("unexpected reload: %+v", cfg.Enemy)
	case <-time.After(300 * time.Millisecond):
	}

	if err := w.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	// Channels close after shutdown
	for range w.Updates {
	}
}
