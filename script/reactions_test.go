package script

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/pthm-cable/stalk/config"
)

func TestDefaultReactions(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	r, err := FromConfig(cfg.Reactions)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}

	tests := []struct {
		name string
		in   Input
		want []string
	}{
		{"far detection", Input{Event: EventDetected, Distance: 12}, []string{"alert_growl"}},
		{"close detection", Input{Event: EventDetected, Distance: 3}, []string{"alert_growl", "close_shriek"}},
		{"lost", Input{Event: EventLost, Distance: 20}, []string{"confused_sniff"}},
		{"unknown event", Input{Event: "sneeze"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.React(context.Background(), tt.in)
			if err != nil {
				t.Fatalf("React: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("cues = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReactionsSeeInputs(t *testing.T) {
	src := `
text := import("text")
emit(text.join([event, state, string(agent_id)], ":"))
`
	r, err := Compile([]byte(src))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	got, err := r.React(context.Background(), Input{Event: EventDetected, AgentID: 7, State: "chasing"})
	if err != nil {
		t.Fatalf("React: %v", err)
	}
	if want := []string{"detected:chasing:7"}; !slices.Equal(got, want) {
		t.Errorf("cues = %v, want %v", got, want)
	}

	// Cues from one run do not leak into the next
	got, err = r.React(context.Background(), Input{Event: EventLost, AgentID: 1, State: "investigating"})
	if err != nil {
		t.Fatalf("React: %v", err)
	}
	if want := []string{"lost:investigating:1"}; !slices.Equal(got, want) {
		t.Errorf("cues = %v, want %v", got, want)
	}
}

func TestEmptyReactions(t *testing.T) {
	r, err := Compile(nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got, err := r.React(context.Background(), Input{Event: EventDetected})
	if err != nil || got != nil {
		t.Errorf("React = %v, %v; want no cues", got, err)
	}
}

func TestReactionErrors(t *testing.T) {
	if _, err := Compile([]byte("emit(")); err == nil {
		t.Error("expected compile error")
	}

	r, err := Compile([]byte(`emit(1, 2)`))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, err := r.React(context.Background(), Input{Event: EventDetected}); err == nil {
		t.Error("expected runtime error for wrong argument count")
	}

	if _, err := FromConfig(config.ReactionsConfig{Path: filepath.Join(t.TempDir(), "missing.tengo")}); err == nil {
		t.Error("expected error for missing script file")
	}
}

func TestReactionsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reactions.tengo")
	if err := os.WriteFile(path, []byte(`if event == "lost" { emit("whimper") }`), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := FromConfig(config.ReactionsConfig{Path: path, Source: `emit("ignored")`})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	got, err := r.React(context.Background(), Input{Event: EventLost})
	if err != nil {
		t.Fatalf("React: %v", err)
	}
	if !slices.Equal(got, []string{"whimper"}) {
		t.Errorf("cues = %v, want [whimper]", got)
	}
}
