// Package script runs the tengo reaction scripts agents trigger on detection edges.
package script

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/pthm-cable/stalk/config"
)

// Reaction events passed to scripts as `event`.
const (
	EventDetected = "detected"
	EventLost     = "lost"
)

// Input is the context a reaction script runs with.
type Input struct {
	Event    string
	AgentID  uint32
	State    string
	Distance float64 // agent to player
}

// Reactions is a compiled reaction script. Scripts call emit(name) to
// request a cue. Not safe for concurrent use.
type Reactions struct {
	compiled *tengo.Compiled
	cues     []string
}

// Compile compiles a reaction script. Empty source yields a script that emits nothing.
func Compile(src []byte) (*Reactions, error) {
	r := &Reactions{}
	if strings.TrimSpace(string(src)) == "" {
		return r, nil
	}

	s := tengo.NewScript(src)
	_ = s.Add("event", "")
	_ = s.Add("agent_id", 0)
	_ = s.Add("state", "")
	_ = s.Add("distance", 0.0)
	_ = s.Add("emit", &tengo.UserFunction{Name: "emit", Value: r.emit})
	s.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := s.Compile()
	if err != nil {
		return nil, fmt.Errorf("compiling reaction script: %w", err)
	}
	r.compiled = compiled
	return r, nil
}

// FromConfig loads the script file if one is configured, else the inline source.
func FromConfig(cfg config.ReactionsConfig) (*Reactions, error) {
	if cfg.Path == "" {
		return Compile([]byte(cfg.Source))
	}
	src, err := os.ReadFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("reading reaction script: %w", err)
	}
	return Compile(src)
}

func (r *Reactions) emit(args ...tengo.Object) (tengo.Object, error) {
	if len(args) != 1 {
		return nil, tengo.ErrWrongNumArguments
	}
	name, ok := tengo.ToString(args[0])
	if !ok {
		return nil, tengo.ErrInvalidArgumentType{Name: "name", Expected: "string", Found: args[0].TypeName()}
	}
	if name = strings.TrimSpace(name); name != "" {
		r.cues = append(r.cues, name)
	}
	return tengo.UndefinedValue, nil
}

// React runs the script for one event and returns the cues it emitted, in order.
func (r *Reactions) React(ctx context.Context, in Input) ([]string, error) {
	if r.compiled == nil {
		return nil, nil
	}

	vars := []struct {
		name  string
		value any
	}{
		{"event", in.Event},
		{"agent_id", int64(in.AgentID)},
		{"state", in.State},
		{"distance", in.Distance},
	}
	for _, v := range vars {
		if err := r.compiled.Set(v.name, v.value); err != nil {
			return nil, fmt.Errorf("setting %s: %w", v.name, err)
		}
	}

	r.cues = r.cues[:0]
	if err := r.compiled.RunContext(ctx); err != nil {
		return nil, fmt.Errorf("running reaction script for %s: %w", in.Event, err)
	}

	if len(r.cues) == 0 {
		return nil, nil
	}
	out := make([]string, len(r.cues))
	copy(out, r.cues)
	return out, nil
}
