package systems

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/stalk/components"
)

func TestInteractionPrompt(t *testing.T) {
	state := &components.Interactable{Radius: 1.5, Label: "door"}
	prompt := InteractionPrompt{Center: r3.Vec{X: 5, Z: 5}, State: state}

	steps := []struct {
		pos      r3.Vec
		interact bool
		want     PromptChange
	}{
		{r3.Vec{X: 1, Y: 1, Z: 5}, false, PromptUnchanged},
		{r3.Vec{X: 1, Y: 1, Z: 5}, true, PromptUnchanged}, // out of range
		{r3.Vec{X: 4, Y: 1, Z: 5}, true, PromptShown},     // entering takes the tick
		{r3.Vec{X: 4, Y: 1, Z: 5}, false, PromptUnchanged},
		{r3.Vec{X: 4.5, Y: 1, Z: 5}, true, PromptInteracted},
		{r3.Vec{X: 5, Y: 1, Z: 6.4}, true, PromptInteracted},
		{r3.Vec{X: 5, Y: 1, Z: 7}, false, PromptHidden},
		{r3.Vec{X: 5, Y: 1, Z: 7}, true, PromptUnchanged},
	}

	for i, s := range steps {
		if got := prompt.Update(s.pos, s.interact); got != s.want {
			t.Errorf("step %d: got %v, want %v", i, got, s.want)
		}
	}
	if state.InRange {
		t.Error("still in range after leaving")
	}
}
