package systems

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/stalk/components"
)

// PromptChange is what happened to an interaction prompt this tick.
type PromptChange uint8

const (
	PromptUnchanged PromptChange = iota
	PromptShown
	PromptHidden
	PromptInteracted
)

func (c PromptChange) String() string {
	switch c {
	case PromptShown:
		return "shown"
	case PromptHidden:
		return "hidden"
	case PromptInteracted:
		return "interacted"
	}
	return "unchanged"
}

// InteractionPrompt is a radius trigger around an interactable.
// Entering shows the prompt, leaving hides it, and an interact press while
// inside reports an interaction.
type InteractionPrompt struct {
	Center r3.Vec
	State  *components.Interactable
}

// Update applies one tick of player presence. Entering the trigger takes the
// whole tick; a press on the entering tick is not an interaction.
func (p InteractionPrompt) Update(playerPos r3.Vec, interactPressed bool) PromptChange {
	inside := PlanarDistance(p.Center, playerPos) <= p.State.Radius

	switch {
	case inside && !p.State.InRange:
		p.State.InRange = true
		return PromptShown
	case !inside && p.State.InRange:
		p.State.InRange = false
		return PromptHidden
	case inside && interactPressed:
		return PromptInteracted
	}
	return PromptUnchanged
}
