package game

import (
	"math"

	"github.com/pthm-cable/stalk/components"
	"github.com/pthm-cable/stalk/systems"
	"github.com/pthm-cable/stalk/telemetry"
)

// simulationStep runs one fixed tick in order: input, locomotion, agents,
// navigation, prompts, telemetry.
func (g *Game) simulationStep() {
	g.perfCollector.StartTick()
	g.tick++
	dt := g.cfg.Sim.DT

	g.perfCollector.StartPhase(telemetry.PhaseIntruder)
	in := g.playerInput(dt)

	g.perfCollector.StartPhase(telemetry.PhaseLocomotion)
	g.updatePlayer(in, dt)

	g.perfCollector.StartPhase(telemetry.PhaseBehavior)
	g.updateEnemies(dt)

	g.perfCollector.StartPhase(telemetry.PhaseNavigation)
	g.advanceAgents(dt)

	g.perfCollector.StartPhase(telemetry.PhaseInteraction)
	g.updatePrompts(in.Interact)

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.sampleTick()
	g.flushTelemetry()

	g.perfCollector.EndTick()
}

// playerInput produces and stores this tick's player input.
func (g *Game) playerInput(dt float64) components.MoveInput {
	if !g.hasPlayer {
		return components.MoveInput{}
	}
	_, tr, loco, in, _ := g.playerMapper.Get(g.player)

	if g.intruder != nil {
		*in = g.intruder.Next(*tr, loco, dt)
	} else {
		*in = g.manualInput
		// Edges fire once
		g.manualInput.Jump = false
		g.manualInput.CrouchToggle = false
		g.manualInput.Interact = false
	}
	return *in
}

func (g *Game) updatePlayer(in components.MoveInput, dt float64) {
	if !g.hasPlayer {
		return
	}
	_, tr, loco, _, _ := g.playerMapper.Get(g.player)
	g.locomotion.Update(tr, loco, in, dt)
	g.publishPlayer()
}

// publishPlayer captures the snapshot every agent sees this tick and syncs
// the player's sight occluder.
func (g *Game) publishPlayer() {
	if !g.hasPlayer {
		g.snapshot = playerView{}
		return
	}
	_, tr, loco, _, _ := g.playerMapper.Get(g.player)
	g.snapshot = playerView{
		snap: systems.PlayerSnapshot{
			Position:    tr.Position,
			IsSprinting: loco.IsSprinting,
			IsWalking:   loco.IsWalking,
			IsCrouching: loco.IsCrouching,
		},
		ok: true,
	}
	g.sight.SetPlayerPosition(tr.Position)
}

func (g *Game) updateEnemies(dt float64) {
	query := g.enemyFilter.Query()
	for query.Next() {
		id, tr, enemy, nav := query.Get()
		g.enemies.Update(systems.EnemyAgent{ID: id.ID, Transform: tr, Enemy: enemy, Nav: nav}, dt)
	}
}

func (g *Game) advanceAgents(dt float64) {
	query := g.enemyFilter.Query()
	for query.Next() {
		_, tr, _, nav := query.Get()
		*tr = g.nav.Advance(nav, *tr, dt)
	}
}

func (g *Game) updatePrompts(interactPressed bool) {
	if !g.hasPlayer {
		return
	}
	playerPos := g.snapshot.snap.Position

	query := g.interactFilter.Query()
	for query.Next() {
		id, tr, it := query.Get()
		prompt := systems.InteractionPrompt{Center: tr.Position, State: it}

		switch change := prompt.Update(playerPos, interactPressed); change {
		case systems.PromptShown, systems.PromptHidden:
			g.record(telemetry.NewPromptEvent(g.tick, id.ID, tr.Position, it.Label, change == systems.PromptShown))
			g.logger.Debug("prompt "+change.String(), "tick", g.tick, "label", it.Label)
		case systems.PromptInteracted:
			g.record(telemetry.NewInteractEvent(g.tick, id.ID, tr.Position, it.Label))
			g.logger.Info("interact", "tick", g.tick, "label", it.Label)
		}
	}
}

// sampleTick feeds the per-tick agent summary to the collector and the
// bookmark detector.
func (g *Game) sampleTick() {
	g.states = g.states[:0]
	nearest := -1.0
	anyDetected := false

	query := g.enemyFilter.Query()
	for query.Next() {
		_, tr, enemy, _ := query.Get()
		g.states = append(g.states, enemy.State)
		anyDetected = anyDetected || enemy.Perception.PlayerDetected
		if g.snapshot.ok {
			d := systems.Distance(tr.Position, g.snapshot.snap.Position)
			if nearest < 0 || d < nearest {
				nearest = d
			}
		}
	}

	g.collector.RecordTick(g.states, nearest, anyDetected)

	closeCall := g.cfg.Enemy.CrouchDetectionRadius * g.cfg.Telemetry.CloseCallFactor
	for _, bm := range g.bookmarkDetector.Observe(g.tick, anyDetected, nearest, closeCall) {
		g.handleBookmark(bm)
	}
}

// record queues an event for output and counts it in the current window.
func (g *Game) record(ev telemetry.Event) {
	g.pending = append(g.pending, ev)
	g.collector.Record(ev)
}

// nearestAgentDistance returns the distance from pos to the closest agent, or +Inf.
func (g *Game) nearestAgentDistance() float64 {
	best := math.Inf(1)
	if !g.snapshot.ok {
		return best
	}
	query := g.enemyFilter.Query()
	for query.Next() {
		_, tr, _, _ := query.Get()
		best = math.Min(best, systems.Distance(tr.Position, g.snapshot.snap.Position))
	}
	return best
}
