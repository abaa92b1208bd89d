package game

import (
	"context"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/stalk/components"
	"github.com/pthm-cable/stalk/script"
	"github.com/pthm-cable/stalk/systems"
	"github.com/pthm-cable/stalk/telemetry"
)

// telemetryHooks receives controller callbacks and turns them into events,
// log lines and reaction script runs.
type telemetryHooks struct {
	g *Game
}

func (h *telemetryHooks) Footstep(ev systems.FootstepEvent) {
	g := h.g
	g.record(telemetry.NewFootstepEvent(g.tick, g.playerID, ev.Position, ev.Mode.String()))
}

func (h *telemetryHooks) StateChanged(agentID uint32, from, to components.BehaviorState) {
	g := h.g
	pos := g.agentPosition(agentID)
	g.record(telemetry.NewStateChangeEvent(g.tick, agentID, pos, from.String(), to.String()))
	g.logger.Debug("state change", "tick", g.tick, "agent_id", agentID, "from", from.String(), "to", to.String())
}

func (h *telemetryHooks) PlayerDetected(agentID uint32, agentPos, playerPos r3.Vec) {
	g := h.g
	ev := telemetry.NewDetectedEvent(g.tick, agentID, agentPos, playerPos)
	g.record(ev)

	g.detections++
	if g.firstSeen == 0 {
		g.firstSeen = g.tick
	}
	g.logger.Info("player detected", "tick", g.tick, "agent_id", agentID, "distance", ev.Distance)
	g.react(script.EventDetected, agentID, agentPos, ev.Distance)
}

func (h *telemetryHooks) PlayerLost(agentID uint32, agentPos r3.Vec) {
	g := h.g
	g.record(telemetry.NewLostEvent(g.tick, agentID, agentPos))

	dist := -1.0
	if g.snapshot.ok {
		dist = systems.Distance(agentPos, g.snapshot.snap.Position)
	}
	g.logger.Info("player lost", "tick", g.tick, "agent_id", agentID, "distance", dist)
	g.react(script.EventLost, agentID, agentPos, dist)
}

// react runs the reaction script and records the cues it emits.
func (g *Game) react(event string, agentID uint32, agentPos r3.Vec, dist float64) {
	state := ""
	if e, ok := g.enemyByID[agentID]; ok {
		state = g.enemyMap.Get(e).State.String()
	}

	cues, err := g.reactions.React(context.Background(), script.Input{
		Event:    event,
		AgentID:  agentID,
		State:    state,
		Distance: dist,
	})
	if err != nil {
		g.logger.Warn("reaction script failed", "tick", g.tick, "agent_id", agentID, "error", err)
		return
	}
	for _, cue := range cues {
		g.record(telemetry.NewCueEvent(g.tick, agentID, agentPos, cue))
		g.logger.Debug("cue", "tick", g.tick, "agent_id", agentID, "cue", cue)
	}
}

func (g *Game) agentPosition(agentID uint32) r3.Vec {
	if e, ok := g.enemyByID[agentID]; ok {
		return g.transformMap.Get(e).Position
	}
	return r3.Vec{}
}

// flushTelemetry checks if the stats window should be flushed and handles output.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	stats := g.collector.Flush(g.tick)
	perfStats := g.perfCollector.Stats()
	perfStats.RealtimeFactor = perfStats.TicksPerSecond * g.cfg.Sim.DT

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
		g.logWorldState()
	}

	if g.outputManager != nil {
		if err := g.outputManager.WriteTelemetry(stats); err != nil {
			g.logger.Error("failed to write telemetry", "error", err)
		}
		if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			g.logger.Error("failed to write perf", "error", err)
		}
	}
	g.flushEvents()

	for _, bm := range g.bookmarkDetector.Check(stats) {
		g.handleBookmark(bm)
	}
}

// flushEvents writes queued events to events.csv.
func (g *Game) flushEvents() {
	if len(g.pending) == 0 {
		return
	}
	if err := g.outputManager.WriteEvents(g.pending); err != nil {
		g.logger.Error("failed to write events", "error", err)
	}
	g.pending = g.pending[:0]
}

func (g *Game) handleBookmark(bm telemetry.Bookmark) {
	if g.logStats {
		bm.LogBookmark()
	}
	if g.outputManager != nil {
		if err := g.outputManager.WriteBookmark(bm); err != nil {
			g.logger.Error("failed to write bookmark", "error", err)
		}
	}
	if g.snapshotDir != "" {
		g.saveSnapshot(&bm)
	}
}

// saveSnapshot creates and saves a snapshot to disk.
func (g *Game) saveSnapshot(bookmark *telemetry.Bookmark) {
	snapshot := g.createSnapshot(bookmark)

	path, err := telemetry.SaveSnapshot(snapshot, g.snapshotDir)
	if err != nil {
		g.logger.Error("failed to save snapshot", "error", err)
		return
	}

	g.logger.Info("snapshot saved", "path", path, "tick", g.tick)
}

// createSnapshot builds a snapshot from the current state.
func (g *Game) createSnapshot(bookmark *telemetry.Bookmark) *telemetry.Snapshot {
	snapshot := &telemetry.Snapshot{
		Version:    telemetry.SnapshotVersion,
		RunID:      g.runID,
		RNGSeed:    g.rngSeed,
		Tick:       g.tick,
		SimTimeSec: float64(g.tick) * g.cfg.Sim.DT,
		LevelRows:  g.levelRows,
		CellSize:   g.level.CellSize(),
		Bookmark:   bookmark,
	}

	if g.hasPlayer {
		id, tr, loco, _, _ := g.playerMapper.Get(g.player)
		snapshot.Player = &telemetry.PlayerState{
			ID:               id.ID,
			Position:         telemetry.V(tr.Position),
			Yaw:              tr.Yaw,
			Height:           loco.Height,
			VerticalVelocity: loco.VerticalVelocity,
			Grounded:         loco.IsGrounded,
			Sprinting:        loco.IsSprinting,
			Walking:          loco.IsWalking,
			Crouching:        loco.IsCrouching,
		}
	}

	query := g.enemyFilter.Query()
	for query.Next() {
		id, tr, enemy, nav := query.Get()
		last, hasLast := enemy.Perception.LastKnown.Get()
		snapshot.Agents = append(snapshot.Agents, telemetry.AgentState{
			ID:             id.ID,
			Seed:           enemy.Seed,
			Position:       telemetry.V(tr.Position),
			Yaw:            tr.Yaw,
			State:          enemy.State.String(),
			PlayerDetected: enemy.Perception.PlayerDetected,
			LastKnown:      telemetry.OptV(last, hasLast),
			PatrolPoint:    telemetry.OptV(enemy.Patrol.Point, enemy.Patrol.HasPoint),
			WaitTimer:      enemy.Patrol.WaitTimer,
			Draws:          enemy.Patrol.Draws,
			Destination:    telemetry.OptV(nav.Destination, nav.HasDestination),
			PathStatus:     nav.Status.String(),
			Waypoints:      len(nav.Waypoints),
		})
	}

	iq := g.interactFilter.Query()
	for iq.Next() {
		id, tr, it := iq.Get()
		snapshot.Interactables = append(snapshot.Interactables, telemetry.InteractableState{
			ID:       id.ID,
			Label:    it.Label,
			Position: telemetry.V(tr.Position),
			InRange:  it.InRange,
		})
	}

	return snapshot
}
