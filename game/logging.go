package game

import (
	"math"

	"github.com/pthm-cable/stalk/components"
	"github.com/pthm-cable/stalk/systems"
)

// logWorldState logs a one-line summary of the agents and the player.
func (g *Game) logWorldState() {
	var counts [components.NumBehaviorStates]int
	detecting := 0
	unreachable := 0

	query := g.enemyFilter.Query()
	for query.Next() {
		_, _, enemy, nav := query.Get()
		if enemy.State < components.NumBehaviorStates {
			counts[enemy.State]++
		}
		if enemy.Perception.PlayerDetected {
			detecting++
		}
		if nav.Status == components.PathUnreachable {
			unreachable++
		}
	}

	args := []any{
		"tick", g.tick,
		"agents", len(g.enemyByID),
		"patrolling", counts[components.StatePatrolling],
		"waiting", counts[components.StateWaiting],
		"investigating", counts[components.StateInvestigating],
		"chasing", counts[components.StateChasing],
		"detecting", detecting,
		"unreachable", unreachable,
		"detections", g.detections,
	}

	if g.hasPlayer {
		_, tr, loco, _, _ := g.playerMapper.Get(g.player)
		args = append(args,
			"player_x", tr.Position.X,
			"player_z", tr.Position.Z,
			"player_mode", playerMode(loco).String(),
		)
		if d := g.nearestAgentDistance(); !math.IsInf(d, 1) {
			args = append(args, "nearest", d)
		}
	}
	if g.intruder != nil {
		args = append(args, "intruder_leg", g.intruder.Leg(), "intruder_done", g.intruder.Done())
	}

	g.logger.Info("world", args...)
}

// playerMode classifies the player's movement for logs.
func playerMode(loco *components.Locomotion) systems.MoveMode {
	switch {
	case loco.IsSprinting:
		return systems.MoveSprint
	case loco.IsCrouching:
		return systems.MoveCrouch
	}
	return systems.MoveWalk
}
