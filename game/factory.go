package game

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/stalk/components"
	"github.com/pthm-cable/stalk/systems"
)

func (g *Game) newIdentity() *components.Identity {
	g.nextID++
	return &components.Identity{ID: g.nextID}
}

// spawnPlayer creates the player standing on the floor at cell position pos.
func (g *Game) spawnPlayer(pos r3.Vec) ecs.Entity {
	loco := g.locomotion.NewLocomotion()
	tr := &components.Transform{
		Position: r3.Vec{X: pos.X, Y: g.level.FloorTop() + loco.Height/2, Z: pos.Z},
	}

	id := g.newIdentity()
	entity := g.playerMapper.NewEntity(id, tr, &loco, &components.MoveInput{Yaw: tr.Yaw}, &components.PlayerTag{})
	g.player = entity
	g.playerID = id.ID
	g.hasPlayer = true
	g.sight.SetPlayerPosition(tr.Position)
	return entity
}

// spawnEnemy creates an agent at cell position pos and starts its patrol.
// Each agent draws its own random stream seed from the game RNG.
func (g *Game) spawnEnemy(pos r3.Vec) ecs.Entity {
	id := g.newIdentity()
	tr := &components.Transform{
		Position: r3.Vec{X: pos.X, Y: g.nav.BaseOffset(), Z: pos.Z},
		Yaw:      g.rng.Float64() * 360,
	}
	enemy := &components.Enemy{Seed: g.rng.Int64()}
	nav := &components.NavAgent{AngularSpeed: g.cfg.Navigation.AngularSpeed}

	entity := g.enemyMapper.NewEntity(id, tr, enemy, nav)
	g.enemyByID[id.ID] = entity

	// Storage pointers are only stable until the next structural change
	_, tr, enemy, nav = g.enemyMapper.Get(entity)
	g.enemies.Spawn(systems.EnemyAgent{ID: id.ID, Transform: tr, Enemy: enemy, Nav: nav})
	return entity
}

// spawnInteractable creates an interaction point on the floor at pos.
func (g *Game) spawnInteractable(pos r3.Vec, index int) ecs.Entity {
	tr := &components.Transform{Position: r3.Vec{X: pos.X, Y: g.level.FloorTop(), Z: pos.Z}}
	it := &components.Interactable{
		Radius: g.cfg.Interaction.Radius,
		Label:  fmt.Sprintf("interactable_%d", index),
	}
	return g.interactMapper.NewEntity(g.newIdentity(), tr, it)
}
