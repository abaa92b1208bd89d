package game

// spawnFromLevel creates the player, enemies and interactables at the
// level's markers. A level without a player marker runs without a player.
func (g *Game) spawnFromLevel() {
	if g.level.HasPlayerSpawn {
		g.spawnPlayer(g.level.PlayerSpawn)
	} else {
		g.logger.Warn("level has no player spawn; agents will only patrol")
	}

	for _, pos := range g.level.EnemySpawns {
		g.spawnEnemy(pos)
	}
	for i, pos := range g.level.Interactables {
		g.spawnInteractable(pos, i)
	}

	g.publishPlayer()
}
