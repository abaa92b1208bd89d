package systems

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/stalk/components"
	"github.com/pthm-cable/stalk/config"
)

// BehaviorObserver is notified of agent state changes and detection edges.
type BehaviorObserver interface {
	StateChanged(agentID uint32, from, to components.BehaviorState)
	PlayerDetected(agentID uint32, agentPos, playerPos r3.Vec)
	PlayerLost(agentID uint32, agentPos r3.Vec)
}

// EnemyAgent bundles the per-entity state an EnemyController drives.
type EnemyAgent struct {
	ID        uint32
	Transform *components.Transform
	Enemy     *components.Enemy
	Nav       *components.NavAgent
}

// EnemyController runs the perception check and the
// patrol/wait/investigate/chase state machine for enemy agents.
// It is stateless across agents; all per-agent state lives in components.
type EnemyController struct {
	cfg   config.EnemyConfig
	radii DetectionRadii

	player   PlayerSource
	sight    SightTracer
	nav      Navigator
	observer BehaviorObserver
}

// NewEnemyController validates the tunables and wires the collaborators.
// player may be nil, in which case agents never detect anything.
// observer may be nil.
func NewEnemyController(cfg config.EnemyConfig, player PlayerSource, sight SightTracer, nav Navigator, observer BehaviorObserver) (*EnemyController, error) {
	if sight == nil || nav == nil {
		return nil, fmt.Errorf("enemy controller: sight tracer and navigator are required")
	}
	c := &EnemyController{
		player:   player,
		sight:    sight,
		nav:      nav,
		observer: observer,
	}
	if err := c.SetConfig(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// SetConfig replaces the tunables. Agent state is kept.
func (c *EnemyController) SetConfig(cfg config.EnemyConfig) error {
	switch {
	case cfg.CrouchDetectionRadius <= 0:
		return fmt.Errorf("enemy controller: crouch detection radius must be positive, got %v", cfg.CrouchDetectionRadius)
	case cfg.WalkDetectionRadius < cfg.CrouchDetectionRadius || cfg.SprintDetectionRadius < cfg.WalkDetectionRadius:
		return fmt.Errorf("enemy controller: detection radii must satisfy sprint >= walk >= crouch")
	case cfg.DetectionInterval <= 0:
		return fmt.Errorf("enemy controller: detection interval must be positive, got %v", cfg.DetectionInterval)
	case cfg.MaxPatrolAttempts < 1:
		return fmt.Errorf("enemy controller: max patrol attempts must be at least 1, got %d", cfg.MaxPatrolAttempts)
	case cfg.MinDistanceToTarget <= 0 || cfg.PatrolRadius <= 0:
		return fmt.Errorf("enemy controller: min distance and patrol radius must be positive")
	case cfg.MaxPatrolWaitTime < cfg.MinPatrolWaitTime:
		return fmt.Errorf("enemy controller: patrol wait range [%v, %v) is inverted", cfg.MinPatrolWaitTime, cfg.MaxPatrolWaitTime)
	}
	c.cfg = cfg
	c.radii = DetectionRadii{
		Sprint: cfg.SprintDetectionRadius,
		Walk:   cfg.WalkDetectionRadius,
		Crouch: cfg.CrouchDetectionRadius,
	}
	return nil
}

// Config returns the current tunables.
func (c *EnemyController) Config() config.EnemyConfig {
	return c.cfg
}

// Spawn initializes a new agent: patrolling at patrol speed with a patrol point requested.
func (c *EnemyController) Spawn(a EnemyAgent) {
	a.Enemy.State = components.StatePatrolling
	a.Nav.StoppingDistance = c.cfg.MinDistanceToTarget
	c.nav.SetAgentSpeed(a.Nav, c.cfg.PatrolSpeed)
	c.selectPatrolPoint(a)
}

// Update runs the interval-gated detection check, then the behavior for this tick.
func (c *EnemyController) Update(a EnemyAgent, dt float64) {
	p := &a.Enemy.Perception
	p.DetectionTimer += dt
	if p.DetectionTimer >= c.cfg.DetectionInterval {
		c.detect(a)
		p.DetectionTimer = 0
	}

	c.dispatch(a, dt)
}

// detect runs one perception check and fires edge notifications.
func (c *EnemyController) detect(a EnemyAgent) {
	p := &a.Enemy.Perception
	res := CheckDetection(c.player, c.sight, c.radii, a.Transform.Position)

	if res.Detected {
		if !p.PlayerDetected {
			p.PlayerDetected = true
			if c.observer != nil {
				c.observer.PlayerDetected(a.ID, a.Transform.Position, res.Position)
			}
		}
		p.LastKnown = components.Some(res.Position)
		return
	}

	// The last known position is kept for investigation
	if p.PlayerDetected {
		p.PlayerDetected = false
		if c.observer != nil {
			c.observer.PlayerLost(a.ID, a.Transform.Position)
		}
	}
}

// dispatch picks the behavior by priority: chase, investigate, patrol.
func (c *EnemyController) dispatch(a EnemyAgent, dt float64) {
	p := &a.Enemy.Perception

	if p.PlayerDetected && c.player != nil {
		if snap, ok := c.player.PlayerState(); ok {
			c.chase(a, snap.Position, dt)
			return
		}
		// Player vanished between checks; investigate where it was
	}

	if last, ok := p.LastKnown.Get(); ok {
		c.investigate(a, last)
		return
	}

	c.patrol(a, dt)
}

func (c *EnemyController) chase(a EnemyAgent, target r3.Vec, dt float64) {
	c.transition(a, components.StateChasing)
	c.nav.SetAgentSpeed(a.Nav, c.cfg.ChaseSpeed)
	c.nav.SetDestination(a.Nav, target)

	if yaw, ok := YawToward(a.Transform.Position, target); ok {
		a.Transform.Yaw = RotateTowardYaw(a.Transform.Yaw, yaw, c.cfg.RotationSpeed*dt)
	}
}

func (c *EnemyController) investigate(a EnemyAgent, last r3.Vec) {
	c.transition(a, components.StateInvestigating)
	c.nav.SetAgentSpeed(a.Nav, c.cfg.PatrolSpeed)

	reached := PlanarDistance(a.Transform.Position, last) <= c.cfg.MinDistanceToTarget
	unreachable := a.Nav.Status == components.PathUnreachable && a.Nav.Destination == last
	if reached || unreachable {
		a.Enemy.Perception.LastKnown.Clear()
		c.transition(a, components.StatePatrolling)
		c.selectPatrolPoint(a)
		return
	}
	c.nav.SetDestination(a.Nav, last)
}

func (c *EnemyController) patrol(a EnemyAgent, dt float64) {
	pt := &a.Enemy.Patrol

	if a.Enemy.State == components.StateWaiting {
		pt.WaitTimer -= dt
		if pt.WaitTimer <= 0 {
			c.transition(a, components.StatePatrolling)
			c.selectPatrolPoint(a)
		}
		return
	}

	c.transition(a, components.StatePatrolling)
	if !pt.HasPoint {
		c.selectPatrolPoint(a)
		return
	}

	reached := PlanarDistance(a.Transform.Position, pt.Point) <= c.cfg.MinDistanceToTarget
	unreachable := a.Nav.Status == components.PathUnreachable && a.Nav.Destination == pt.Point
	if reached || unreachable {
		c.transition(a, components.StateWaiting)
	}
}

// selectPatrolPoint commits the first reachable sample as the destination,
// or starts waiting when every attempt fails.
func (c *EnemyController) selectPatrolPoint(a EnemyAgent) {
	pt := &a.Enemy.Patrol
	search := PatrolSearch{
		Seed:        a.Enemy.Seed,
		Center:      a.Transform.Position,
		Radius:      c.cfg.PatrolRadius,
		MaxAttempts: c.cfg.MaxPatrolAttempts,
		Tolerance:   c.cfg.SampleTolerance,
	}

	point, _, ok := FindPatrolPoint(c.nav, search, &pt.Draws)
	if !ok {
		c.transition(a, components.StateWaiting)
		return
	}
	pt.Point = point
	pt.HasPoint = true
	c.nav.SetDestination(a.Nav, point)
}

// transition is the single place agent state changes. It runs the entry
// actions of the new state and notifies the observer.
func (c *EnemyController) transition(a EnemyAgent, to components.BehaviorState) {
	from := a.Enemy.State
	if from == to {
		return
	}
	a.Enemy.State = to

	pt := &a.Enemy.Patrol
	switch to {
	case components.StateWaiting:
		pt.HasPoint = false
		pt.WaitTimer = SampleWaitTime(a.Enemy.Seed, pt.Draws, c.cfg.MinPatrolWaitTime, c.cfg.MaxPatrolWaitTime)
		pt.Draws++
	case components.StatePatrolling:
		c.nav.SetAgentSpeed(a.Nav, c.cfg.PatrolSpeed)
	case components.StateChasing:
		// A chase abandons the patrol; a new point is chosen after investigating
		pt.HasPoint = false
		pt.WaitTimer = 0
	}

	if c.observer != nil {
		c.observer.StateChanged(a.ID, from, to)
	}
}
