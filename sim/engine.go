package sim

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"evosim/components"
	"evosim/config"
	"evosim/neural"
	"evosim/telemetry"
	"evosim/world"
)

// Engine holds one round's complete simulation state: the grid, the agent
// components in an ECS world, per-agent policies and networks, and the
// fitness tracker. Agent iteration always runs over the roster, which keeps
// insertion (ID) order, so a fixed seed gives identical trajectories.
type Engine struct {
	cfg  *config.Config
	rng  *rand.Rand
	grid *world.Grid

	ecsWorld *ecs.World
	mapper   *ecs.Map5[
		components.AgentInfo,
		components.Position,
		components.Traits,
		components.Status,
		components.Effects,
	]
	infoMap    *ecs.Map1[components.AgentInfo]
	posMap     *ecs.Map1[components.Position]
	traitsMap  *ecs.Map1[components.Traits]
	statusMap  *ecs.Map1[components.Status]
	effectsMap *ecs.Map1[components.Effects]

	roster []ecs.Entity
	byID   map[uint32]ecs.Entity

	// Spawn-order record of every agent that ever existed this round. The
	// evolutionary algorithm needs each network paired with its final score
	// even after the agent is removed from the roster.
	spawned     []components.AgentInfo
	spawnedNets []*neural.Network

	brains   map[uint32]*neural.Network
	policies map[uint32]Policy
	fallback *RulePolicy

	tracker   *FitnessTracker
	events    EventEngine
	collector *telemetry.Collector

	tick       int
	nextID     uint32
	aliveCount int

	// pendingCause records why an agent died, consumed when cleanup
	// finalizes and removes it.
	pendingCause map[uint32]string
}

// NewEngine builds a round on a freshly generated grid and spawns one agent
// per network. A network whose input size does not match the sensory vector
// is a configuration error and halts construction.
func NewEngine(cfg *config.Config, nets []*neural.Network, events EventEngine, collector *telemetry.Collector, rng *rand.Rand) (*Engine, error) {
	if cfg.Derived.NumInputs != NumSenses {
		return nil, fmt.Errorf("sim: configured input size %d does not match sensory vector size %d",
			cfg.Derived.NumInputs, NumSenses)
	}
	if cfg.Neural.NumOutputs != NumActions {
		return nil, fmt.Errorf("sim: configured output size %d does not match action set size %d",
			cfg.Neural.NumOutputs, NumActions)
	}
	for i, n := range nets {
		if n.NumInputs != NumSenses || n.NumOutputs != NumActions {
			return nil, fmt.Errorf("sim: network %d has shape %d->%d, want %d->%d",
				i, n.NumInputs, n.NumOutputs, NumSenses, NumActions)
		}
	}
	if events == nil {
		events = NopEvents{}
	}

	ecsWorld := ecs.NewWorld()
	e := &Engine{
		cfg:      cfg,
		rng:      rng,
		grid:     world.Generate(&cfg.World, rng),
		ecsWorld: ecsWorld,
		mapper: ecs.NewMap5[
			components.AgentInfo,
			components.Position,
			components.Traits,
			components.Status,
			components.Effects,
		](ecsWorld),
		infoMap:    ecs.NewMap1[components.AgentInfo](ecsWorld),
		posMap:     ecs.NewMap1[components.Position](ecsWorld),
		traitsMap:  ecs.NewMap1[components.Traits](ecsWorld),
		statusMap:  ecs.NewMap1[components.Status](ecsWorld),
		effectsMap: ecs.NewMap1[components.Effects](ecsWorld),
		byID:       make(map[uint32]ecs.Entity),
		brains:     make(map[uint32]*neural.Network),
		policies:   make(map[uint32]Policy),
		fallback: &RulePolicy{
			RestHealthThreshold:  cfg.Simulation.RestHealthThreshold,
			EatHungerThreshold:   cfg.Simulation.EatHungerThreshold,
			DrinkThirstThreshold: cfg.Simulation.DrinkThirstThreshold,
			RestEnergyThreshold:  cfg.Simulation.RestEnergyThreshold,
		},
		tracker:      NewFitnessTracker(cfg.Fitness),
		events:       events,
		collector:    collector,
		pendingCause: make(map[uint32]string),
	}

	e.spawnPopulation(nets)
	return e, nil
}

// spawnPopulation places one agent per network on distinct passable tiles.
// Categories cycle herbivore/carnivore/omnivore so every diet is present.
func (e *Engine) spawnPopulation(nets []*neural.Network) {
	positions := world.SpawnPositions(e.grid, len(nets), e.rng)
	for i, net := range nets {
		category := components.Category(i % 3)
		e.spawnAgent(category, positions[i][0], positions[i][1], net)
	}
}

func (e *Engine) spawnAgent(category components.Category, x, y int, net *neural.Network) ecs.Entity {
	e.nextID++
	id := e.nextID

	traits := e.rollTraits(category)
	maxHealth := float64(e.cfg.Agent.BaseHealth + traits.Endurance*e.cfg.Agent.HealthPerEndurance)
	maxEnergy := float64(e.cfg.Agent.BaseEnergy + traits.Endurance*e.cfg.Agent.EnergyPerEndurance)

	info := components.AgentInfo{ID: id, Category: category, Policy: components.PolicyNetwork}
	pos := components.Position{X: x, Y: y}
	status := components.Status{
		Health:    maxHealth,
		MaxHealth: maxHealth,
		Hunger:    100,
		Thirst:    100,
		Energy:    maxEnergy,
		MaxEnergy: maxEnergy,
		Alive:     true,
	}
	effects := components.Effects{}

	entity := e.mapper.NewEntity(&info, &pos, &traits, &status, &effects)
	e.roster = append(e.roster, entity)
	e.byID[id] = entity
	e.spawned = append(e.spawned, info)
	e.spawnedNets = append(e.spawnedNets, net)
	e.brains[id] = net
	e.policies[id] = &NetworkPolicy{Net: net}
	e.tracker.Register(id)
	e.grid.Tile(x, y).Occupant = id
	e.aliveCount++

	return entity
}

// rollTraits draws the five traits in the standard range, then re-rolls the
// category's primary trait in the primary range.
func (e *Engine) rollTraits(category components.Category) components.Traits {
	std := func() int {
		lo, hi := e.cfg.Agent.StandardTraitMin, e.cfg.Agent.StandardTraitMax
		return lo + e.rng.Intn(hi-lo+1)
	}
	primary := func() int {
		lo, hi := e.cfg.Agent.PrimaryTraitMin, e.cfg.Agent.PrimaryTraitMax
		return lo + e.rng.Intn(hi-lo+1)
	}

	t := components.Traits{
		Strength:     std(),
		Agility:      std(),
		Intelligence: std(),
		Endurance:    std(),
		Perception:   std(),
	}
	switch category {
	case components.Herbivore:
		t.Agility = primary()
	case components.Carnivore:
		t.Strength = primary()
	case components.Omnivore:
		t.Endurance = primary()
	}
	return t
}

// threatTo reports whether an agent of category other endangers an observer
// of category obs. Carnivores threaten everyone else; omnivores threaten
// herbivores.
func threatTo(obs, other components.Category) bool {
	if other == components.Carnivore && obs != components.Carnivore {
		return true
	}
	return other == components.Omnivore && obs == components.Herbivore
}

// view snapshots an agent's decision-relevant state.
func (e *Engine) view(entity ecs.Entity) AgentView {
	return AgentView{
		Info:   *e.infoMap.Get(entity),
		Pos:    *e.posMap.Get(entity),
		Status: *e.statusMap.Get(entity),
		Traits: *e.traitsMap.Get(entity),
	}
}

// Tick returns the current tick of the round.
func (e *Engine) Tick() int {
	return e.tick
}

// Alive returns the number of living agents.
func (e *Engine) Alive() int {
	return e.aliveCount
}

// Grid exposes the round's grid for collaborators and tests.
func (e *Engine) Grid() *world.Grid {
	return e.grid
}

// Tracker exposes the round's fitness tracker.
func (e *Engine) Tracker() *FitnessTracker {
	return e.tracker
}

// AgentIDs returns the IDs of all agents still on the roster, in roster
// order.
func (e *Engine) AgentIDs() []uint32 {
	ids := make([]uint32, 0, len(e.roster))
	for _, ent := range e.roster {
		ids = append(ids, e.infoMap.Get(ent).ID)
	}
	return ids
}

// AgentStatus returns a copy of the agent's status, or false if the agent is
// no longer on the roster.
func (e *Engine) AgentStatus(id uint32) (components.Status, bool) {
	ent, ok := e.byID[id]
	if !ok {
		return components.Status{}, false
	}
	return *e.statusMap.Get(ent), true
}

// AgentPosition returns a copy of the agent's position, or false if the
// agent is no longer on the roster.
func (e *Engine) AgentPosition(id uint32) (components.Position, bool) {
	ent, ok := e.byID[id]
	if !ok {
		return components.Position{}, false
	}
	return *e.posMap.Get(ent), true
}

// SetPolicy swaps an agent's decision policy and keeps its recorded policy
// kind in step, so the instinct flag reports the active decision path. Used
// by tests and baselines.
func (e *Engine) SetPolicy(id uint32, p Policy) {
	ent, ok := e.byID[id]
	if !ok {
		panic(fmt.Sprintf("sim: set policy for unknown agent %d", id))
	}
	e.policies[id] = p

	info := e.infoMap.Get(ent)
	if _, rule := p.(*RulePolicy); rule {
		info.Policy = components.PolicyRule
	} else {
		info.Policy = components.PolicyNetwork
	}
}

// markDead flags an agent for removal at the next cleanup boundary. The
// first recorded cause wins.
func (e *Engine) markDead(id uint32, cause string) {
	ent := e.byID[id]
	st := e.statusMap.Get(ent)
	if !st.Alive {
		return
	}
	st.Alive = false
	e.aliveCount--
	e.pendingCause[id] = cause
	slog.Debug("agent died", "agent", id, "cause", cause, "tick", e.tick)
}
