package sim

import (
	"fmt"
	"math/rand"

	"evosim/neural"
	"evosim/world"
)

// Policy turns an agent's view of the world into one intended action per
// tick. Implementations must not mutate anything; errors degrade to rest at
// the caller, never fail the tick.
type Policy interface {
	Decide(a *AgentView, g *world.Grid, senses []float64, rng *rand.Rand) (Action, error)
}

// NetworkPolicy decides by running the agent's network over the sensory
// vector and taking the argmax action.
type NetworkPolicy struct {
	Net *neural.Network
}

func (p *NetworkPolicy) Decide(a *AgentView, g *world.Grid, senses []float64, rng *rand.Rand) (Action, error) {
	if p.Net == nil {
		return ActRest, fmt.Errorf("agent %d has no network assigned", a.Info.ID)
	}
	if len(senses) != p.Net.NumInputs {
		return ActRest, fmt.Errorf("agent %d: sensory vector length %d does not match network input %d",
			a.Info.ID, len(senses), p.Net.NumInputs)
	}
	out := p.Net.Forward(senses)
	return Action(neural.Argmax(out)), nil
}

// RulePolicy is the deterministic fallback: a fixed priority ladder over the
// agent's needs. It is also what an agent runs on instinct when its network
// decision fails.
type RulePolicy struct {
	RestHealthThreshold  float64
	EatHungerThreshold   float64
	DrinkThirstThreshold float64
	RestEnergyThreshold  float64
}

var cardinalMoves = [4]struct {
	action Action
	dx, dy int
}{
	{ActMoveNorth, 0, -1},
	{ActMoveEast, 1, 0},
	{ActMoveSouth, 0, 1},
	{ActMoveWest, -1, 0},
}

func (p *RulePolicy) Decide(a *AgentView, g *world.Grid, senses []float64, rng *rand.Rand) (Action, error) {
	if a.Status.Health <= p.RestHealthThreshold {
		return ActRest, nil
	}

	if a.Status.Hunger <= p.EatHungerThreshold {
		tile := g.Tile(a.Pos.X, a.Pos.Y)
		if tile.Resource != nil && tile.Resource.Type.IsFood() {
			return ActEat, nil
		}
		if move, ok := p.moveToward(a, g, func(t *world.Tile) bool {
			return t.Resource != nil && t.Resource.Type.IsFood()
		}); ok {
			return move, nil
		}
	}

	if a.Status.Thirst <= p.DrinkThirstThreshold {
		if g.HasWaterAccess(a.Pos.X, a.Pos.Y) {
			return ActDrink, nil
		}
		if move, ok := p.moveToward(a, g, func(t *world.Tile) bool {
			return t.Resource != nil && t.Resource.Type == world.Spring
		}); ok {
			return move, nil
		}
	}

	if a.Status.Energy <= p.RestEnergyThreshold {
		return ActRest, nil
	}

	// Wander: prefer a resource-bearing neighbor, otherwise a random open
	// direction from the shared seeded source.
	if move, ok := p.moveToward(a, g, func(t *world.Tile) bool {
		return t.Resource != nil
	}); ok {
		return move, nil
	}
	open := make([]Action, 0, 4)
	for _, m := range cardinalMoves {
		nx, ny := a.Pos.X+m.dx, a.Pos.Y+m.dy
		if g.Passable(nx, ny) && g.Tile(nx, ny).Occupant == 0 {
			open = append(open, m.action)
		}
	}
	if len(open) == 0 {
		return ActRest, nil
	}
	return open[rng.Intn(len(open))], nil
}

// moveToward returns the first cardinal move (fixed N/E/S/W scan order)
// whose destination is passable, unoccupied, and satisfies want.
func (p *RulePolicy) moveToward(a *AgentView, g *world.Grid, want func(*world.Tile) bool) (Action, bool) {
	for _, m := range cardinalMoves {
		nx, ny := a.Pos.X+m.dx, a.Pos.Y+m.dy
		if !g.Passable(nx, ny) {
			continue
		}
		t := g.Tile(nx, ny)
		if t.Occupant == 0 && want(t) {
			return m.action, true
		}
	}
	return ActRest, false
}
