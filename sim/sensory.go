package sim

import (
	"evosim/components"
	"evosim/world"
)

// Sensory vector layout: five internal inputs followed by four flags per
// neighborhood tile in row-major order.
const (
	internalInputs   = 5
	neighborhoodSize = 9
	flagsPerTile     = 4

	// NumSenses is the fixed sensory vector length the network input layer
	// must match. Checked once at engine construction.
	NumSenses = internalInputs + neighborhoodSize*flagsPerTile
)

// AgentView is the read-only slice of an agent's state the decision layer
// sees: identity, position, and a snapshot of status and traits.
type AgentView struct {
	Info   components.AgentInfo
	Pos    components.Position
	Status components.Status
	Traits components.Traits
}

// ThreatFunc reports whether the agent with the given ID is a threat to the
// observer. The engine supplies one per observer based on category.
type ThreatFunc func(occupantID uint32) bool

// EncodeSenses builds the sensory vector for one agent: normalized internal
// status (health, hunger, thirst, energy in [0,1], instinct as {0,1})
// followed by, per neighborhood tile, is-threat, has-food, has-water and
// has-other-agent flags. Pure function; out-of-bounds tiles read as all
// zeros.
func EncodeSenses(a *AgentView, g *world.Grid, isThreat ThreatFunc) []float64 {
	v := make([]float64, 0, NumSenses)

	v = append(v, safeRatio(a.Status.Health, a.Status.MaxHealth))
	v = append(v, a.Status.Hunger/100)
	v = append(v, a.Status.Thirst/100)
	v = append(v, safeRatio(a.Status.Energy, a.Status.MaxEnergy))
	if a.Status.Instinct {
		v = append(v, 1)
	} else {
		v = append(v, 0)
	}

	for _, tile := range g.Neighborhood(a.Pos.X, a.Pos.Y) {
		if tile == nil {
			v = append(v, 0, 0, 0, 0)
			continue
		}

		var threat, food, water, other float64
		if tile.Occupant != 0 && tile.Occupant != a.Info.ID {
			other = 1
			if isThreat != nil && isThreat(tile.Occupant) {
				threat = 1
			}
		}
		if tile.Resource != nil && tile.Resource.Type.IsFood() {
			food = 1
		}
		if tile.Terrain == world.Water || (tile.Resource != nil && tile.Resource.Type == world.Spring) {
			water = 1
		}
		v = append(v, threat, food, water, other)
	}

	return v
}

func safeRatio(v, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return v / max
}
