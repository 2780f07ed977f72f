// Package components defines the data stored per agent in the ECS world.
package components

// Category is an agent's dietary class. It fixes the primary trait and which
// food resources restore full hunger value.
type Category uint8

const (
	Herbivore Category = iota
	Carnivore
	Omnivore
)

func (c Category) String() string {
	switch c {
	case Herbivore:
		return "herbivore"
	case Carnivore:
		return "carnivore"
	case Omnivore:
		return "omnivore"
	default:
		return "unknown"
	}
}

// PolicyKind selects the decision path an agent uses for its whole lifetime.
type PolicyKind uint8

const (
	PolicyNetwork PolicyKind = iota
	PolicyRule
)

func (p PolicyKind) String() string {
	if p == PolicyNetwork {
		return "network"
	}
	return "rule"
}

// AgentInfo is the immutable identity of an agent.
type AgentInfo struct {
	ID       uint32
	Category Category
	Policy   PolicyKind
}

// Position is a grid coordinate. (0,0) is the top-left tile.
type Position struct {
	X int
	Y int
}

// Traits are fixed at spawn and never change during a round. Range 4..6 for
// standard traits, 7..9 for a category's primary trait.
type Traits struct {
	Strength     int
	Agility      int
	Intelligence int
	Endurance    int
	Perception   int
}

// Status is the mutable survival state. Health and Energy are capped by the
// endurance-derived maxima; Hunger and Thirst run 0..100. Dead agents keep
// their components until the cleanup phase removes them.
type Status struct {
	Health    float64
	MaxHealth float64
	Hunger    float64
	Thirst    float64
	Energy    float64
	MaxEnergy float64
	Instinct  bool // rule fallback engaged this tick
	Alive     bool
}

// Clamp pins every gauge into its valid range.
func (s *Status) Clamp() {
	s.Health = clamp(s.Health, 0, s.MaxHealth)
	s.Hunger = clamp(s.Hunger, 0, 100)
	s.Thirst = clamp(s.Thirst, 0, 100)
	s.Energy = clamp(s.Energy, 0, s.MaxEnergy)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
