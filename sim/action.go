// Package sim implements the per-tick simulation: sensory encoding, decision
// policies, the four-phase action resolver, fitness accounting, and the
// round/generation drivers.
package sim

// Action is one of the fixed set of things an agent can attempt in a tick.
// The order matches the network's output layer indices.
type Action uint8

const (
	ActMoveNorth Action = iota
	ActMoveEast
	ActMoveSouth
	ActMoveWest
	ActRest
	ActEat
	ActDrink
	ActAttack

	NumActions = 8
)

func (a Action) String() string {
	switch a {
	case ActMoveNorth:
		return "move_north"
	case ActMoveEast:
		return "move_east"
	case ActMoveSouth:
		return "move_south"
	case ActMoveWest:
		return "move_west"
	case ActRest:
		return "rest"
	case ActEat:
		return "eat"
	case ActDrink:
		return "drink"
	case ActAttack:
		return "attack"
	default:
		return "unknown"
	}
}

// IsMove reports whether the action is a movement action. Movement resolves
// in the second execution band; everything else is stationary.
func (a Action) IsMove() bool {
	return a <= ActMoveWest
}

// Delta returns the grid offset for a movement action, zero otherwise.
func (a Action) Delta() (dx, dy int) {
	switch a {
	case ActMoveNorth:
		return 0, -1
	case ActMoveEast:
		return 1, 0
	case ActMoveSouth:
		return 0, 1
	case ActMoveWest:
		return -1, 0
	default:
		return 0, 0
	}
}

// Intent is an agent's chosen action for one tick, together with the
// decision mode that produced it. Intents are ephemeral: produced by the
// decision phase and discarded after execution.
type Intent struct {
	AgentID  uint32
	Action   Action
	Instinct bool // decided by the rule fallback rather than the network
}

// Outcome classifies what happened to an intent during execution.
type Outcome uint8

const (
	OutcomeOK Outcome = iota
	OutcomeFailed       // illegal target, impassable terrain, no resource
	OutcomeNoEnergy     // not enough energy to attempt the action
	OutcomeLostConflict // lost a movement conflict; no energy spent
	OutcomeBlocked      // destination occupied
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeFailed:
		return "failed"
	case OutcomeNoEnergy:
		return "no_energy"
	case OutcomeLostConflict:
		return "lost_conflict"
	case OutcomeBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}
