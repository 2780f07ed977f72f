package sim

import (
	"log/slog"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"evosim/components"
	"evosim/world"
)

// RunTick advances the round by one tick through the four phases. Phases
// never interleave: every phase completes for all agents before the next
// starts.
func (e *Engine) RunTick() {
	e.events.TickStart(e.tick)

	intents := e.decisionPhase()
	e.statusPhase()
	e.executionPhase(intents)
	e.cleanupPhase()

	e.events.TickEnd(e.tick)
	e.tick++
}

// decisionPhase collects one intent per living agent. Nothing is mutated:
// the decision mode is staged into the intent and written back during
// execution. A failed network decision engages the rule fallback for the
// tick; a fallback that cannot resolve degrades to rest.
func (e *Engine) decisionPhase() []Intent {
	intents := make([]Intent, 0, len(e.roster))

	for _, ent := range e.roster {
		st := e.statusMap.Get(ent)
		if !st.Alive {
			continue
		}
		info := e.infoMap.Get(ent)
		instinct := info.Policy == components.PolicyRule

		av := e.view(ent)
		av.Status.Instinct = instinct
		senses := EncodeSenses(&av, e.grid, func(occupantID uint32) bool {
			other, ok := e.byID[occupantID]
			if !ok {
				return false
			}
			return threatTo(av.Info.Category, e.infoMap.Get(other).Category)
		})

		policy := e.policies[info.ID]
		action, err := policy.Decide(&av, e.grid, senses, e.rng)
		if err != nil {
			slog.Warn("decision failed, falling back to instinct",
				"agent", info.ID, "tick", e.tick, "error", err)
			instinct = true
			action, err = e.fallback.Decide(&av, e.grid, senses, e.rng)
			if err != nil {
				action = ActRest
			}
		}
		if e.collector != nil {
			e.collector.RecordDecision(instinct)
		}

		intents = append(intents, Intent{AgentID: info.ID, Action: action, Instinct: instinct})
	}

	return intents
}

// statusPhase applies passive updates to every living agent from a pre-phase
// snapshot of its status, so outcomes are independent of agent order:
// hunger/thirst depletion, effect damage, passive energy regeneration,
// starvation/dehydration damage, then the death check. Survival time accrues
// here for every agent that enters the phase alive.
func (e *Engine) statusPhase() {
	sc := &e.cfg.Status

	for _, ent := range e.roster {
		st := e.statusMap.Get(ent)
		if !st.Alive {
			continue
		}
		info := e.infoMap.Get(ent)
		eff := e.effectsMap.Get(ent)
		snap := *st

		st.Hunger = snap.Hunger - sc.HungerDepletion
		st.Thirst = snap.Thirst - sc.ThirstDepletion

		health := snap.Health
		if st.Hunger <= 0 {
			health -= sc.StarvationDamage
		}
		if st.Thirst <= 0 {
			health -= sc.DehydrationDamage
		}
		if eff.Has(components.EffectPoisoned) {
			health -= sc.PoisonDamage
		}
		if eff.Has(components.EffectInjured) {
			health -= sc.InjuryDamage
		}
		st.Health = health

		// Passive regeneration: reduced when weakened, suppressed while
		// exhausted, doubled while well fed.
		regen := sc.EnergyRegen
		if snap.Health <= sc.WeakHealthCutoff {
			regen = sc.EnergyRegenWeak
		}
		if eff.Has(components.EffectExhausted) {
			regen = 0
		} else if eff.Has(components.EffectWellFed) {
			regen *= 2
		}
		st.Energy = snap.Energy + regen

		st.Clamp()
		e.tracker.RecordTime(info.ID)

		if st.Health <= 0 {
			cause := "effects"
			switch {
			case st.Hunger <= 0:
				cause = "starvation"
			case st.Thirst <= 0:
				cause = "dehydration"
			}
			e.markDead(info.ID, cause)
		}
	}
}

// executionPhase resolves intents in two strict bands: stationary actions
// first in roster order, then movement with per-destination conflict
// resolution.
func (e *Engine) executionPhase(intents []Intent) {
	var moves []Intent
	for _, intent := range intents {
		ent, ok := e.byID[intent.AgentID]
		if !ok || !e.statusMap.Get(ent).Alive {
			continue
		}
		e.statusMap.Get(ent).Instinct = intent.Instinct
		if intent.Action.IsMove() {
			moves = append(moves, intent)
			continue
		}
		e.executeStationary(ent, intent)
	}
	e.executeMoves(moves)
}

func (e *Engine) executeStationary(ent ecs.Entity, intent Intent) {
	var outcome Outcome
	switch intent.Action {
	case ActRest:
		outcome = e.doRest(ent)
	case ActEat:
		outcome = e.doEat(ent)
	case ActDrink:
		outcome = e.doDrink(ent)
	case ActAttack:
		outcome = e.doAttack(ent)
	default:
		outcome = OutcomeFailed
	}

	if e.collector != nil {
		e.collector.RecordAction(intent.Action.String(), outcome.String())
	}
}

func (e *Engine) doRest(ent ecs.Entity) Outcome {
	st := e.statusMap.Get(ent)
	st.Energy += e.cfg.Actions.RestEnergyGain
	st.Health += e.cfg.Actions.RestHealthGain
	st.Clamp()
	return OutcomeOK
}

func (e *Engine) doEat(ent ecs.Entity) Outcome {
	st := e.statusMap.Get(ent)
	pos := e.posMap.Get(ent)
	info := e.infoMap.Get(ent)

	tile := e.grid.Tile(pos.X, pos.Y)
	if tile.Resource == nil || !tile.Resource.Type.IsFood() {
		return OutcomeFailed
	}
	if st.Energy < e.cfg.Actions.EatEnergyCost {
		return OutcomeNoEnergy
	}

	st.Energy -= e.cfg.Actions.EatEnergyCost
	st.Hunger += e.hungerGain(info.Category, tile.Resource.Type)
	st.Clamp()

	tile.Resource.UsesLeft--
	if tile.Resource.UsesLeft <= 0 {
		tile.Resource = nil
	}

	e.tracker.RecordResource(info.ID)
	if e.collector != nil {
		e.collector.RecordConsume("food")
	}
	return OutcomeOK
}

// hungerGain returns the hunger restored by a food type for a diet. Plants
// feed herbivores and omnivores fully; meat feeds carnivores and omnivores
// fully; off-diet food restores the reduced amount.
func (e *Engine) hungerGain(c components.Category, r world.ResourceType) float64 {
	ac := &e.cfg.Actions
	if r == world.Plant {
		if c == components.Carnivore {
			return ac.PlantOffDietGain
		}
		return ac.PlantHungerGain
	}
	if c == components.Herbivore {
		return ac.MeatOffDietGain
	}
	return ac.MeatHungerGain
}

func (e *Engine) doDrink(ent ecs.Entity) Outcome {
	st := e.statusMap.Get(ent)
	pos := e.posMap.Get(ent)
	info := e.infoMap.Get(ent)

	if !e.grid.HasWaterAccess(pos.X, pos.Y) {
		return OutcomeFailed
	}
	if st.Energy < e.cfg.Actions.DrinkEnergyCost {
		return OutcomeNoEnergy
	}

	st.Energy -= e.cfg.Actions.DrinkEnergyCost
	st.Thirst += e.cfg.Actions.DrinkThirstGain
	st.Clamp()

	// Springs run dry by chance per use; open water never depletes.
	tile := e.grid.Tile(pos.X, pos.Y)
	if tile.Resource != nil && tile.Resource.Type == world.Spring {
		if e.rng.Float64() < e.cfg.Actions.WaterDepleteChance {
			tile.Resource = nil
		}
	}

	e.tracker.RecordResource(info.ID)
	if e.collector != nil {
		e.collector.RecordConsume("water")
	}
	return OutcomeOK
}

func (e *Engine) doAttack(ent ecs.Entity) Outcome {
	st := e.statusMap.Get(ent)
	pos := e.posMap.Get(ent)
	info := e.infoMap.Get(ent)
	traits := e.traitsMap.Get(ent)

	target, ok := e.findAttackTarget(info.ID, pos)
	if !ok {
		return OutcomeFailed
	}
	if st.Energy < e.cfg.Actions.AttackEnergyCost {
		return OutcomeNoEnergy
	}
	st.Energy -= e.cfg.Actions.AttackEnergyCost
	st.Clamp()

	defEnt := e.byID[target]
	defTraits := e.traitsMap.Get(defEnt)
	defStatus := e.statusMap.Get(defEnt)
	defInfo := e.infoMap.Get(defEnt)

	cc := &e.cfg.Combat
	chance := cc.BaseHitChance + float64(traits.Strength-defTraits.Agility)*cc.TraitHitScale
	if chance < cc.MinHitChance {
		chance = cc.MinHitChance
	}
	if chance > cc.MaxHitChance {
		chance = cc.MaxHitChance
	}

	hit := e.rng.Float64() < chance
	if e.collector != nil {
		e.collector.RecordAttack(hit)
	}
	if !hit {
		return OutcomeOK
	}

	damage := float64(cc.MinDamage+e.rng.Intn(cc.MaxDamage-cc.MinDamage+1)) +
		float64(traits.Strength-cc.StrengthPivot)
	defStatus.Health -= damage
	defStatus.Clamp()

	if defStatus.Health <= 0 {
		e.markDead(defInfo.ID, "killed")
		e.tracker.RecordKill(info.ID)
		if e.collector != nil {
			e.collector.RecordKill()
		}
	}
	return OutcomeOK
}

// findAttackTarget scans the 3x3 neighborhood in row-major order and returns
// the first living occupant other than the attacker. The fixed scan order
// keeps target choice deterministic.
func (e *Engine) findAttackTarget(attackerID uint32, pos *components.Position) (uint32, bool) {
	for _, tile := range e.grid.Neighborhood(pos.X, pos.Y) {
		if tile == nil || tile.Occupant == 0 || tile.Occupant == attackerID {
			continue
		}
		ent, ok := e.byID[tile.Occupant]
		if !ok || !e.statusMap.Get(ent).Alive {
			continue
		}
		return tile.Occupant, true
	}
	return 0, false
}

// executeMoves resolves the movement band. Movers targeting the same cell
// form a conflict group: the strictly highest agility wins, ties break to
// the lowest agent ID. Losers spend no energy. A winner whose destination
// turns out occupied triggers an encounter and is blocked.
func (e *Engine) executeMoves(moves []Intent) {
	type mover struct {
		intent Intent
		ent    ecs.Entity
		destX  int
		destY  int
	}

	valid := make([]mover, 0, len(moves))
	for _, intent := range moves {
		ent := e.byID[intent.AgentID]
		// Death in the stationary band cancels the queued move.
		if !e.statusMap.Get(ent).Alive {
			if e.collector != nil {
				e.collector.RecordAction(intent.Action.String(), OutcomeFailed.String())
			}
			continue
		}
		pos := e.posMap.Get(ent)
		dx, dy := intent.Action.Delta()
		nx, ny := pos.X+dx, pos.Y+dy

		if !e.grid.Passable(nx, ny) {
			if e.collector != nil {
				e.collector.RecordAction(intent.Action.String(), OutcomeFailed.String())
			}
			continue
		}
		valid = append(valid, mover{intent: intent, ent: ent, destX: nx, destY: ny})
	}

	// Group by destination cell.
	groups := make(map[int][]mover)
	for _, m := range valid {
		key := m.destY*e.grid.Width + m.destX
		groups[key] = append(groups[key], m)
	}
	keys := make([]int, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	for _, k := range keys {
		group := groups[k]
		winner := group[0]
		if len(group) > 1 {
			for _, m := range group[1:] {
				wa := e.traitsMap.Get(winner.ent).Agility
				ma := e.traitsMap.Get(m.ent).Agility
				if ma > wa || (ma == wa && m.intent.AgentID < winner.intent.AgentID) {
					winner = m
				}
			}
			for _, m := range group {
				if m.intent.AgentID == winner.intent.AgentID {
					continue
				}
				if e.collector != nil {
					e.collector.RecordAction(m.intent.Action.String(), OutcomeLostConflict.String())
				}
			}
		}
		e.applyMove(winner.ent, winner.intent, winner.destX, winner.destY)
	}
}

func (e *Engine) applyMove(ent ecs.Entity, intent Intent, nx, ny int) {
	st := e.statusMap.Get(ent)
	pos := e.posMap.Get(ent)
	info := e.infoMap.Get(ent)

	dest := e.grid.Tile(nx, ny)
	if dest.Occupant != 0 && dest.Occupant != info.ID {
		e.events.Encounter(info.ID, dest.Occupant, nx, ny)
		if e.collector != nil {
			e.collector.RecordEncounter()
			e.collector.RecordAction(intent.Action.String(), OutcomeBlocked.String())
		}
		// With blocking disabled the encounter is the event engine's to
		// resolve between ticks; the move itself still does not land, since
		// two agents never share a cell.
		return
	}

	cost := e.cfg.Actions.MoveEnergyCost * e.grid.MoveCost(nx, ny)
	if st.Energy < cost {
		if e.collector != nil {
			e.collector.RecordAction(intent.Action.String(), OutcomeNoEnergy.String())
		}
		return
	}

	e.grid.Tile(pos.X, pos.Y).Occupant = 0
	dest.Occupant = info.ID
	pos.X, pos.Y = nx, ny
	st.Energy -= cost
	st.Clamp()

	e.tracker.RecordDistance(info.ID)
	if e.collector != nil {
		e.collector.RecordMove()
		e.collector.RecordAction(intent.Action.String(), OutcomeOK.String())
	}
}

// cleanupPhase decrements effect durations and drops expired effects, then
// applies condition-triggered effects on post-execution status, and finally
// removes agents that died this tick. Removal happens only here, never
// mid-phase.
func (e *Engine) cleanupPhase() {
	ec := &e.cfg.Effects

	for _, ent := range e.roster {
		st := e.statusMap.Get(ent)
		if !st.Alive {
			continue
		}
		eff := e.effectsMap.Get(ent)
		eff.Tick()

		if st.Hunger >= ec.WellFedThreshold {
			eff.Apply(components.EffectWellFed, ec.WellFedDuration)
		}
		if st.Energy <= ec.ExhaustedThreshold {
			eff.Apply(components.EffectExhausted, ec.ExhaustedDuration)
		}
	}

	e.removeDead()
}

// removeDead finalizes and removes every dead agent. Two passes: collect
// while iterating, then mutate the ECS world and roster.
func (e *Engine) removeDead() {
	type deadInfo struct {
		ent ecs.Entity
		id  uint32
		pos components.Position
	}
	var toRemove []deadInfo

	for _, ent := range e.roster {
		st := e.statusMap.Get(ent)
		if st.Alive {
			continue
		}
		info := e.infoMap.Get(ent)
		toRemove = append(toRemove, deadInfo{ent: ent, id: info.ID, pos: *e.posMap.Get(ent)})
	}
	if len(toRemove) == 0 {
		return
	}

	removed := make(map[ecs.Entity]struct{}, len(toRemove))
	for _, dead := range toRemove {
		cause := e.pendingCause[dead.id]
		if cause == "" {
			cause = "unknown"
		}
		e.tracker.Finalize(dead.id, e.tick, cause)
		if e.collector != nil {
			e.collector.RecordDeath(cause)
		}

		e.grid.Tile(dead.pos.X, dead.pos.Y).Occupant = 0
		e.mapper.Remove(dead.ent)
		delete(e.byID, dead.id)
		delete(e.brains, dead.id)
		delete(e.policies, dead.id)
		delete(e.pendingCause, dead.id)
		removed[dead.ent] = struct{}{}
	}

	kept := e.roster[:0]
	for _, ent := range e.roster {
		if _, gone := removed[ent]; !gone {
			kept = append(kept, ent)
		}
	}
	e.roster = kept
}
