package sim

import (
	"fmt"

	"evosim/config"
)

// FitnessComponents are the raw per-agent performance counters accumulated
// over a round. The scalar score is derived from them on finalize.
type FitnessComponents struct {
	Time     float64
	Resource float64
	Kills    float64
	Distance float64
	Events   float64
}

type fitnessRecord struct {
	comps     FitnessComponents
	finalized bool
	score     float64
	deathTick int
	cause     string
}

// FitnessTracker manages per-agent fitness accounting for one round. Every
// registered agent must be finalized exactly once before evolution runs;
// violations are programming errors and panic.
type FitnessTracker struct {
	weights config.FitnessConfig
	records map[uint32]*fitnessRecord
}

// NewFitnessTracker creates a tracker with the given component weights.
func NewFitnessTracker(weights config.FitnessConfig) *FitnessTracker {
	return &FitnessTracker{
		weights: weights,
		records: make(map[uint32]*fitnessRecord),
	}
}

// Register starts tracking a new agent. Registering the same ID twice panics.
func (t *FitnessTracker) Register(agentID uint32) {
	if _, ok := t.records[agentID]; ok {
		panic(fmt.Sprintf("fitness: agent %d registered twice", agentID))
	}
	t.records[agentID] = &fitnessRecord{}
}

// RecordTime increments survival time. Called once per living agent per tick.
func (t *FitnessTracker) RecordTime(agentID uint32) {
	if r := t.records[agentID]; r != nil && !r.finalized {
		r.comps.Time++
	}
}

// RecordResource counts a consumed resource (eat or drink).
func (t *FitnessTracker) RecordResource(agentID uint32) {
	if r := t.records[agentID]; r != nil && !r.finalized {
		r.comps.Resource++
	}
}

// RecordKill credits a kill to the attacker.
func (t *FitnessTracker) RecordKill(agentID uint32) {
	if r := t.records[agentID]; r != nil && !r.finalized {
		r.comps.Kills++
	}
}

// RecordDistance counts one successful move.
func (t *FitnessTracker) RecordDistance(agentID uint32) {
	if r := t.records[agentID]; r != nil && !r.finalized {
		r.comps.Distance++
	}
}

// RecordEventSurvived counts a survived world event.
func (t *FitnessTracker) RecordEventSurvived(agentID uint32) {
	if r := t.records[agentID]; r != nil && !r.finalized {
		r.comps.Events++
	}
}

// Finalize closes an agent's accounting and computes its score. It is called
// exactly once per agent, at death or at round end for survivors; a second
// call panics.
func (t *FitnessTracker) Finalize(agentID uint32, tick int, cause string) float64 {
	r := t.records[agentID]
	if r == nil {
		panic(fmt.Sprintf("fitness: finalize of unregistered agent %d", agentID))
	}
	if r.finalized {
		panic(fmt.Sprintf("fitness: agent %d finalized twice", agentID))
	}
	r.finalized = true
	r.deathTick = tick
	r.cause = cause
	r.score = r.comps.Time*t.weights.TimeWeight +
		r.comps.Resource*t.weights.ResourceWeight +
		r.comps.Kills*t.weights.KillWeight +
		r.comps.Distance*t.weights.DistanceWeight +
		r.comps.Events*t.weights.EventWeight
	return r.score
}

// Score returns the finalized score for an agent. Reading a score before
// finalize is a programming error.
func (t *FitnessTracker) Score(agentID uint32) float64 {
	r := t.records[agentID]
	if r == nil || !r.finalized {
		panic(fmt.Sprintf("fitness: score of agent %d read before finalize", agentID))
	}
	return r.score
}

// Components returns the raw counters for an agent, or false if unknown.
func (t *FitnessTracker) Components(agentID uint32) (FitnessComponents, bool) {
	r := t.records[agentID]
	if r == nil {
		return FitnessComponents{}, false
	}
	return r.comps, true
}

// Cause returns the recorded end-of-life cause and tick for a finalized
// agent ("survived" for round-end survivors).
func (t *FitnessTracker) Cause(agentID uint32) (cause string, tick int) {
	r := t.records[agentID]
	if r == nil || !r.finalized {
		return "", 0
	}
	return r.cause, r.deathTick
}

// AssertAllFinalized panics if any registered agent has not been finalized.
// The generation driver calls this before evolution.
func (t *FitnessTracker) AssertAllFinalized() {
	for id, r := range t.records {
		if !r.finalized {
			panic(fmt.Sprintf("fitness: agent %d not finalized before evolution", id))
		}
	}
}

// Count returns the number of tracked agents.
func (t *FitnessTracker) Count() int {
	return len(t.records)
}
