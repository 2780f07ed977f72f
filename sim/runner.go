package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"evosim/config"
	"evosim/evolution"
	"evosim/neural"
	"evosim/telemetry"
)

// RunRound drives the engine until the terminal condition: a single living
// agent remains or the tick ceiling is reached. Survivors are finalized at
// the end; every agent that ever existed is finalized exactly once before
// this returns.
func (e *Engine) RunRound(generation int) {
	e.events.RoundStart(generation)

	for e.tick < e.cfg.Simulation.MaxTicks && e.aliveCount > 1 {
		e.RunTick()
	}

	for _, ent := range e.roster {
		if !e.statusMap.Get(ent).Alive {
			continue
		}
		id := e.infoMap.Get(ent).ID
		e.tracker.Finalize(id, e.tick, "survived")
	}
	e.tracker.AssertAllFinalized()
}

// ScoredPopulation returns every spawned network with its final score, in
// spawn order. Valid only after RunRound.
func (e *Engine) ScoredPopulation() []evolution.Individual {
	pop := make([]evolution.Individual, len(e.spawned))
	for i, info := range e.spawned {
		pop[i] = evolution.Individual{
			Net:   e.spawnedNets[i],
			Score: e.tracker.Score(info.ID),
		}
	}
	return pop
}

// Graveyard returns one row per spawned agent with its end-of-round record.
func (e *Engine) Graveyard(generation int) []telemetry.GraveyardRow {
	rows := make([]telemetry.GraveyardRow, 0, len(e.spawned))
	for _, info := range e.spawned {
		comps, _ := e.tracker.Components(info.ID)
		cause, tick := e.tracker.Cause(info.ID)
		rows = append(rows, telemetry.GraveyardRow{
			Generation: generation,
			AgentID:    info.ID,
			Category:   info.Category.String(),
			Cause:      cause,
			EndTick:    tick,
			Score:      e.tracker.Score(info.ID),
			Time:       comps.Time,
			Resources:  comps.Resource,
			Kills:      comps.Kills,
			Distance:   comps.Distance,
			Events:     comps.Events,
		})
	}
	return rows
}

// Checkpointer persists generation checkpoints. Implemented by the storage
// package; the nop default skips persistence.
type Checkpointer interface {
	SaveGeneration(ctx context.Context, generation int, stats telemetry.GenerationStats, nets []*neural.Network, scores []float64) error
}

// Runner drives the full neuroevolution loop: spawn a round, resolve it,
// evolve the population from the finalized scores, repeat.
type Runner struct {
	cfg       *config.Config
	rng       *rand.Rand
	events    EventEngine
	collector *telemetry.Collector
	output    *telemetry.OutputManager
	store     Checkpointer

	population []*neural.Network
	generation int
}

// RunnerOption configures optional collaborators.
type RunnerOption func(*Runner)

// WithEvents installs an event engine.
func WithEvents(ev EventEngine) RunnerOption {
	return func(r *Runner) { r.events = ev }
}

// WithOutput installs a CSV output manager.
func WithOutput(om *telemetry.OutputManager) RunnerOption {
	return func(r *Runner) { r.output = om }
}

// WithStore installs a checkpoint store.
func WithStore(s Checkpointer) RunnerOption {
	return func(r *Runner) { r.store = s }
}

// NewRunner creates a runner with a generation-zero population of random
// networks.
func NewRunner(cfg *config.Config, rng *rand.Rand, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:       cfg,
		rng:       rng,
		events:    NopEvents{},
		collector: telemetry.NewCollector(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.population = make([]*neural.Network, cfg.Evolution.PopulationSize)
	for i := range r.population {
		r.population[i] = neural.New(
			cfg.Derived.NumInputs,
			cfg.Neural.Hidden1,
			cfg.Neural.Hidden2,
			cfg.Neural.NumOutputs,
			cfg.Neural.InitScale,
			rng,
		)
	}
	return r
}

// Generation returns the index of the next generation to run.
func (r *Runner) Generation() int {
	return r.generation
}

// Population exposes the current population, for checkpoint restore tests.
func (r *Runner) Population() []*neural.Network {
	return r.population
}

// RunGeneration runs one full round on a fresh world, evolves the population
// from the finalized scores, and reports the generation's statistics.
func (r *Runner) RunGeneration(ctx context.Context) (telemetry.GenerationStats, error) {
	gen := r.generation
	r.collector.StartRound(gen)

	engine, err := NewEngine(r.cfg, r.population, r.events, r.collector, r.rng)
	if err != nil {
		return telemetry.GenerationStats{}, fmt.Errorf("generation %d: %w", gen, err)
	}
	engine.RunRound(gen)

	pop := engine.ScoredPopulation()
	scores := make([]float64, len(pop))
	for i, ind := range pop {
		scores[i] = ind.Score
	}

	stats := telemetry.NewGenerationStats(gen, engine.Tick(), engine.Alive(), scores)
	round := r.collector.Summary()
	if r.cfg.Telemetry.LogRounds {
		slog.Info("generation complete", "stats", stats, "round", round)
	} else {
		slog.Info("generation complete", "stats", stats)
	}

	if r.output != nil {
		if err := r.output.WriteGeneration(stats.Row()); err != nil {
			slog.Error("failed to write generation stats", "error", err)
		}
		if err := r.output.WriteRound(round); err != nil {
			slog.Error("failed to write round stats", "error", err)
		}
		if err := r.output.WriteGraveyard(engine.Graveyard(gen)); err != nil {
			slog.Error("failed to write graveyard", "error", err)
		}
	}

	if r.store != nil && r.shouldCheckpoint(gen) {
		nets := make([]*neural.Network, len(pop))
		for i, ind := range pop {
			nets[i] = ind.Net
		}
		if err := r.store.SaveGeneration(ctx, gen, stats, nets, scores); err != nil {
			slog.Error("failed to checkpoint generation", "generation", gen, "error", err)
		}
	}

	r.population = evolution.Evolve(pop, &r.cfg.Evolution, r.cfg.Derived.EliteCount, r.rng)
	r.generation++
	return stats, nil
}

func (r *Runner) shouldCheckpoint(gen int) bool {
	every := r.cfg.Storage.CheckpointEveryNGens
	if every <= 0 {
		every = 1
	}
	return gen%every == 0
}

// Run executes the configured number of generations, stopping early if the
// context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	for r.generation < r.cfg.Simulation.MaxGenerations {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := r.RunGeneration(ctx); err != nil {
			return err
		}
	}
	return nil
}
