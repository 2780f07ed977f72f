// Package telemetry aggregates per-round simulation counters and generation
// statistics and writes them to structured logs and CSV files.
package telemetry

import "log/slog"

// Collector accumulates event counters for one round. The engine feeds it
// from the resolver; StartRound resets it for the next generation.
type Collector struct {
	generation int

	decisions        int
	instinctFallback int

	moves      int
	encounters int

	attacks int
	hits    int
	kills   int

	consumed map[string]int
	deaths   map[string]int
	outcomes map[string]int
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	c := &Collector{}
	c.reset(0)
	return c
}

func (c *Collector) reset(generation int) {
	*c = Collector{
		generation: generation,
		consumed:   make(map[string]int),
		deaths:     make(map[string]int),
		outcomes:   make(map[string]int),
	}
}

// StartRound clears all counters for a new generation's round.
func (c *Collector) StartRound(generation int) {
	c.reset(generation)
}

// RecordDecision counts one decision, noting whether the rule fallback was
// engaged.
func (c *Collector) RecordDecision(instinct bool) {
	c.decisions++
	if instinct {
		c.instinctFallback++
	}
}

// RecordMove counts a successful move.
func (c *Collector) RecordMove() {
	c.moves++
}

// RecordAction counts an action outcome, keyed "action/outcome".
func (c *Collector) RecordAction(action, outcome string) {
	c.outcomes[action+"/"+outcome]++
}

// RecordEncounter counts a move onto an occupied cell.
func (c *Collector) RecordEncounter() {
	c.encounters++
}

// RecordAttack counts an attack attempt and whether it landed.
func (c *Collector) RecordAttack(hit bool) {
	c.attacks++
	if hit {
		c.hits++
	}
}

// RecordKill counts a kill.
func (c *Collector) RecordKill() {
	c.kills++
}

// RecordConsume counts a consumed resource by kind ("food" or "water").
func (c *Collector) RecordConsume(kind string) {
	c.consumed[kind]++
}

// RecordDeath counts a death by cause.
func (c *Collector) RecordDeath(cause string) {
	c.deaths[cause]++
}

// RoundStats is the flattened snapshot of one round's counters.
type RoundStats struct {
	Generation        int     `csv:"generation"`
	Decisions         int     `csv:"decisions"`
	InstinctFallback  int     `csv:"instinct_fallback"`
	Moves             int     `csv:"moves"`
	Encounters        int     `csv:"encounters"`
	Attacks           int     `csv:"attacks"`
	Hits              int     `csv:"hits"`
	HitRate           float64 `csv:"hit_rate"`
	Kills             int     `csv:"kills"`
	FoodConsumed      int     `csv:"food_consumed"`
	WaterConsumed     int     `csv:"water_consumed"`
	DeathsStarvation  int     `csv:"deaths_starvation"`
	DeathsDehydration int     `csv:"deaths_dehydration"`
	DeathsKilled      int     `csv:"deaths_killed"`
	DeathsOther       int     `csv:"deaths_other"`
}

// Summary snapshots the current counters.
func (c *Collector) Summary() RoundStats {
	s := RoundStats{
		Generation:        c.generation,
		Decisions:         c.decisions,
		InstinctFallback:  c.instinctFallback,
		Moves:             c.moves,
		Encounters:        c.encounters,
		Attacks:           c.attacks,
		Hits:              c.hits,
		Kills:             c.kills,
		FoodConsumed:      c.consumed["food"],
		WaterConsumed:     c.consumed["water"],
		DeathsStarvation:  c.deaths["starvation"],
		DeathsDehydration: c.deaths["dehydration"],
		DeathsKilled:      c.deaths["killed"],
	}
	for cause, n := range c.deaths {
		switch cause {
		case "starvation", "dehydration", "killed":
		default:
			s.DeathsOther += n
		}
	}
	if c.attacks > 0 {
		s.HitRate = float64(c.hits) / float64(c.attacks)
	}
	return s
}

// Outcome returns the count for one "action/outcome" key.
func (c *Collector) Outcome(action, outcome string) int {
	return c.outcomes[action+"/"+outcome]
}

// LogValue implements slog.LogValuer for structured round summaries.
func (s RoundStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("decisions", s.Decisions),
		slog.Int("instinct_fallback", s.InstinctFallback),
		slog.Int("moves", s.Moves),
		slog.Int("encounters", s.Encounters),
		slog.Int("attacks", s.Attacks),
		slog.Float64("hit_rate", s.HitRate),
		slog.Int("kills", s.Kills),
		slog.Int("food", s.FoodConsumed),
		slog.Int("water", s.WaterConsumed),
	)
}
