package telemetry

import (
	"math"
	"testing"
)

func TestNewGenerationStats(t *testing.T) {
	scores := []float64{10, 20, 30, 40, 50}
	s := NewGenerationStats(3, 50, 2, scores)

	if s.Generation != 3 || s.Ticks != 50 || s.Survivors != 2 {
		t.Errorf("metadata not carried: %+v", s)
	}
	if s.Population != 5 {
		t.Errorf("population %d, want 5", s.Population)
	}
	if s.Best != 50 || s.Worst != 10 {
		t.Errorf("best/worst %f/%f, want 50/10", s.Best, s.Worst)
	}
	if math.Abs(s.Mean-30) > 1e-9 {
		t.Errorf("mean %f, want 30", s.Mean)
	}
	if s.Median != 30 {
		t.Errorf("median %f, want 30", s.Median)
	}
}

func TestNewGenerationStatsEmpty(t *testing.T) {
	s := NewGenerationStats(0, 0, 0, nil)
	if s.Best != 0 || s.Mean != 0 || s.Population != 0 {
		t.Errorf("empty scores should produce zero stats: %+v", s)
	}
}

func TestNewGenerationStatsDoesNotReorderInput(t *testing.T) {
	scores := []float64{5, 1, 3}
	NewGenerationStats(0, 10, 1, scores)
	if scores[0] != 5 || scores[1] != 1 || scores[2] != 3 {
		t.Error("input slice was reordered")
	}
}

func TestCollectorSummary(t *testing.T) {
	c := NewCollector()
	c.StartRound(2)

	c.RecordDecision(false)
	c.RecordDecision(true)
	c.RecordMove()
	c.RecordMove()
	c.RecordAttack(true)
	c.RecordAttack(false)
	c.RecordKill()
	c.RecordConsume("food")
	c.RecordConsume("water")
	c.RecordConsume("water")
	c.RecordDeath("starvation")
	c.RecordDeath("killed")
	c.RecordDeath("effects")
	c.RecordEncounter()

	s := c.Summary()
	if s.Generation != 2 {
		t.Errorf("generation %d, want 2", s.Generation)
	}
	if s.Decisions != 2 || s.InstinctFallback != 1 {
		t.Errorf("decisions %d/%d, want 2/1", s.Decisions, s.InstinctFallback)
	}
	if s.Moves != 2 {
		t.Errorf("moves %d, want 2", s.Moves)
	}
	if s.Attacks != 2 || s.Hits != 1 || s.HitRate != 0.5 {
		t.Errorf("attacks %d hits %d rate %f", s.Attacks, s.Hits, s.HitRate)
	}
	if s.FoodConsumed != 1 || s.WaterConsumed != 2 {
		t.Errorf("consumed %d/%d, want 1/2", s.FoodConsumed, s.WaterConsumed)
	}
	if s.DeathsStarvation != 1 || s.DeathsKilled != 1 || s.DeathsOther != 1 {
		t.Errorf("deaths %d/%d/%d", s.DeathsStarvation, s.DeathsKilled, s.DeathsOther)
	}
	if s.Encounters != 1 {
		t.Errorf("encounters %d, want 1", s.Encounters)
	}
}

func TestCollectorStartRoundResets(t *testing.T) {
	c := NewCollector()
	c.RecordMove()
	c.RecordDeath("starvation")

	c.StartRound(1)
	s := c.Summary()
	if s.Moves != 0 || s.DeathsStarvation != 0 {
		t.Errorf("counters not reset: %+v", s)
	}
}

func TestCollectorActionOutcomes(t *testing.T) {
	c := NewCollector()
	c.RecordAction("move_north", "lost_conflict")
	c.RecordAction("move_north", "lost_conflict")
	c.RecordAction("eat", "failed")

	if n := c.Outcome("move_north", "lost_conflict"); n != 2 {
		t.Errorf("lost_conflict count %d, want 2", n)
	}
	if n := c.Outcome("eat", "failed"); n != 1 {
		t.Errorf("eat failed count %d, want 1", n)
	}
	if n := c.Outcome("drink", "ok"); n != 0 {
		t.Errorf("unrecorded outcome count %d, want 0", n)
	}
}
