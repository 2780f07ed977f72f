package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// GenerationStats summarizes one generation's fitness distribution and how
// its round ended.
type GenerationStats struct {
	Generation int
	Ticks      int
	Survivors  int
	Population int

	Best   float64
	Worst  float64
	Mean   float64
	StdDev float64
	P10    float64
	Median float64
	P90    float64
}

// NewGenerationStats computes the distribution summary from finalized
// scores.
func NewGenerationStats(generation, ticks, survivors int, scores []float64) GenerationStats {
	s := GenerationStats{
		Generation: generation,
		Ticks:      ticks,
		Survivors:  survivors,
		Population: len(scores),
	}
	if len(scores) == 0 {
		return s
	}

	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	s.Worst = sorted[0]
	s.Best = sorted[len(sorted)-1]
	s.Mean, s.StdDev = stat.MeanStdDev(sorted, nil)
	if len(sorted) == 1 {
		s.StdDev = 0
	}
	s.P10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	s.Median = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	s.P90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return s
}

// LogValue implements slog.LogValuer for structured generation summaries.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Int("ticks", s.Ticks),
		slog.Int("survivors", s.Survivors),
		slog.Float64("best", s.Best),
		slog.Float64("mean", s.Mean),
		slog.Float64("worst", s.Worst),
		slog.Float64("stddev", s.StdDev),
	)
}

// GenerationRow is the CSV projection of GenerationStats.
type GenerationRow struct {
	Generation int     `csv:"generation"`
	Ticks      int     `csv:"ticks"`
	Survivors  int     `csv:"survivors"`
	Population int     `csv:"population"`
	Best       float64 `csv:"best"`
	Worst      float64 `csv:"worst"`
	Mean       float64 `csv:"mean"`
	StdDev     float64 `csv:"stddev"`
	P10        float64 `csv:"p10"`
	Median     float64 `csv:"median"`
	P90        float64 `csv:"p90"`
}

// Row converts the stats to their CSV projection.
func (s GenerationStats) Row() GenerationRow {
	return GenerationRow{
		Generation: s.Generation,
		Ticks:      s.Ticks,
		Survivors:  s.Survivors,
		Population: s.Population,
		Best:       s.Best,
		Worst:      s.Worst,
		Mean:       s.Mean,
		StdDev:     s.StdDev,
		P10:        s.P10,
		Median:     s.Median,
		P90:        s.P90,
	}
}

// GraveyardRow records one agent's end-of-round outcome.
type GraveyardRow struct {
	Generation int     `csv:"generation"`
	AgentID    uint32  `csv:"agent_id"`
	Category   string  `csv:"category"`
	Cause      string  `csv:"cause"`
	EndTick    int     `csv:"end_tick"`
	Score      float64 `csv:"score"`
	Time       float64 `csv:"time"`
	Resources  float64 `csv:"resources"`
	Kills      float64 `csv:"kills"`
	Distance   float64 `csv:"distance"`
	Events     float64 `csv:"events"`
}
