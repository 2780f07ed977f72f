package storage

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evosim/config"
	"evosim/neural"
	"evosim/telemetry"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "run.db"))
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInitRequiresPath(t *testing.T) {
	s := NewSQLiteStore("")
	assert.Error(t, s.Init(context.Background()))
}

func TestBeginRunAndResume(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	cfg, err := config.Load("")
	require.NoError(t, err)

	runID, err := s.BeginRun(ctx, cfg, 42)
	require.NoError(t, err)
	assert.NotEmpty(t, runID)
	assert.Equal(t, runID, s.RunID())

	require.NoError(t, s.ResumeRun(ctx, runID))
	assert.Error(t, s.ResumeRun(ctx, "no-such-run"))
}

func TestSaveAndLoadGeneration(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	cfg, err := config.Load("")
	require.NoError(t, err)
	_, err = s.BeginRun(ctx, cfg, 42)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	nets := make([]*neural.Network, 4)
	scores := make([]float64, 4)
	for i := range nets {
		nets[i] = neural.New(41, 16, 12, 8, 0.1, rng)
		scores[i] = float64(i) * 10
	}
	stats := telemetry.NewGenerationStats(0, 50, 2, scores)

	require.NoError(t, s.SaveGeneration(ctx, 0, stats, nets, scores))

	loadedNets, loadedScores, ok, err := s.LoadPopulation(ctx, 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, loadedNets, 4)
	assert.Equal(t, scores, loadedScores)
	for i := range nets {
		assert.Equal(t, nets[i].Flatten(), loadedNets[i].Flatten(), "network %d weights differ after round trip", i)
	}

	gen, ok, err := s.LatestGeneration(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, gen)
}

func TestSaveGenerationOverwrites(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	cfg, err := config.Load("")
	require.NoError(t, err)
	_, err = s.BeginRun(ctx, cfg, 1)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	first := []*neural.Network{neural.New(41, 16, 12, 8, 0.1, rng)}
	second := []*neural.Network{neural.New(41, 16, 12, 8, 0.1, rng), neural.New(41, 16, 12, 8, 0.1, rng)}

	require.NoError(t, s.SaveGeneration(ctx, 3, telemetry.GenerationStats{}, first, []float64{1}))
	require.NoError(t, s.SaveGeneration(ctx, 3, telemetry.GenerationStats{}, second, []float64{2, 3}))

	nets, scores, ok, err := s.LoadPopulation(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, nets, 2)
	assert.Equal(t, []float64{2, 3}, scores)
}

func TestLoadMissingGeneration(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	cfg, err := config.Load("")
	require.NoError(t, err)
	_, err = s.BeginRun(ctx, cfg, 1)
	require.NoError(t, err)

	_, _, ok, err := s.LoadPopulation(ctx, 99)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.LatestGeneration(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveGenerationRequiresRun(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	err := s.SaveGeneration(ctx, 0, telemetry.GenerationStats{}, nil, nil)
	assert.Error(t, err)
}
