package world

import (
	"math/rand"
	"sort"

	"evosim/config"
)

// Resource uses at spawn. Springs carry a negative sentinel because they
// deplete by chance rather than by count.
const (
	plantUses   = 3
	preyUses    = 1
	carcassUses = 2
	springUses  = -1
)

// Generate builds a grid from the configured terrain distribution. A Perlin
// noise field gives coherent regions; tiles are then classified by sorting
// noise values and cutting at the configured fractions, so the realized
// terrain mix matches the distribution exactly up to rounding.
func Generate(cfg *config.WorldConfig, rng *rand.Rand) *Grid {
	g := NewGrid(cfg.Width, cfg.Height, cfg.ForestMoveCost)
	noise := NewPerlinNoise(rng)

	type cell struct {
		idx   int
		value float64
	}
	cells := make([]cell, 0, cfg.Width*cfg.Height)
	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			v := noise.Noise2D(float64(x)*cfg.NoiseScale, float64(y)*cfg.NoiseScale)
			cells = append(cells, cell{idx: y*cfg.Width + x, value: v})
		}
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].value < cells[j].value })

	// Lowest noise becomes water, then plains, forest, and mountains on the
	// peaks.
	n := len(cells)
	waterEnd := int(cfg.Water * float64(n))
	plainsEnd := waterEnd + int(cfg.Plains*float64(n))
	forestEnd := plainsEnd + int(cfg.Forest*float64(n))
	for i, c := range cells {
		switch {
		case i < waterEnd:
			g.tiles[c.idx].Terrain = Water
		case i < plainsEnd:
			g.tiles[c.idx].Terrain = Plains
		case i < forestEnd:
			g.tiles[c.idx].Terrain = Forest
		default:
			g.tiles[c.idx].Terrain = Mountains
		}
	}

	placeResources(g, cfg, rng)
	return g
}

// placeResources scatters food and springs over the passable tiles. Plants
// favor forest, prey and carcasses spawn on plains.
func placeResources(g *Grid, cfg *config.WorldConfig, rng *rand.Rand) {
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			t := g.Tile(x, y)
			if t.Terrain != Plains && t.Terrain != Forest {
				continue
			}
			if rng.Float64() < cfg.FoodSpawnChance {
				t.Resource = rollFood(t.Terrain, rng)
				continue
			}
			if rng.Float64() < cfg.WaterSpawnChance {
				t.Resource = &Resource{Type: Spring, UsesLeft: springUses}
			}
		}
	}
}

func rollFood(terrain Terrain, rng *rand.Rand) *Resource {
	if terrain == Forest {
		return &Resource{Type: Plant, UsesLeft: plantUses}
	}
	switch rng.Intn(3) {
	case 0:
		return &Resource{Type: Prey, UsesLeft: preyUses}
	case 1:
		return &Resource{Type: Carcass, UsesLeft: carcassUses}
	default:
		return &Resource{Type: Plant, UsesLeft: plantUses}
	}
}

// SpawnPositions returns count distinct passable, unoccupied coordinates in
// random order. It panics if the grid cannot host the requested population.
func SpawnPositions(g *Grid, count int, rng *rand.Rand) [][2]int {
	open := make([][2]int, 0, g.Width*g.Height)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if g.Passable(x, y) && g.Tile(x, y).Occupant == 0 {
				open = append(open, [2]int{x, y})
			}
		}
	}
	if len(open) < count {
		panic("world: not enough passable tiles for the population")
	}
	rng.Shuffle(len(open), func(i, j int) { open[i], open[j] = open[j], open[i] })
	return open[:count]
}
