// Package evolution implements the generational algorithm that breeds the
// next population of decision networks from finalized fitness scores.
package evolution

import (
	"fmt"
	"math/rand"
	"sort"

	"evosim/config"
	"evosim/neural"
)

// Individual pairs a network with its finalized fitness score.
type Individual struct {
	Net   *neural.Network
	Score float64
}

// Evolve produces the next generation: the top eliteCount individuals pass
// through as deep copies, and the remainder is bred by tournament selection,
// one-point crossover on the flattened parameters, and per-scalar Gaussian
// mutation. The output size always equals the input population size. Evolve
// is pure apart from the explicit random source and never mutates the input
// networks.
func Evolve(pop []Individual, cfg *config.EvolutionConfig, eliteCount int, rng *rand.Rand) []*neural.Network {
	if len(pop) < 2 {
		panic(fmt.Sprintf("evolution: population of %d cannot be evolved", len(pop)))
	}
	if eliteCount < 0 || eliteCount > len(pop) {
		panic(fmt.Sprintf("evolution: elite count %d out of range for population %d", eliteCount, len(pop)))
	}

	ranked := make([]Individual, len(pop))
	copy(ranked, pop)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	next := make([]*neural.Network, 0, len(pop))
	for i := 0; i < eliteCount; i++ {
		next = append(next, ranked[i].Net.Clone())
	}

	for len(next) < len(pop) {
		a := tournament(ranked, cfg.TournamentSize, rng)
		b := tournament(ranked, cfg.TournamentSize, rng)
		split := rng.Intn(a.Net.NumParams() + 1)
		child := neural.Crossover(a.Net, b.Net, split)
		child = neural.Mutate(child, cfg.MutationRate, cfg.MutationMagnitude, rng)
		next = append(next, child)
	}

	return next
}

// tournament samples size individuals with replacement and returns the one
// with the highest score. Ties keep the first sampled winner, which together
// with the seeded source makes selection reproducible.
func tournament(ranked []Individual, size int, rng *rand.Rand) Individual {
	best := ranked[rng.Intn(len(ranked))]
	for i := 1; i < size; i++ {
		c := ranked[rng.Intn(len(ranked))]
		if c.Score > best.Score {
			best = c
		}
	}
	return best
}
