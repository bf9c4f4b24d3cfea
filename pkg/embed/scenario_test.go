package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/sgtsnepi/pkg/quality"
	"github.com/matzehuels/sgtsnepi/pkg/sparse"
)

func dist(a, b []float64) float64 {
	var s float64
	for k := range a {
		s += (a[k] - b[k]) * (a[k] - b[k])
	}
	return math.Sqrt(s)
}

func TestRingPreservesCyclicOrder(t *testing.T) {
	const n = 20
	for seed := int64(1); seed <= 3; seed++ {
		// Everything but the budget, seed and workers is left at its default.
		opts := Options{MaxIter: 100, Seed: seed, Threads: 2}
		res, err := Embed(context.Background(), ring(t, n, 0), opts)
		require.NoError(t, err)

		var hops, euclid []float64
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				hops = append(hops, float64(min(j-i, n-(j-i))))
				euclid = append(euclid, dist(res.Point(i), res.Point(j)))
			}
		}
		assert.Greater(t, quality.Spearman(hops, euclid), 0.8, "seed %d", seed)
	}
}

func cliques(t *testing.T, size int) *sparse.Graph {
	t.Helper()
	b := sparse.NewBuilder(2 * size)
	for _, off := range []int{0, size} {
		for i := off; i < off+size; i++ {
			for j := off; j < off+size; j++ {
				if i != j {
					b.Add(i, j, 1)
				}
			}
		}
	}
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestTwoCliquesSeparate(t *testing.T) {
	const size = 30
	res, err := Embed(context.Background(), cliques(t, size), smallOpts())
	require.NoError(t, err)

	var intra, inter float64
	var ni, nx int
	for i := 0; i < 2*size; i++ {
		for j := i + 1; j < 2*size; j++ {
			dd := dist(res.Point(i), res.Point(j))
			if (i < size) == (j < size) {
				intra += dd
				ni++
			} else {
				inter += dd
				nx++
			}
		}
	}
	assert.Greater(t, inter/float64(nx), 10*intra/float64(ni))
}

func TestFFTCostNonNegative(t *testing.T) {
	for _, mode := range []Mode{ModeNUConv, ModeBandLimited} {
		t.Run(mode.String(), func(t *testing.T) {
			opts := Options{MaxIter: 100, Seed: 1, Mode: mode, CostEvery: 10, Threads: 2}
			res, err := Embed(context.Background(), ring(t, 20, 0), opts)
			require.NoError(t, err)
			require.NotEmpty(t, res.Costs)
			for _, c := range res.Costs {
				assert.GreaterOrEqual(t, c.KL, 0.0, "iteration %d", c.Iteration)
			}
		})
	}
}

func TestCostDecreasesAfterExaggeration(t *testing.T) {
	opts := smallOpts()
	opts.CostEvery = 10
	res, err := Embed(context.Background(), ring(t, 20, 0), opts)
	require.NoError(t, err)

	var annealed []float64
	for _, c := range res.Costs {
		if c.Iteration >= opts.EarlyExag {
			annealed = append(annealed, c.KL)
		}
	}
	require.GreaterOrEqual(t, len(annealed), 3)
	for i := 1; i < len(annealed); i++ {
		assert.LessOrEqual(t, annealed[i], annealed[i-1]*1.05, "evaluation %d", i)
	}
	assert.Less(t, annealed[len(annealed)-1], annealed[0])
}
