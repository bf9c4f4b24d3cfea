package attraction

import (
	"math"
	"math/rand"
	"testing"

	"github.com/matzehuels/sgtsnepi/pkg/parallel"
	"github.com/matzehuels/sgtsnepi/pkg/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chain(t *testing.T, n int) *sparse.Graph {
	t.Helper()
	b := sparse.NewBuilder(n)
	for i := 0; i+1 < n; i++ {
		b.Add(i, i+1, 1)
		b.Add(i+1, i, 1)
	}
	g, err := b.Build()
	require.NoError(t, err)
	return g.Scale(1 / g.Sum())
}

func TestForcesPair(t *testing.T) {
	g, err := sparse.FromTriplets(2, []int{0, 1}, []int{1, 0}, []float64{0.5, 0.5})
	require.NoError(t, err)
	y := []float64{0, 0, 3, 4}
	out := make([]float64, 4)
	Forces(nil, g, y, 2, out)
	// q = 1/26
	assert.InDeltaSlice(t, []float64{-1.5 / 26, -2.0 / 26, 1.5 / 26, 2.0 / 26}, out, 1e-15)
}

func TestForcesSumToZeroOnSymmetricGraph(t *testing.T) {
	pool := parallel.New(3)
	defer pool.Close()
	g := chain(t, 40)
	rng := rand.New(rand.NewSource(1))
	for d := 1; d <= 3; d++ {
		y := make([]float64, 40*d)
		for i := range y {
			y[i] = rng.NormFloat64()
		}
		out := make([]float64, len(y))
		Forces(pool, g, y, d, out)
		for k := 0; k < d; k++ {
			var s float64
			for i := 0; i < 40; i++ {
				s += out[i*d+k]
			}
			assert.InDelta(t, 0, s, 1e-12, "d=%d dim %d", d, k)
		}
	}
}

func TestCost(t *testing.T) {
	g, err := sparse.FromTriplets(2, []int{0, 1}, []int{1, 0}, []float64{0.5, 0.5})
	require.NoError(t, err)
	y := []float64{0, 1}
	// Two points: q_ij = 1/2 each way, Z = 1, so Q = P and KL = 0.
	assert.InDelta(t, 0, Cost(nil, g, y, 1, 1), 1e-15)

	// Matches the direct definition on a chain.
	c := chain(t, 6)
	y = []float64{0, 1, 2.5, 2.7, 5, 9}
	var z float64
	for i := range y {
		for j := range y {
			if i != j {
				z += 1 / (1 + (y[i]-y[j])*(y[i]-y[j]))
			}
		}
	}
	var want float64
	for i := 0; i < c.N; i++ {
		cols, vals := c.Row(i)
		for e, j := range cols {
			q := 1 / (1 + (y[i]-y[j])*(y[i]-y[j])) / z
			want += vals[e] * math.Log(vals[e]/q)
		}
	}
	assert.InDelta(t, want, Cost(nil, c, y, 1, z), 1e-12)
}
