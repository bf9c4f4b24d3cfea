package affinity

import (
	"math"
	"math/rand"
	"testing"

	"github.com/matzehuels/sgtsnepi/pkg/errors"
	"github.com/matzehuels/sgtsnepi/pkg/parallel"
	"github.com/matzehuels/sgtsnepi/pkg/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomGraph(t *testing.T, n, deg int, seed int64) *sparse.Graph {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	b := sparse.NewBuilder(n)
	for i := 0; i < n; i++ {
		for e := 0; e < deg; e++ {
			b.Add(i, rng.Intn(n), rng.Float64()*5)
		}
	}
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestNormalizeRowSums(t *testing.T) {
	g := randomGraph(t, 40, 4, 1)
	p, _ := Normalize(g)
	for i := 0; i < p.N; i++ {
		if p.Degree(i) == 0 {
			continue
		}
		assert.InDelta(t, 1.0, p.RowSum(i), 1e-12, "row %d", i)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	g := randomGraph(t, 30, 3, 2)
	once, _ := Normalize(g)
	twice, stochastic := Normalize(once)

	nonEmpty := 0
	for i := 0; i < once.N; i++ {
		if once.Degree(i) > 0 {
			nonEmpty++
		}
	}
	assert.Equal(t, nonEmpty, stochastic)
	require.Equal(t, once.Col, twice.Col)
	for k := range once.Val {
		assert.InDelta(t, once.Val[k], twice.Val[k], 1e-12)
	}
}

func TestNormalizeLeavesEmptyRows(t *testing.T) {
	g, err := sparse.FromTriplets(3, []int{0}, []int{1}, []float64{4})
	require.NoError(t, err)
	p, stochastic := Normalize(g)
	assert.Equal(t, 0, stochastic)
	assert.Equal(t, 0, p.Degree(1))
	assert.Equal(t, 0, p.Degree(2))
	assert.Equal(t, []float64{1}, p.Val)
	assert.Equal(t, []float64{4}, g.Val, "input must not be modified")
}

func TestSymmetrize(t *testing.T) {
	g := randomGraph(t, 25, 3, 3)
	p, _ := Normalize(g)
	s := Symmetrize(p)
	assert.True(t, s.IsSymmetric(1e-15))
	assert.InDelta(t, p.Sum(), s.Sum(), 1e-9)
}

func TestDropLeafEdges(t *testing.T) {
	// 0→1 is the only out-edge of 0; 1 has two out-edges.
	g, err := sparse.FromTriplets(3, []int{0, 1, 1}, []int{1, 0, 2}, []float64{1, 1, 1})
	require.NoError(t, err)
	d := DropLeafEdges(g)
	assert.Equal(t, 0, d.Degree(0))
	assert.Equal(t, 2, d.Degree(1))
}

func TestRescaleLambda(t *testing.T) {
	pool := parallel.New(2)
	defer pool.Close()

	g := randomGraph(t, 50, 20, 4)
	p, _ := Normalize(g)
	const lambda = 3.0
	r := RescaleLambda(pool, p, lambda)

	for i := 0; i < r.N; i++ {
		if r.Degree(i) == 0 {
			continue
		}
		assert.InDelta(t, 1.0, r.RowSum(i), 1e-9)

		// The rescaled row is p^γ/Σp^γ, and Σp^γ = λ, so the solved
		// exponent reproduces λ from the original row.
		_, orig := p.Row(i)
		if float64(len(orig)) <= lambda {
			continue
		}
		gamma := solveGamma(orig, lambda)
		var s float64
		for _, v := range orig {
			s += math.Pow(v, gamma)
		}
		assert.InDelta(t, lambda, s, 1e-4, "row %d", i)
	}
}

func TestRescaleLambdaSmallRowsBecomeUniform(t *testing.T) {
	g, err := sparse.FromTriplets(3, []int{0, 0}, []int{1, 2}, []float64{0.9, 0.1})
	require.NoError(t, err)
	r := RescaleLambda(nil, g, 10)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, r.Val, 1e-12)

	same := RescaleLambda(nil, g, 0)
	assert.Equal(t, g.Val, same.Val)
}

func TestPrepare(t *testing.T) {
	b := sparse.NewBuilder(6)
	b.Add(0, 1, 2)
	b.Add(1, 0, 1)
	b.Add(1, 2, 3)
	b.Add(2, 3, 1)
	b.Add(3, 2, 1)
	b.Add(4, 4, 7)
	g, err := b.Build()
	require.NoError(t, err)

	p, stats, err := Prepare(g, PrepareOptions{Lambda: 1})
	require.NoError(t, err)
	assert.True(t, p.IsSymmetric(1e-15))
	assert.InDelta(t, 1.0, p.Sum(), 1e-12)
	assert.Equal(t, []int{4, 5}, stats.Isolated)
	assert.Equal(t, 2, stats.Stochastic)
	assert.Equal(t, p.NNZ(), stats.NNZ)
	for _, v := range p.Val {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestPrepareRejectsInvalid(t *testing.T) {
	_, _, err := Prepare(nil, PrepareOptions{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	bad := &sparse.Graph{N: 2, RowPtr: []int{0, 1, 1}, Col: []int{1}, Val: []float64{-1}}
	_, _, err = Prepare(bad, PrepareOptions{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}
