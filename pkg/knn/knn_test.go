package knn

import (
	"context"
	"math/rand"
	"testing"

	"github.com/matzehuels/sgtsnepi/pkg/errors"
	"github.com/matzehuels/sgtsnepi/pkg/parallel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomCloud(t *testing.T, n, d int, seed int64) PointCloud {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, n*d)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	pc, err := NewPointCloud(n, d, data)
	require.NoError(t, err)
	return pc
}

func TestExactLine(t *testing.T) {
	pc, err := FromRows([][]float64{{0}, {1}, {3}, {6}, {10}})
	require.NoError(t, err)

	nb, err := Exact(context.Background(), nil, pc, 2)
	require.NoError(t, err)

	idx, dist := nb.Of(2)
	assert.Equal(t, []int{1, 0}, idx)
	assert.Equal(t, []float64{4, 9}, dist)

	idx, _ = nb.Of(4)
	assert.Equal(t, []int{3, 2}, idx)
}

func TestExactTieBreakByIndex(t *testing.T) {
	pc, err := FromRows([][]float64{{0}, {1}, {-1}, {2}})
	require.NoError(t, err)
	nb, err := Exact(context.Background(), nil, pc, 2)
	require.NoError(t, err)
	idx, _ := nb.Of(0)
	assert.Equal(t, []int{1, 2}, idx)
}

func TestExactParallelMatchesSerial(t *testing.T) {
	pc := randomCloud(t, 300, 4, 1)
	pool := parallel.New(4)
	defer pool.Close()

	serial, err := Exact(context.Background(), nil, pc, 7)
	require.NoError(t, err)
	par, err := Exact(context.Background(), pool, pc, 7)
	require.NoError(t, err)
	assert.Equal(t, serial.Index, par.Index)
	assert.Equal(t, serial.Dist2, par.Dist2)
}

func TestApproximateRecall(t *testing.T) {
	pc := randomCloud(t, 600, 5, 2)
	pool := parallel.New(4)
	defer pool.Close()

	exact, err := Exact(context.Background(), pool, pc, 10)
	require.NoError(t, err)
	approx, err := Approximate(context.Background(), pool, pc, 10, ApproxOptions{Seed: 3})
	require.NoError(t, err)

	hits := 0
	for i := 0; i < pc.N; i++ {
		want := map[int]bool{}
		idx, _ := exact.Of(i)
		for _, j := range idx {
			want[j] = true
		}
		got, dist := approx.Of(i)
		require.Len(t, got, 10)
		for p, j := range got {
			require.NotEqual(t, i, j)
			if p > 0 {
				require.LessOrEqual(t, dist[p-1], dist[p])
			}
			if want[j] {
				hits++
			}
		}
	}
	recall := float64(hits) / float64(pc.N*10)
	assert.Greater(t, recall, 0.85)
}

func TestApproximateDeterministic(t *testing.T) {
	pc := randomCloud(t, 400, 3, 4)
	pool := parallel.New(3)
	defer pool.Close()

	a, err := Approximate(context.Background(), pool, pc, 6, ApproxOptions{Seed: 9})
	require.NoError(t, err)
	b, err := Approximate(context.Background(), nil, pc, 6, ApproxOptions{Seed: 9})
	require.NoError(t, err)
	assert.Equal(t, a.Index, b.Index)
}

func TestApproximateFillsShortLists(t *testing.T) {
	pc := randomCloud(t, 50, 2, 5)
	nb, err := Approximate(context.Background(), nil, pc, 40, ApproxOptions{Trees: 1, LeafSize: 4, Refine: -1, Seed: 1})
	require.NoError(t, err)
	for i := 0; i < pc.N; i++ {
		idx, _ := nb.Of(i)
		assert.Len(t, idx, 40)
		seen := map[int]bool{}
		for _, j := range idx {
			assert.False(t, seen[j], "duplicate neighbor %d of %d", j, i)
			seen[j] = true
		}
	}
}

func TestSearchClampsK(t *testing.T) {
	pc := randomCloud(t, 4, 2, 6)
	nb, err := Search(context.Background(), pc, Options{K: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, nb.K)
}

func TestSearchValidation(t *testing.T) {
	_, err := Search(context.Background(), PointCloud{}, Options{K: 3})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, err = FromRows([][]float64{{1, 2}, {3}})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	pc := randomCloud(t, 5, 2, 7)
	_, err = Search(context.Background(), pc, Options{K: 0})
	assert.True(t, errors.Is(err, errors.ErrCodeConfiguration))
}

func TestSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Search(ctx, randomCloud(t, 50, 2, 8), Options{K: 3, Method: MethodExact})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseMethod(t *testing.T) {
	for in, want := range map[string]Method{"": MethodAuto, "exact": MethodExact, "approx": MethodApproximate, "Annoy": MethodApproximate} {
		got, err := ParseMethod(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMethod("hnsw")
	assert.Error(t, err)

	assert.Equal(t, MethodExact, MethodAuto.Resolve(ExactThreshold-1))
	assert.Equal(t, MethodApproximate, MethodAuto.Resolve(ExactThreshold))
}

func TestDegenerate(t *testing.T) {
	pc, err := FromRows([][]float64{{1, 1}, {1, 1}, {1, 1}})
	require.NoError(t, err)
	assert.True(t, pc.Degenerate())
	pc, err = FromRows([][]float64{{1, 1}, {1, 2}})
	require.NoError(t, err)
	assert.False(t, pc.Degenerate())
}
