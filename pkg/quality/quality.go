// Package quality measures how well an embedding preserves the structure
// of its input graph.
package quality

import (
	"context"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/matzehuels/sgtsnepi/pkg/affinity"
	"github.com/matzehuels/sgtsnepi/pkg/errors"
	"github.com/matzehuels/sgtsnepi/pkg/knn"
	"github.com/matzehuels/sgtsnepi/pkg/parallel"
	"github.com/matzehuels/sgtsnepi/pkg/sparse"
)

// DefaultRecallK is the embedding neighborhood size used by NeighborRecall
// when k is zero.
const DefaultRecallK = 10

// Ranks returns the fractional ranks of x (1-based, ties averaged).
func Ranks(x []float64) []float64 {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })
	r := make([]float64, len(x))
	for lo := 0; lo < len(idx); {
		hi := lo + 1
		for hi < len(idx) && x[idx[hi]] == x[idx[lo]] {
			hi++
		}
		avg := float64(lo+hi+1) / 2
		for _, i := range idx[lo:hi] {
			r[i] = avg
		}
		lo = hi
	}
	return r
}

// Spearman returns the rank correlation of x and y.
func Spearman(x, y []float64) float64 {
	return stat.Correlation(Ranks(x), Ranks(y), nil)
}

// NeighborRecall returns, for every vertex i, the stochastic recall
//
//	recall(i) = Σ_j p(j|i) b_ij
//
// where p(j|i) are the row-normalized weights of g and B is the k-nearest
// neighbor adjacency of the embedding y (n×d, Euclidean). Vertices without
// edges in g get recall 0.
func NeighborRecall(ctx context.Context, pool *parallel.Pool, g *sparse.Graph, y []float64, d, k int) ([]float64, error) {
	if g == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "graph is nil")
	}
	if err := errors.ValidateDims(d); err != nil {
		return nil, err
	}
	if len(y) != g.N*d {
		return nil, errors.New(errors.ErrCodeInvalidInput, "embedding has %d values, want %d×%d", len(y), g.N, d)
	}
	if k == 0 {
		k = DefaultRecallK
	}
	pc, err := knn.NewPointCloud(g.N, d, y)
	if err != nil {
		return nil, err
	}
	nb, err := knn.Search(ctx, pc, knn.Options{K: k, Method: knn.MethodExact, Pool: pool})
	if err != nil {
		return nil, err
	}
	p, _ := affinity.Normalize(affinity.DropSelfLoops(g))

	recall := make([]float64, g.N)
	pool.For(g.N, func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			cols, vals := p.Row(i)
			idx, _ := nb.Of(i)
			var s float64
			for _, j := range idx {
				// Rows are sorted by column.
				e := sort.SearchInts(cols, j)
				if e < len(cols) && cols[e] == j {
					s += vals[e]
				}
			}
			recall[i] = s
		}
	})
	return recall, nil
}

// Histogram bins values in [0, 1] into the given number of equal-width
// bins. The last bin includes 1.
func Histogram(values []float64, bins int) ([]float64, error) {
	if bins <= 0 {
		return nil, errors.New(errors.ErrCodeConfiguration, "bins must be positive, got %d", bins)
	}
	dividers := make([]float64, bins+1)
	floats.Span(dividers, 0, 1)
	// stat.Histogram treats the upper divider as exclusive.
	dividers[bins] = 1 + 1e-12
	x := make([]float64, 0, len(values))
	for _, v := range values {
		if v < 0 || v > 1 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "value %v outside [0, 1]", v)
		}
		x = append(x, v)
	}
	sort.Float64s(x)
	return stat.Histogram(nil, dividers, x, nil), nil
}

// Mean returns the arithmetic mean of values.
func Mean(values []float64) float64 {
	return stat.Mean(values, nil)
}
