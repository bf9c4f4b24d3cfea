package affinity

import (
	"math"

	"github.com/matzehuels/sgtsnepi/pkg/errors"
	"github.com/matzehuels/sgtsnepi/pkg/parallel"
	"github.com/matzehuels/sgtsnepi/pkg/sparse"
)

// StochasticTol is the row-sum tolerance under which a row already counts
// as stochastic.
const StochasticTol = 1e-9

// Normalize rescales every non-empty row to sum to one. Empty rows are left
// untouched. It also returns how many rows were already stochastic.
func Normalize(g *sparse.Graph) (*sparse.Graph, int) {
	out := g.Clone()
	stochastic := 0
	for i := 0; i < out.N; i++ {
		lo, hi := out.RowPtr[i], out.RowPtr[i+1]
		if lo == hi {
			continue
		}
		var s float64
		for k := lo; k < hi; k++ {
			s += out.Val[k]
		}
		if math.Abs(s-1) <= StochasticTol {
			stochastic++
		}
		if s == 0 {
			continue
		}
		for k := lo; k < hi; k++ {
			out.Val[k] /= s
		}
	}
	return out, stochastic
}

// Symmetrize returns (P + Pᵀ)/2.
func Symmetrize(g *sparse.Graph) *sparse.Graph {
	s, err := sparse.AddScaled(0.5, g, 0.5, g.Transpose())
	if err != nil {
		// Unreachable: a graph and its transpose share the vertex count.
		panic(err)
	}
	return s
}

// DropLeafEdges removes the out-edges of vertices whose out-degree is one.
func DropLeafEdges(g *sparse.Graph) *sparse.Graph {
	return g.Filter(func(i, _ int, _ float64) bool {
		return g.Degree(i) != 1
	})
}

// DropSelfLoops removes diagonal entries.
func DropSelfLoops(g *sparse.Graph) *sparse.Graph {
	return g.Filter(func(i, j int, _ float64) bool { return i != j })
}

const (
	lambdaTol   = 1e-5
	lambdaSteps = 100
	lambdaMaxG  = 1e6
)

// RescaleLambda applies the SG-t-SNE λ rescaling to a row-stochastic
// graph. For every row it finds γ ≥ 0 with Σ_j p_ij^γ = λ, replaces
// p_ij by p_ij^γ and renormalizes the row. Rows with degree ≤ λ get γ = 0,
// i.e. uniform weights. λ ≤ 0 returns the graph unchanged.
func RescaleLambda(pool *parallel.Pool, g *sparse.Graph, lambda float64) *sparse.Graph {
	out := g.Clone()
	if !(lambda > 0) {
		return out
	}
	pool.For(out.N, func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			a, b := out.RowPtr[i], out.RowPtr[i+1]
			if a == b {
				continue
			}
			row := out.Val[a:b]
			gamma := solveGamma(row, lambda)
			var s float64
			for k, p := range row {
				if gamma == 0 {
					row[k] = 1
				} else {
					row[k] = math.Pow(p, gamma)
				}
				s += row[k]
			}
			if s > 0 {
				for k := range row {
					row[k] /= s
				}
			}
		}
	})
	return out
}

// solveGamma bisects f(γ) = Σ p^γ − λ, which decreases in γ for p ≤ 1.
func solveGamma(row []float64, lambda float64) float64 {
	if float64(len(row)) <= lambda {
		return 0
	}
	f := func(g float64) float64 {
		var s float64
		for _, p := range row {
			s += math.Pow(p, g)
		}
		return s - lambda
	}
	lo, hi := 0.0, 1.0
	for f(hi) > 0 && hi < lambdaMaxG {
		lo = hi
		hi *= 2
	}
	mid := hi
	for step := 0; step < lambdaSteps; step++ {
		mid = (lo + hi) / 2
		v := f(mid)
		if math.Abs(v) < lambdaTol {
			break
		}
		if v > 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return mid
}

// PrepareOptions configures Prepare.
type PrepareOptions struct {
	// Lambda enables λ rescaling when positive.
	Lambda float64
	// DropLeaf removes out-edges of degree-one vertices.
	DropLeaf bool
	// Pool runs the per-row λ solve. Nil runs serially.
	Pool *parallel.Pool
}

// PrepareStats summarizes what Prepare did.
type PrepareStats struct {
	Stochastic int   // rows of the input that were already stochastic
	NNZ        int   // stored edges of the result
	Isolated   []int // vertices with no edges after preparation
}

// Prepare converts a raw adjacency or kNN graph into the symmetric,
// unit-mass affinity matrix consumed by the optimizer.
func Prepare(g *sparse.Graph, opts PrepareOptions) (*sparse.Graph, PrepareStats, error) {
	var stats PrepareStats
	if g == nil {
		return nil, stats, errors.New(errors.ErrCodeInvalidInput, "graph is nil")
	}
	p := DropSelfLoops(g)
	if err := p.Validate(); err != nil {
		return nil, stats, err
	}
	if opts.DropLeaf {
		p = DropLeafEdges(p)
	}
	p, stats.Stochastic = Normalize(p)
	if opts.Lambda > 0 {
		p = RescaleLambda(opts.Pool, p, opts.Lambda)
	}
	p = Symmetrize(p)
	if s := p.Sum(); s > 0 {
		p = p.Scale(1 / s)
	}
	stats.NNZ = p.NNZ()
	stats.Isolated = p.Isolated()
	return p, stats, nil
}
