package affinity

import (
	"context"
	"math"

	"github.com/matzehuels/sgtsnepi/pkg/errors"
	"github.com/matzehuels/sgtsnepi/pkg/knn"
	"github.com/matzehuels/sgtsnepi/pkg/parallel"
	"github.com/matzehuels/sgtsnepi/pkg/sparse"
)

const (
	// DefaultPerplexity is the target effective neighbor count.
	DefaultPerplexity = 10.0

	calibrateTol   = 1e-5
	calibrateSteps = 200
)

// Options configures PointCloudToGraph.
type Options struct {
	// Perplexity u. Zero means DefaultPerplexity.
	Perplexity float64
	// K neighbors per point. Zero means ceil(3u).
	K int
	// Method selects exact or approximate neighbor search.
	Method knn.Method
	// Approx tunes the approximate search.
	Approx knn.ApproxOptions
	// Pool runs neighbor search and calibration. Nil runs serially.
	Pool *parallel.Pool
}

// Resolved returns the effective (u, k) for a cloud of n points. K
// defaults to ⌈3u⌉ and must not be smaller unless n−1 is; k is clamped to
// n−1 and u to k.
func (o Options) Resolved(n int) (u float64, k int, err error) {
	u = o.Perplexity
	if u == 0 {
		u = DefaultPerplexity
	}
	if !(u > 0) || math.IsInf(u, 0) {
		return 0, 0, errors.New(errors.ErrCodeConfiguration, "perplexity must be positive, got %v", o.Perplexity)
	}
	need := int(math.Ceil(3 * u))
	k = o.K
	if k == 0 {
		k = need
	}
	if k < 0 {
		return 0, 0, errors.New(errors.ErrCodeConfiguration, "neighbor count must be positive, got %d", o.K)
	}
	if k < need && k < n-1 {
		return 0, 0, errors.New(errors.ErrCodeConfiguration,
			"neighbor count %d is below 3·perplexity = %d; raise k or lower the perplexity", k, need)
	}
	if k > n-1 {
		k = n - 1
	}
	if u > float64(k) {
		u = float64(k)
	}
	return u, k, nil
}

// PointCloudToGraph builds the perplexity-calibrated kNN graph of x. Edge
// weights are the conditional probabilities p(j|i), so every non-empty row
// sums to one. The cloud is not modified.
func PointCloudToGraph(ctx context.Context, x knn.PointCloud, opts Options) (*sparse.Graph, error) {
	if err := x.Validate(); err != nil {
		return nil, err
	}
	if x.N == 1 {
		return sparse.Empty(1), nil
	}
	if x.Degenerate() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "all %d points are identical", x.N)
	}
	u, k, err := opts.Resolved(x.N)
	if err != nil {
		return nil, err
	}

	nb, err := knn.Search(ctx, x, knn.Options{K: k, Method: opts.Method, Approx: opts.Approx, Pool: opts.Pool})
	if err != nil {
		return nil, err
	}

	rows := make([]int, x.N*nb.K)
	cols := make([]int, x.N*nb.K)
	vals := make([]float64, x.N*nb.K)
	used := make([]int, x.N)
	target := math.Log(u)
	opts.Pool.For(x.N, func(_, lo, hi int) {
		p := make([]float64, nb.K)
		for i := lo; i < hi; i++ {
			idx, d2 := nb.Of(i)
			w := p[:len(idx)]
			Calibrate(d2, target, w)
			base := i * nb.K
			for e, j := range idx {
				rows[base+e] = i
				cols[base+e] = j
				vals[base+e] = w[e]
			}
			used[i] = len(idx)
		}
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Compact away unused slots of short rows.
	out := 0
	for i := 0; i < x.N; i++ {
		base := i * nb.K
		for e := 0; e < used[i]; e++ {
			rows[out], cols[out], vals[out] = rows[base+e], cols[base+e], vals[base+e]
			out++
		}
	}
	return sparse.FromTriplets(x.N, rows[:out], cols[:out], vals[:out])
}

// Calibrate finds the Gaussian precision β for one row of squared
// distances so that the entropy of p_j ∝ exp(-β d_j) equals target
// (natural log). It writes the normalized p into out and returns β and the
// number of bisection steps taken. Distances are shifted by their minimum
// so the largest weight is exactly one before normalization.
func Calibrate(dist2 []float64, target float64, out []float64) (beta float64, steps int) {
	if len(dist2) == 0 {
		return 0, 0
	}
	dmin := dist2[0]
	for _, d := range dist2 {
		dmin = min(dmin, d)
	}

	lo, hi := 0.0, math.Inf(1)
	beta = 1
	for steps = 1; steps <= calibrateSteps; steps++ {
		h := entropy(dist2, dmin, beta, out)
		diff := h - target
		if math.Abs(diff) < calibrateTol {
			break
		}
		if diff > 0 {
			lo = beta
			if math.IsInf(hi, 1) {
				beta *= 2
			} else {
				beta = (lo + hi) / 2
			}
		} else {
			hi = beta
			beta = (lo + hi) / 2
		}
	}
	if steps > calibrateSteps {
		steps = calibrateSteps
		entropy(dist2, dmin, beta, out)
	}
	return beta, steps
}

// entropy fills out with the normalized kernel row and returns its
// Shannon entropy.
func entropy(dist2 []float64, dmin, beta float64, out []float64) float64 {
	var sum, wsum float64
	for j, d := range dist2 {
		s := d - dmin
		p := math.Exp(-beta * s)
		out[j] = p
		sum += p
		wsum += p * s
	}
	for j := range out[:len(dist2)] {
		out[j] /= sum
	}
	return math.Log(sum) + beta*wsum/sum
}
