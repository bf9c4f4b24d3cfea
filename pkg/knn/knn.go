package knn

import (
	"context"
	"fmt"
	"strings"

	"github.com/matzehuels/sgtsnepi/pkg/errors"
	"github.com/matzehuels/sgtsnepi/pkg/parallel"
	"github.com/viterin/vek"
)

// ExactThreshold is the point count below which MethodAuto uses the exact
// search.
const ExactThreshold = 10000

// Method selects the neighbor search.
type Method int

const (
	MethodAuto Method = iota
	MethodExact
	MethodApproximate
)

func (m Method) String() string {
	switch m {
	case MethodAuto:
		return "auto"
	case MethodExact:
		return "exact"
	case MethodApproximate:
		return "approx"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod converts a CLI/config name to a Method.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return MethodAuto, nil
	case "exact", "brute":
		return MethodExact, nil
	case "approx", "approximate", "annoy", "rptree":
		return MethodApproximate, nil
	}
	return MethodAuto, errors.New(errors.ErrCodeConfiguration, "unknown kNN method %q (want auto, exact or approx)", s)
}

// Resolve returns the concrete method for a cloud of n points.
func (m Method) Resolve(n int) Method {
	if m != MethodAuto {
		return m
	}
	if n < ExactThreshold {
		return MethodExact
	}
	return MethodApproximate
}

// Neighbors holds K neighbors per point, flattened row-major. Entries past
// Count[i] in a row are unused.
type Neighbors struct {
	N     int
	K     int
	Index []int
	Dist2 []float64
	Count []int
}

func newNeighbors(n, k int) *Neighbors {
	return &Neighbors{
		N:     n,
		K:     k,
		Index: make([]int, n*k),
		Dist2: make([]float64, n*k),
		Count: make([]int, n),
	}
}

// Of returns the neighbor indices and squared distances of point i,
// nearest first.
func (nb *Neighbors) Of(i int) ([]int, []float64) {
	lo := i * nb.K
	hi := lo + nb.Count[i]
	return nb.Index[lo:hi], nb.Dist2[lo:hi]
}

// Options configures Search.
type Options struct {
	K      int
	Method Method
	Approx ApproxOptions
	Pool   *parallel.Pool
}

// Search dispatches to Exact or Approximate. K is clamped to N-1.
func Search(ctx context.Context, x PointCloud, opts Options) (*Neighbors, error) {
	if err := x.Validate(); err != nil {
		return nil, err
	}
	k := opts.K
	if k < 1 {
		return nil, errors.New(errors.ErrCodeConfiguration, "neighbor count must be positive, got %d", k)
	}
	if k > x.N-1 {
		k = x.N - 1
	}
	switch opts.Method.Resolve(x.N) {
	case MethodExact:
		return Exact(ctx, opts.Pool, x, k)
	case MethodApproximate:
		return Approximate(ctx, opts.Pool, x, k, opts.Approx)
	default:
		return nil, errors.New(errors.ErrCodeConfiguration, "unknown kNN method %v", opts.Method)
	}
}

// Exact computes the k nearest neighbors by brute force, parallel over
// query points.
func Exact(ctx context.Context, pool *parallel.Pool, x PointCloud, k int) (*Neighbors, error) {
	if k > x.N-1 {
		k = x.N - 1
	}
	if k < 0 {
		k = 0
	}
	nb := newNeighbors(x.N, k)
	if k == 0 {
		return nb, nil
	}
	pool.For(x.N, func(_, lo, hi int) {
		diff := make([]float64, x.D)
		h := newTopK(k)
		for i := lo; i < hi; i++ {
			if i%256 == 0 && ctx.Err() != nil {
				return
			}
			xi := x.Row(i)
			h.reset()
			for j := 0; j < x.N; j++ {
				if j == i {
					continue
				}
				h.push(j, sqDist(diff, xi, x.Row(j)))
			}
			nb.Count[i] = h.drain(nb.Index[i*k:(i+1)*k], nb.Dist2[i*k:(i+1)*k])
		}
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nb, nil
}

// sqDist returns ‖a−b‖² using scratch as the difference buffer.
func sqDist(scratch, a, b []float64) float64 {
	vek.Sub_Into(scratch, a, b)
	return vek.Dot(scratch, scratch)
}
