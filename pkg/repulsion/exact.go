package repulsion

import (
	"time"

	"github.com/matzehuels/sgtsnepi/pkg/parallel"
)

// Exact sums the repulsive kernel over all pairs.
type Exact struct {
	d    int
	pool *parallel.Pool
	zbuf []float64
}

// NewExact returns the all-pairs engine.
func NewExact(d int, pool *parallel.Pool) *Exact {
	return &Exact{d: d, pool: pool}
}

// Repulsion implements Engine. Z partial sums are reduced in block order,
// so results do not depend on scheduling.
func (e *Exact) Repulsion(y []float64, out []float64) (float64, Stats, error) {
	start := time.Now()
	d := e.d
	n := len(y) / d
	blocks := e.pool.Blocks(n)
	if cap(e.zbuf) < blocks {
		e.zbuf = make([]float64, blocks)
	}
	zb := e.zbuf[:blocks]
	clear(zb)
	e.pool.For(n, func(w, lo, hi int) {
		var z float64
		var f [3]float64
		for i := lo; i < hi; i++ {
			yi := y[i*d : i*d+d]
			f = [3]float64{}
			for j := 0; j < n; j++ {
				if j == i {
					continue
				}
				yj := y[j*d : j*d+d]
				var r2 float64
				var diff [3]float64
				for k := range yi {
					diff[k] = yi[k] - yj[k]
					r2 += diff[k] * diff[k]
				}
				q := 1 / (1 + r2)
				z += q
				q2 := q * q
				for k := 0; k < d; k++ {
					f[k] += q2 * diff[k]
				}
			}
			copy(out[i*d:i*d+d], f[:d])
		}
		zb[w] = z
	})
	var z float64
	for _, v := range zb {
		z += v
	}
	return z, Stats{Convolve: time.Since(start)}, nil
}
