// Package attraction computes the attractive term of the t-SNE gradient
// over the sparse affinity graph, and the KL cost restricted to its edges.
package attraction

import (
	"math"

	"github.com/matzehuels/sgtsnepi/pkg/parallel"
	"github.com/matzehuels/sgtsnepi/pkg/sparse"
)

// Forces writes, for every vertex i,
//
//	out_i = Σ_j p_ij q_ij (y_i − y_j),   q_ij = 1 / (1 + ‖y_i − y_j‖²)
//
// Rows are processed in parallel blocks; each row writes only its own
// slot of out.
func Forces(pool *parallel.Pool, p *sparse.Graph, y []float64, d int, out []float64) {
	pool.For(p.N, func(_, lo, hi int) {
		var f, diff [3]float64
		for i := lo; i < hi; i++ {
			yi := y[i*d : i*d+d]
			f = [3]float64{}
			cols, vals := p.Row(i)
			for e, j := range cols {
				yj := y[j*d : j*d+d]
				var r2 float64
				for k := range yi {
					diff[k] = yi[k] - yj[k]
					r2 += diff[k] * diff[k]
				}
				w := vals[e] / (1 + r2)
				for k := 0; k < d; k++ {
					f[k] += w * diff[k]
				}
			}
			copy(out[i*d:i*d+d], f[:d])
		}
	})
}

// Cost returns KL(P‖Q) over the stored edges of P, where Q is the Student-t
// similarity normalized by z:
//
//	Σ p log p − Σ p log q + log z
//
// P should have unit mass.
func Cost(pool *parallel.Pool, p *sparse.Graph, y []float64, d int, z float64) float64 {
	blocks := pool.Blocks(p.N)
	partial := make([]float64, blocks)
	var mass float64
	pool.For(p.N, func(w, lo, hi int) {
		var c float64
		for i := lo; i < hi; i++ {
			yi := y[i*d : i*d+d]
			cols, vals := p.Row(i)
			for e, j := range cols {
				pij := vals[e]
				if pij <= 0 {
					continue
				}
				yj := y[j*d : j*d+d]
				var r2 float64
				for k := range yi {
					dk := yi[k] - yj[k]
					r2 += dk * dk
				}
				// −log q = log(1 + r²)
				c += pij * (math.Log(pij) + math.Log1p(r2))
			}
		}
		partial[w] = c
	})
	var c float64
	for _, v := range partial {
		c += v
	}
	for _, v := range p.Val {
		mass += v
	}
	return c + mass*math.Log(z)
}
