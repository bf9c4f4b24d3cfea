package repulsion

import (
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/matzehuels/sgtsnepi/pkg/parallel"
)

// plan wraps a 1-D complex FFT with line buffers. gonum plans carry
// internal work space, so each worker owns its own.
type plan struct {
	fft   *fourier.CmplxFFT
	scale float64 // makes Sequence(Coefficients(x)) == x
	in    []complex128
	out   []complex128
}

func newPlan(n int) *plan {
	p := &plan{
		fft: fourier.NewCmplxFFT(n),
		in:  make([]complex128, n),
		out: make([]complex128, n),
	}
	// Measure the round-trip normalization on a unit impulse.
	p.in[0] = 1
	p.fft.Coefficients(p.out, p.in)
	p.fft.Sequence(p.in, p.out)
	p.scale = 1 / real(p.in[0])
	clear(p.in)
	return p
}

// transformer applies separable N-D FFTs over a row-major lattice whose
// first dimension varies slowest.
type transformer struct {
	shape [3]int
	total int
	pool  *parallel.Pool
	plans [][3]*plan
	neg   []int // flat index of the point reflection −m mod shape
}

func newTransformer(shape [3]int, pool *parallel.Pool) *transformer {
	t := &transformer{shape: shape, total: shape[0] * shape[1] * shape[2], pool: pool}
	t.plans = make([][3]*plan, pool.Size())
	t.neg = make([]int, t.total)
	for i0 := 0; i0 < shape[0]; i0++ {
		n0 := (shape[0] - i0) % shape[0]
		for i1 := 0; i1 < shape[1]; i1++ {
			n1 := (shape[1] - i1) % shape[1]
			for i2 := 0; i2 < shape[2]; i2++ {
				n2 := (shape[2] - i2) % shape[2]
				t.neg[(i0*shape[1]+i1)*shape[2]+i2] = (n0*shape[1]+n1)*shape[2] + n2
			}
		}
	}
	return t
}

func (t *transformer) plan(w, k int) *plan {
	if t.plans[w][k] == nil {
		t.plans[w][k] = newPlan(t.shape[k])
	}
	return t.plans[w][k]
}

// forward replaces data with its unnormalized N-D DFT.
func (t *transformer) forward(data []complex128) {
	t.apply(data, false)
}

// inverse replaces data with its normalized inverse N-D DFT.
func (t *transformer) inverse(data []complex128) {
	t.apply(data, true)
}

func (t *transformer) apply(data []complex128, inverse bool) {
	stride := 1
	for k := 2; k >= 0; k-- {
		length := t.shape[k]
		if length > 1 {
			st := stride
			lines := t.total / length
			t.pool.For(lines, func(w, lo, hi int) {
				p := t.plan(w, k)
				for l := lo; l < hi; l++ {
					start := (l/st)*length*st + l%st
					for m := 0; m < length; m++ {
						p.in[m] = data[start+m*st]
					}
					if inverse {
						p.fft.Sequence(p.out, p.in)
						s := complex(p.scale, 0)
						for m := 0; m < length; m++ {
							data[start+m*st] = p.out[m] * s
						}
					} else {
						p.fft.Coefficients(p.out, p.in)
						for m := 0; m < length; m++ {
							data[start+m*st] = p.out[m]
						}
					}
				}
			})
		}
		stride *= length
	}
}
