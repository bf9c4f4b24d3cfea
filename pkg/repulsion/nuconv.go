package repulsion

import (
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/matzehuels/sgtsnepi/pkg/errors"
	"github.com/matzehuels/sgtsnepi/pkg/grid"
)

// kernelCacheSize bounds the number of cached kernel spectra. Sizes only
// change when the embedding outgrows its grid, so a handful suffices.
const kernelCacheSize = 8

type kernelKey struct {
	shape   [3]int
	spacing [3]float64
}

// spectra holds the real DFTs of the two kernels on a padded lattice.
type spectra struct {
	k1 []float64 // 1/(1+r²)
	k2 []float64 // 1/(1+r²)²
}

// channel is one real signal convolved with one kernel.
type channel struct {
	src    int  // lattice channel: 0 = unit charge, 1..d = coordinates
	dst    int  // field slot
	cauchy bool // true for 1/(1+r²), false for its square
}

// NUConv evaluates repulsion by grid interpolation and FFT convolution.
type NUConv struct {
	cfg   Config
	spec  grid.Spec
	grid  *grid.Grid
	tr    *transformer
	cache *lru.Cache[kernelKey, *spectra]

	channels []channel

	charges []float64    // n·(d+1)
	lattice []float64    // (d+1)·nodes
	fields  []float64    // (d+2)·nodes
	phi     []float64    // n·(d+2)
	self    []float64    // n: interpolated self-interaction under 1/(1+r²)
	selfTab []float64    // 7^d: 1/(1+r²) at stencil offset differences
	sig     []complex128 // padded lattice
	res     []complex128 // padded lattice
}

// NewNUConv returns an FFT engine. cfg.MaxSize bounds the grid per
// dimension; leaving it zero keeps only the limit of the allowed sizes.
func NewNUConv(cfg Config) (*NUConv, error) {
	if err := errors.ValidateDims(cfg.Dims); err != nil {
		return nil, err
	}
	if cfg.H == 0 {
		cfg.H = 1
	}
	cache, err := lru.New[kernelKey, *spectra](kernelCacheSize)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "kernel cache")
	}
	d := cfg.Dims
	e := &NUConv{
		cfg:   cfg,
		spec:  grid.Spec{H: cfg.H, Allowed: cfg.GridSizes, MaxSize: cfg.MaxSize},
		cache: cache,
	}
	for c := 0; c <= d; c++ {
		e.channels = append(e.channels, channel{src: c, dst: c})
	}
	e.channels = append(e.channels, channel{src: 0, dst: d + 1, cauchy: true})
	return e, nil
}

// Repulsion implements Engine.
func (e *NUConv) Repulsion(y []float64, out []float64) (float64, Stats, error) {
	var stats Stats
	d := e.cfg.Dims
	n := len(y) / d
	pool := e.cfg.Pool

	t0 := time.Now()
	if e.grid == nil {
		g, err := grid.New(y, d, e.spec)
		if err != nil {
			return 0, stats, err
		}
		e.grid = g
	} else if err := e.grid.Reset(y, d, e.spec); err != nil {
		return 0, stats, err
	}
	g := e.grid
	nodes := g.Nodes()
	stats.GridSize = g.Size
	stats.Extent = g.Extent
	stats.Spacing = g.Spacing
	stats.Scale = g.Scale

	c := d + 1
	e.charges = growF(e.charges, n*c)
	for i := 0; i < n; i++ {
		e.charges[i*c] = 1
		copy(e.charges[i*c+1:i*c+c], y[i*d:i*d+d])
	}
	e.lattice = growF(e.lattice, c*nodes)
	g.Scatter(pool, e.charges, c, e.lattice)
	stats.Grid = time.Since(t0)

	t1 := time.Now()
	nf := d + 2
	e.fields = growF(e.fields, nf*nodes)
	e.convolve()
	stats.Convolve = time.Since(t1)

	t2 := time.Now()
	e.phi = growF(e.phi, n*nf)
	g.Gather(pool, e.fields, nf, e.phi)
	e.selfInteraction(n)

	// The interpolated field at a point includes the point's own charge
	// seen through the stencil twice. Its force part cancels exactly in
	// y·φ0 − φk; its Z part is removed with the per-point self term.
	var z float64
	for i := 0; i < n; i++ {
		phi := e.phi[i*nf : i*nf+nf]
		for k := 0; k < d; k++ {
			out[i*d+k] = y[i*d+k]*phi[0] - phi[1+k]
		}
		z += phi[d+1] - e.self[i]
	}
	stats.Gather = time.Since(t2)

	if math.IsNaN(z) || math.IsInf(z, 0) {
		return z, stats, errors.New(errors.ErrCodeNumericalInstability, "non-finite repulsion normalization")
	}
	// No pair is farther apart than the bounding box diagonal.
	var diag2 float64
	for k := 0; k < d; k++ {
		diag2 += g.Extent[k] * g.Extent[k]
	}
	if floor := float64(n) * float64(n-1) / (1 + diag2); z < floor {
		z = floor
	}
	return z, stats, nil
}

// selfInteraction fills e.self with Σ_u Σ_v w_u w_v K1(x_u − x_v) over the
// stencil nodes of every point. The weight products are separable, so the
// sum runs over the 7^d node offset differences.
func (e *NUConv) selfInteraction(n int) {
	g := e.grid
	d := e.cfg.Dims
	m := 1
	for k := 0; k < d; k++ {
		m *= 7
	}
	e.selfTab = growF(e.selfTab, m)
	tab := e.selfTab
	for idx := 0; idx < m; idx++ {
		var r2 float64
		rem := idx
		for k := d - 1; k >= 0; k-- {
			r := float64(rem%7-3) * g.Spacing[k]
			rem /= 7
			r2 += r * r
		}
		tab[idx] = 1 / (1 + r2)
	}

	e.self = growF(e.self, n)
	e.cfg.Pool.For(n, func(_, lo, hi int) {
		var corr [grid.MaxDims][7]float64
		for p := lo; p < hi; p++ {
			for k := 0; k < d; k++ {
				w := g.Weights(p, k)
				corr[k] = [7]float64{}
				for a := 0; a < 4; a++ {
					for b := 0; b < 4; b++ {
						corr[k][a-b+3] += w[a] * w[b]
					}
				}
			}
			var s float64
			for idx := 0; idx < m; idx++ {
				v := tab[idx]
				rem := idx
				for k := d - 1; k >= 0; k-- {
					v *= corr[k][rem%7]
					rem /= 7
				}
				s += v
			}
			e.self[p] = s
		}
	})
}

// padded returns the zero-padded lattice shape for circular convolution.
func (e *NUConv) padded() [3]int {
	var s [3]int
	for k := 0; k < 3; k++ {
		s[k] = 1
		if k < e.cfg.Dims {
			s[k] = 2 * e.grid.Size[k]
		}
	}
	return s
}

// convolve fills e.fields from e.lattice. Real channels are packed two per
// complex transform; when the two use different kernels the spectra are
// separated through the conjugate symmetry of real signals.
func (e *NUConv) convolve() {
	g := e.grid
	shape := e.padded()
	if e.tr == nil || e.tr.shape != shape {
		e.tr = newTransformer(shape, e.cfg.Pool)
	}
	tr := e.tr
	sp := e.kernels(shape)
	e.sig = growC(e.sig, tr.total)
	e.res = growC(e.res, tr.total)
	nodes := g.Nodes()
	pool := e.cfg.Pool

	for p := 0; p < len(e.channels); p += 2 {
		a := e.channels[p]
		var b *channel
		if p+1 < len(e.channels) {
			b = &e.channels[p+1]
		}

		clear(e.sig)
		pool.For(g.Size[0], func(_, lo, hi int) {
			for i0 := lo; i0 < hi; i0++ {
				for i1 := 0; i1 < g.Size[1]; i1++ {
					node := (i0*g.Size[1] + i1) * g.Size[2]
					pad := (i0*shape[1] + i1) * shape[2]
					for i2 := 0; i2 < g.Size[2]; i2++ {
						re := e.lattice[a.src*nodes+node+i2]
						var im float64
						if b != nil {
							im = e.lattice[b.src*nodes+node+i2]
						}
						e.sig[pad+i2] = complex(re, im)
					}
				}
			}
		})

		tr.forward(e.sig)
		ka := sp.pick(a.cauchy)
		if b == nil || b.cauchy == a.cauchy {
			for k, s := range e.sig {
				e.res[k] = s * complex(ka[k], 0)
			}
		} else {
			kb := sp.pick(b.cauchy)
			neg := tr.neg
			for k, s := range e.sig {
				sum := complex((ka[k]+kb[k])/2, 0)
				dif := complex((ka[k]-kb[k])/2, 0)
				sn := e.sig[neg[k]]
				e.res[k] = sum*s + dif*complex(real(sn), -imag(sn))
			}
		}
		tr.inverse(e.res)

		pool.For(g.Size[0], func(_, lo, hi int) {
			for i0 := lo; i0 < hi; i0++ {
				for i1 := 0; i1 < g.Size[1]; i1++ {
					node := (i0*g.Size[1] + i1) * g.Size[2]
					pad := (i0*shape[1] + i1) * shape[2]
					for i2 := 0; i2 < g.Size[2]; i2++ {
						v := e.res[pad+i2]
						e.fields[a.dst*nodes+node+i2] = real(v)
						if b != nil {
							e.fields[b.dst*nodes+node+i2] = imag(v)
						}
					}
				}
			}
		})
	}
}

func (s *spectra) pick(cauchy bool) []float64 {
	if cauchy {
		return s.k1
	}
	return s.k2
}

// kernels returns the cached kernel spectra for the current grid.
func (e *NUConv) kernels(shape [3]int) *spectra {
	key := kernelKey{shape: shape, spacing: e.grid.Spacing}
	if sp, ok := e.cache.Get(key); ok {
		return sp
	}
	tr := e.tr
	k1 := make([]complex128, tr.total)
	k2 := make([]complex128, tr.total)
	for i0 := 0; i0 < shape[0]; i0++ {
		r0 := wrapOffset(i0, shape[0]) * key.spacing[0]
		for i1 := 0; i1 < shape[1]; i1++ {
			r1 := wrapOffset(i1, shape[1]) * key.spacing[1]
			for i2 := 0; i2 < shape[2]; i2++ {
				r2 := wrapOffset(i2, shape[2]) * key.spacing[2]
				q := 1 / (1 + r0*r0 + r1*r1 + r2*r2)
				idx := (i0*shape[1]+i1)*shape[2] + i2
				k1[idx] = complex(q, 0)
				k2[idx] = complex(q*q, 0)
			}
		}
	}
	tr.forward(k1)
	tr.forward(k2)
	sp := &spectra{k1: make([]float64, tr.total), k2: make([]float64, tr.total)}
	for i := range k1 {
		// Both kernels are even on the periodic lattice, so their spectra
		// are real.
		sp.k1[i] = real(k1[i])
		sp.k2[i] = real(k2[i])
	}
	e.cache.Add(key, sp)
	return sp
}

// wrapOffset maps a periodic index to its distance from zero.
func wrapOffset(m, length int) float64 {
	if length == 1 {
		return 0
	}
	return float64(min(m, length-m))
}

func growF(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}

func growC(s []complex128, n int) []complex128 {
	if cap(s) < n {
		return make([]complex128, n)
	}
	return s[:n]
}
