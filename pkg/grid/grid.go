package grid

import (
	"math"

	"github.com/matzehuels/sgtsnepi/pkg/errors"
	"github.com/matzehuels/sgtsnepi/pkg/parallel"
)

// MaxDims is the highest supported dimension.
const MaxDims = 3

// Spec controls lattice construction.
type Spec struct {
	// H is the target cell size in embedding units.
	H float64
	// Allowed node counts per dimension. Empty means DefaultSizes().
	Allowed []int
	// MaxSize caps the node count per dimension. Zero means no cap
	// beyond the largest allowed size.
	MaxSize int
}

// Grid is a uniform lattice over a point set together with the stencil
// of every point. A Grid can be rebuilt in place with Reset.
type Grid struct {
	D       int
	Size    [MaxDims]int     // nodes per dimension
	Lo      [MaxDims]float64 // smallest point coordinate
	Extent  [MaxDims]float64 // max − min of the point coordinates
	Spacing [MaxDims]float64 // node spacing
	Scale   [MaxDims]float64 // Spacing / H
	Capped  [MaxDims]bool    // size limited by MaxSize or the allowed list

	n      int
	base   []int     // n·D: first stencil node per point and dimension
	w      []float64 // n·D·4: stencil weights
	order  []int     // points sorted by base in dimension 0
	bucket []int     // offsets into order per dimension-0 base value
}

// New builds the lattice for n = len(y)/d points.
func New(y []float64, d int, spec Spec) (*Grid, error) {
	g := &Grid{}
	if err := g.Reset(y, d, spec); err != nil {
		return nil, err
	}
	return g, nil
}

// Reset rebuilds the lattice for new coordinates, reusing buffers where
// the point count allows.
func (g *Grid) Reset(y []float64, d int, spec Spec) error {
	if d < 1 || d > MaxDims {
		return errors.New(errors.ErrCodeConfiguration, "grid dimension must be 1..%d, got %d", MaxDims, d)
	}
	if !(spec.H > 0) {
		return errors.New(errors.ErrCodeConfiguration, "grid cell size must be positive, got %v", spec.H)
	}
	if len(y)%d != 0 || len(y) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "coordinate array of length %d is not a non-empty multiple of %d", len(y), d)
	}
	allowed := spec.Allowed
	if len(allowed) == 0 {
		allowed = DefaultSizes()
	}
	limit := spec.MaxSize
	if limit <= 0 {
		limit = math.MaxInt
	}

	n := len(y) / d
	g.D = d
	g.n = n
	g.Size = [MaxDims]int{1, 1, 1}
	g.Capped = [MaxDims]bool{}
	for k := 0; k < d; k++ {
		lo, hi := y[k], y[k]
		for i := 1; i < n; i++ {
			v := y[i*d+k]
			lo = min(lo, v)
			hi = max(hi, v)
		}
		ext := hi - lo
		if math.IsNaN(ext) || math.IsInf(ext, 0) {
			return errors.New(errors.ErrCodeNumericalInstability, "non-finite grid extent in dimension %d", k)
		}
		need := int(math.Floor(ext/spec.H)) + 4
		size, capped := pick(allowed, need, limit)
		if size == 0 {
			return errors.New(errors.ErrCodeConfiguration, "no allowed grid size ≥ 4 within cap %d", spec.MaxSize)
		}
		spacing := spec.H
		if capped {
			if size <= 4 {
				return errors.New(errors.ErrCodeConfiguration, "largest allowed grid size %d cannot cover extent %v", size, ext)
			}
			spacing = ext / float64(size-4)
		}
		g.Size[k] = size
		g.Lo[k] = lo
		g.Extent[k] = ext
		g.Spacing[k] = spacing
		g.Scale[k] = spacing / spec.H
		g.Capped[k] = capped
	}

	g.base = grow(g.base, n*d)
	g.w = growF(g.w, n*d*4)
	for i := 0; i < n; i++ {
		for k := 0; k < d; k++ {
			t := (y[i*d+k]-g.Lo[k])/g.Spacing[k] + 1
			b := int(math.Floor(t)) - 1
			b = min(max(b, 0), g.Size[k]-4)
			delta := t - float64(b+1)
			g.base[i*d+k] = b
			weights(delta, g.w[(i*d+k)*4:(i*d+k)*4+4])
		}
	}

	// Counting sort by dimension-0 base, stable in point index.
	nb := g.Size[0] - 3
	g.bucket = grow(g.bucket, nb+1)
	clear(g.bucket)
	for i := 0; i < n; i++ {
		g.bucket[g.base[i*d]+1]++
	}
	for b := 0; b < nb; b++ {
		g.bucket[b+1] += g.bucket[b]
	}
	g.order = grow(g.order, n)
	next := make([]int, nb)
	copy(next, g.bucket[:nb])
	for i := 0; i < n; i++ {
		b := g.base[i*d]
		g.order[next[b]] = i
		next[b]++
	}
	return nil
}

// Points returns the number of points the stencils were built for.
func (g *Grid) Points() int {
	return g.n
}

// Nodes returns the total node count of one channel.
func (g *Grid) Nodes() int {
	return g.Size[0] * g.Size[1] * g.Size[2]
}

// strides returns the flat index step per dimension.
func (g *Grid) strides() (s0, s1 int) {
	return g.Size[1] * g.Size[2], g.Size[2]
}

// Scatter spreads c charges per point (point-major, len n·c) onto c
// lattices written channel by channel into out (len c·Nodes). out is
// overwritten. Work is split into dimension-0 slabs so every node is
// written by exactly one worker and the sum order is fixed.
func (g *Grid) Scatter(pool *parallel.Pool, charges []float64, c int, out []float64) {
	nodes := g.Nodes()
	clear(out[:c*nodes])
	s0, s1 := g.strides()
	d := g.D
	pool.For(g.Size[0], func(_, a, b int) {
		plo := g.bucket[max(a-3, 0)]
		phi := g.bucket[min(b, g.Size[0]-3)]
		for _, p := range g.order[plo:phi] {
			b0 := g.base[p*d]
			w0 := g.w[p*d*4 : p*d*4+4]
			q := charges[p*c : p*c+c]
			for u := 0; u < 4; u++ {
				i0 := b0 + u
				if i0 < a || i0 >= b {
					continue
				}
				if d == 1 {
					for ch, v := range q {
						out[ch*nodes+i0] += w0[u] * v
					}
					continue
				}
				b1 := g.base[p*d+1]
				w1 := g.w[(p*d+1)*4 : (p*d+1)*4+4]
				for v1 := 0; v1 < 4; v1++ {
					row := i0*s0 + (b1+v1)*s1
					if d == 2 {
						ww := w0[u] * w1[v1]
						for ch, v := range q {
							out[ch*nodes+row] += ww * v
						}
						continue
					}
					b2 := g.base[p*d+2]
					w2 := g.w[(p*d+2)*4 : (p*d+2)*4+4]
					for v2 := 0; v2 < 4; v2++ {
						ww := w0[u] * w1[v1] * w2[v2]
						idx := row + b2 + v2
						for ch, v := range q {
							out[ch*nodes+idx] += ww * v
						}
					}
				}
			}
		}
	})
}

// Gather interpolates c lattices (channel by channel, len c·Nodes) at
// every point, writing point-major values into out (len n·c).
func (g *Grid) Gather(pool *parallel.Pool, field []float64, c int, out []float64) {
	nodes := g.Nodes()
	s0, s1 := g.strides()
	d := g.D
	pool.For(g.n, func(_, lo, hi int) {
		for p := lo; p < hi; p++ {
			dst := out[p*c : p*c+c]
			clear(dst)
			b0 := g.base[p*d]
			w0 := g.w[p*d*4 : p*d*4+4]
			for u := 0; u < 4; u++ {
				i0 := b0 + u
				if d == 1 {
					for ch := range dst {
						dst[ch] += w0[u] * field[ch*nodes+i0]
					}
					continue
				}
				b1 := g.base[p*d+1]
				w1 := g.w[(p*d+1)*4 : (p*d+1)*4+4]
				for v1 := 0; v1 < 4; v1++ {
					row := i0*s0 + (b1+v1)*s1
					if d == 2 {
						ww := w0[u] * w1[v1]
						for ch := range dst {
							dst[ch] += ww * field[ch*nodes+row]
						}
						continue
					}
					b2 := g.base[p*d+2]
					w2 := g.w[(p*d+2)*4 : (p*d+2)*4+4]
					for v2 := 0; v2 < 4; v2++ {
						ww := w0[u] * w1[v1] * w2[v2]
						idx := row + b2 + v2
						for ch := range dst {
							dst[ch] += ww * field[ch*nodes+idx]
						}
					}
				}
			}
		}
	})
}

// Weights returns the four stencil weights of point p in dimension k,
// ordered from the stencil's first node.
func (g *Grid) Weights(p, k int) []float64 {
	i := (p*g.D + k) * 4
	return g.w[i : i+4 : i+4]
}

// NodeCoord returns the embedding coordinate of node m in dimension k.
func (g *Grid) NodeCoord(k, m int) float64 {
	return g.Lo[k] + float64(m-1)*g.Spacing[k]
}

func grow(s []int, n int) []int {
	if cap(s) < n {
		return make([]int, n)
	}
	return s[:n]
}

func growF(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}
