package repulsion

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/matzehuels/sgtsnepi/pkg/errors"
	"github.com/matzehuels/sgtsnepi/pkg/parallel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoClusters returns 50 points in two Gaussian blobs at ±10 along the
// first axis.
func twoClusters(d int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	const n = 50
	y := make([]float64, n*d)
	for i := 0; i < n; i++ {
		cx := -10.0
		if i >= n/2 {
			cx = 10
		}
		y[i*d] = cx + 3*rng.NormFloat64()
		for k := 1; k < d; k++ {
			y[i*d+k] = 3 * rng.NormFloat64()
		}
	}
	return y
}

func relErr(got, want []float64) float64 {
	var num, den float64
	for i := range want {
		num += (got[i] - want[i]) * (got[i] - want[i])
		den += want[i] * want[i]
	}
	return math.Sqrt(num / den)
}

func TestNUConvMatchesExact(t *testing.T) {
	pool := parallel.New(4)
	defer pool.Close()

	zTol := map[int]float64{1: 0.05, 2: 0.05, 3: 0.12}
	for d := 1; d <= 3; d++ {
		for seed := int64(0); seed < 3; seed++ {
			y := twoClusters(d, seed)
			want := make([]float64, len(y))
			zx, _, err := NewExact(d, pool).Repulsion(y, want)
			require.NoError(t, err)

			eng, err := New(ModeNUConv, len(y)/d, Config{Dims: d, Pool: pool, H: 0.5})
			require.NoError(t, err)
			got := make([]float64, len(y))
			z, stats, err := eng.Repulsion(y, got)
			require.NoError(t, err)

			assert.Less(t, relErr(got, want), 0.1, "d=%d seed=%d force error", d, seed)
			assert.Less(t, math.Abs(z-zx)/zx, zTol[d], "d=%d seed=%d Z error", d, seed)
			for k := 0; k < d; k++ {
				assert.GreaterOrEqual(t, stats.GridSize[k], 16)
				assert.Equal(t, 1.0, stats.Scale[k])
			}
		}
	}
}

// spread returns y scaled by f.
func spread(y []float64, f float64) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = f * v
	}
	return out
}

func TestBandLimitedMatchesExact(t *testing.T) {
	pool := parallel.New(4)
	defer pool.Close()

	for d := 1; d <= 2; d++ {
		for _, f := range []float64{1, 4} {
			for seed := int64(0); seed < 3; seed++ {
				y := spread(twoClusters(d, seed), f)
				want := make([]float64, len(y))
				zx, _, err := NewExact(d, pool).Repulsion(y, want)
				require.NoError(t, err)

				eng, err := New(ModeBandLimited, len(y)/d, Config{Dims: d, Pool: pool})
				require.NoError(t, err)
				got := make([]float64, len(y))
				z, _, err := eng.Repulsion(y, got)
				require.NoError(t, err)

				assert.Less(t, relErr(got, want), 0.25, "d=%d spread=%v seed=%d force error", d, f, seed)
				assert.Less(t, math.Abs(z-zx)/zx, 0.08, "d=%d spread=%v seed=%d Z error", d, f, seed)
			}
		}
	}
}

func TestNUConvExcludesSelfInteraction(t *testing.T) {
	// Three points far apart compared to the grid spacing: their pairwise
	// kernel values are tiny while each point's own stencil still sees a
	// value close to one.
	pts := [][]float64{{0, 0, 0}, {30.3, 4.7, 8.1}, {12.6, 27.1, -5.3}}
	for d := 1; d <= 3; d++ {
		y := make([]float64, 0, 3*d)
		for _, p := range pts {
			y = append(y, p[:d]...)
		}
		want := make([]float64, len(y))
		zx, _, err := NewExact(d, nil).Repulsion(y, want)
		require.NoError(t, err)

		for _, mode := range []Mode{ModeNUConv, ModeBandLimited} {
			eng, err := New(mode, 3, Config{Dims: d})
			require.NoError(t, err)
			got := make([]float64, len(y))
			z, _, err := eng.Repulsion(y, got)
			require.NoError(t, err)
			assert.InEpsilon(t, zx, z, 1e-3, "d=%d mode=%v Z", d, mode)
			assert.Less(t, relErr(got, want), 1e-2, "d=%d mode=%v force", d, mode)
		}
	}
}

func TestNUConvZStaysPositive(t *testing.T) {
	// A coarse capped grid over a wide layout still yields a positive Z.
	y := spread(twoClusters(2, 3), 20)
	eng, err := New(ModeBandLimited, 50, Config{Dims: 2, MaxSize: 16})
	require.NoError(t, err)
	out := make([]float64, len(y))
	z, _, err := eng.Repulsion(y, out)
	require.NoError(t, err)
	assert.Greater(t, z, 0.0)
}

func TestBandLimitedCapsGrid(t *testing.T) {
	y := twoClusters(2, 7)
	eng, err := New(ModeBandLimited, 50, Config{Dims: 2, H: 0.1, MaxSize: 32})
	require.NoError(t, err)
	out := make([]float64, len(y))
	z, stats, err := eng.Repulsion(y, out)
	require.NoError(t, err)

	assert.Equal(t, 32, stats.GridSize[0])
	assert.Greater(t, stats.Scale[0], 1.0)
	assert.InDelta(t, stats.Extent[0]/28, stats.Spacing[0], 1e-12)
	assert.Greater(t, z, 0.0)
	require.NoError(t, errors.ValidateFinite("force", out))

	// Default caps still leave the toy problem uncapped at h = 1.
	eng, err = New(ModeBandLimited, 50, Config{Dims: 2})
	require.NoError(t, err)
	_, stats, err = eng.Repulsion(y, out)
	require.NoError(t, err)
	assert.Equal(t, 1.0, stats.Scale[0])
}

func TestNUConvReusesAcrossCalls(t *testing.T) {
	eng, err := NewNUConv(Config{Dims: 2, H: 0.5})
	require.NoError(t, err)
	y := twoClusters(2, 1)
	a := make([]float64, len(y))
	b := make([]float64, len(y))
	za, _, err := eng.Repulsion(y, a)
	require.NoError(t, err)
	zb, _, err := eng.Repulsion(y, b)
	require.NoError(t, err)
	assert.Equal(t, za, zb)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, eng.cache.Len())
}

func TestExactSmall(t *testing.T) {
	y := []float64{0, 0, 1, 0}
	out := make([]float64, 4)
	z, _, err := NewExact(2, nil).Repulsion(y, out)
	require.NoError(t, err)
	// q = 1/2 for the single pair, counted in both directions.
	assert.InDelta(t, 1.0, z, 1e-15)
	assert.InDeltaSlice(t, []float64{-0.25, 0, 0.25, 0}, out, 1e-15)
}

func TestExactDeterministicAcrossPools(t *testing.T) {
	y := twoClusters(3, 4)
	serial := make([]float64, len(y))
	zs, _, err := NewExact(3, nil).Repulsion(y, serial)
	require.NoError(t, err)
	pool := parallel.New(3)
	defer pool.Close()
	par := make([]float64, len(y))
	zp, _, err := NewExact(3, pool).Repulsion(y, par)
	require.NoError(t, err)
	assert.Equal(t, serial, par)
	assert.InDelta(t, zs, zp, 1e-12)
}

func TestNewModes(t *testing.T) {
	eng, err := New(ModeAuto, SmallInputThreshold, Config{Dims: 2})
	require.NoError(t, err)
	assert.IsType(t, &Exact{}, eng)

	eng, err = New(ModeAuto, SmallInputThreshold+1, Config{Dims: 2})
	require.NoError(t, err)
	nu, ok := eng.(*NUConv)
	require.True(t, ok)
	assert.Equal(t, DefaultMaxSize(ModeBandLimited, 2), nu.cfg.MaxSize)

	_, err = New(ModeExact, ExactMaxPoints+1, Config{Dims: 2})
	assert.True(t, errors.Is(err, errors.ErrCodeConfiguration))
	_, err = New(ModeExact, ExactMaxPoints+1, Config{Dims: 2, AllowLargeExact: true})
	assert.NoError(t, err)

	_, err = New(ModeNUConv, 10, Config{Dims: 4})
	assert.True(t, errors.Is(err, errors.ErrCodeConfiguration))
	_, err = New(ModeNUConv, 10, Config{Dims: 2, H: -1})
	assert.True(t, errors.Is(err, errors.ErrCodeConfiguration))
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeAuto, "exact": ModeExact, "nuconv": ModeNUConv, "nuconv_bl": ModeBandLimited} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		if in != "" {
			assert.Equal(t, in, got.String())
		}
	}
	_, err := ParseMode("barnes-hut")
	assert.Error(t, err)
}

func TestTransformerRoundTripAndConvolution(t *testing.T) {
	shape := [3]int{6, 4, 1}
	tr := newTransformer(shape, nil)
	rng := rand.New(rand.NewSource(1))
	x := make([]complex128, tr.total)
	h := make([]complex128, tr.total)
	for i := range x {
		x[i] = complex(rng.NormFloat64(), rng.NormFloat64())
		h[i] = complex(rng.NormFloat64(), 0)
	}
	orig := append([]complex128(nil), x...)
	tr.forward(x)
	tr.inverse(x)
	for i := range x {
		assert.Less(t, cmplx.Abs(x[i]-orig[i]), 1e-12)
	}

	// Circular convolution theorem on a 2-D lattice.
	want := make([]complex128, tr.total)
	for a0 := 0; a0 < 6; a0++ {
		for a1 := 0; a1 < 4; a1++ {
			var s complex128
			for b0 := 0; b0 < 6; b0++ {
				for b1 := 0; b1 < 4; b1++ {
					c0, c1 := (a0-b0+6)%6, (a1-b1+4)%4
					s += orig[b0*4+b1] * h[c0*4+c1]
				}
			}
			want[a0*4+a1] = s
		}
	}
	xs := append([]complex128(nil), orig...)
	hs := append([]complex128(nil), h...)
	tr.forward(xs)
	tr.forward(hs)
	for i := range xs {
		xs[i] *= hs[i]
	}
	tr.inverse(xs)
	for i := range xs {
		assert.Less(t, cmplx.Abs(xs[i]-want[i]), 1e-10)
	}

	for i := range tr.neg {
		assert.Equal(t, i, tr.neg[tr.neg[i]])
	}
}
