package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/sgtsnepi/pkg/errors"
)

func TestValidateAndSetDefaults(t *testing.T) {
	var o Options
	require.NoError(t, o.ValidateAndSetDefaults())
	assert.Equal(t, DefaultDims, o.Dims)
	assert.Equal(t, DefaultLambda, o.Lambda)
	assert.Equal(t, DefaultMaxIter, o.MaxIter)
	assert.Equal(t, DefaultEarlyExag, o.EarlyExag)
	assert.Equal(t, DefaultAlpha, o.Alpha)
	assert.Zero(t, o.Eta)
	assert.Equal(t, DefaultH, o.H)
	assert.Equal(t, DefaultSeed, o.Seed)
	assert.True(t, o.seedDefaulted)
	assert.NotEmpty(t, o.GridSizes)
	assert.NotNil(t, o.Logger)

	// Idempotent.
	o.Dims = 9
	assert.NoError(t, o.ValidateAndSetDefaults())
}

func TestDefaultOptionsMatchValidated(t *testing.T) {
	d := DefaultOptions()
	var v Options
	require.NoError(t, v.ValidateAndSetDefaults())
	assert.Equal(t, v.Dims, d.Dims)
	assert.Equal(t, v.MaxIter, d.MaxIter)
	assert.Equal(t, v.GridSizes, d.GridSizes)
}

func TestEarlyExagBounds(t *testing.T) {
	o := Options{MaxIter: 100}
	require.NoError(t, o.ValidateAndSetDefaults())
	assert.Equal(t, 25, o.EarlyExag)

	o = Options{MaxIter: 100, EarlyExag: 400}
	require.NoError(t, o.ValidateAndSetDefaults())
	assert.Equal(t, 100, o.EarlyExag)

	o = Options{EarlyExag: -1}
	require.NoError(t, o.ValidateAndSetDefaults())
	assert.Equal(t, 0, o.EarlyExag)
}

func TestLearningRate(t *testing.T) {
	var o Options
	require.NoError(t, o.ValidateAndSetDefaults())
	assert.Equal(t, 5.0, o.LearningRate(20))
	assert.Equal(t, 1.0, o.LearningRate(2))
	assert.Equal(t, DefaultEta, o.LearningRate(100000))

	o = Options{Eta: 7}
	require.NoError(t, o.ValidateAndSetDefaults())
	assert.Equal(t, 7.0, o.LearningRate(100000))
}

func TestNegativeDisables(t *testing.T) {
	o := Options{Lambda: -1, EarlyExag: -1}
	require.NoError(t, o.ValidateAndSetDefaults())
	assert.Less(t, o.Lambda, 0.0)
	assert.Zero(t, o.EarlyExag)

	o = Options{}
	require.NoError(t, o.ValidateAndSetDefaults())
	assert.Equal(t, DefaultLambda, o.Lambda)
	assert.Equal(t, DefaultEarlyExag, o.EarlyExag)
}

func TestExplicitSeed(t *testing.T) {
	o := Options{Seed: 7}
	require.NoError(t, o.ValidateAndSetDefaults())
	assert.Equal(t, int64(7), o.Seed)
	assert.False(t, o.seedDefaulted)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"dims", Options{Dims: 4}, errors.ErrCodeConfiguration},
		{"max iter", Options{MaxIter: -3}, errors.ErrCodeConfiguration},
		{"alpha", Options{Alpha: -1}, errors.ErrCodeConfiguration},
		{"eta", Options{Eta: -1}, errors.ErrCodeConfiguration},
		{"h", Options{H: -1}, errors.ErrCodeConfiguration},
		{"grid sizes", Options{GridSizes: []int{2}}, errors.ErrCodeConfiguration},
		{"band limit", Options{BandLimit: -1}, errors.ErrCodeConfiguration},
		{"mode", Options{Mode: Mode(42)}, errors.ErrCodeConfiguration},
		{"early stop", Options{EarlyStop: EarlyStop{Window: -1}}, errors.ErrCodeConfiguration},
		{"threads", Options{Threads: -2}, errors.ErrCodeConfiguration},
		{"y0 shape", Options{Y0: []float64{1, 2, 3}}, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestRepulsionConfigBandLimit(t *testing.T) {
	o := Options{BandLimit: 64}
	require.NoError(t, o.ValidateAndSetDefaults())
	assert.Equal(t, 64, o.repulsionConfig(ModeBandLimited).MaxSize)
	assert.Equal(t, 0, o.repulsionConfig(ModeNUConv).MaxSize)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("coord")
	require.NoError(t, err)
	assert.Equal(t, KindCoordinates, k)
	k, err = ParseKind("Graph")
	require.NoError(t, err)
	assert.Equal(t, KindGraph, k)
	_, err = ParseKind("auto")
	assert.Error(t, err)
}

func TestSchedule(t *testing.T) {
	p, a, m := schedule(0, 10, 12)
	assert.Equal(t, PhaseEarlyExaggeration, p)
	assert.Equal(t, 12.0, a)
	assert.Equal(t, momentumEarly, m)
	p, a, m = schedule(10, 10, 12)
	assert.Equal(t, PhaseAnnealing, p)
	assert.Equal(t, 1.0, a)
	assert.Equal(t, momentumLate, m)
}
