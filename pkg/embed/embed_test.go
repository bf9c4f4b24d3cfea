package embed

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/sgtsnepi/pkg/affinity"
	"github.com/matzehuels/sgtsnepi/pkg/attraction"
	"github.com/matzehuels/sgtsnepi/pkg/errors"
	"github.com/matzehuels/sgtsnepi/pkg/knn"
	"github.com/matzehuels/sgtsnepi/pkg/observability"
	"github.com/matzehuels/sgtsnepi/pkg/repulsion"
	"github.com/matzehuels/sgtsnepi/pkg/sparse"
)

// ring returns the cycle graph on n vertices plus extra isolated vertices
// appended after it.
func ring(t *testing.T, n, extra int) *sparse.Graph {
	t.Helper()
	b := sparse.NewBuilder(n + extra)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		b.Add(i, j, 1)
		b.Add(j, i, 1)
	}
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func smallOpts() Options {
	return Options{MaxIter: 100, EarlyExag: 25, Eta: 5, Seed: 1, Threads: 2}
}

func TestEmbedDeterministic(t *testing.T) {
	for _, mode := range []Mode{ModeExact, ModeNUConv, ModeBandLimited} {
		t.Run(mode.String(), func(t *testing.T) {
			g := ring(t, 40, 0)
			opts := smallOpts()
			opts.Mode = mode
			a, err := Embed(context.Background(), g, opts)
			require.NoError(t, err)
			b, err := Embed(context.Background(), g, opts)
			require.NoError(t, err)
			assert.Equal(t, a.Y, b.Y)
			assert.Equal(t, mode, a.Mode)
		})
	}
}

func TestEmbedSeedChangesLayout(t *testing.T) {
	g := ring(t, 20, 0)
	opts := smallOpts()
	a, err := Embed(context.Background(), g, opts)
	require.NoError(t, err)
	opts.Seed = 2
	b, err := Embed(context.Background(), g, opts)
	require.NoError(t, err)
	assert.NotEqual(t, a.Y, b.Y)
}

func TestEmbedIsolatedVertices(t *testing.T) {
	plain, err := Embed(context.Background(), ring(t, 20, 0), smallOpts())
	require.NoError(t, err)

	res, err := Embed(context.Background(), ring(t, 20, 3), smallOpts())
	require.NoError(t, err)
	assert.Equal(t, []int{20, 21, 22}, res.Isolated)
	assert.Equal(t, 23, res.N)

	// Isolated vertices exert and receive no force.
	assert.Equal(t, plain.Y, res.Y[:20*2])

	// They sit outside the bounding box of the connected vertices.
	for k := 0; k < 2; k++ {
		hi := res.Y[k]
		for i := 0; i < 20; i++ {
			hi = max(hi, res.Point(i)[k])
		}
		for _, v := range res.Isolated {
			assert.Greater(t, res.Point(v)[k], hi, "vertex %d dim %d", v, k)
		}
	}
}

func TestEmbedAllIsolated(t *testing.T) {
	_, err := Embed(context.Background(), sparse.Empty(5), smallOpts())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeDegenerateGraph))
}

func TestEmbedInvalidInput(t *testing.T) {
	_, err := Embed(context.Background(), nil, smallOpts())
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	opts := smallOpts()
	opts.Y0 = make([]float64, 10)
	_, err = Embed(context.Background(), ring(t, 20, 0), opts)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	opts = smallOpts()
	opts.Mode = ModeExact
	opts.Dims = 4
	_, err = Embed(context.Background(), ring(t, 20, 0), opts)
	assert.True(t, errors.Is(err, errors.ErrCodeConfiguration))
}

func TestEmbedUsesY0(t *testing.T) {
	g := ring(t, 20, 0)
	opts := smallOpts()
	opts.MaxIter = 1
	opts.EarlyExag = -1
	opts.Y0 = make([]float64, 40)
	for i := 0; i < 20; i++ {
		opts.Y0[2*i] = float64(i)
		opts.Y0[2*i+1] = float64(i % 3)
	}
	res, err := Embed(context.Background(), g, opts)
	require.NoError(t, err)
	// One small step from a spread layout stays close to it, up to centering.
	assert.InDelta(t, res.Point(19)[0]-res.Point(0)[0], 19, 1)
}

func TestEmbedCostUsesCurrentIterate(t *testing.T) {
	g := ring(t, 20, 0)
	opts := Options{MaxIter: 1, Mode: ModeExact, CostEvery: 1, Threads: 2}
	opts.Y0 = make([]float64, 40)
	for i := 0; i < 20; i++ {
		opts.Y0[2*i] = float64(i)
		opts.Y0[2*i+1] = float64(i % 3)
	}
	res, err := Embed(context.Background(), g, opts)
	require.NoError(t, err)
	require.Len(t, res.Costs, 1)

	p, _, err := affinity.Prepare(g, affinity.PrepareOptions{Lambda: DefaultLambda})
	require.NoError(t, err)
	z, _, err := repulsion.NewExact(2, nil).Repulsion(opts.Y0, make([]float64, 40))
	require.NoError(t, err)
	want := attraction.Cost(nil, p, opts.Y0, 2, z)
	assert.InDelta(t, want, res.Costs[0].KL, 1e-12)
	assert.GreaterOrEqual(t, res.Costs[0].KL, 0.0)
}

func TestEmbedSizeBasedLearningRate(t *testing.T) {
	res, err := Embed(context.Background(), ring(t, 20, 3), Options{MaxIter: 2, Seed: 1})
	require.NoError(t, err)
	// Isolated vertices do not count towards the step size.
	assert.Equal(t, 5.0, res.Eta)

	res, err = Embed(context.Background(), ring(t, 20, 0), Options{MaxIter: 2, Seed: 1, Eta: 50})
	require.NoError(t, err)
	assert.Equal(t, 50.0, res.Eta)
}

func TestEmbedInstability(t *testing.T) {
	opts := smallOpts()
	opts.Alpha = 1e308
	res, err := Embed(context.Background(), ring(t, 20, 0), opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeNumericalInstability))
	require.NotNil(t, res)
	assert.Equal(t, PhaseTerminated, res.Phase)
}

func TestEmbedCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Embed(ctx, ring(t, 20, 0), smallOpts())
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, 0, res.Iterations)
	assert.Equal(t, StopCancelled, res.Stop)
	assert.Len(t, res.Y, 40)
}

func TestEmbedEarlyStop(t *testing.T) {
	opts := smallOpts()
	opts.CostEvery = 10
	opts.EarlyStop = EarlyStop{Window: 1, Tol: 1}
	res, err := Embed(context.Background(), ring(t, 20, 0), opts)
	require.NoError(t, err)
	assert.Equal(t, StopEarly, res.Stop)
	assert.Equal(t, 40, res.Iterations)
}

func TestEmbedProfile(t *testing.T) {
	opts := smallOpts()
	opts.Mode = ModeNUConv
	opts.MaxIter = 30
	opts.Profile = true
	res, err := Embed(context.Background(), ring(t, 20, 0), opts)
	require.NoError(t, err)
	require.NotNil(t, res.Profile)
	require.Len(t, res.Profile.Rows, 30)
	for _, row := range res.Profile.Rows {
		assert.GreaterOrEqual(t, row.GridSize[0], 16)
		assert.GreaterOrEqual(t, row.Total, row.Attraction)
	}
	assert.Equal(t, 30, res.Profile.Totals().Iteration)
	// Costs at every CostEvery iterations and the last one.
	assert.Equal(t, 29, res.Costs[len(res.Costs)-1].Iteration)
}

type phaseRecorder struct {
	observability.NoopEmbedHooks
	mu     sync.Mutex
	phases []string
	iters  int
}

func (r *phaseRecorder) OnPhase(_ context.Context, _ string, phase string, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, phase)
}

func (r *phaseRecorder) OnIteration(context.Context, observability.IterationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.iters++
}

func TestEmbedHooks(t *testing.T) {
	rec := &phaseRecorder{}
	observability.SetEmbedHooks(rec)
	defer observability.Reset()

	_, err := Embed(context.Background(), ring(t, 20, 0), smallOpts())
	require.NoError(t, err)
	assert.Equal(t, []string{"initializing", "early_exaggeration", "annealing", "terminated"}, rec.phases)
	assert.Equal(t, 100, rec.iters)
}

func TestRunRequiresKind(t *testing.T) {
	_, err := Run(context.Background(), Input{Graph: ring(t, 20, 0)}, smallOpts())
	assert.True(t, errors.Is(err, errors.ErrCodeConfiguration))

	res, err := Run(context.Background(), Input{Kind: KindGraph, Graph: ring(t, 20, 0)}, smallOpts())
	require.NoError(t, err)
	assert.Equal(t, 20, res.N)
}

func TestEmbedPoints(t *testing.T) {
	rows := make([][]float64, 40)
	for i := range rows {
		c := 0.0
		if i >= 20 {
			c = 50
		}
		rows[i] = []float64{c + float64(i%5), c + float64(i%4), float64(i % 3)}
	}
	x, err := knn.FromRows(rows)
	require.NoError(t, err)
	res, err := Run(context.Background(), Input{
		Kind: KindCoordinates, Points: x, Affinity: affinity.Options{Perplexity: 5},
	}, smallOpts())
	require.NoError(t, err)
	assert.Equal(t, 40, res.N)
	assert.Empty(t, res.Isolated)
}
