package embed

import (
	"context"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/matzehuels/sgtsnepi/pkg/affinity"
	"github.com/matzehuels/sgtsnepi/pkg/attraction"
	"github.com/matzehuels/sgtsnepi/pkg/errors"
	"github.com/matzehuels/sgtsnepi/pkg/observability"
	"github.com/matzehuels/sgtsnepi/pkg/parallel"
	"github.com/matzehuels/sgtsnepi/pkg/repulsion"
	"github.com/matzehuels/sgtsnepi/pkg/sparse"
)

// CostPoint is one evaluation of the KL cost.
type CostPoint struct {
	Iteration int     `json:"iteration"`
	KL        float64 `json:"kl"`
}

// Result holds the outcome of an embedding run.
type Result struct {
	// Y holds the coordinates of all N vertices, row-major N×Dims.
	Y    []float64 `json:"y"`
	N    int       `json:"n"`
	Dims int       `json:"dims"`

	// Isolated lists vertices that had no edges after preparation.
	Isolated []int `json:"isolated,omitempty"`

	Iterations int         `json:"iterations"`
	Phase      Phase       `json:"phase"`
	Stop       StopReason  `json:"stop"`
	Costs      []CostPoint `json:"costs,omitempty"`
	Mode       Mode        `json:"mode"`
	Seed       int64       `json:"seed"`
	Eta        float64     `json:"eta"`

	Prepare affinity.PrepareStats `json:"prepare"`
	Profile *Profile              `json:"-"`
	Elapsed time.Duration         `json:"-"`
}

// Point returns the coordinates of vertex i. The slice aliases Y.
func (r *Result) Point(i int) []float64 {
	return r.Y[i*r.Dims : (i+1)*r.Dims]
}

// FinalCost returns the last evaluated KL cost, or NaN if none was taken.
func (r *Result) FinalCost() float64 {
	if len(r.Costs) == 0 {
		return math.NaN()
	}
	return r.Costs[len(r.Costs)-1].KL
}

// run is the mutable state of one optimization.
type run struct {
	opts   Options
	pool   *parallel.Pool
	p      *sparse.Graph
	active []int
	d      int
	engine repulsion.Engine
	eta    float64

	y, upd, gains   []float64
	attr, rep, grad []float64
	costs           []CostPoint
	profile         *Profile
}

// Embed computes a Dims-dimensional embedding of the vertices of g.
//
// g may be any non-negative adjacency; it is prepared (self-loops dropped,
// rows normalized, λ-rescaled, symmetrized, scaled to unit mass) before
// optimization. When ctx is cancelled, Embed returns the coordinates of
// the last completed iteration together with ctx.Err().
func Embed(ctx context.Context, g *sparse.Graph, opts Options) (*Result, error) {
	start := time.Now()
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if g == nil || g.N == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "graph has no vertices")
	}
	logger := opts.Logger
	d := opts.Dims
	if opts.Y0 != nil && len(opts.Y0) != g.N*d {
		return nil, errors.New(errors.ErrCodeInvalidInput, "Y0 has %d values, want %d×%d", len(opts.Y0), g.N, d)
	}

	pool := parallel.New(opts.Threads)
	defer pool.Close()

	lambda := opts.Lambda
	if lambda < 0 {
		lambda = 0
	}
	p, stats, err := affinity.Prepare(g, affinity.PrepareOptions{Lambda: lambda, DropLeaf: opts.DropLeaf, Pool: pool})
	if err != nil {
		return nil, err
	}

	isolated := stats.Isolated
	if len(isolated) == g.N {
		return nil, errors.New(errors.ErrCodeDegenerateGraph, "all %d vertices are isolated", g.N)
	}
	active := complement(g.N, isolated)
	eta := opts.LearningRate(len(active))

	logger.Info("sg-t-sne-pi",
		"vertices", g.N, "dims", d, "lambda", lambda, "alpha", opts.Alpha,
		"max_iter", opts.MaxIter, "early_exag", opts.EarlyExag, "eta", eta,
		"h", opts.H, "drop_leaf", opts.DropLeaf, "threads", pool.Size())
	logger.Info("graph prepared", "stochastic", stats.Stochastic, "of", g.N, "nnz", stats.NNZ)
	if len(isolated) > 0 {
		logger.Warn("isolated vertices excluded from optimization", "count", len(isolated))
		p = p.Subgraph(active)
	}

	mode := opts.Mode.Resolve(len(active))
	rcfg := opts.repulsionConfig(mode)
	rcfg.Pool = pool
	engine, err := repulsion.New(mode, len(active), rcfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("repulsion engine", "mode", mode, "active", len(active))

	r := &run{
		opts: opts, pool: pool, p: p, active: active, d: d, engine: engine, eta: eta,
	}
	r.init(g.N)
	if opts.Profile {
		r.profile = &Profile{Dims: d}
	}

	iters, stop, phase, loopErr := r.loop(ctx)

	full := make([]float64, g.N*d)
	for a, v := range active {
		copy(full[v*d:(v+1)*d], r.y[a*d:(a+1)*d])
	}
	placeIsolated(full, active, isolated, d, opts.Seed)

	res := &Result{
		Y: full, N: g.N, Dims: d, Isolated: isolated,
		Iterations: iters, Phase: phase, Stop: stop, Costs: r.costs,
		Mode: mode, Seed: opts.Seed, Eta: eta, Prepare: stats, Profile: r.profile,
		Elapsed: time.Since(start),
	}
	if loopErr != nil {
		return res, loopErr
	}
	logger.Info("embedding done", "iterations", iters, "stop", stop, "kl", res.FinalCost(), "elapsed", res.Elapsed)
	return res, nil
}

func complement(n int, drop []int) []int {
	keep := make([]int, 0, n-len(drop))
	j := 0
	for i := 0; i < n; i++ {
		if j < len(drop) && drop[j] == i {
			j++
			continue
		}
		keep = append(keep, i)
	}
	return keep
}

// init allocates the force arenas and the initial coordinates.
func (r *run) init(n int) {
	m := len(r.active) * r.d
	r.y = make([]float64, m)
	r.upd = make([]float64, m)
	r.gains = make([]float64, m)
	r.attr = make([]float64, m)
	r.rep = make([]float64, m)
	r.grad = make([]float64, m)
	for i := range r.gains {
		r.gains[i] = 1
	}

	d := r.d
	if r.opts.Y0 != nil {
		for a, v := range r.active {
			copy(r.y[a*d:(a+1)*d], r.opts.Y0[v*d:(v+1)*d])
		}
		return
	}
	if r.opts.seedDefaulted {
		r.opts.Logger.Warn("randomizing initial coordinates", "seed", r.opts.Seed)
	}
	// Draws cover all n vertices so that the active coordinates do not
	// depend on which vertices turn out isolated.
	rng := rand.New(rand.NewSource(r.opts.Seed))
	all := make([]float64, n*d)
	for i := range all {
		all[i] = 0.01 * rng.NormFloat64()
	}
	for a, v := range r.active {
		copy(r.y[a*d:(a+1)*d], all[v*d:(v+1)*d])
	}
}

// loop runs the iterations and returns the count completed.
func (r *run) loop(ctx context.Context) (int, StopReason, Phase, error) {
	opts := r.opts
	hooks := observability.Embed()
	logger := opts.Logger
	start := time.Now()

	phase := PhaseInitializing
	hooks.OnPhase(ctx, opts.RunID, phase.String(), 0)

	for it := 0; it < opts.MaxIter; it++ {
		if err := ctx.Err(); err != nil {
			hooks.OnPhase(ctx, opts.RunID, PhaseTerminated.String(), it)
			return it, StopCancelled, PhaseTerminated, err
		}
		next, alpha, momentum := schedule(it, opts.EarlyExag, opts.Alpha)
		if next != phase {
			phase = next
			logger.Debug("phase", "phase", phase, "iteration", it)
			hooks.OnPhase(ctx, opts.RunID, phase.String(), it)
		}

		z, hasCost, kl, err := r.step(it, alpha, momentum)
		if err != nil {
			hooks.OnPhase(ctx, opts.RunID, PhaseTerminated.String(), it)
			return it, StopBudget, PhaseTerminated, err
		}
		hooks.OnIteration(ctx, observability.IterationEvent{
			RunID: opts.RunID, Iteration: it, MaxIter: opts.MaxIter, Phase: phase.String(),
			Z: z, Cost: kl, HasCost: hasCost, Elapsed: time.Since(start),
		})
		if hasCost {
			logger.Debug("progress", "iteration", it, "kl", kl, "z", z)
			if phase == PhaseAnnealing && r.plateau() {
				logger.Info("early stop", "iteration", it, "kl", kl)
				hooks.OnPhase(ctx, opts.RunID, PhaseTerminated.String(), it+1)
				return it + 1, StopEarly, PhaseTerminated, nil
			}
		}
	}
	hooks.OnPhase(ctx, opts.RunID, PhaseTerminated.String(), opts.MaxIter)
	return opts.MaxIter, StopBudget, PhaseTerminated, nil
}

// step performs one gradient iteration and returns Z and, when evaluated,
// the KL cost.
func (r *run) step(it int, alpha, momentum float64) (float64, bool, float64, error) {
	t0 := time.Now()
	row := ProfileRow{Iteration: it}

	attraction.Forces(r.pool, r.p, r.y, r.d, r.attr)
	t1 := time.Now()
	row.Attraction = t1.Sub(t0)

	z, rstats, err := r.engine.Repulsion(r.y, r.rep)
	if err != nil {
		return 0, false, 0, err
	}
	t2 := time.Now()
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return z, false, 0, errors.Instability(it, -1, -1, "normalization")
	}
	if z <= 0 {
		return z, false, 0, errors.New(errors.ErrCodeNumericalInstability, "non-positive normalization %v at iteration %d", z, it)
	}

	// The cost pairs Z with the coordinates that produced it.
	var kl float64
	hasCost := (it+1)%r.opts.CostEvery == 0 || it == r.opts.MaxIter-1
	if hasCost {
		kl = attraction.Cost(r.pool, r.p, r.y, r.d, z)
		r.costs = append(r.costs, CostPoint{Iteration: it, KL: kl})
	}
	t3 := time.Now()
	row.Cost = t3.Sub(t2)

	// grad = α·attr − rep/Z
	floats.ScaleTo(r.grad, alpha, r.attr)
	floats.AddScaled(r.grad, -1/z, r.rep)
	if idx := firstNonFinite(r.grad); idx >= 0 {
		return z, false, 0, errors.Instability(it, r.active[idx/r.d], idx%r.d, "gradient")
	}

	eta := r.eta
	for i, g := range r.grad {
		if (g > 0) != (r.upd[i] > 0) {
			r.gains[i] += 0.2
		} else {
			r.gains[i] *= 0.8
		}
		if r.gains[i] < gainFloor {
			r.gains[i] = gainFloor
		}
		r.upd[i] = momentum*r.upd[i] - eta*r.gains[i]*g
	}
	floats.Add(r.y, r.upd)
	r.recenter()
	if idx := firstNonFinite(r.y); idx >= 0 {
		return z, false, 0, errors.Instability(it, r.active[idx/r.d], idx%r.d, "coordinate")
	}
	row.Update = time.Since(t3)
	row.Total = time.Since(t0)
	if r.profile != nil {
		r.profile.record(row, rstats, t2.Sub(t1))
	}
	return z, hasCost, kl, nil
}

// recenter moves the mean of the active points to the origin.
func (r *run) recenter() {
	d := r.d
	n := len(r.y) / d
	var mean [3]float64
	for i := 0; i < n; i++ {
		for k := 0; k < d; k++ {
			mean[k] += r.y[i*d+k]
		}
	}
	for k := 0; k < d; k++ {
		mean[k] /= float64(n)
	}
	for i := 0; i < n; i++ {
		for k := 0; k < d; k++ {
			r.y[i*d+k] -= mean[k]
		}
	}
}

// plateau reports whether the early stopping criterion holds. Only costs
// evaluated after exaggeration take part.
func (r *run) plateau() bool {
	es := r.opts.EarlyStop
	if es.Window <= 0 {
		return false
	}
	var annealed []CostPoint
	for _, c := range r.costs {
		if c.Iteration >= r.opts.EarlyExag {
			annealed = append(annealed, c)
		}
	}
	if len(annealed) <= es.Window {
		return false
	}
	prev := annealed[len(annealed)-1-es.Window].KL
	last := annealed[len(annealed)-1].KL
	if prev == 0 {
		return true
	}
	return (prev-last)/math.Abs(prev) < es.Tol
}

func firstNonFinite(v []float64) int {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return i
		}
	}
	return -1
}
