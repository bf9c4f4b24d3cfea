package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sgtsnepi/pkg/affinity"
	"github.com/matzehuels/sgtsnepi/pkg/cache"
	"github.com/matzehuels/sgtsnepi/pkg/embed"
	"github.com/matzehuels/sgtsnepi/pkg/errors"
	sgio "github.com/matzehuels/sgtsnepi/pkg/io"
	"github.com/matzehuels/sgtsnepi/pkg/knn"
	"github.com/matzehuels/sgtsnepi/pkg/observability"
	"github.com/matzehuels/sgtsnepi/pkg/parallel"
	"github.com/matzehuels/sgtsnepi/pkg/sparse"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → graph → embed → export pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := opts.Logger.With("run", opts.RunID)
	result := &Result{RunID: opts.RunID}

	// Stage 1: Load
	var loaded *sgio.Loaded
	d, err := stage(ctx, StageLoad, 0, func() (err error) {
		loaded, err = r.Load(opts)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Input = loaded
	result.Stats.LoadTime = d
	result.Stats.N = loaded.Size()
	logger.Info("loaded input",
		"path", opts.Input,
		"kind", loaded.Kind,
		"format", loaded.Format,
		"n", loaded.Size(),
		"duration", d)

	// Stage 2: Graph
	g := loaded.Graph
	if loaded.Kind == embed.KindCoordinates {
		var hit bool
		d, err = stage(ctx, StageGraph, loaded.Points.N, func() (err error) {
			g, hit, err = r.BuildGraphWithCacheInfo(ctx, loaded.Points, opts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("graph: %w", err)
		}
		result.Stats.GraphTime = d
		result.CacheInfo.GraphHit = hit
		logger.Info("built kNN graph",
			"points", loaded.Points.N,
			"features", loaded.Points.D,
			"nnz", g.NNZ(),
			"cached", hit,
			"duration", d)
	}
	result.Graph = g
	result.GraphHash = cache.HashGraph(g)
	result.Stats.NNZ = g.NNZ()

	// Stage 3: Embed
	var emb *embed.Result
	var hit bool
	d, err = stage(ctx, StageEmbed, g.N, func() (err error) {
		emb, hit, err = r.embedWithHash(ctx, g, result.GraphHash, opts)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	result.Embedding = emb
	result.Stats.EmbedTime = d
	result.Stats.Dims = emb.Dims
	result.CacheInfo.EmbedHit = hit
	logger.Info("computed embedding",
		"iterations", emb.Iterations,
		"stop", emb.Stop,
		"kl", emb.FinalCost(),
		"cached", hit,
		"duration", d)

	// Stage 4: Export
	d, err = stage(ctx, StageExport, emb.N, func() error {
		return r.Export(result, opts)
	})
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	result.Stats.ExportTime = d
	if opts.Output != "" {
		logger.Info("wrote embedding", "path", opts.Output, "duration", d)
	}

	return result, nil
}

// Load reads opts.Input as a graph or a point cloud. Loading is never cached.
func (r *Runner) Load(opts Options) (*sgio.Loaded, error) {
	return sgio.LoadInput(opts.Input, sgio.LoadOptions{Kind: opts.Kind, BinaryDims: opts.BinaryDims})
}

// BuildGraphWithCacheInfo builds the kNN graph of x with caching and returns cache hit info.
func (r *Runner) BuildGraphWithCacheInfo(ctx context.Context, x knn.PointCloud, opts Options) (*sparse.Graph, bool, error) {
	if err := x.Validate(); err != nil {
		return nil, false, err
	}
	keyOpts, err := opts.GraphKeyOpts(x.N)
	if err != nil {
		return nil, false, err
	}
	key := r.Keyer.GraphKey(cache.HashPoints(x), keyOpts)

	if !opts.Refresh {
		var g sparse.Graph
		if r.lookup(ctx, "graph", key, &g) && g.Validate() == nil {
			return &g, true, nil
		}
	}

	gopts := opts.Graph
	if gopts.Pool == nil {
		pool := parallel.New(opts.Embed.Threads)
		defer pool.Close()
		gopts.Pool = pool
	}
	g, err := affinity.PointCloudToGraph(ctx, x, gopts)
	if err != nil {
		return nil, false, err
	}
	r.store(ctx, "graph", key, g, cache.TTLGraph)
	return g, false, nil
}

// BuildGraph is a convenience wrapper that calls BuildGraphWithCacheInfo and discards the cache hit info.
func (r *Runner) BuildGraph(ctx context.Context, x knn.PointCloud, opts Options) (*sparse.Graph, error) {
	g, _, err := r.BuildGraphWithCacheInfo(ctx, x, opts)
	return g, err
}

// EmbedWithCacheInfo embeds g with caching and returns cache hit info.
// Runs that record a profile bypass the cache lookup.
func (r *Runner) EmbedWithCacheInfo(ctx context.Context, g *sparse.Graph, opts Options) (*embed.Result, bool, error) {
	if g == nil {
		return nil, false, errors.New(errors.ErrCodeInvalidInput, "graph is nil")
	}
	return r.embedWithHash(ctx, g, cache.HashGraph(g), opts)
}

// Embed is a convenience wrapper that calls EmbedWithCacheInfo and discards the cache hit info.
func (r *Runner) Embed(ctx context.Context, g *sparse.Graph, opts Options) (*embed.Result, error) {
	res, _, err := r.EmbedWithCacheInfo(ctx, g, opts)
	return res, err
}

func (r *Runner) embedWithHash(ctx context.Context, g *sparse.Graph, graphHash string, opts Options) (*embed.Result, bool, error) {
	r.applyLogger(&opts)
	if opts.Embed.Logger == nil {
		opts.Embed.Logger = opts.Logger
	}
	if err := opts.Embed.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	key := r.Keyer.EmbeddingKey(graphHash, opts.EmbeddingKeyOpts())

	if !opts.Refresh && !opts.Embed.Profile {
		var res embed.Result
		if r.lookup(ctx, "embedding", key, &res) && res.N == g.N && len(res.Y) == res.N*res.Dims {
			return &res, true, nil
		}
	}

	res, err := embed.Embed(ctx, g, opts.Embed)
	if err != nil {
		return res, false, err
	}
	r.store(ctx, "embedding", key, res, cache.TTLEmbedding)
	return res, false, nil
}

// Export writes the outputs requested by opts.
func (r *Runner) Export(result *Result, opts Options) error {
	if opts.Output != "" {
		e := sgio.Embedding{Dims: result.Embedding.Dims, Y: result.Embedding.Y}
		if err := sgio.ExportEmbedding(e, opts.Output); err != nil {
			return err
		}
	}
	if opts.GraphOutput != "" {
		if err := sgio.ExportMatrixMarket(result.Graph, opts.GraphOutput); err != nil {
			return err
		}
	}
	if opts.ProfileOutput != "" && result.Embedding.Profile != nil {
		if err := sgio.ExportProfile(result.Embedding.Profile, opts.ProfileOutput); err != nil {
			return err
		}
	}
	return nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// lookup decodes the entry under key into v. Undecodable entries count as misses.
func (r *Runner) lookup(ctx context.Context, keyType, key string, v any) bool {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "key", keyType, "err", err)
	}
	if err == nil && hit && json.Unmarshal(data, v) == nil {
		observability.Cache().OnCacheHit(ctx, keyType)
		return true
	}
	observability.Cache().OnCacheMiss(ctx, keyType)
	return false
}

func (r *Runner) store(ctx context.Context, keyType, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "key", keyType, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// stage runs fn between the pipeline start and complete hooks.
func stage(ctx context.Context, name string, size int, fn func() error) (time.Duration, error) {
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, name, size)
	start := time.Now()
	err := fn()
	d := time.Since(start)
	hooks.OnStageComplete(ctx, name, d, err)
	return d, err
}
