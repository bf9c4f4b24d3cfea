// Package pipeline provides the load → graph → embed → export pipeline.
//
// This package wires the library packages into the sequence the CLI runs, so
// that caching, logging and stage hooks behave the same for every entry
// point.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Load: read a graph or point cloud from disk ([sgio.LoadInput])
//  2. Graph: build the perplexity-calibrated kNN graph of a point cloud;
//     graph inputs pass through unchanged
//  3. Embed: run the SG-t-SNE-Π optimizer ([embed.Embed])
//  4. Export: write the embedding and, on request, the graph and profile
//
// The graph and embed stages are cached by content hash. An embedding run
// with profiling enabled always recomputes, since a cached result carries no
// timings.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Input:  "points.csv",
//	    Output: "embedding.csv",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Embedding.FinalCost())
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/sgtsnepi/pkg/affinity"
	"github.com/matzehuels/sgtsnepi/pkg/cache"
	"github.com/matzehuels/sgtsnepi/pkg/embed"
	"github.com/matzehuels/sgtsnepi/pkg/errors"
	sgio "github.com/matzehuels/sgtsnepi/pkg/io"
	"github.com/matzehuels/sgtsnepi/pkg/knn"
	"github.com/matzehuels/sgtsnepi/pkg/sparse"
)

// Stage names reported to observability.PipelineHooks.
const (
	StageLoad   = "load"
	StageGraph  = "graph"
	StageEmbed  = "embed"
	StageExport = "export"
)

// Options contains all configuration for a pipeline run.
type Options struct {
	// Input is the graph or point-cloud file.
	Input string `json:"input"`
	// Kind forces the input interpretation. KindUnspecified detects it.
	Kind embed.Kind `json:"kind,omitempty"`
	// BinaryDims is the feature dimension of .f64 inputs.
	BinaryDims int `json:"binary_dims,omitempty"`

	// Graph configures the kNN graph of point-cloud inputs.
	Graph affinity.Options `json:"-"`
	// Embed configures the optimizer.
	Embed embed.Options `json:"embed"`

	// Output receives the embedding; its extension picks the format.
	// Empty skips writing.
	Output string `json:"output,omitempty"`
	// GraphOutput receives the kNN graph as Matrix Market.
	GraphOutput string `json:"graph_output,omitempty"`
	// ProfileOutput receives per-iteration timings as CSV. Setting it
	// turns on profiling.
	ProfileOutput string `json:"profile_output,omitempty"`

	// Refresh recomputes every stage and overwrites cached entries.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
	RunID  string      `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	RunID string

	// Input is the decoded input file.
	Input *sgio.Loaded

	// Graph is the graph that was embedded, before affinity preparation.
	Graph *sparse.Graph

	// GraphHash is the content hash of Graph.
	GraphHash string

	Embedding *embed.Result

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	N          int
	NNZ        int
	Dims       int
	LoadTime   time.Duration
	GraphTime  time.Duration
	EmbedTime  time.Duration
	ExportTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	GraphHit bool // Whether the kNN graph came from cache
	EmbedHit bool // Whether the embedding came from cache
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Input == "" {
		return errors.New(errors.ErrCodeConfiguration, "input path is required")
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.RunID == "" {
		o.RunID = uuid.NewString()
	}
	if o.ProfileOutput != "" {
		o.Embed.Profile = true
	}
	o.Embed.RunID = o.RunID
	if o.Embed.Logger == nil {
		o.Embed.Logger = o.Logger
	}
	if err := o.Embed.ValidateAndSetDefaults(); err != nil {
		return err
	}
	for _, p := range []string{o.Input, o.Output, o.GraphOutput, o.ProfileOutput} {
		if p == "" {
			continue
		}
		if err := errors.ValidatePath(p); err != nil {
			return err
		}
	}
	if o.Output != "" {
		if _, err := sgio.FormatFromPath(o.Output); err != nil {
			return err
		}
	}
	o.validated = true
	return nil
}

// GraphKeyOpts returns cache key options for the kNN graph of n points.
func (o *Options) GraphKeyOpts(n int) (cache.GraphKeyOpts, error) {
	u, k, err := o.Graph.Resolved(n)
	if err != nil {
		return cache.GraphKeyOpts{}, err
	}
	method := o.Graph.Method.Resolve(n)
	key := cache.GraphKeyOpts{Perplexity: u, K: k, Method: method.String()}
	if method != knn.MethodExact {
		key.Seed = o.Graph.Approx.Seed
	}
	return key, nil
}

// EmbeddingKeyOpts returns cache key options for the optimizer run.
// Options must be validated.
func (o *Options) EmbeddingKeyOpts() cache.EmbeddingKeyOpts {
	e := o.Embed
	key := cache.EmbeddingKeyOpts{
		Dims:      e.Dims,
		Lambda:    e.Lambda,
		Mode:      e.Mode.String(),
		MaxIter:   e.MaxIter,
		EarlyExag: e.EarlyExag,
		Alpha:     e.Alpha,
		Eta:       e.Eta,
		DropLeaf:  e.DropLeaf,
		Seed:      e.Seed,
		H:         e.H,
		GridSizes: e.GridSizes,
		BandLimit: e.BandLimit,
	}
	if e.EarlyStop.Window > 0 {
		key.CostEvery = e.CostEvery
		key.StopWindow = e.EarlyStop.Window
		key.StopTol = e.EarlyStop.Tol
	}
	if len(e.Y0) > 0 {
		key.Y0Hash = cache.HashFloats(e.Y0)
	}
	return key
}
