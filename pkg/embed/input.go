package embed

import (
	"context"
	"fmt"
	"strings"

	"github.com/matzehuels/sgtsnepi/pkg/affinity"
	"github.com/matzehuels/sgtsnepi/pkg/errors"
	"github.com/matzehuels/sgtsnepi/pkg/knn"
	"github.com/matzehuels/sgtsnepi/pkg/parallel"
	"github.com/matzehuels/sgtsnepi/pkg/sparse"
)

// Kind tells Run how to interpret an Input.
type Kind int

const (
	KindUnspecified Kind = iota
	KindGraph
	KindCoordinates
)

func (k Kind) String() string {
	switch k {
	case KindUnspecified:
		return "unspecified"
	case KindGraph:
		return "graph"
	case KindCoordinates:
		return "coord"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind converts a CLI name to a Kind. "auto" is not a Kind; the
// caller resolves it before reaching this package.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "graph", "adjacency":
		return KindGraph, nil
	case "coord", "coords", "coordinates", "points":
		return KindCoordinates, nil
	}
	return KindUnspecified, errors.New(errors.ErrCodeConfiguration, "unknown input kind %q (want graph or coord)", s)
}

// Input is a tagged embedding input.
type Input struct {
	Kind   Kind
	Graph  *sparse.Graph
	Points knn.PointCloud
	// Affinity configures the point-cloud to graph conversion.
	Affinity affinity.Options
}

// Run embeds in according to its Kind.
func Run(ctx context.Context, in Input, opts Options) (*Result, error) {
	switch in.Kind {
	case KindGraph:
		return Embed(ctx, in.Graph, opts)
	case KindCoordinates:
		return EmbedPoints(ctx, in.Points, in.Affinity, opts)
	case KindUnspecified:
		return nil, errors.New(errors.ErrCodeConfiguration, "input kind must be set to graph or coord")
	default:
		return nil, errors.New(errors.ErrCodeConfiguration, "unknown input kind %v", in.Kind)
	}
}

// EmbedPoints builds the perplexity-calibrated kNN graph of x and embeds it.
func EmbedPoints(ctx context.Context, x knn.PointCloud, graphOpts affinity.Options, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if graphOpts.Pool == nil {
		pool := parallel.New(opts.Threads)
		defer pool.Close()
		graphOpts.Pool = pool
	}
	u, k, err := graphOpts.Resolved(x.N)
	if err != nil {
		return nil, err
	}
	opts.Logger.Info("building kNN graph", "points", x.N, "features", x.D, "perplexity", u, "k", k,
		"method", graphOpts.Method.Resolve(x.N))
	g, err := affinity.PointCloudToGraph(ctx, x, graphOpts)
	if err != nil {
		return nil, err
	}
	return Embed(ctx, g, opts)
}
