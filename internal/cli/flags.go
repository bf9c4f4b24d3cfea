package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/sgtsnepi/pkg/affinity"
	"github.com/matzehuels/sgtsnepi/pkg/config"
	"github.com/matzehuels/sgtsnepi/pkg/embed"
	"github.com/matzehuels/sgtsnepi/pkg/knn"
	"github.com/matzehuels/sgtsnepi/pkg/repulsion"
)

// embedFlags holds the optimizer flags of a command. Only flags the user
// set override the config file.
type embedFlags struct {
	dims            int
	lambda          float64
	mode            string
	maxIter         int
	earlyExag       int
	alpha           float64
	eta             float64
	dropLeaf        bool
	seed            int64
	threads         int
	h               float64
	gridSizes       []int
	bandLimit       int
	costEvery       int
	stopWindow      int
	stopTol         float64
	allowLargeExact bool
}

func (f *embedFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVarP(&f.dims, "dims", "d", embed.DefaultDims, "embedding dimension (1, 2 or 3)")
	fs.Float64VarP(&f.lambda, "lambda", "l", embed.DefaultLambda, "rescaling parameter λ (negative disables)")
	fs.StringVar(&f.mode, "mode", "auto", "repulsion: auto, exact, nuconv, nuconv_bl")
	fs.IntVarP(&f.maxIter, "max-iter", "m", embed.DefaultMaxIter, "number of iterations")
	fs.IntVar(&f.earlyExag, "early-exag", 0, "early exaggeration iterations (0: min(250, max-iter/4), negative disables)")
	fs.Float64VarP(&f.alpha, "alpha", "a", embed.DefaultAlpha, "early exaggeration multiplier α")
	fs.Float64Var(&f.eta, "eta", 0, "learning rate η (0: vertex count / 4, at most 200)")
	fs.BoolVar(&f.dropLeaf, "drop-leaf", false, "remove edges into leaf vertices")
	fs.Int64Var(&f.seed, "seed", 0, "seed for random initial coordinates (0 uses the default)")
	fs.IntVarP(&f.threads, "threads", "j", 0, "worker count (0 uses all CPUs)")
	fs.Float64Var(&f.h, "h", embed.DefaultH, "grid side length")
	fs.IntSliceVar(&f.gridSizes, "grid-sizes", nil, "allowed grid sizes per dimension (default: 5-smooth sizes in 16..512)")
	fs.IntVar(&f.bandLimit, "band-limit", 0, "largest grid per dimension in nuconv_bl mode")
	fs.IntVar(&f.costEvery, "cost-every", embed.DefaultCostEvery, "iterations between cost evaluations")
	fs.IntVar(&f.stopWindow, "early-stop", 0, "stop after this many cost evaluations without relative progress")
	fs.Float64Var(&f.stopTol, "early-stop-tol", 1e-4, "relative progress that resets the early-stop window")
	fs.BoolVar(&f.allowLargeExact, "allow-large-exact", false, "allow exact repulsion above its size limit")
}

// options merges the flags over cfg.
func (f *embedFlags) options(cmd *cobra.Command, cfg *config.File) (embed.Options, error) {
	opts, err := cfg.EmbedOptions()
	if err != nil {
		return opts, err
	}
	fs := cmd.Flags()
	if fs.Changed("dims") {
		opts.Dims = f.dims
	}
	if fs.Changed("lambda") {
		opts.Lambda = f.lambda
	}
	if fs.Changed("mode") {
		if opts.Mode, err = repulsion.ParseMode(f.mode); err != nil {
			return opts, err
		}
	}
	if fs.Changed("max-iter") {
		opts.MaxIter = f.maxIter
	}
	if fs.Changed("early-exag") {
		opts.EarlyExag = f.earlyExag
	}
	if fs.Changed("alpha") {
		opts.Alpha = f.alpha
	}
	if fs.Changed("eta") {
		opts.Eta = f.eta
	}
	if fs.Changed("drop-leaf") {
		opts.DropLeaf = f.dropLeaf
	}
	if fs.Changed("seed") {
		opts.Seed = f.seed
	}
	if fs.Changed("threads") {
		opts.Threads = f.threads
	}
	if fs.Changed("h") {
		opts.H = f.h
	}
	if fs.Changed("grid-sizes") {
		opts.GridSizes = f.gridSizes
	}
	if fs.Changed("band-limit") {
		opts.BandLimit = f.bandLimit
	}
	if fs.Changed("cost-every") {
		opts.CostEvery = f.costEvery
	}
	if fs.Changed("early-stop") {
		opts.EarlyStop.Window = f.stopWindow
		if opts.EarlyStop.Tol == 0 {
			opts.EarlyStop.Tol = f.stopTol
		}
	}
	if fs.Changed("early-stop-tol") {
		opts.EarlyStop.Tol = f.stopTol
	}
	if fs.Changed("allow-large-exact") {
		opts.AllowLargeExact = f.allowLargeExact
	}
	return opts, nil
}

// graphFlags holds the kNN graph flags of a command.
type graphFlags struct {
	perplexity float64
	k          int
	method     string
	trees      int
	leafSize   int
	seed       int64
}

func (f *graphFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Float64VarP(&f.perplexity, "perplexity", "u", affinity.DefaultPerplexity, "perplexity of the kNN graph")
	fs.IntVarP(&f.k, "k", "k", 0, "neighbors per point (0 uses ceil(3u))")
	fs.StringVar(&f.method, "knn", "auto", "neighbor search: auto, exact, approx")
	fs.IntVar(&f.trees, "trees", 0, "random projection trees for approximate search")
	fs.IntVar(&f.leafSize, "leaf-size", 0, "largest leaf of a projection tree")
	fs.Int64Var(&f.seed, "knn-seed", 0, "seed of the approximate search")
}

// options merges the flags over cfg.
func (f *graphFlags) options(cmd *cobra.Command, cfg *config.File) (affinity.Options, error) {
	opts, err := cfg.GraphOptions()
	if err != nil {
		return opts, err
	}
	fs := cmd.Flags()
	if fs.Changed("perplexity") {
		opts.Perplexity = f.perplexity
	}
	if fs.Changed("k") {
		opts.K = f.k
	}
	if fs.Changed("knn") {
		if opts.Method, err = knn.ParseMethod(f.method); err != nil {
			return opts, err
		}
	}
	if fs.Changed("trees") {
		opts.Approx.Trees = f.trees
	}
	if fs.Changed("leaf-size") {
		opts.Approx.LeafSize = f.leafSize
	}
	if fs.Changed("knn-seed") {
		opts.Approx.Seed = f.seed
	}
	return opts, nil
}

// parseKind maps the --type flag; "auto" leaves the kind to detection.
func parseKind(s string) (embed.Kind, error) {
	if s == "" || s == "auto" {
		return embed.KindUnspecified, nil
	}
	return embed.ParseKind(s)
}
