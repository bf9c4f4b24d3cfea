package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sgtsnepi/pkg/embed"
	sgio "github.com/matzehuels/sgtsnepi/pkg/io"
	"github.com/matzehuels/sgtsnepi/pkg/parallel"
	"github.com/matzehuels/sgtsnepi/pkg/pipeline"
	"github.com/matzehuels/sgtsnepi/pkg/quality"
)

// recallCommand creates the recall command for scoring embeddings.
func (c *CLI) recallCommand() *cobra.Command {
	var (
		gf         graphFlags
		kind       string
		binaryDims int
		k          int
		bins       int
		threads    int
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "recall [graph-or-points] [embedding]",
		Short: "Score an embedding by neighbor recall",
		Long: `Score an embedding by neighbor recall.

For every vertex i the recall is the probability mass p(j|i) of the input
graph that falls on the k nearest neighbors of i in the embedding. A value of
one means the embedding keeps all of i's graph neighbors close. Point-cloud
inputs are first turned into their kNN graph, using the cache.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kd, err := parseKind(kind)
			if err != nil {
				return err
			}
			gopts, err := gf.options(cmd, c.config)
			if err != nil {
				return err
			}
			opts := pipeline.Options{Input: args[0], Kind: kd, BinaryDims: binaryDims, Graph: gopts}
			opts.Embed.Threads = threads
			return c.runRecall(cmd.Context(), opts, args[1], k, bins, noCache)
		},
	}

	cmd.Flags().StringVarP(&kind, "type", "t", "auto", "input kind: auto, graph, coord")
	cmd.Flags().IntVar(&binaryDims, "binary-dims", 0, "feature dimension of .f64 inputs")
	cmd.Flags().IntVar(&k, "recall-k", quality.DefaultRecallK, "embedding neighbors per vertex")
	cmd.Flags().IntVar(&bins, "bins", 10, "histogram bins")
	cmd.Flags().IntVarP(&threads, "threads", "j", 0, "worker count (0 uses all CPUs)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	gf.register(cmd)

	return cmd
}

// runRecall loads both files and prints the recall distribution.
func (c *CLI) runRecall(ctx context.Context, opts pipeline.Options, embeddingPath string, k, bins int, noCache bool) error {
	loaded, err := sgio.LoadInput(opts.Input, sgio.LoadOptions{Kind: opts.Kind, BinaryDims: opts.BinaryDims})
	if err != nil {
		return fmt.Errorf("load input %s: %w", opts.Input, err)
	}
	e, err := sgio.ImportEmbedding(embeddingPath)
	if err != nil {
		return fmt.Errorf("load embedding %s: %w", embeddingPath, err)
	}
	if e.N() != loaded.Size() {
		return fmt.Errorf("embedding has %d points, input has %d", e.N(), loaded.Size())
	}

	g := loaded.Graph
	if loaded.Kind == embed.KindCoordinates {
		runner, err := c.newRunner(ctx, noCache)
		if err != nil {
			return fmt.Errorf("initialize runner: %w", err)
		}
		defer runner.Close()
		if g, err = runner.BuildGraph(ctx, loaded.Points, opts); err != nil {
			return fmt.Errorf("build graph: %w", err)
		}
	}

	pool := parallel.New(opts.Embed.Threads)
	defer pool.Close()
	recall, err := quality.NeighborRecall(ctx, pool, g, e.Y, e.Dims, k)
	if err != nil {
		return err
	}
	hist, err := quality.Histogram(recall, bins)
	if err != nil {
		return err
	}

	printSuccess("Neighbor recall")
	printKeyValue("vertices", fmt.Sprintf("%d", len(recall)))
	printKeyValue("k", fmt.Sprintf("%d", k))
	printKeyValue("mean", fmt.Sprintf("%.4f", quality.Mean(recall)))
	printHistogram(hist, len(recall))
	return nil
}
