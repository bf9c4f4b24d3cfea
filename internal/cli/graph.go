package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sgtsnepi/pkg/embed"
	sgio "github.com/matzehuels/sgtsnepi/pkg/io"
	"github.com/matzehuels/sgtsnepi/pkg/pipeline"
	"github.com/matzehuels/sgtsnepi/pkg/sparse"
)

// graphCommand creates the graph command for building kNN graphs.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		gf         graphFlags
		output     string
		binaryDims int
		threads    int
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "graph [points]",
		Short: "Build the kNN graph of a point cloud",
		Long: `Build the perplexity-calibrated kNN graph of a point cloud.

Each row of the output holds the conditional probabilities p(j|i) of the k
nearest neighbors of point i, calibrated so that the row's perplexity matches
--perplexity. The graph is written as Matrix Market (default) or JSON and can
be passed to 'embed' directly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gopts, err := gf.options(cmd, c.config)
			if err != nil {
				return err
			}
			opts := pipeline.Options{Input: args[0], Kind: embed.KindCoordinates, BinaryDims: binaryDims, Graph: gopts}
			opts.Embed.Threads = threads
			if output == "" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".knn.mtx"
			}
			return c.runGraph(cmd.Context(), opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, .mtx or .json (default: <input>.knn.mtx)")
	cmd.Flags().IntVar(&binaryDims, "binary-dims", 0, "feature dimension of .f64 inputs")
	cmd.Flags().IntVarP(&threads, "threads", "j", 0, "worker count (0 uses all CPUs)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	gf.register(cmd)

	return cmd
}

// runGraph loads the points, builds the graph, and writes it.
func (c *CLI) runGraph(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	f, err := sgio.FormatFromPath(output)
	if err != nil {
		return err
	}
	if f != sgio.FormatMTX && f != sgio.FormatJSON {
		return fmt.Errorf("graphs are written as mtx or json, not %s", f)
	}

	loaded, err := sgio.LoadInput(opts.Input, sgio.LoadOptions{Kind: opts.Kind, BinaryDims: opts.BinaryDims})
	if err != nil {
		return fmt.Errorf("load points %s: %w", opts.Input, err)
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(loggerFromContext(ctx))
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Building kNN graph of %d points...", loaded.Points.N))
	spinner.Start()

	g, cacheHit, err := runner.BuildGraphWithCacheInfo(ctx, loaded.Points, opts)
	if err != nil {
		spinner.StopWithError("Graph construction failed")
		return fmt.Errorf("build graph: %w", err)
	}
	spinner.Stop()
	prog.done("Built kNN graph")

	if err := writeGraph(g, f, output); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess("Graph complete")
	printFile(output)
	printStats(g.N, g.NNZ(), cacheHit)
	printNewline()
	printNextStep("Embed", "sgtsnepi embed "+output)
	return nil
}

func writeGraph(g *sparse.Graph, f sgio.Format, path string) error {
	if f == sgio.FormatJSON {
		return sgio.ExportJSON(g, nil, path)
	}
	return sgio.ExportMatrixMarket(g, path)
}
