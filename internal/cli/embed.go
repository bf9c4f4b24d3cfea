package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sgtsnepi/pkg/buildinfo"
	sgio "github.com/matzehuels/sgtsnepi/pkg/io"
	"github.com/matzehuels/sgtsnepi/pkg/observability"
	"github.com/matzehuels/sgtsnepi/pkg/pipeline"
	"github.com/matzehuels/sgtsnepi/pkg/render"
)

// embedCommand creates the embed command, the full load → graph → embed pipeline.
func (c *CLI) embedCommand() *cobra.Command {
	var (
		ef         embedFlags
		gf         graphFlags
		kind       string
		format     string
		output     string
		graphOut   string
		profileOut string
		svgOut     string
		labels     string
		binaryDims int
		noCache    bool
		refresh    bool
	)

	cmd := &cobra.Command{
		Use:   "embed [input]",
		Short: "Embed a sparse graph or point cloud",
		Long: `Embed a sparse graph or point cloud with SG-t-SNE-Π.

Graphs are read from Matrix Market (.mtx), edge lists (.csv/.tsv with
"i j [w]" rows) or JSON. Point clouds are read from CSV/TSV or raw
little-endian float64 (.f64, requires --binary-dims). Point clouds are first
turned into a perplexity-calibrated kNN graph.

The input kind is detected from the file unless --type is given.

kNN graphs and embeddings are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(kind)
			if err != nil {
				return err
			}
			eopts, err := ef.options(cmd, c.config)
			if err != nil {
				return err
			}
			gopts, err := gf.options(cmd, c.config)
			if err != nil {
				return err
			}
			out, err := embeddingOutput(args[0], output, format)
			if err != nil {
				return err
			}
			opts := pipeline.Options{
				Input:         args[0],
				Kind:          k,
				BinaryDims:    binaryDims,
				Graph:         gopts,
				Embed:         eopts,
				Output:        out,
				GraphOutput:   graphOut,
				ProfileOutput: profileOut,
				Refresh:       refresh,
			}
			return c.runEmbed(cmd.Context(), opts, noCache, svgOut, labels)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.embedding.<format>)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: csv (default), tsv, json")
	cmd.Flags().StringVarP(&kind, "type", "t", "auto", "input kind: auto, graph, coord")
	cmd.Flags().IntVar(&binaryDims, "binary-dims", 0, "feature dimension of .f64 inputs")
	cmd.Flags().StringVar(&graphOut, "graph-out", "", "also write the embedded graph as Matrix Market")
	cmd.Flags().StringVar(&profileOut, "profile", "", "write per-iteration timings as CSV")
	cmd.Flags().StringVar(&svgOut, "svg", "", "also draw the embedding (1D/2D) to this SVG file")
	cmd.Flags().StringVar(&labels, "labels", "", "vertex labels for --svg colors")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute and overwrite cached results")
	ef.register(cmd)
	gf.register(cmd)

	return cmd
}

// runEmbed runs the pipeline and reports the result.
func (c *CLI) runEmbed(ctx context.Context, opts pipeline.Options, noCache bool, svgOut, labelsPath string) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = loggerFromContext(ctx)
	opts.Logger.Debug(buildinfo.Header())

	spinner := newSpinnerWithContext(ctx, "Embedding "+filepath.Base(opts.Input)+"...")
	observability.SetEmbedHooks(&spinnerHooks{spinner: spinner})
	defer observability.Reset()
	spinner.Start()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Embedding failed")
		return err
	}
	spinner.Stop()

	emb := result.Embedding
	printSuccess("Embedding complete")
	printFile(opts.Output)
	printStats(result.Stats.N, result.Stats.NNZ, result.CacheInfo.EmbedHit)
	printKeyValue("run", result.RunID)
	printKeyValue("mode", emb.Mode.String())
	printKeyValue("iterations", fmt.Sprintf("%d (%s)", emb.Iterations, emb.Stop))
	printKeyValue("eta", fmt.Sprintf("%g", emb.Eta))
	printKeyValue("kl", fmt.Sprintf("%.4f", emb.FinalCost()))
	printCosts(emb.Costs)
	if len(emb.Isolated) > 0 {
		printWarning("%d isolated vertices placed outside the embedding", len(emb.Isolated))
	}
	if opts.GraphOutput != "" {
		printFile(opts.GraphOutput)
	}
	if opts.ProfileOutput != "" {
		printFile(opts.ProfileOutput)
	}

	if svgOut != "" {
		ropts := render.Options{}
		if labelsPath != "" {
			if ropts.Labels, err = sgio.ImportLabels(labelsPath); err != nil {
				return err
			}
		}
		if err := writeRendering(ctx, svgOut, emb.Y, emb.Dims, ropts); err != nil {
			return err
		}
		printFile(svgOut)
	}

	printNewline()
	if emb.Dims <= 2 && svgOut == "" {
		printNextStep("Render", "sgtsnepi render "+opts.Output)
	}
	return nil
}

// embeddingOutput resolves -o and --format into an output path.
func embeddingOutput(input, output, format string) (string, error) {
	var f sgio.Format
	var err error
	switch {
	case output != "":
		if f, err = sgio.FormatFromPath(output); err != nil {
			return "", err
		}
		if format != "" {
			if want, err := sgio.ParseFormat(format); err != nil || want != f {
				return "", fmt.Errorf("--format %s does not match output %s", format, output)
			}
		}
	case format != "":
		if f, err = sgio.ParseFormat(format); err != nil {
			return "", err
		}
	default:
		f = sgio.FormatCSV
	}
	if f != sgio.FormatCSV && f != sgio.FormatTSV && f != sgio.FormatJSON {
		return "", fmt.Errorf("embeddings are written as csv, tsv or json, not %s", f)
	}
	if output != "" {
		return output, nil
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + ".embedding." + string(f), nil
}

// spinnerHooks shows optimizer progress in the spinner line.
type spinnerHooks struct {
	observability.NoopEmbedHooks
	spinner *Spinner
}

func (h *spinnerHooks) OnIteration(_ context.Context, ev observability.IterationEvent) {
	if ev.Iteration%10 != 0 && ev.Iteration+1 != ev.MaxIter {
		return
	}
	h.spinner.SetMessage(fmt.Sprintf("Embedding... %d/%d %s", ev.Iteration+1, ev.MaxIter, strings.ReplaceAll(ev.Phase, "_", " ")))
}

// writeFile writes data to path, creating parent directories.
func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
