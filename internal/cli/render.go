package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sgtsnepi/pkg/embed"
	sgio "github.com/matzehuels/sgtsnepi/pkg/io"
	"github.com/matzehuels/sgtsnepi/pkg/render"
)

// renderCommand creates the render command for drawing embeddings.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		output    string
		labels    string
		graphPath string
		opts      render.Options
	)

	cmd := &cobra.Command{
		Use:   "render [embedding]",
		Short: "Draw a 1D or 2D embedding",
		Long: `Draw a 1D or 2D embedding as SVG, PNG or raw DOT.

Points keep their embedded positions. With --labels each class gets its own
color; with --graph the graph's edges are drawn, colored by whether they join
points of the same class.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".svg"
			}
			return c.runRender(cmd.Context(), args[0], output, labels, graphPath, opts)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file: .svg, .png or .dot (default: <input>.svg)")
	cmd.Flags().StringVar(&labels, "labels", "", "vertex labels, one integer per line or a Matrix Market array")
	cmd.Flags().StringVar(&graphPath, "graph", "", "graph whose edges are drawn")
	cmd.Flags().Float64Var(&opts.Width, "width", render.DefaultWidth, "drawing width in inches")
	cmd.Flags().Float64Var(&opts.PointSize, "point-size", render.DefaultPointSize, "point diameter in inches")

	return cmd
}

// runRender loads the embedding and its decorations and writes the drawing.
func (c *CLI) runRender(ctx context.Context, input, output, labelsPath, graphPath string, opts render.Options) error {
	e, err := sgio.ImportEmbedding(input)
	if err != nil {
		return fmt.Errorf("load embedding %s: %w", input, err)
	}
	if labelsPath != "" {
		if opts.Labels, err = sgio.ImportLabels(labelsPath); err != nil {
			return fmt.Errorf("load labels %s: %w", labelsPath, err)
		}
	}
	if graphPath != "" {
		loaded, err := sgio.LoadInput(graphPath, sgio.LoadOptions{Kind: embed.KindGraph})
		if err != nil {
			return fmt.Errorf("load graph %s: %w", graphPath, err)
		}
		opts.Edges = loaded.Graph
	}

	spinner := newSpinnerWithContext(ctx, "Rendering...")
	spinner.Start()
	err = writeRendering(ctx, output, e.Y, e.Dims, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	printSuccess("Render complete")
	printFile(output)
	printStats(e.N(), edgeCount(opts), false)
	return nil
}

// writeRendering draws y to path; the extension picks SVG, PNG or DOT.
func writeRendering(ctx context.Context, path string, y []float64, d int, opts render.Options) error {
	dot, err := render.ToDOT(y, d, opts)
	if err != nil {
		return err
	}
	var data []byte
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".svg":
		data, err = render.RenderSVG(ctx, dot)
	case ".png":
		data, err = render.RenderPNG(ctx, dot)
	case ".dot", ".gv":
		data = []byte(dot)
	default:
		return fmt.Errorf("invalid render output %s (must be .svg, .png or .dot)", path)
	}
	if err != nil {
		return err
	}
	if err := writeFile(path, data); err != nil {
		return fmt.Errorf("write output %s: %w", path, err)
	}
	return nil
}

func edgeCount(opts render.Options) int {
	if opts.Edges == nil {
		return 0
	}
	return opts.Edges.NNZ()
}
