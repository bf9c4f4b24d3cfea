package render

import (
	"bytes"
	"fmt"
	"math"
	"slices"

	"github.com/matzehuels/sgtsnepi/pkg/errors"
	"github.com/matzehuels/sgtsnepi/pkg/sparse"
)

// Defaults for Options.
const (
	DefaultWidth        = 8.0  // inches
	DefaultPointSize    = 0.06 // inches
	DefaultPointColor   = "#1f77b4"
	DefaultInternalEdge = "#00000022"
	DefaultExternalEdge = "#d6272822"
)

// Options configures ToDOT.
type Options struct {
	// Labels assigns a class to each point; nil draws all points alike.
	Labels []int
	// Edges adds the graph's edges as straight segments.
	Edges *sparse.Graph

	Width        float64
	PointSize    float64
	InternalEdge string
	ExternalEdge string
}

func (o *Options) setDefaults() {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.PointSize <= 0 {
		o.PointSize = DefaultPointSize
	}
	if o.InternalEdge == "" {
		o.InternalEdge = DefaultInternalEdge
	}
	if o.ExternalEdge == "" {
		o.ExternalEdge = DefaultExternalEdge
	}
}

// ToDOT converts an n×d embedding (d = 1 or 2) into DOT source with pinned
// node positions. One-dimensional embeddings are drawn on a horizontal
// line.
func ToDOT(y []float64, d int, opts Options) (string, error) {
	if d != 1 && d != 2 {
		return "", errors.New(errors.ErrCodeUnsupported, "can only draw 1D or 2D embeddings, got %dD", d)
	}
	if len(y)%d != 0 {
		return "", errors.New(errors.ErrCodeInvalidInput, "%d values do not form rows of %d", len(y), d)
	}
	n := len(y) / d
	if opts.Labels != nil && len(opts.Labels) != n {
		return "", errors.New(errors.ErrCodeInvalidInput, "%d labels for %d points", len(opts.Labels), n)
	}
	if opts.Edges != nil && opts.Edges.N != n {
		return "", errors.New(errors.ErrCodeInvalidInput, "graph has %d vertices, embedding has %d points", opts.Edges.N, n)
	}
	if err := errors.ValidateFinite("embedding", y); err != nil {
		return "", err
	}
	opts.setDefaults()

	xs, ys := project(y, d, n)
	scale := fit(xs, ys, opts.Width)
	colors := labelColors(opts.Labels)

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"white\";\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	buf.WriteString("  splines=false;\n")
	fmt.Fprintf(&buf, "  node [shape=circle, style=filled, label=\"\", fixedsize=true, width=%.3f, penwidth=0, fillcolor=%q];\n",
		opts.PointSize, DefaultPointColor)
	buf.WriteString("  edge [penwidth=0.5];\n")
	buf.WriteString("\n")

	for i := 0; i < n; i++ {
		fmt.Fprintf(&buf, "  %d [pos=\"%.4f,%.4f!\"", i, xs[i]*scale, ys[i]*scale)
		if colors != nil {
			fmt.Fprintf(&buf, ", fillcolor=%q", colors[opts.Labels[i]])
		}
		buf.WriteString("];\n")
	}

	if opts.Edges != nil {
		buf.WriteString("\n")
		for i := 0; i < n; i++ {
			cols, _ := opts.Edges.Row(i)
			for _, j := range cols {
				// Undirected drawing: one segment per pair.
				if j < i && hasEdge(opts.Edges, j, i) {
					continue
				}
				color := opts.InternalEdge
				if opts.Labels != nil && opts.Labels[i] != opts.Labels[j] {
					color = opts.ExternalEdge
				}
				fmt.Fprintf(&buf, "  %d -- %d [color=%q];\n", i, j, color)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

func project(y []float64, d, n int) (xs, ys []float64) {
	xs = make([]float64, n)
	ys = make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i] = y[i*d]
		if d == 2 {
			ys[i] = y[i*d+1]
		}
	}
	return xs, ys
}

// fit returns the factor that maps the wider side of the bounding box to
// width inches.
func fit(xs, ys []float64, width float64) float64 {
	span := 0.0
	for _, v := range [][]float64{xs, ys} {
		if len(v) == 0 {
			continue
		}
		span = math.Max(span, slices.Max(v)-slices.Min(v))
	}
	if span == 0 {
		return 1
	}
	return width / span
}

// labelColors maps each distinct label to a palette entry, in sorted label
// order.
func labelColors(labels []int) map[int]string {
	if labels == nil {
		return nil
	}
	distinct := slices.Clone(labels)
	slices.Sort(distinct)
	distinct = slices.Compact(distinct)
	pal := Palette(len(distinct))
	m := make(map[int]string, len(distinct))
	for i, l := range distinct {
		m[l] = pal[i]
	}
	return m
}

func hasEdge(g *sparse.Graph, i, j int) bool {
	cols, _ := g.Row(i)
	_, ok := slices.BinarySearch(cols, j)
	return ok
}
