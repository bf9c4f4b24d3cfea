package render

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/sgtsnepi/pkg/sparse"
)

func triangle(t *testing.T) *sparse.Graph {
	t.Helper()
	b := sparse.NewBuilder(3)
	for _, e := range [][2]int{{0, 1}, {1, 0}, {1, 2}, {2, 1}, {2, 0}} {
		b.Add(e[0], e[1], 1)
	}
	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestToDOT(t *testing.T) {
	y := []float64{0, 0, 1, 0, 0, 2}
	dot, err := ToDOT(y, 2, Options{Labels: []int{5, 5, 9}, Edges: triangle(t)})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(dot, "graph G {") {
		t.Errorf("unexpected DOT header: %s", dot[:20])
	}
	// The wider side (2 units) maps to the default width.
	if !strings.Contains(dot, `2 [pos="0.0000,8.0000!"`) {
		t.Errorf("point 2 not pinned at the scaled position:\n%s", dot)
	}
	// Reciprocal edges are drawn once.
	if got := strings.Count(dot, " -- "); got != 3 {
		t.Errorf("got %d edges, want 3", got)
	}
	if !strings.Contains(dot, `1 -- 2 [color="`+DefaultExternalEdge+`"]`) {
		t.Error("edge across labels should use the external color")
	}
	if !strings.Contains(dot, `0 -- 1 [color="`+DefaultInternalEdge+`"]`) {
		t.Error("edge within a label should use the internal color")
	}
}

func TestToDOTErrors(t *testing.T) {
	tests := []struct {
		name string
		y    []float64
		d    int
		opts Options
	}{
		{"3d", make([]float64, 9), 3, Options{}},
		{"ragged", make([]float64, 5), 2, Options{}},
		{"labels", make([]float64, 4), 2, Options{Labels: []int{1}}},
		{"graph size", make([]float64, 4), 2, Options{Edges: sparse.Empty(3)}},
	}
	for _, tt := range tests {
		if _, err := ToDOT(tt.y, tt.d, tt.opts); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestToDOT1D(t *testing.T) {
	dot, err := ToDOT([]float64{-1, 1}, 1, Options{Width: 4})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(dot, `1 [pos="2.0000,0.0000!"`) {
		t.Errorf("1D points should lie on the x axis:\n%s", dot)
	}
}

func TestPalette(t *testing.T) {
	p := Palette(12)
	seen := map[string]bool{}
	for _, c := range p {
		if len(c) != 7 || c[0] != '#' {
			t.Errorf("bad color %q", c)
		}
		seen[c] = true
	}
	if len(seen) != 12 {
		t.Errorf("palette has duplicates: %v", p)
	}
}

func TestRenderSVG(t *testing.T) {
	dot, err := ToDOT([]float64{0, 0, 1, 1, 2, 0}, 2, Options{Edges: triangle(t)})
	if err != nil {
		t.Fatal(err)
	}
	svg, err := RenderSVG(context.Background(), dot)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(svg, []byte("<svg")) {
		t.Error("output is not SVG")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 10.00 20.00"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `width="10" height="20"`) {
		t.Errorf("got %s", out)
	}
	if string(normalizeViewBox([]byte("<svg>"))) != "<svg>" {
		t.Error("svg without viewBox should pass through")
	}
}
