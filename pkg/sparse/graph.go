// Package sparse holds the compressed sparse row similarity graph consumed
// by the embedding pipeline.
//
// A Graph stores N vertices and, for every vertex i, the sorted neighbor
// columns Col[RowPtr[i]:RowPtr[i+1]] with matching weights in Val. Graphs
// are immutable once built: every transform returns a new value.
package sparse

import (
	"math"
	"sort"

	"github.com/matzehuels/sgtsnepi/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Graph is a weighted directed graph in CSR form.
type Graph struct {
	N      int       // number of vertices
	RowPtr []int     // len N+1; RowPtr[i]..RowPtr[i+1] index the out-edges of i
	Col    []int     // len NNZ; target vertex of each edge, sorted within a row
	Val    []float64 // len NNZ; non-negative finite weight of each edge
}

// Empty returns a graph with n vertices and no edges.
func Empty(n int) *Graph {
	return &Graph{N: n, RowPtr: make([]int, n+1)}
}

// NNZ returns the number of stored edges.
func (g *Graph) NNZ() int {
	return len(g.Col)
}

// Row returns the neighbor columns and weights of vertex i. The slices
// alias the graph storage and must not be modified.
func (g *Graph) Row(i int) ([]int, []float64) {
	lo, hi := g.RowPtr[i], g.RowPtr[i+1]
	return g.Col[lo:hi], g.Val[lo:hi]
}

// Degree returns the out-degree of vertex i.
func (g *Graph) Degree(i int) int {
	return g.RowPtr[i+1] - g.RowPtr[i]
}

// Sum returns the total edge weight.
func (g *Graph) Sum() float64 {
	var s float64
	for _, v := range g.Val {
		s += v
	}
	return s
}

// RowSum returns the out-weight of vertex i.
func (g *Graph) RowSum(i int) float64 {
	var s float64
	_, vals := g.Row(i)
	for _, v := range vals {
		s += v
	}
	return s
}

// Clone returns a deep copy.
func (g *Graph) Clone() *Graph {
	return &Graph{
		N:      g.N,
		RowPtr: append([]int(nil), g.RowPtr...),
		Col:    append([]int(nil), g.Col...),
		Val:    append([]float64(nil), g.Val...),
	}
}

// Validate checks the structural invariants: consistent array lengths,
// monotone row pointers, in-range sorted columns without duplicates or
// self-loops, and non-negative finite weights.
func (g *Graph) Validate() error {
	if g.N < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "negative vertex count %d", g.N)
	}
	if len(g.RowPtr) != g.N+1 {
		return errors.New(errors.ErrCodeInvalidInput, "row pointer length %d, want %d", len(g.RowPtr), g.N+1)
	}
	if len(g.Col) != len(g.Val) {
		return errors.New(errors.ErrCodeInvalidInput, "column and value arrays differ in length (%d vs %d)", len(g.Col), len(g.Val))
	}
	if g.RowPtr[0] != 0 || g.RowPtr[g.N] != len(g.Col) {
		return errors.New(errors.ErrCodeInvalidInput, "row pointers do not span the edge arrays")
	}
	for i := 0; i < g.N; i++ {
		lo, hi := g.RowPtr[i], g.RowPtr[i+1]
		if hi < lo {
			return errors.New(errors.ErrCodeInvalidInput, "row pointers decrease at row %d", i)
		}
		prev := -1
		for k := lo; k < hi; k++ {
			j := g.Col[k]
			switch {
			case j < 0 || j >= g.N:
				return errors.New(errors.ErrCodeInvalidInput, "edge (%d,%d) out of range for %d vertices", i, j, g.N)
			case j == i:
				return errors.New(errors.ErrCodeInvalidInput, "self-loop at vertex %d", i)
			case j <= prev:
				return errors.New(errors.ErrCodeInvalidInput, "row %d columns not strictly increasing", i)
			}
			prev = j
			if v := g.Val[k]; v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.New(errors.ErrCodeInvalidInput, "edge (%d,%d) has invalid weight %v", i, j, v)
			}
		}
	}
	return nil
}

// Transpose returns Gᵀ.
func (g *Graph) Transpose() *Graph {
	t := &Graph{N: g.N, RowPtr: make([]int, g.N+1), Col: make([]int, len(g.Col)), Val: make([]float64, len(g.Val))}
	for _, j := range g.Col {
		t.RowPtr[j+1]++
	}
	for i := 0; i < g.N; i++ {
		t.RowPtr[i+1] += t.RowPtr[i]
	}
	next := append([]int(nil), t.RowPtr[:g.N]...)
	// Rows are visited in order, so each transposed row comes out sorted.
	for i := 0; i < g.N; i++ {
		cols, vals := g.Row(i)
		for k, j := range cols {
			p := next[j]
			t.Col[p] = i
			t.Val[p] = vals[k]
			next[j]++
		}
	}
	return t
}

// AddScaled returns a·A + b·B. Both graphs must have the same vertex count.
func AddScaled(a float64, A *Graph, b float64, B *Graph) (*Graph, error) {
	if A.N != B.N {
		return nil, errors.New(errors.ErrCodeInvalidInput, "vertex counts differ (%d vs %d)", A.N, B.N)
	}
	out := &Graph{N: A.N, RowPtr: make([]int, A.N+1)}
	out.Col = make([]int, 0, A.NNZ()+B.NNZ())
	out.Val = make([]float64, 0, A.NNZ()+B.NNZ())
	for i := 0; i < A.N; i++ {
		ac, av := A.Row(i)
		bc, bv := B.Row(i)
		p, q := 0, 0
		for p < len(ac) || q < len(bc) {
			switch {
			case q == len(bc) || (p < len(ac) && ac[p] < bc[q]):
				out.Col = append(out.Col, ac[p])
				out.Val = append(out.Val, a*av[p])
				p++
			case p == len(ac) || bc[q] < ac[p]:
				out.Col = append(out.Col, bc[q])
				out.Val = append(out.Val, b*bv[q])
				q++
			default:
				out.Col = append(out.Col, ac[p])
				out.Val = append(out.Val, a*av[p]+b*bv[q])
				p++
				q++
			}
		}
		out.RowPtr[i+1] = len(out.Col)
	}
	return out, nil
}

// Scale returns s·G.
func (g *Graph) Scale(s float64) *Graph {
	out := g.Clone()
	for k := range out.Val {
		out.Val[k] *= s
	}
	return out
}

// Filter returns the graph keeping only edges for which keep returns true.
func (g *Graph) Filter(keep func(i, j int, v float64) bool) *Graph {
	out := &Graph{N: g.N, RowPtr: make([]int, g.N+1)}
	for i := 0; i < g.N; i++ {
		cols, vals := g.Row(i)
		for k, j := range cols {
			if keep(i, j, vals[k]) {
				out.Col = append(out.Col, j)
				out.Val = append(out.Val, vals[k])
			}
		}
		out.RowPtr[i+1] = len(out.Col)
	}
	return out
}

// IsSymmetric reports whether G equals Gᵀ within an absolute tolerance.
func (g *Graph) IsSymmetric(tol float64) bool {
	t := g.Transpose()
	if t.NNZ() != g.NNZ() {
		return false
	}
	for k := range g.Col {
		if g.Col[k] != t.Col[k] || math.Abs(g.Val[k]-t.Val[k]) > tol {
			return false
		}
	}
	for i := range g.RowPtr {
		if g.RowPtr[i] != t.RowPtr[i] {
			return false
		}
	}
	return true
}

// Isolated returns the vertices with neither in- nor out-edges.
func (g *Graph) Isolated() []int {
	touched := make([]bool, g.N)
	for i := 0; i < g.N; i++ {
		if g.Degree(i) > 0 {
			touched[i] = true
		}
	}
	for _, j := range g.Col {
		touched[j] = true
	}
	var iso []int
	for i, ok := range touched {
		if !ok {
			iso = append(iso, i)
		}
	}
	return iso
}

// Subgraph returns the graph induced by the given sorted vertex list,
// renumbered so that keep[k] becomes vertex k.
func (g *Graph) Subgraph(keep []int) *Graph {
	index := make([]int, g.N)
	for i := range index {
		index[i] = -1
	}
	for k, v := range keep {
		index[v] = k
	}
	out := &Graph{N: len(keep), RowPtr: make([]int, len(keep)+1)}
	for k, v := range keep {
		cols, vals := g.Row(v)
		for e, j := range cols {
			if m := index[j]; m >= 0 {
				out.Col = append(out.Col, m)
				out.Val = append(out.Val, vals[e])
			}
		}
		out.RowPtr[k+1] = len(out.Col)
	}
	return out
}

// ToDense converts the graph to a dense matrix. Intended for small graphs
// in tests and diagnostics.
func (g *Graph) ToDense() *mat.Dense {
	if g.N == 0 {
		return &mat.Dense{}
	}
	m := mat.NewDense(g.N, g.N, nil)
	for i := 0; i < g.N; i++ {
		cols, vals := g.Row(i)
		for k, j := range cols {
			m.Set(i, j, vals[k])
		}
	}
	return m
}

// FromDense builds a graph from the non-zero off-diagonal entries of a
// square matrix.
func FromDense(m mat.Matrix) (*Graph, error) {
	r, c := m.Dims()
	if r != c {
		return nil, errors.New(errors.ErrCodeInvalidInput, "adjacency matrix must be square, got %dx%d", r, c)
	}
	b := NewBuilder(r)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); v != 0 {
				b.Add(i, j, v)
			}
		}
	}
	return b.Build()
}

// Builder accumulates (i, j, w) triplets into a Graph.
type Builder struct {
	n    int
	rows []int
	cols []int
	vals []float64
}

// NewBuilder returns a builder for a graph with n vertices.
func NewBuilder(n int) *Builder {
	return &Builder{n: n}
}

// Add records an edge. Validation happens in Build.
func (b *Builder) Add(i, j int, w float64) {
	b.rows = append(b.rows, i)
	b.cols = append(b.cols, j)
	b.vals = append(b.vals, w)
}

// Len returns the number of recorded triplets.
func (b *Builder) Len() int {
	return len(b.rows)
}

// Build validates the triplets and assembles the CSR graph. Self-loops are
// dropped, duplicate entries are summed, and explicit zeros are removed.
func (b *Builder) Build() (*Graph, error) {
	return FromTriplets(b.n, b.rows, b.cols, b.vals)
}

// FromTriplets assembles a graph from coordinate lists.
func FromTriplets(n int, rows, cols []int, vals []float64) (*Graph, error) {
	if n < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "negative vertex count %d", n)
	}
	if len(rows) != len(cols) || len(rows) != len(vals) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "triplet arrays differ in length")
	}
	g := &Graph{N: n, RowPtr: make([]int, n+1)}
	for k := range rows {
		i, j, v := rows[k], cols[k], vals[k]
		if i < 0 || i >= n || j < 0 || j >= n {
			return nil, errors.New(errors.ErrCodeInvalidInput, "edge (%d,%d) out of range for %d vertices", i, j, n)
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "edge (%d,%d) has invalid weight %v", i, j, v)
		}
		if i != j {
			g.RowPtr[i+1]++
		}
	}
	for i := 0; i < n; i++ {
		g.RowPtr[i+1] += g.RowPtr[i]
	}
	col := make([]int, g.RowPtr[n])
	val := make([]float64, g.RowPtr[n])
	next := append([]int(nil), g.RowPtr[:n]...)
	for k := range rows {
		i, j := rows[k], cols[k]
		if i == j {
			continue
		}
		col[next[i]] = j
		val[next[i]] = vals[k]
		next[i]++
	}

	// Sort each row and merge duplicates in place.
	g.Col = col[:0]
	g.Val = val[:0]
	out := 0
	for i := 0; i < n; i++ {
		lo, hi := g.RowPtr[i], g.RowPtr[i+1]
		sort.Sort(rowSorter{col[lo:hi], val[lo:hi]})
		start := out
		for k := lo; k < hi; k++ {
			if out > start && col[out-1] == col[k] {
				val[out-1] += val[k]
				continue
			}
			col[out] = col[k]
			val[out] = val[k]
			out++
		}
		// Drop explicit zeros after summation.
		w := start
		for k := start; k < out; k++ {
			if val[k] != 0 {
				col[w] = col[k]
				val[w] = val[k]
				w++
			}
		}
		out = w
		g.RowPtr[i] = start
	}
	g.RowPtr[n] = out
	g.Col = col[:out]
	g.Val = val[:out]
	return g, nil
}

type rowSorter struct {
	col []int
	val []float64
}

func (s rowSorter) Len() int           { return len(s.col) }
func (s rowSorter) Less(a, b int) bool { return s.col[a] < s.col[b] }
func (s rowSorter) Swap(a, b int) {
	s.col[a], s.col[b] = s.col[b], s.col[a]
	s.val[a], s.val[b] = s.val[b], s.val[a]
}
