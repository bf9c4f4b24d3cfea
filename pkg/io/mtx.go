package io

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/matzehuels/sgtsnepi/pkg/errors"
	"github.com/matzehuels/sgtsnepi/pkg/sparse"
)

const mtxBanner = "%%MatrixMarket"

// mtxHeader is the parsed banner line.
type mtxHeader struct {
	layout   string // coordinate or array
	field    string // real, integer, pattern
	symmetry string // general, symmetric
}

func parseBanner(line string) (mtxHeader, error) {
	f := strings.Fields(strings.ToLower(line))
	if len(f) != 5 || f[0] != strings.ToLower(mtxBanner) || f[1] != "matrix" {
		return mtxHeader{}, errors.New(errors.ErrCodeInvalidFormat, "not a Matrix Market header: %q", line)
	}
	h := mtxHeader{layout: f[2], field: f[3], symmetry: f[4]}
	switch h.layout {
	case "coordinate", "array":
	default:
		return h, errors.New(errors.ErrCodeUnsupported, "matrix market layout %q", h.layout)
	}
	switch h.field {
	case "real", "integer", "pattern", "double":
	default:
		return h, errors.New(errors.ErrCodeUnsupported, "matrix market field %q", h.field)
	}
	switch h.symmetry {
	case "general", "symmetric":
	default:
		return h, errors.New(errors.ErrCodeUnsupported, "matrix market symmetry %q", h.symmetry)
	}
	if h.layout == "array" && h.field == "pattern" {
		return h, errors.New(errors.ErrCodeInvalidFormat, "pattern arrays are not valid Matrix Market")
	}
	return h, nil
}

// mtxScanner yields the non-comment lines after the banner.
type mtxScanner struct {
	sc   *bufio.Scanner
	line int
}

func newMTXScanner(r io.Reader) *mtxScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	return &mtxScanner{sc: sc}
}

func (s *mtxScanner) next() ([]string, bool) {
	for s.sc.Scan() {
		s.line++
		t := strings.TrimSpace(s.sc.Text())
		if t == "" || strings.HasPrefix(t, "%") {
			continue
		}
		return strings.Fields(t), true
	}
	return nil, false
}

func (s *mtxScanner) errorf(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidFormat, "line %d: %s", s.line, fmt.Sprintf(format, args...))
}

func (s *mtxScanner) header() (mtxHeader, error) {
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return mtxHeader{}, err
		}
		return mtxHeader{}, errors.New(errors.ErrCodeInvalidFormat, "empty matrix market file")
	}
	s.line++
	return parseBanner(s.sc.Text())
}

// ReadMatrixMarket decodes a square coordinate matrix into a graph.
// Pattern entries get weight 1.
func ReadMatrixMarket(r io.Reader) (*sparse.Graph, error) {
	s := newMTXScanner(r)
	h, err := s.header()
	if err != nil {
		return nil, err
	}
	if h.layout != "coordinate" {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "graph must be a coordinate matrix, got %s", h.layout)
	}
	size, ok := s.next()
	if !ok || len(size) != 3 {
		return nil, s.errorf("missing size line")
	}
	rows, err1 := strconv.Atoi(size[0])
	cols, err2 := strconv.Atoi(size[1])
	nnz, err3 := strconv.Atoi(size[2])
	if err1 != nil || err2 != nil || err3 != nil || rows < 0 || nnz < 0 {
		return nil, s.errorf("bad size line %v", size)
	}
	if rows != cols {
		return nil, errors.New(errors.ErrCodeInvalidInput, "adjacency matrix must be square, got %d×%d", rows, cols)
	}

	b := sparse.NewBuilder(rows)
	want := 3
	if h.field == "pattern" {
		want = 2
	}
	for e := 0; e < nnz; e++ {
		f, ok := s.next()
		if !ok {
			return nil, s.errorf("expected %d entries, found %d", nnz, e)
		}
		if len(f) < want {
			return nil, s.errorf("entry has %d fields, want %d", len(f), want)
		}
		i, erri := strconv.Atoi(f[0])
		j, errj := strconv.Atoi(f[1])
		if erri != nil || errj != nil || i < 1 || j < 1 || i > rows || j > cols {
			return nil, s.errorf("bad index %s %s", f[0], f[1])
		}
		w := 1.0
		if want == 3 {
			if w, err = strconv.ParseFloat(f[2], 64); err != nil {
				return nil, s.errorf("bad value %q", f[2])
			}
		}
		b.Add(i-1, j-1, w)
		if h.symmetry == "symmetric" && i != j {
			b.Add(j-1, i-1, w)
		}
	}
	if err := s.sc.Err(); err != nil {
		return nil, err
	}
	return b.Build()
}

// ReadMatrixMarketArray decodes a dense array file in column-major order
// and returns its values with the row and column counts.
func ReadMatrixMarketArray(r io.Reader) ([]float64, int, int, error) {
	s := newMTXScanner(r)
	h, err := s.header()
	if err != nil {
		return nil, 0, 0, err
	}
	if h.layout != "array" || h.symmetry != "general" {
		return nil, 0, 0, errors.New(errors.ErrCodeInvalidFormat, "want a general array, got %s %s", h.layout, h.symmetry)
	}
	size, ok := s.next()
	if !ok || len(size) != 2 {
		return nil, 0, 0, s.errorf("missing size line")
	}
	rows, err1 := strconv.Atoi(size[0])
	cols, err2 := strconv.Atoi(size[1])
	if err1 != nil || err2 != nil || rows < 0 || cols < 0 {
		return nil, 0, 0, s.errorf("bad size line %v", size)
	}
	vals := make([]float64, 0, rows*cols)
	for len(vals) < rows*cols {
		f, ok := s.next()
		if !ok {
			return nil, 0, 0, s.errorf("expected %d values, found %d", rows*cols, len(vals))
		}
		for _, t := range f {
			v, err := strconv.ParseFloat(t, 64)
			if err != nil {
				return nil, 0, 0, s.errorf("bad value %q", t)
			}
			vals = append(vals, v)
		}
	}
	return vals, rows, cols, nil
}

// WriteMatrixMarket encodes g as a general real coordinate matrix.
func WriteMatrixMarket(w io.Writer, g *sparse.Graph) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s matrix coordinate real general\n", mtxBanner)
	fmt.Fprintf(bw, "%d %d %d\n", g.N, g.N, g.NNZ())
	for i := 0; i < g.N; i++ {
		cols, vals := g.Row(i)
		for e, j := range cols {
			fmt.Fprintf(bw, "%d %d %s\n", i+1, j+1, strconv.FormatFloat(vals[e], 'g', -1, 64))
		}
	}
	return bw.Flush()
}

// ImportMatrixMarket reads a graph from a .mtx file.
func ImportMatrixMarket(path string) (*sparse.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, openError(path, err)
	}
	defer f.Close()
	g, err := ReadMatrixMarket(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// ExportMatrixMarket writes g to a .mtx file.
func ExportMatrixMarket(g *sparse.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteMatrixMarket(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func openError(path string, err error) error {
	if os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	return fmt.Errorf("open %s: %w", path, err)
}
