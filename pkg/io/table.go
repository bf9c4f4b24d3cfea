package io

import (
	"bufio"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/matzehuels/sgtsnepi/pkg/errors"
	"github.com/matzehuels/sgtsnepi/pkg/knn"
	"github.com/matzehuels/sgtsnepi/pkg/sparse"
)

// recordReader yields the fields of delimited text, skipping blank and
// '#' comment lines. TSV fields are split on any run of whitespace.
type recordReader struct {
	csv  *csv.Reader
	sc   *bufio.Scanner
	line int
}

func newRecordReader(r io.Reader, f Format) *recordReader {
	if f == FormatCSV {
		cr := csv.NewReader(r)
		cr.Comment = '#'
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		cr.ReuseRecord = true
		return &recordReader{csv: cr}
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16<<20)
	return &recordReader{sc: sc}
}

// next returns the next record, or io.EOF.
func (rr *recordReader) next() ([]string, error) {
	if rr.csv != nil {
		rec, err := rr.csv.Read()
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "csv")
		}
		rr.line, _ = rr.csv.FieldPos(0)
		return rec, nil
	}
	for rr.sc.Scan() {
		rr.line++
		t := strings.TrimSpace(rr.sc.Text())
		if t == "" || t[0] == '#' {
			continue
		}
		return strings.Fields(t), nil
	}
	if err := rr.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (rr *recordReader) errorf(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidFormat, "line %d: %s", rr.line, fmt.Sprintf(format, args...))
}

func parseRow(rec []string, dst []float64) ([]float64, bool) {
	for _, t := range rec {
		v, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return dst, false
		}
		dst = append(dst, v)
	}
	return dst, true
}

// ReadPoints decodes a delimited point cloud, one point per row. A first
// row that does not parse as numbers is skipped as a header.
func ReadPoints(r io.Reader, f Format) (knn.PointCloud, error) {
	rr := newRecordReader(r, f)
	var data []float64
	d, n := -1, 0
	for {
		rec, err := rr.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return knn.PointCloud{}, err
		}
		before := len(data)
		var ok bool
		data, ok = parseRow(rec, data)
		if !ok {
			data = data[:before]
			if n == 0 && d == -1 {
				d = -2 // header
				continue
			}
			return knn.PointCloud{}, rr.errorf("non-numeric value in %v", rec)
		}
		if n == 0 {
			d = len(rec)
		} else if len(rec) != d {
			return knn.PointCloud{}, errors.New(errors.ErrCodeInvalidInput,
				"point %d has %d features, want %d", n, len(rec), d)
		}
		n++
	}
	if n == 0 {
		return knn.PointCloud{}, errors.New(errors.ErrCodeInvalidInput, "no points")
	}
	return knn.NewPointCloud(n, d, data)
}

// ReadEdgeList decodes "source target [weight]" records with 0-based
// indices. The vertex count is one more than the largest index, or n if
// that is larger.
func ReadEdgeList(r io.Reader, f Format, n int) (*sparse.Graph, error) {
	rr := newRecordReader(r, f)
	var rows, cols []int
	var vals []float64
	maxIdx := -1
	for {
		rec, err := rr.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) < 2 || len(rec) > 3 {
			return nil, rr.errorf("edge needs 2 or 3 fields, got %d", len(rec))
		}
		i, erri := strconv.Atoi(strings.TrimSpace(rec[0]))
		j, errj := strconv.Atoi(strings.TrimSpace(rec[1]))
		if erri != nil || errj != nil {
			if len(rows) == 0 {
				continue // header
			}
			return nil, rr.errorf("bad vertex index in %v", rec)
		}
		w := 1.0
		if len(rec) == 3 {
			if w, err = strconv.ParseFloat(strings.TrimSpace(rec[2]), 64); err != nil {
				return nil, rr.errorf("bad weight %q", rec[2])
			}
		}
		rows, cols, vals = append(rows, i), append(cols, j), append(vals, w)
		maxIdx = max(maxIdx, i, j)
	}
	return sparse.FromTriplets(max(n, maxIdx+1), rows, cols, vals)
}

// ImportPoints reads a point cloud file. Binary files need the feature
// dimension d; text formats ignore it.
func ImportPoints(path string, d int) (knn.PointCloud, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return knn.PointCloud{}, err
	}
	switch f {
	case FormatBinary:
		return ReadBinaryPoints(path, d)
	case FormatCSV, FormatTSV:
		file, err := os.Open(path)
		if err != nil {
			return knn.PointCloud{}, openError(path, err)
		}
		defer file.Close()
		pc, err := ReadPoints(file, f)
		if err != nil {
			return knn.PointCloud{}, fmt.Errorf("%s: %w", path, err)
		}
		return pc, nil
	}
	return knn.PointCloud{}, errors.New(errors.ErrCodeInvalidFormat, "%s: %s is not a point cloud format", path, f)
}

// ImportGraph reads a graph from .mtx, .json or an edge list.
func ImportGraph(path string) (*sparse.Graph, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	switch f {
	case FormatMTX:
		return ImportMatrixMarket(path)
	case FormatJSON:
		g, _, err := ImportJSON(path)
		return g, err
	case FormatCSV, FormatTSV:
		file, err := os.Open(path)
		if err != nil {
			return nil, openError(path, err)
		}
		defer file.Close()
		g, err := ReadEdgeList(file, f, 0)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return g, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "%s: %s is not a graph format", path, f)
}
