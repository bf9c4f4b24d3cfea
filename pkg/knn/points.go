package knn

import (
	"math"

	"github.com/matzehuels/sgtsnepi/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// PointCloud is a row-major n×D matrix of features.
type PointCloud struct {
	N    int
	D    int
	Data []float64
}

// NewPointCloud wraps row-major data without copying.
func NewPointCloud(n, d int, data []float64) (PointCloud, error) {
	pc := PointCloud{N: n, D: d, Data: data}
	return pc, pc.Validate()
}

// FromRows copies a slice of rows into a PointCloud. All rows must have the
// same length.
func FromRows(rows [][]float64) (PointCloud, error) {
	if len(rows) == 0 {
		return PointCloud{}, errors.New(errors.ErrCodeInvalidInput, "point cloud is empty")
	}
	d := len(rows[0])
	data := make([]float64, 0, len(rows)*d)
	for i, r := range rows {
		if len(r) != d {
			return PointCloud{}, errors.New(errors.ErrCodeInvalidInput, "point %d has %d features, want %d", i, len(r), d)
		}
		data = append(data, r...)
	}
	return NewPointCloud(len(rows), d, data)
}

// FromDense copies a gonum matrix, one point per row.
func FromDense(m mat.Matrix) (PointCloud, error) {
	r, c := m.Dims()
	data := make([]float64, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data[i*c+j] = m.At(i, j)
		}
	}
	return NewPointCloud(r, c, data)
}

// Row returns point i. The slice aliases the cloud's storage.
func (p PointCloud) Row(i int) []float64 {
	return p.Data[i*p.D : (i+1)*p.D]
}

// Validate checks shape and finiteness.
func (p PointCloud) Validate() error {
	if p.N <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "point cloud is empty")
	}
	if p.D <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "point cloud has no features")
	}
	if len(p.Data) != p.N*p.D {
		return errors.New(errors.ErrCodeInvalidInput, "point cloud data has %d values, want %d×%d", len(p.Data), p.N, p.D)
	}
	for k, v := range p.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New(errors.ErrCodeInvalidInput, "non-finite value %v at point %d, feature %d", v, k/p.D, k%p.D)
		}
	}
	return nil
}

// Degenerate reports whether every point is identical to the first.
func (p PointCloud) Degenerate() bool {
	first := p.Row(0)
	for i := 1; i < p.N; i++ {
		row := p.Row(i)
		for k, v := range row {
			if v != first[k] {
				return false
			}
		}
	}
	return true
}
