package io

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/exp/mmap"

	"github.com/matzehuels/sgtsnepi/pkg/errors"
	"github.com/matzehuels/sgtsnepi/pkg/knn"
)

// ReadBinaryPoints maps a raw little-endian float64 file and decodes it into
// an n×d point cloud.
func ReadBinaryPoints(path string, d int) (knn.PointCloud, error) {
	if d <= 0 {
		return knn.PointCloud{}, errors.New(errors.ErrCodeConfiguration, "binary point files need a positive feature dimension, got %d", d)
	}
	ra, err := mmap.Open(path)
	if err != nil {
		return knn.PointCloud{}, openError(path, err)
	}
	defer ra.Close()

	size := ra.Len()
	if size%8 != 0 {
		return knn.PointCloud{}, errors.New(errors.ErrCodeInvalidFormat, "%s: size %d is not a multiple of 8", path, size)
	}
	vals := size / 8
	if vals == 0 || vals%d != 0 {
		return knn.PointCloud{}, errors.New(errors.ErrCodeInvalidInput, "%s: %d values do not form rows of %d features", path, vals, d)
	}
	data := make([]float64, vals)
	buf := make([]byte, 8*4096)
	for off := 0; off < size; off += len(buf) {
		chunk := buf[:min(len(buf), size-off)]
		if _, err := ra.ReadAt(chunk, int64(off)); err != nil && err != io.EOF {
			return knn.PointCloud{}, fmt.Errorf("read %s: %w", path, err)
		}
		base := off / 8
		for i := 0; i < len(chunk)/8; i++ {
			data[base+i] = math.Float64frombits(binary.LittleEndian.Uint64(chunk[8*i:]))
		}
	}
	return knn.NewPointCloud(vals/d, d, data)
}

// WriteBinaryPoints writes the values of x in the layout ReadBinaryPoints
// expects.
func WriteBinaryPoints(w io.Writer, x knn.PointCloud) error {
	bw := bufio.NewWriter(w)
	var b [8]byte
	for _, v := range x.Data {
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
		if _, err := bw.Write(b[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ExportBinaryPoints writes x to a .f64 file.
func ExportBinaryPoints(x knn.PointCloud, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteBinaryPoints(f, x); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
