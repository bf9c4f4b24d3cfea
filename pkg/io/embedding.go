package io

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/matzehuels/sgtsnepi/pkg/errors"
)

// Embedding is a row-major n×Dims coordinate matrix.
type Embedding struct {
	Dims int
	Y    []float64
}

// N returns the number of points.
func (e Embedding) N() int {
	if e.Dims == 0 {
		return 0
	}
	return len(e.Y) / e.Dims
}

type jsonEmbedding struct {
	Dims   int         `json:"dims"`
	Points [][]float64 `json:"points"`
}

// WriteEmbedding writes coordinates in a text format. Text formats carry
// a header row y0,y1,...
func WriteEmbedding(w io.Writer, f Format, e Embedding) error {
	if e.Dims <= 0 || len(e.Y)%e.Dims != 0 {
		return errors.New(errors.ErrCodeInvalidInput, "%d values do not form rows of %d", len(e.Y), e.Dims)
	}
	n := e.N()
	switch f {
	case FormatJSON:
		out := jsonEmbedding{Dims: e.Dims, Points: make([][]float64, n)}
		for i := range out.Points {
			out.Points[i] = e.Y[i*e.Dims : (i+1)*e.Dims]
		}
		enc := json.NewEncoder(w)
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return nil
	case FormatCSV, FormatTSV:
		bw := bufio.NewWriter(w)
		cw := csv.NewWriter(bw)
		cw.Comma = f.delimiter()
		rec := make([]string, e.Dims)
		for k := range rec {
			rec[k] = "y" + strconv.Itoa(k)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			for k := 0; k < e.Dims; k++ {
				rec[k] = strconv.FormatFloat(e.Y[i*e.Dims+k], 'g', -1, 64)
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
		return bw.Flush()
	}
	return errors.New(errors.ErrCodeInvalidFormat, "cannot write embeddings as %s", f)
}

// ReadEmbedding decodes coordinates written by WriteEmbedding, or any
// numeric table.
func ReadEmbedding(r io.Reader, f Format) (Embedding, error) {
	switch f {
	case FormatJSON:
		var in jsonEmbedding
		if err := json.NewDecoder(r).Decode(&in); err != nil {
			return Embedding{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode")
		}
		e := Embedding{Dims: in.Dims, Y: make([]float64, 0, len(in.Points)*in.Dims)}
		for i, p := range in.Points {
			if len(p) != in.Dims {
				return Embedding{}, errors.New(errors.ErrCodeInvalidInput, "point %d has %d coordinates, want %d", i, len(p), in.Dims)
			}
			e.Y = append(e.Y, p...)
		}
		if err := errors.ValidateDims(e.Dims); err != nil {
			return Embedding{}, err
		}
		return e, nil
	case FormatCSV, FormatTSV:
		pc, err := ReadPoints(r, f)
		if err != nil {
			return Embedding{}, err
		}
		if err := errors.ValidateDims(pc.D); err != nil {
			return Embedding{}, err
		}
		return Embedding{Dims: pc.D, Y: pc.Data}, nil
	}
	return Embedding{}, errors.New(errors.ErrCodeInvalidFormat, "cannot read embeddings from %s", f)
}

// ExportEmbedding writes e to path in the format given by its extension.
func ExportEmbedding(e Embedding, path string) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteEmbedding(file, f, e); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// ImportEmbedding reads an embedding file.
func ImportEmbedding(path string) (Embedding, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return Embedding{}, err
	}
	file, err := os.Open(path)
	if err != nil {
		return Embedding{}, openError(path, err)
	}
	defer file.Close()
	e, err := ReadEmbedding(file, f)
	if err != nil {
		return Embedding{}, fmt.Errorf("%s: %w", path, err)
	}
	return e, nil
}
