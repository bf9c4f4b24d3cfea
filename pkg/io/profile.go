package io

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/matzehuels/sgtsnepi/pkg/embed"
	"github.com/matzehuels/sgtsnepi/pkg/errors"
)

// WriteProfile writes one CSV row per iteration: module timings in
// milliseconds followed by grid size, domain extent and scale factor for
// each embedding dimension.
func WriteProfile(w io.Writer, p *embed.Profile) error {
	if p == nil {
		return errors.New(errors.ErrCodeInvalidInput, "no profile recorded")
	}
	cw := csv.NewWriter(w)
	header := []string{"iteration", "attraction_ms", "grid_ms", "repulsion_ms", "update_ms", "cost_ms", "total_ms"}
	for _, col := range []string{"grid", "extent", "scale"} {
		for k := 0; k < p.Dims; k++ {
			header = append(header, col+strconv.Itoa(k))
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	ms := func(d time.Duration) string {
		return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 4, 64)
	}
	rec := make([]string, 0, len(header))
	for _, r := range p.Rows {
		rec = append(rec[:0], strconv.Itoa(r.Iteration),
			ms(r.Attraction), ms(r.Grid), ms(r.Repulsion), ms(r.Update), ms(r.Cost), ms(r.Total))
		for k := 0; k < p.Dims; k++ {
			rec = append(rec, strconv.Itoa(r.GridSize[k]))
		}
		for k := 0; k < p.Dims; k++ {
			rec = append(rec, strconv.FormatFloat(r.Extent[k], 'g', 6, 64))
		}
		for k := 0; k < p.Dims; k++ {
			rec = append(rec, strconv.FormatFloat(r.Scale[k], 'g', 6, 64))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportProfile writes p to a CSV file.
func ExportProfile(p *embed.Profile, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteProfile(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
