package embed

import (
	"time"

	"github.com/matzehuels/sgtsnepi/pkg/grid"
	"github.com/matzehuels/sgtsnepi/pkg/repulsion"
)

// ProfileRow holds the timings and grid geometry of one iteration.
type ProfileRow struct {
	Iteration  int
	Attraction time.Duration
	Grid       time.Duration // lattice sizing and scatter
	Repulsion  time.Duration // convolution and gather, or the exact sum
	Update     time.Duration // gradient, gains and coordinate update
	Cost       time.Duration
	Total      time.Duration

	GridSize [grid.MaxDims]int
	Extent   [grid.MaxDims]float64
	Scale    [grid.MaxDims]float64
}

// Profile is the per-iteration record of a run with Options.Profile set.
type Profile struct {
	Dims int
	Rows []ProfileRow
}

// Totals sums the module timings over all iterations.
func (p *Profile) Totals() ProfileRow {
	var t ProfileRow
	if p == nil {
		return t
	}
	for _, r := range p.Rows {
		t.Attraction += r.Attraction
		t.Grid += r.Grid
		t.Repulsion += r.Repulsion
		t.Update += r.Update
		t.Cost += r.Cost
		t.Total += r.Total
	}
	t.Iteration = len(p.Rows)
	return t
}

func (p *Profile) record(row ProfileRow, rep repulsion.Stats, repTotal time.Duration) {
	row.Grid = rep.Grid
	row.Repulsion = repTotal - rep.Grid
	row.GridSize = rep.GridSize
	row.Extent = rep.Extent
	row.Scale = rep.Scale
	p.Rows = append(p.Rows, row)
}
