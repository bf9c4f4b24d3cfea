package embed

import (
	"math"
	"math/rand"
)

// placeIsolated writes coordinates for the isolated vertices into full. They
// land just beyond the top-right corner of the active points' bounding box,
// one margin unit plus small jitter away in every dimension.
func placeIsolated(full []float64, active, isolated []int, d int, seed int64) {
	if len(isolated) == 0 {
		return
	}
	var lo, hi [3]float64
	for k := 0; k < d; k++ {
		lo[k], hi[k] = math.Inf(1), math.Inf(-1)
	}
	for _, v := range active {
		for k := 0; k < d; k++ {
			c := full[v*d+k]
			lo[k] = math.Min(lo[k], c)
			hi[k] = math.Max(hi[k], c)
		}
	}
	rng := rand.New(rand.NewSource(seed ^ 0x5bd1e995))
	for _, v := range isolated {
		for k := 0; k < d; k++ {
			base, ext := 0.0, 1.0
			if len(active) > 0 {
				base, ext = hi[k], math.Max(hi[k]-lo[k], 1)
			}
			full[v*d+k] = base + (0.05+0.1*rng.Float64())*ext
		}
	}
}
