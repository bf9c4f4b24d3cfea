package grid

// Sizes returns the 5-smooth integers (only prime factors 2, 3 and 5) in
// [lo, hi], ascending.
func Sizes(lo, hi int) []int {
	var out []int
	for n := max(lo, 1); n <= hi; n++ {
		m := n
		for _, p := range []int{2, 3, 5} {
			for m%p == 0 {
				m /= p
			}
		}
		if m == 1 {
			out = append(out, n)
		}
	}
	return out
}

// DefaultSizes is Sizes(16, 512).
func DefaultSizes() []int {
	return Sizes(16, 512)
}

// pick returns the smallest allowed size ≥ need that does not exceed cap.
// When none qualifies it returns the largest allowed size ≤ cap and
// capped=true.
func pick(allowed []int, need, limit int) (size int, capped bool) {
	best := 0
	for _, s := range allowed {
		if s > limit || s < 4 {
			continue
		}
		if s >= need && (size == 0 || s < size) {
			size = s
		}
		if s > best {
			best = s
		}
	}
	if size != 0 {
		return size, false
	}
	return best, true
}
