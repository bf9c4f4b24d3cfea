package grid

// g1 is the Lagrange weight for a node within distance 1.
func g1(t float64) float64 {
	return 0.5*t*t*t - t*t - 0.5*t + 1
}

// g2 is the Lagrange weight for a node at distance in (1, 2].
func g2(t float64) float64 {
	return -t*t*t/6 + t*t - 11*t/6 + 1
}

// weights fills w with the four stencil weights for a point at offset
// delta ∈ [0, 1] past the second node.
func weights(delta float64, w []float64) {
	w[0] = g2(1 + delta)
	w[1] = g1(delta)
	w[2] = g1(1 - delta)
	w[3] = g2(2 - delta)
}
