// Package grid implements the uniform interpolation lattice used by the
// FFT repulsion engines.
//
// A [Grid] covers the bounding box of the points with one node of padding
// below and two above in every dimension. Each point is tied to the 4^d
// surrounding nodes through a cubic Lagrange stencil; [Grid.Scatter] spreads
// per-point charges onto the nodes and [Grid.Gather] reads a node field
// back at the points with the same weights.
//
// Node counts per dimension come from a list of FFT-friendly sizes
// ([Sizes]). When the cell size h would need more nodes than allowed, the
// spacing grows and [Grid.Scale] reports the factor.
//
// Lattices are stored channel by channel, with dimension 0 varying slowest.
package grid
