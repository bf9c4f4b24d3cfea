// Package repulsion computes the repulsive term of the t-SNE gradient.
//
// For coordinates y the engines return, per point i,
//
//	F_i = Σ_j q_ij² (y_i − y_j),   q_ij = 1 / (1 + ‖y_i − y_j‖²)
//
// and the normalization Z = Σ_{i≠j} q_ij. The optimizer divides F by Z.
//
// Three engines implement [Engine]:
//
//   - [Exact] sums all pairs directly. Quadratic in n and refused above
//     [ExactMaxPoints] unless explicitly allowed.
//   - [NUConv] interpolates charges onto a uniform grid, convolves them
//     with the kernels 1/(1+r²) and 1/(1+r²)² by FFT, and interpolates the
//     potentials back.
//   - Band-limited NUConv: the same engine with a smaller per-dimension
//     cap on the grid size, so the spacing grows instead of the grid.
//
// Engines are not safe for concurrent use; each call may reuse buffers
// from the previous one.
package repulsion
