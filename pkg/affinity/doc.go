// Package affinity turns point clouds and raw adjacency graphs into the
// symmetric probability matrix that drives the attractive forces.
//
// # Point clouds
//
// [PointCloudToGraph] finds k nearest neighbors per point and calibrates a
// Gaussian bandwidth per point by bisection so that the conditional
// distribution p(j|i) has perplexity u, i.e. Shannon entropy log(u).
// Calibration stops when the entropy is within 1e-5 of the target or after
// 200 steps.
//
// # Graphs
//
// [Prepare] runs the fixed sequence
//
//	drop self-loops → drop leaf edges (optional) → row-normalize →
//	λ-rescale (optional) → symmetrize → scale to unit mass
//
// Each step is also exported on its own.
package affinity
