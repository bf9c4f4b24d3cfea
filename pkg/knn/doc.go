// Package knn finds the k nearest Euclidean neighbors of every point in a
// point cloud.
//
// Two searches are provided:
//
//   - [Exact]: parallel brute force, O(n²·D). Used for n < 10 000 when the
//     method is [MethodAuto].
//   - [Approximate]: a forest of random projection trees whose leaves seed
//     each point's candidate list, followed by rounds of
//     neighbor-of-neighbor refinement. Deterministic for a fixed seed.
//
// Both return [Neighbors] with squared distances sorted ascending, ties
// broken by index.
package knn
