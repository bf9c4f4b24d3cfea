// Package embed runs the SG-t-SNE-Π optimizer: it lays out the vertices of
// a sparse similarity graph in 1, 2 or 3 dimensions.
//
// # Overview
//
// [Embed] prepares the graph into a symmetric unit-mass affinity matrix P
// (see package affinity), drops isolated vertices from the active set, and
// runs gradient descent with momentum and per-coordinate gains. Each
// iteration combines
//
//	grad_i = α · Σ_j p_ij q_ij (y_i − y_j)  −  (1/Z) · Σ_j q_ij² (y_i − y_j)
//
// where the attractive sum runs over the edges of P and the repulsive sum
// over all pairs, evaluated by a [repulsion.Engine].
//
// # Phases
//
// The optimizer moves through [PhaseInitializing], [PhaseEarlyExaggeration]
// (α > 1, momentum 0.5), [PhaseAnnealing] (α = 1, momentum 0.8) and
// [PhaseTerminated]. Termination happens after MaxIter iterations, on early
// stopping, or when the context is cancelled; cancellation returns the last
// consistent coordinates together with ctx.Err().
//
// # Inputs
//
// Callers pass either a graph ([Embed]) or a point cloud ([EmbedPoints]),
// or an [Input] with an explicit [Kind] to [Run].
//
// # Isolated vertices
//
// Vertices without edges after preparation receive no force. At the end
// they are placed just outside the top-right corner of the embedding.
package embed
