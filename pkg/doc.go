// Package pkg provides the core libraries for sgtsnepi graph embedding.
//
// # Overview
//
// sgtsnepi places the vertices of a sparse weighted graph in one, two or
// three dimensions so that strongly connected vertices land close together.
// It implements SG-t-SNE-Π: t-SNE generalized to arbitrary stochastic
// graphs, with attraction over the graph's edges and repulsion over all
// pairs, the latter approximated on an FFT-convolved interpolation grid.
// The pkg directory is organized into four main areas:
//
//  1. Core numerics ([sparse], [knn], [affinity], [attraction], [grid],
//     [repulsion], [embed])
//  2. Evaluation and drawing ([quality], [render])
//  3. Plumbing ([io], [cache], [config], [pipeline])
//  4. Shared support ([errors], [observability], [parallel], [buildinfo])
//
// # Architecture
//
// The typical data flow through sgtsnepi:
//
//	Point cloud (CSV, TSV, .f64)         Graph (.mtx, edge list, JSON)
//	         ↓                                    │
//	    [knn] + [affinity] (kNN graph, p(j|i))    │
//	         ↓                                    ↓
//	    [affinity].Prepare (λ-rescale, symmetrize, normalize)
//	         ↓
//	    [embed] optimizer
//	      ├── [attraction] (sparse graph forces)
//	      └── [repulsion] (exact, or [grid] + FFT convolution)
//	         ↓
//	    Embedding (CSV/TSV/JSON) → [quality], [render]
//
// # Quick Start
//
// Embed a graph:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/sgtsnepi/pkg/embed"
//	    "github.com/matzehuels/sgtsnepi/pkg/io"
//	)
//
//	g, _ := io.ImportMatrixMarket("graph.mtx")
//	res, err := embed.Embed(context.Background(), g, embed.Options{Dims: 2, Lambda: 10})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Point(0), res.FinalCost())
//
// Embed a point cloud through its kNN graph:
//
//	x, _ := knn.FromRows(rows)
//	res, err := embed.EmbedPoints(ctx, x, affinity.Options{Perplexity: 30}, embed.Options{})
//
// # Main Packages
//
// ## Core Numerics
//
// [sparse] - Compressed sparse row graphs with the handful of operations the
// optimizer needs (transpose, scaled sums, filters, subgraphs).
//
// [knn] - Exact and random-projection-forest neighbor search.
//
// [affinity] - Perplexity calibration of kNN graphs and the λ-rescaling,
// symmetrization and normalization of arbitrary graphs.
//
// [attraction] - Attractive forces and the KL cost over the sparse graph.
//
// [grid] - Interpolation grids: size selection and cubic Lagrange
// scatter/gather.
//
// [repulsion] - Repulsive forces and the normalization term Z: exact,
// FFT-accelerated, and band-limited variants behind one interface.
//
// [embed] - The gradient-descent optimizer with early exaggeration,
// momentum, gains, early stopping and profiling.
//
// ## Evaluation and Drawing
//
// [quality] - Neighbor recall, Spearman rank correlation and histograms.
//
// [render] - DOT and Graphviz SVG/PNG drawings of 1D/2D embeddings.
//
// ## Plumbing
//
// [io] - Matrix Market, edge list, JSON, CSV/TSV and binary readers and
// writers.
//
// [cache] - Content-addressed caching of kNN graphs and embeddings (file,
// memory, redis).
//
// [config] - TOML settings files.
//
// [pipeline] - load → graph → embed → export with caching, used by the CLI.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                          # All tests
//	go test ./pkg/embed/...                    # Specific package
//	SGTSNEPI_REDIS_URL=redis://localhost:6379 go test ./pkg/cache/...
//
// [sparse]: https://pkg.go.dev/github.com/matzehuels/sgtsnepi/pkg/sparse
// [knn]: https://pkg.go.dev/github.com/matzehuels/sgtsnepi/pkg/knn
// [affinity]: https://pkg.go.dev/github.com/matzehuels/sgtsnepi/pkg/affinity
// [attraction]: https://pkg.go.dev/github.com/matzehuels/sgtsnepi/pkg/attraction
// [grid]: https://pkg.go.dev/github.com/matzehuels/sgtsnepi/pkg/grid
// [repulsion]: https://pkg.go.dev/github.com/matzehuels/sgtsnepi/pkg/repulsion
// [embed]: https://pkg.go.dev/github.com/matzehuels/sgtsnepi/pkg/embed
// [quality]: https://pkg.go.dev/github.com/matzehuels/sgtsnepi/pkg/quality
// [render]: https://pkg.go.dev/github.com/matzehuels/sgtsnepi/pkg/render
// [io]: https://pkg.go.dev/github.com/matzehuels/sgtsnepi/pkg/io
// [cache]: https://pkg.go.dev/github.com/matzehuels/sgtsnepi/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/sgtsnepi/pkg/config
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/sgtsnepi/pkg/pipeline
// [errors]: https://pkg.go.dev/github.com/matzehuels/sgtsnepi/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/sgtsnepi/pkg/observability
// [parallel]: https://pkg.go.dev/github.com/matzehuels/sgtsnepi/pkg/parallel
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/sgtsnepi/pkg/buildinfo
package pkg
