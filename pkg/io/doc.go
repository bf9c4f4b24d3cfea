// Package io reads and writes the files the sgtsnepi CLI works with:
// similarity graphs, point clouds, label vectors, embeddings and run
// profiles.
//
// # Graphs
//
//   - Matrix Market coordinate files (.mtx): real, integer or pattern
//     entries, general or symmetric storage. Indices are 1-based as the
//     format requires. Symmetric files store one triangle; both
//     directions are restored on read.
//   - Edge lists (.csv, .tsv, .txt): "source target [weight]" per line,
//     0-based vertex indices, '#' starts a comment.
//   - JSON graphs:
//
//	{
//	  "nodes": [{"id": "a"}, {"id": "b"}, {"id": "c"}],
//	  "edges": [
//	    {"from": "a", "to": "b", "weight": 2},
//	    {"from": "b", "to": "c"}
//	  ]
//	}
//
// Node IDs are free-form strings; a missing weight means 1. Vertex i of the
// resulting graph is the i-th entry of "nodes".
//
// # Point clouds
//
//   - Delimited text (.csv, .tsv): one point per row, one feature per
//     column. A non-numeric first row is treated as a header.
//   - Raw binary (.f64): little-endian float64 values, row-major, read
//     through a memory map. The feature dimension is supplied by the
//     caller.
//
// # Detection
//
// [DetectKind] guesses whether a file holds a graph or coordinates. It is a
// CLI convenience; library callers pass an explicit [embed.Kind].
//
// # Embeddings
//
// [WriteEmbedding] writes coordinates as CSV, TSV or JSON
// ({"dims": d, "points": [[...], ...]}); [ReadEmbedding] reads any of them
// back.
package io
