// Package render draws 2D embeddings as scatter plots.
//
// # Overview
//
// [ToDOT] turns embedding coordinates into Graphviz DOT source with every
// point pinned at its coordinates, optionally colored by label and
// overlaid with the edges of the input graph. [RenderSVG] and [RenderPNG]
// lay the DOT out with neato, which keeps pinned positions, and render it
// in-process through go-graphviz.
//
//	dot, err := render.ToDOT(y, 2, render.Options{Labels: labels, Edges: g})
//	svg, err := render.RenderSVG(ctx, dot)
//
// # Colors
//
// Labels are mapped to a palette of well separated hues ([Palette]). With
// an edge overlay, edges whose endpoints share a label use the internal
// edge color and the others use the external one.
package render
