package io

import (
	"github.com/matzehuels/sgtsnepi/pkg/affinity"
	"github.com/matzehuels/sgtsnepi/pkg/embed"
	"github.com/matzehuels/sgtsnepi/pkg/errors"
	"github.com/matzehuels/sgtsnepi/pkg/knn"
	"github.com/matzehuels/sgtsnepi/pkg/sparse"
)

// LoadOptions controls LoadInput.
type LoadOptions struct {
	// Kind forces the interpretation. KindUnspecified runs DetectKind.
	Kind embed.Kind
	// BinaryDims is the feature dimension of .f64 point files.
	BinaryDims int
}

// Loaded is a decoded input file.
type Loaded struct {
	Path   string
	Format Format
	Kind   embed.Kind
	Graph  *sparse.Graph
	Points knn.PointCloud
	// Names holds vertex IDs for JSON graphs.
	Names []string
}

// Size returns the vertex or point count.
func (l *Loaded) Size() int {
	if l.Kind == embed.KindGraph {
		return l.Graph.N
	}
	return l.Points.N
}

// Input returns the tagged embedding input. aff configures the kNN graph
// of point clouds.
func (l *Loaded) Input(aff affinity.Options) embed.Input {
	return embed.Input{Kind: l.Kind, Graph: l.Graph, Points: l.Points, Affinity: aff}
}

// LoadInput reads path as a graph or a point cloud.
func LoadInput(path string, opts LoadOptions) (*Loaded, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	kind := opts.Kind
	if kind == embed.KindUnspecified {
		if kind, err = DetectKind(path); err != nil {
			return nil, err
		}
	}
	l := &Loaded{Path: path, Format: f, Kind: kind}
	switch kind {
	case embed.KindGraph:
		if f == FormatJSON {
			l.Graph, l.Names, err = ImportJSON(path)
		} else {
			l.Graph, err = ImportGraph(path)
		}
	case embed.KindCoordinates:
		l.Points, err = ImportPoints(path, opts.BinaryDims)
	default:
		err = errors.New(errors.ErrCodeConfiguration, "unknown input kind %v", kind)
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}
