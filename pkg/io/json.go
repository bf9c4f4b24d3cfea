package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/matzehuels/sgtsnepi/pkg/errors"
	"github.com/matzehuels/sgtsnepi/pkg/sparse"
)

type jsonGraph struct {
	Nodes []jsonNode `json:"nodes"`
	Edges []jsonEdge `json:"edges"`
}

type jsonNode struct {
	ID string `json:"id"`
}

type jsonEdge struct {
	From   string   `json:"from"`
	To     string   `json:"to"`
	Weight *float64 `json:"weight,omitempty"`
}

// ReadJSON decodes a JSON graph. It returns the graph and the node IDs in
// vertex order.
//
// ReadJSON returns an error if:
//   - The JSON is malformed
//   - A node has an empty or duplicate ID
//   - An edge references an unknown node ID
//   - A weight is negative or not finite
func ReadJSON(r io.Reader) (*sparse.Graph, []string, error) {
	var data jsonGraph
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode")
	}

	index := make(map[string]int, len(data.Nodes))
	names := make([]string, len(data.Nodes))
	for i, n := range data.Nodes {
		if n.ID == "" {
			return nil, nil, errors.New(errors.ErrCodeInvalidInput, "node %d: empty id", i)
		}
		if _, dup := index[n.ID]; dup {
			return nil, nil, errors.New(errors.ErrCodeInvalidInput, "node %s: duplicate id", n.ID)
		}
		index[n.ID] = i
		names[i] = n.ID
	}

	b := sparse.NewBuilder(len(data.Nodes))
	for _, e := range data.Edges {
		i, ok := index[e.From]
		j, ok2 := index[e.To]
		if !ok || !ok2 {
			return nil, nil, errors.New(errors.ErrCodeInvalidInput, "edge %s->%s: unknown node", e.From, e.To)
		}
		w := 1.0
		if e.Weight != nil {
			w = *e.Weight
		}
		b.Add(i, j, w)
	}
	g, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	return g, names, nil
}

// WriteJSON encodes g as a JSON graph. Names label the vertices; nil
// names use the vertex index.
func WriteJSON(g *sparse.Graph, names []string, w io.Writer) error {
	if names != nil && len(names) != g.N {
		return errors.New(errors.ErrCodeInvalidInput, "%d names for %d vertices", len(names), g.N)
	}
	name := func(i int) string {
		if names == nil {
			return strconv.Itoa(i)
		}
		return names[i]
	}
	out := jsonGraph{
		Nodes: make([]jsonNode, g.N),
		Edges: make([]jsonEdge, 0, g.NNZ()),
	}
	for i := 0; i < g.N; i++ {
		out.Nodes[i] = jsonNode{ID: name(i)}
		cols, vals := g.Row(i)
		for e, j := range cols {
			wt := vals[e]
			out.Edges = append(out.Edges, jsonEdge{From: name(i), To: name(j), Weight: &wt})
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ImportJSON reads a JSON graph file.
func ImportJSON(path string) (*sparse.Graph, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, openError(path, err)
	}
	defer f.Close()
	g, names, err := ReadJSON(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, names, nil
}

// ExportJSON writes g to a JSON file at path.
func ExportJSON(g *sparse.Graph, names []string, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(g, names, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
