// Package graph views discovered dependencies as a graph over attributes.
package graph

import (
	"github.com/hurou927/fd-discover/internal/fd"
)

// Edge is a dependency with attribute names resolved. From is empty for constant
// attributes.
type Edge struct {
	From  []string
	To    string
	Error float64
}

// Unary reports whether the edge has a single-attribute determinant.
func (e Edge) Unary() bool {
	return len(e.From) == 1
}

// Graph is a directed graph from determinant attributes to dependents.
type Graph struct {
	// Attributes lists every attribute of the relation in column order.
	Attributes []string

	Edges []Edge

	// Constants lists attributes determined by the empty set.
	Constants []string

	// Children maps an attribute to the attributes it determines on its own.
	Children map[string][]string

	// Parents maps an attribute to the single attributes that determine it.
	Parents map[string][]string

	// adjacency for undirected connectivity, over all determinants
	Adjacency map[string]map[string]bool
}

// Build constructs the graph of deps over the attributes names.
func Build(names []string, deps []fd.Dependency) *Graph {
	g := &Graph{
		Attributes: names,
		Children:   make(map[string][]string),
		Parents:    make(map[string][]string),
		Adjacency:  make(map[string]map[string]bool),
	}
	for _, name := range names {
		g.Adjacency[name] = make(map[string]bool)
	}

	for _, d := range deps {
		edge := Edge{
			From:  d.DeterminantNames(names),
			To:    fd.AttributeName(names, d.Dependent),
			Error: d.Error,
		}
		g.Edges = append(g.Edges, edge)
		g.ensure(edge.To)

		switch {
		case len(edge.From) == 0:
			g.Constants = append(g.Constants, edge.To)
		case edge.Unary():
			from := edge.From[0]
			g.Children[from] = append(g.Children[from], edge.To)
			g.Parents[edge.To] = append(g.Parents[edge.To], from)
		}
		for _, from := range edge.From {
			g.ensure(from)
			g.Adjacency[from][edge.To] = true
			g.Adjacency[edge.To][from] = true
		}
	}
	return g
}

func (g *Graph) ensure(name string) {
	if _, ok := g.Adjacency[name]; ok {
		return
	}
	g.Attributes = append(g.Attributes, name)
	g.Adjacency[name] = make(map[string]bool)
}

// Roots returns attributes that no single attribute determines, in column order.
func (g *Graph) Roots() []string {
	var roots []string
	for _, name := range g.Attributes {
		if len(g.Parents[name]) == 0 {
			roots = append(roots, name)
		}
	}
	return roots
}
