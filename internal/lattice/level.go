package lattice

import (
	"fmt"
	"maps"
	"slices"

	"github.com/hurou927/fd-discover/internal/attrset"
)

// Level maps every attribute set of one lattice height to its node.
type Level struct {
	Height int
	nodes  map[attrset.Set]*Node
}

// NewLevel returns an empty level.
func NewLevel(height int) *Level {
	return &Level{Height: height, nodes: make(map[attrset.Set]*Node)}
}

// Put stores n under n.Attrs, replacing any previous node.
func (l *Level) Put(n *Node) {
	l.nodes[n.Attrs] = n
}

// Get returns the node for x, if present.
func (l *Level) Get(x attrset.Set) (*Node, bool) {
	n, ok := l.nodes[x]
	return n, ok
}

// MustGet returns the node for x and panics if it is missing. A missing generalization
// means generation or pruning broke the subset-existence invariant.
func (l *Level) MustGet(x attrset.Set) *Node {
	n, ok := l.nodes[x]
	if !ok {
		panic(fmt.Sprintf("lattice: level %d has no node for %s", l.Height, x))
	}
	return n
}

// Has reports whether x is in the level.
func (l *Level) Has(x attrset.Set) bool {
	_, ok := l.nodes[x]
	return ok
}

// Delete removes x from the level.
func (l *Level) Delete(x attrset.Set) {
	delete(l.nodes, x)
}

// Len returns the number of nodes.
func (l *Level) Len() int {
	return len(l.nodes)
}

// Sets returns the attribute sets of the level in attrset.Compare order.
func (l *Level) Sets() []attrset.Set {
	return slices.SortedFunc(maps.Keys(l.nodes), attrset.Compare)
}

// Nodes returns the nodes of the level in attrset.Compare order.
func (l *Level) Nodes() []*Node {
	sets := l.Sets()
	out := make([]*Node, len(sets))
	for i, x := range sets {
		out[i] = l.nodes[x]
	}
	return out
}
