// Package lattice holds the per-level state of the attribute-set lattice search.
package lattice

import (
	"github.com/hurou927/fd-discover/internal/attrset"
	"github.com/hurou927/fd-discover/internal/partition"
)

// Node is the search state of one attribute set X.
type Node struct {
	Attrs attrset.Set
	// Partition is the stripped partition of Attrs. It is nil once the node is invalid.
	Partition *partition.Stripped
	// Rhs holds the attributes that X may still determine.
	Rhs   attrset.Set
	Valid bool
}

// NewNode returns a valid node with an empty candidate set.
func NewNode(attrs attrset.Set, p *partition.Stripped) *Node {
	return &Node{Attrs: attrs, Partition: p, Valid: true}
}

// Invalidate marks n as excluded from further dependency checks and drops its partition.
func (n *Node) Invalidate() {
	n.Valid = false
	n.Partition = nil
}
