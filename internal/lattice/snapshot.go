package lattice

import (
	"fmt"

	"github.com/hurou927/fd-discover/internal/attrset"
	"github.com/hurou927/fd-discover/internal/partition"
)

// Snapshot is the serializable form of a Level.
type Snapshot struct {
	Height int            `json:"height"`
	Nodes  []NodeSnapshot `json:"nodes"`
}

// NodeSnapshot is the serializable form of a Node. Classes is empty for invalid nodes.
type NodeSnapshot struct {
	Attrs   attrset.Set `json:"attrs"`
	Rhs     attrset.Set `json:"rhs"`
	Valid   bool        `json:"valid"`
	Classes [][]int     `json:"classes,omitempty"`
}

// Snapshot captures l in attrset.Compare order.
func (l *Level) Snapshot() Snapshot {
	s := Snapshot{Height: l.Height, Nodes: make([]NodeSnapshot, 0, l.Len())}
	for _, n := range l.Nodes() {
		ns := NodeSnapshot{Attrs: n.Attrs, Rhs: n.Rhs, Valid: n.Valid}
		if n.Valid {
			ns.Classes = n.Partition.Classes()
		}
		s.Nodes = append(s.Nodes, ns)
	}
	return s
}

// Restore rebuilds a Level from a snapshot.
func Restore(s Snapshot) (*Level, error) {
	l := NewLevel(s.Height)
	for _, ns := range s.Nodes {
		if ns.Attrs.Len() != s.Height {
			return nil, fmt.Errorf("node %s does not belong to level %d", ns.Attrs, s.Height)
		}
		if l.Has(ns.Attrs) {
			return nil, fmt.Errorf("duplicate node %s", ns.Attrs)
		}
		n := &Node{Attrs: ns.Attrs, Rhs: ns.Rhs, Valid: ns.Valid}
		if ns.Valid {
			p, err := partition.FromClasses(ns.Classes)
			if err != nil {
				return nil, fmt.Errorf("node %s: %w", ns.Attrs, err)
			}
			n.Partition = p
		}
		l.Put(n)
	}
	return l, nil
}
