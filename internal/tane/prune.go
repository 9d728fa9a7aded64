package tane

import (
	"github.com/hurou927/fd-discover/internal/attrset"
	"github.com/hurou927/fd-discover/internal/fd"
	"github.com/hurou927/fd-discover/internal/lattice"
)

// prune removes nodes that can no longer determine anything and reports the
// dependencies of keys. When emitKeys is false keys are left untouched.
func (s *search) prune(cur *lattice.Level, emitKeys bool) error {
	var (
		remove []attrset.Set
		found  []fd.Dependency
	)
	for _, n := range cur.Nodes() {
		if n.Rhs.IsEmpty() {
			remove = append(remove, n.Attrs)
			continue
		}
		if !emitKeys || !n.Valid || !n.Partition.IsKey() {
			continue
		}
		for a := range n.Rhs.Difference(n.Attrs).All() {
			if !lattice.KeyCandidates(cur, n.Attrs, a, s.universe).Has(a) {
				continue
			}
			found = append(found, fd.Dependency{Determinant: n.Attrs, Dependent: a})
			n.Rhs = n.Rhs.Without(a)
			n.Invalidate()
		}
	}
	for _, x := range remove {
		cur.Delete(x)
	}
	return s.emitAll(found)
}
