package lattice

import "github.com/hurou927/fd-discover/internal/attrset"

// Candidates returns the intersection of the Rhs sets of every immediate generalization
// X\{A} of x, read from the previous level. An attribute can only be determined by x if
// none of its generalizations has ruled it out.
func Candidates(prev *Level, x attrset.Set, universe attrset.Set) attrset.Set {
	if x.IsEmpty() {
		return universe
	}
	out := universe
	for a := range x.All() {
		out = out.Intersect(prev.MustGet(x.Without(a)).Rhs)
		if out.IsEmpty() {
			break
		}
	}
	return out
}

// KeyCandidates returns the intersection of the Rhs sets of (x ∪ {a}) \ {b} for every b
// in x, read from x's own level. A set missing from the level contributes nothing.
func KeyCandidates(cur *Level, x attrset.Set, a int, universe attrset.Set) attrset.Set {
	out := universe
	withA := x.With(a)
	for b := range x.All() {
		y, ok := cur.Get(withA.Without(b))
		if !ok {
			return attrset.Empty
		}
		out = out.Intersect(y.Rhs)
	}
	return out
}
