package lattice

import (
	"maps"
	"slices"

	"github.com/hurou927/fd-discover/internal/attrset"
)

// Prefix returns x without its highest attribute.
func Prefix(x attrset.Set) attrset.Set {
	return x.Without(x.Highest())
}

// PrefixBlock is a group of same-level attribute sets sharing a prefix.
type PrefixBlock struct {
	Prefix attrset.Set
	Sets   []attrset.Set
}

// Pair is two members of a prefix block whose union is a next-level candidate.
type Pair struct {
	X1, X2 attrset.Set
}

// Union returns X1 ∪ X2.
func (p Pair) Union() attrset.Set {
	return p.X1.Union(p.X2)
}

// Pairs returns all unordered pairs of the block in a deterministic order.
func (b PrefixBlock) Pairs() []Pair {
	var out []Pair
	for i := 0; i < len(b.Sets); i++ {
		for j := i + 1; j < len(b.Sets); j++ {
			out = append(out, Pair{X1: b.Sets[i], X2: b.Sets[j]})
		}
	}
	return out
}

// PrefixBlocks groups the sets of l by prefix. Blocks are ordered by prefix and
// their members by attrset.Compare. Blocks with a single member are kept.
func PrefixBlocks(l *Level) []PrefixBlock {
	byPrefix := make(map[attrset.Set][]attrset.Set)
	for _, x := range l.Sets() {
		p := Prefix(x)
		byPrefix[p] = append(byPrefix[p], x)
	}
	prefixes := slices.SortedFunc(maps.Keys(byPrefix), attrset.Compare)
	out := make([]PrefixBlock, len(prefixes))
	for i, p := range prefixes {
		out[i] = PrefixBlock{Prefix: p, Sets: byPrefix[p]}
	}
	return out
}

// HasAllSubsets reports whether every subset of x with one attribute removed is in l.
func HasAllSubsets(l *Level, x attrset.Set) bool {
	for a := range x.All() {
		if !l.Has(x.Without(a)) {
			return false
		}
	}
	return true
}
