// Package partition implements stripped partitions: the equivalence classes that an
// attribute set induces over tuple ids, with singleton classes dropped.
package partition

import (
	"fmt"
	"slices"
)

// Stripped is a stripped partition. Every class holds at least two tuple ids in
// increasing order. A Stripped value is never modified after construction.
type Stripped struct {
	classes      [][]int
	elementCount int
}

// Singleton returns the partition putting all n tuples in one class.
// It is the partition of the empty attribute set.
func Singleton(n int) *Stripped {
	if n < 2 {
		return &Stripped{}
	}
	class := make([]int, n)
	for i := range class {
		class[i] = i
	}
	return &Stripped{classes: [][]int{class}, elementCount: n}
}

// FromValueGroups builds a partition from tuple ids grouped by value.
// Groups with fewer than two ids are dropped. Classes are ordered by their smallest id.
func FromValueGroups(groups map[string][]int) *Stripped {
	p := &Stripped{}
	for _, ids := range groups {
		if len(ids) < 2 {
			continue
		}
		class := slices.Clone(ids)
		slices.Sort(class)
		p.classes = append(p.classes, class)
		p.elementCount += len(class)
	}
	sortClasses(p.classes)
	return p
}

// FromClasses rebuilds a partition from explicit classes, as stored in a checkpoint.
func FromClasses(classes [][]int) (*Stripped, error) {
	p := &Stripped{classes: make([][]int, 0, len(classes))}
	seen := make(map[int]struct{})
	for i, c := range classes {
		if len(c) < 2 {
			return nil, fmt.Errorf("class %d has %d tuples, want at least 2", i, len(c))
		}
		for _, id := range c {
			if id < 0 {
				return nil, fmt.Errorf("class %d: negative tuple id %d", i, id)
			}
			if _, dup := seen[id]; dup {
				return nil, fmt.Errorf("class %d: tuple %d appears in more than one class", i, id)
			}
			seen[id] = struct{}{}
		}
		class := slices.Clone(c)
		slices.Sort(class)
		p.classes = append(p.classes, class)
		p.elementCount += len(class)
	}
	return p, nil
}

func sortClasses(classes [][]int) {
	slices.SortFunc(classes, func(a, b []int) int { return a[0] - b[0] })
}

// Classes returns the equivalence classes. Callers must not modify them.
func (p *Stripped) Classes() [][]int {
	return p.classes
}

// NumClasses returns the number of classes.
func (p *Stripped) NumClasses() int {
	return len(p.classes)
}

// ElementCount returns the number of tuples covered by the classes.
func (p *Stripped) ElementCount() int {
	return p.elementCount
}

// Error returns ElementCount - NumClasses: the number of tuples that would have to be
// removed for the attribute set to become a key.
func (p *Stripped) Error() int {
	return p.elementCount - len(p.classes)
}

// IsKey reports whether no two tuples agree on the attribute set.
func (p *Stripped) IsKey() bool {
	return len(p.classes) == 0
}

// Equal reports whether p and o hold the same classes, regardless of class order.
func (p *Stripped) Equal(o *Stripped) bool {
	if p.elementCount != o.elementCount || len(p.classes) != len(o.classes) {
		return false
	}
	a, b := canonical(p.classes), canonical(o.classes)
	for i := range a {
		if !slices.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func canonical(classes [][]int) [][]int {
	out := slices.Clone(classes)
	sortClasses(out)
	return out
}

// String formats p as a list of classes.
func (p *Stripped) String() string {
	return fmt.Sprint(canonical(p.classes))
}
