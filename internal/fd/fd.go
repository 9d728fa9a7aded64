// Package fd defines discovered functional dependencies and the sinks that receive them.
package fd

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/hurou927/fd-discover/internal/attrset"
)

// Dependency is a functional dependency Determinant → Dependent.
type Dependency struct {
	Determinant attrset.Set `json:"determinant"`
	Dependent   int         `json:"dependent"`
	// Error is the g3 error of the dependency; 0 means it holds exactly.
	Error float64 `json:"error"`
}

// String formats d with attribute indexes, e.g. "{0,2} -> 3".
func (d Dependency) String() string {
	return fmt.Sprintf("%s -> %d", d.Determinant, d.Dependent)
}

// Format formats d with attribute names, e.g. "[country] -> capital".
// Indexes without a name are printed as numbers.
func (d Dependency) Format(names []string) string {
	lhs := make([]string, 0, d.Determinant.Len())
	for a := range d.Determinant.All() {
		lhs = append(lhs, AttributeName(names, a))
	}
	return fmt.Sprintf("[%s] -> %s", strings.Join(lhs, ", "), AttributeName(names, d.Dependent))
}

// DeterminantNames returns the names of the determinant attributes.
func (d Dependency) DeterminantNames(names []string) []string {
	out := make([]string, 0, d.Determinant.Len())
	for a := range d.Determinant.All() {
		out = append(out, AttributeName(names, a))
	}
	return out
}

// AttributeName returns names[a], or a as a number when it has no name.
func AttributeName(names []string, a int) string {
	if a < len(names) && names[a] != "" {
		return names[a]
	}
	return fmt.Sprint(a)
}

// Compare orders dependencies by dependent, then determinant.
func Compare(x, y Dependency) int {
	if x.Dependent != y.Dependent {
		return x.Dependent - y.Dependent
	}
	return attrset.Compare(x.Determinant, y.Determinant)
}

// Sort sorts deps in place by Compare.
func Sort(deps []Dependency) {
	slices.SortFunc(deps, Compare)
}

// Sink receives dependencies as they are discovered.
type Sink interface {
	Emit(d Dependency) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(d Dependency) error

// Emit calls f(d).
func (f SinkFunc) Emit(d Dependency) error {
	return f(d)
}

// Tee returns a Sink that emits to every sink in order, stopping at the first error.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(d Dependency) error {
		for _, s := range sinks {
			if err := s.Emit(d); err != nil {
				return err
			}
		}
		return nil
	})
}

// Collector is a Sink that keeps every dependency in memory. It is safe for concurrent use.
type Collector struct {
	mu   sync.Mutex
	deps []Dependency
}

// Emit records d.
func (c *Collector) Emit(d Dependency) error {
	c.mu.Lock()
	c.deps = append(c.deps, d)
	c.mu.Unlock()
	return nil
}

// Dependencies returns a sorted copy of the collected dependencies.
func (c *Collector) Dependencies() []Dependency {
	c.mu.Lock()
	out := slices.Clone(c.deps)
	c.mu.Unlock()
	Sort(out)
	return out
}

// Len returns the number of collected dependencies.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.deps)
}

// Minimal reports whether no dependency in deps has a determinant that is a proper
// superset of another dependency's determinant for the same dependent.
func Minimal(deps []Dependency) bool {
	byDependent := make(map[int][]attrset.Set)
	for _, d := range deps {
		byDependent[d.Dependent] = append(byDependent[d.Dependent], d.Determinant)
	}
	for _, lhss := range byDependent {
		for i, x := range lhss {
			for j, y := range lhss {
				if i != j && x != y && x.SubsetOf(y) {
					return false
				}
			}
		}
	}
	return true
}
