package tane

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hurou927/fd-discover/internal/fd"
	"github.com/hurou927/fd-discover/internal/lattice"
	"github.com/hurou927/fd-discover/internal/partition"
)

// computeDependencies fills the Rhs of every node of cur and tests X\{A} → A for the
// valid ones. Nodes are split into chunks processed in parallel; a task writes only
// to its own nodes and reads prev, which is no longer modified.
func (s *search) computeDependencies(ctx context.Context, prev, cur *lattice.Level) error {
	nodes := cur.Nodes()
	found := make([][]fd.Dependency, len(nodes))

	chunk := (len(nodes) + s.cfg.Workers - 1) / s.cfg.Workers
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(nodes); start += chunk {
		end := min(start+chunk, len(nodes))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sc := s.getScratch()
			defer s.putScratch(sc)
			for i := start; i < end; i++ {
				found[i] = s.nodeDependencies(prev, nodes[i], sc)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, deps := range found {
		if err := s.emitAll(deps); err != nil {
			return err
		}
	}
	return nil
}

// nodeDependencies computes n.Rhs and returns the dependencies X\{A} → A that hold for n.
func (s *search) nodeDependencies(prev *lattice.Level, n *lattice.Node, sc *partition.Scratch) []fd.Dependency {
	n.Rhs = lattice.Candidates(prev, n.Attrs, s.universe)
	if !n.Valid {
		return nil
	}

	var out []fd.Dependency
	for a := range n.Attrs.Intersect(n.Rhs).All() {
		sub := prev.MustGet(n.Attrs.Without(a))
		if !sub.Valid {
			// sub is a key whose minimal dependencies were reported when it was pruned
			continue
		}
		g3, ok := s.holds(sub.Partition, n.Partition, sc)
		if !ok {
			continue
		}
		out = append(out, fd.Dependency{Determinant: sub.Attrs, Dependent: a, Error: g3})
		n.Rhs = n.Rhs.Without(a)
		if g3 == 0 {
			n.Rhs = n.Rhs.Intersect(n.Attrs)
		}
	}
	return out
}

// holds tests the dependency whose determinant has partition lhs and whose
// determinant plus dependent has partition both. It returns the g3 error and whether
// it is within the threshold.
func (s *search) holds(lhs, both *partition.Stripped, sc *partition.Scratch) (float64, bool) {
	if lhs.Error() == both.Error() {
		return 0, true
	}
	if s.cfg.ErrorThreshold == 0 {
		return 0, false
	}
	g3 := sc.ErrorAgainst(lhs, both, s.numTuples)
	return g3, g3 <= s.cfg.ErrorThreshold
}
