package tane

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hurou927/fd-discover/internal/attrset"
	"github.com/hurou927/fd-discover/internal/lattice"
	"github.com/hurou927/fd-discover/internal/partition"
	"github.com/hurou927/fd-discover/internal/relation"
)

// initialLevel builds the single-attribute nodes from the relation's value groups.
func (s *search) initialLevel(ctx context.Context, rel relation.Relation) (*lattice.Level, error) {
	parts := make([]*partition.Stripped, s.numAttrs)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for a := 0; a < s.numAttrs; a++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parts[a] = partition.FromValueGroups(rel.ValueGroups(a))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("building attribute partitions: %w", err)
	}

	level := lattice.NewLevel(1)
	for a, p := range parts {
		level.Put(lattice.NewNode(attrset.Of(a), p))
	}
	return level, nil
}

// generateNextLevel joins the members of each prefix block of cur pairwise and keeps
// the unions whose every generalization is in cur. Blocks are processed in parallel,
// each with its own scratch, and merged afterwards.
func (s *search) generateNextLevel(ctx context.Context, cur *lattice.Level) (*lattice.Level, error) {
	blocks := lattice.PrefixBlocks(cur)
	results := make([][]*lattice.Node, len(blocks))
	var total atomic.Int64
	limit := int64(s.cfg.MaxLevelNodes)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, block := range blocks {
		if len(block.Sets) < 2 {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sc := s.getScratch()
			defer s.putScratch(sc)
			for _, pair := range block.Pairs() {
				x := pair.Union()
				if !lattice.HasAllSubsets(cur, x) {
					continue
				}
				if n := total.Add(1); limit > 0 && n > limit {
					return fmt.Errorf("generating level %d: %w (limit %d)", cur.Height+1, ErrLevelTooLarge, limit)
				}
				results[i] = append(results[i], s.join(cur, pair, sc))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	next := lattice.NewLevel(cur.Height + 1)
	for _, nodes := range results {
		for _, n := range nodes {
			next.Put(n)
		}
	}
	return next, nil
}

// join builds the node for pair.X1 ∪ pair.X2. The result is invalid, without a
// partition, when either side is invalid.
func (s *search) join(cur *lattice.Level, pair lattice.Pair, sc *partition.Scratch) *lattice.Node {
	n1, n2 := cur.MustGet(pair.X1), cur.MustGet(pair.X2)
	n := &lattice.Node{Attrs: pair.Union()}
	if n1.Valid && n2.Valid {
		n.Partition = sc.Multiply(n1.Partition, n2.Partition)
		n.Valid = true
	}
	return n
}
