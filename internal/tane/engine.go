// Package tane discovers minimal functional dependencies with a level-wise search
// over the lattice of attribute sets.
//
// Level l holds the attribute sets of size l. For each set X the engine tests
// X\{A} → A by comparing stripped partitions, keeps the set of attributes X may still
// determine, and prunes sets that can no longer yield minimal dependencies before
// joining the survivors into level l+1. Dependencies are handed to an fd.Sink as soon
// as a level produces them, so a run that stops early still reports a sound subset.
package tane

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hurou927/fd-discover/internal/attrset"
	"github.com/hurou927/fd-discover/internal/fd"
	"github.com/hurou927/fd-discover/internal/lattice"
	"github.com/hurou927/fd-discover/internal/partition"
	"github.com/hurou927/fd-discover/internal/relation"
)

// ErrLevelTooLarge is returned when a generated level exceeds Config.MaxLevelNodes.
var ErrLevelTooLarge = errors.New("level exceeds node limit")

// Config holds the search parameters.
type Config struct {
	// ErrorThreshold is the largest g3 error a reported dependency may have.
	// 0 reports exact dependencies only.
	ErrorThreshold float64
	// MaxDeterminantSize bounds the number of attributes on the left-hand side.
	// 0 means no bound.
	MaxDeterminantSize int
	// Workers bounds the goroutines used per phase. 0 means GOMAXPROCS.
	Workers int
	// MaxLevelNodes fails the search when a level grows beyond it. 0 means no limit.
	MaxLevelNodes int
}

// Stats summarizes a search. It is returned even when the search fails.
type Stats struct {
	Attributes   int
	Tuples       int
	StartHeight  int
	LevelSizes   []int
	Dependencies int
	Elapsed      time.Duration
	// Completed is false when the search stopped before exhausting the lattice.
	Completed bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithCheckpointer makes the engine save its state before each level.
func WithCheckpointer(c Checkpointer) Option {
	return func(e *Engine) {
		e.checkpointer = c
	}
}

// Engine runs dependency discovery. An Engine holds no per-run state and may be
// used for several runs, including concurrent ones.
type Engine struct {
	cfg          Config
	log          *zap.Logger
	checkpointer Checkpointer
}

// New returns an Engine for cfg.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if cfg.ErrorThreshold < 0 {
		return nil, fmt.Errorf("error threshold must not be negative, got %v", cfg.ErrorThreshold)
	}
	if cfg.MaxDeterminantSize < 0 {
		return nil, fmt.Errorf("max determinant size must not be negative, got %d", cfg.MaxDeterminantSize)
	}
	if cfg.MaxLevelNodes < 0 {
		return nil, fmt.Errorf("max level nodes must not be negative, got %d", cfg.MaxLevelNodes)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	e := &Engine{cfg: cfg, log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Discover finds the minimal dependencies of rel and emits them to sink.
// ValueGroups of rel may be called concurrently.
func (e *Engine) Discover(ctx context.Context, rel relation.Relation, sink fd.Sink) (*Stats, error) {
	s := e.newSearch(rel.NumAttributes(), rel.NumTuples(), sink)
	defer s.finish()

	e.log.Info("starting dependency discovery",
		zap.Int("attributes", s.numAttrs),
		zap.Int("tuples", s.numTuples),
		zap.Float64("error_threshold", e.cfg.ErrorThreshold))

	if s.numAttrs == 0 {
		s.stats.Completed = true
		return s.stats, nil
	}
	if s.numTuples == 0 {
		// every attribute is constant on an empty relation
		for a := 0; a < s.numAttrs; a++ {
			if err := s.emit(fd.Dependency{Determinant: attrset.Empty, Dependent: a}); err != nil {
				return s.stats, err
			}
		}
		s.stats.Completed = true
		return s.stats, nil
	}

	level0 := lattice.NewLevel(0)
	root := lattice.NewNode(attrset.Empty, partition.Singleton(s.numTuples))
	root.Rhs = s.universe
	level0.Put(root)

	level1, err := s.initialLevel(ctx, rel)
	if err != nil {
		return s.stats, err
	}
	return s.stats, s.run(ctx, level0, level1)
}

// Resume continues a search from a saved state, emitting only dependencies found
// from that point on.
func (e *Engine) Resume(ctx context.Context, st *State, sink fd.Sink) (*Stats, error) {
	if err := st.validate(); err != nil {
		return &Stats{}, fmt.Errorf("invalid state: %w", err)
	}
	s := e.newSearch(st.NumAttributes, st.NumTuples, sink)
	defer s.finish()

	e.log.Info("resuming dependency discovery",
		zap.Int("attributes", s.numAttrs),
		zap.Int("tuples", s.numTuples),
		zap.Int("level", st.Current.Height))
	return s.stats, s.run(ctx, st.Previous, st.Current)
}

// search is the state of one run.
type search struct {
	cfg       Config
	log       *zap.Logger
	ckpt      Checkpointer
	sink      fd.Sink
	numAttrs  int
	numTuples int
	universe  attrset.Set
	scratch   sync.Pool
	stats     *Stats
	started   time.Time
}

func (e *Engine) newSearch(numAttrs, numTuples int, sink fd.Sink) *search {
	s := &search{
		cfg:       e.cfg,
		log:       e.log,
		ckpt:      e.checkpointer,
		sink:      sink,
		numAttrs:  numAttrs,
		numTuples: numTuples,
		universe:  attrset.Full(numAttrs),
		stats:     &Stats{Attributes: numAttrs, Tuples: numTuples},
		started:   time.Now(),
	}
	s.scratch.New = func() any { return partition.NewScratch(numTuples) }
	return s
}

func (s *search) finish() {
	s.stats.Elapsed = time.Since(s.started)
	s.log.Info("dependency discovery finished",
		zap.Int("dependencies", s.stats.Dependencies),
		zap.Int("levels", len(s.stats.LevelSizes)),
		zap.Bool("completed", s.stats.Completed),
		zap.Duration("elapsed", s.stats.Elapsed))
}

// run drives the level loop starting with cur, whose generalizations are in prev.
func (s *search) run(ctx context.Context, prev, cur *lattice.Level) error {
	s.stats.StartHeight = cur.Height
	maxLHS := s.cfg.MaxDeterminantSize
	for {
		if cur.Len() == 0 || cur.Height > s.numAttrs {
			s.stats.Completed = true
			return nil
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("search stopped before level %d: %w", cur.Height, err)
		}
		if err := s.checkpoint(ctx, prev, cur); err != nil {
			return err
		}

		started := time.Now()
		before := s.stats.Dependencies
		s.stats.LevelSizes = append(s.stats.LevelSizes, cur.Len())

		if err := s.computeDependencies(ctx, prev, cur); err != nil {
			return err
		}
		// keys found at level l yield determinants of size l
		if err := s.prune(cur, maxLHS == 0 || cur.Height <= maxLHS); err != nil {
			return err
		}

		s.log.Debug("level processed",
			zap.Int("level", cur.Height),
			zap.Int("nodes", s.stats.LevelSizes[len(s.stats.LevelSizes)-1]),
			zap.Int("survivors", cur.Len()),
			zap.Int("dependencies", s.stats.Dependencies-before),
			zap.Duration("elapsed", time.Since(started)))

		if maxLHS > 0 && cur.Height > maxLHS {
			s.stats.Completed = true
			return nil
		}

		next, err := s.generateNextLevel(ctx, cur)
		if err != nil {
			return err
		}
		prev, cur = cur, next
	}
}

func (s *search) checkpoint(ctx context.Context, prev, cur *lattice.Level) error {
	if s.ckpt == nil {
		return nil
	}
	st := &State{
		NumAttributes: s.numAttrs,
		NumTuples:     s.numTuples,
		Previous:      prev,
		Current:       cur,
	}
	if err := s.ckpt.Save(ctx, st); err != nil {
		return fmt.Errorf("saving checkpoint for level %d: %w", cur.Height, err)
	}
	return nil
}

func (s *search) emit(d fd.Dependency) error {
	if err := s.sink.Emit(d); err != nil {
		return fmt.Errorf("emitting dependency %s: %w", d, err)
	}
	s.stats.Dependencies++
	return nil
}

func (s *search) emitAll(deps []fd.Dependency) error {
	for _, d := range deps {
		if err := s.emit(d); err != nil {
			return err
		}
	}
	return nil
}

func (s *search) getScratch() *partition.Scratch {
	return s.scratch.Get().(*partition.Scratch)
}

func (s *search) putScratch(sc *partition.Scratch) {
	s.scratch.Put(sc)
}
