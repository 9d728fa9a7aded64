package tane_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hurou927/fd-discover/internal/attrset"
	"github.com/hurou927/fd-discover/internal/fd"
	"github.com/hurou927/fd-discover/internal/lattice"
	"github.com/hurou927/fd-discover/internal/relation"
	"github.com/hurou927/fd-discover/internal/tane"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func table(attrs []string, rows ...[]any) *relation.Table {
	return &relation.Table{Name: "t", Attributes: attrs, Rows: rows, NullEqualsNull: true}
}

func discover(t *testing.T, cfg tane.Config, rel relation.Relation) ([]fd.Dependency, *tane.Stats) {
	t.Helper()
	e, err := tane.New(cfg)
	require.NoError(t, err)
	var c fd.Collector
	stats, err := e.Discover(context.Background(), rel, &c)
	require.NoError(t, err)
	return c.Dependencies(), stats
}

// signatures renders dependencies as comparable strings, ignoring error values.
func signatures(deps []fd.Dependency) []string {
	out := make([]string, len(deps))
	for i, d := range deps {
		out[i] = d.String()
	}
	return out
}

func dep(dependent int, determinant ...int) fd.Dependency {
	return fd.Dependency{Determinant: attrset.Of(determinant...), Dependent: dependent}
}

func TestExactMutualDependency(t *testing.T) {
	rel := table([]string{"country", "capital"},
		[]any{"Germany", "Berlin"},
		[]any{"Germany", "Berlin"},
		[]any{"France", "Paris"},
	)
	deps, stats := discover(t, tane.Config{}, rel)
	assert.Equal(t, signatures([]fd.Dependency{dep(0, 1), dep(1, 0)}), signatures(deps))
	for _, d := range deps {
		assert.Zero(t, d.Error)
	}
	assert.True(t, stats.Completed)
	assert.Equal(t, 2, stats.Dependencies)
}

func TestNoDependency(t *testing.T) {
	rel := table([]string{"a", "b"},
		[]any{1, 10},
		[]any{1, 20},
		[]any{2, 10},
	)
	deps, stats := discover(t, tane.Config{}, rel)
	assert.Empty(t, deps)
	assert.True(t, stats.Completed)
}

func TestApproximateDependency(t *testing.T) {
	rel := table([]string{"a", "b"},
		[]any{1, "x"},
		[]any{1, "x"},
		[]any{1, "x"},
		[]any{2, "y"},
		[]any{2, "x"},
	)
	deps, _ := discover(t, tane.Config{}, rel)
	assert.Empty(t, deps)

	// one exception in five tuples: b is also nearly constant, so the empty set
	// determines it within the same tolerance
	deps, _ = discover(t, tane.Config{ErrorThreshold: 0.2}, rel)
	assert.Equal(t, signatures([]fd.Dependency{dep(0, 1), dep(1)}), signatures(deps))
	for _, d := range deps {
		assert.InDelta(t, 0.2, d.Error, 1e-12)
	}

	wider := table([]string{"a", "b"},
		[]any{1, "x"},
		[]any{1, "x"},
		[]any{1, "x"},
		[]any{2, "y"},
		[]any{2, "y"},
		[]any{3, "z"},
		[]any{3, "z"},
		[]any{2, "x"},
	)
	deps, _ = discover(t, tane.Config{}, wider)
	assert.Empty(t, deps)
	deps, _ = discover(t, tane.Config{ErrorThreshold: 0.1}, wider)
	assert.Empty(t, deps)
	deps, _ = discover(t, tane.Config{ErrorThreshold: 0.125}, wider)
	assert.Equal(t, signatures([]fd.Dependency{dep(0, 1), dep(1, 0)}), signatures(deps))
	for _, d := range deps {
		assert.InDelta(t, 0.125, d.Error, 1e-12)
	}
}

func TestEmptyRelation(t *testing.T) {
	deps, stats := discover(t, tane.Config{}, table([]string{"a1", "a2"}))
	assert.Equal(t, signatures([]fd.Dependency{dep(0), dep(1)}), signatures(deps))
	assert.True(t, stats.Completed)
	assert.Empty(t, stats.LevelSizes)
}

func TestNoAttributes(t *testing.T) {
	deps, stats := discover(t, tane.Config{}, table(nil, []any{}, []any{}))
	assert.Empty(t, deps)
	assert.True(t, stats.Completed)
}

func TestKeyDependencies(t *testing.T) {
	// c = a xor b: every pair is a key and determines the third attribute
	rel := table([]string{"a", "b", "c"},
		[]any{0, 0, 0},
		[]any{0, 1, 1},
		[]any{1, 0, 1},
		[]any{1, 1, 0},
	)
	deps, _ := discover(t, tane.Config{}, rel)
	assert.Equal(t, signatures([]fd.Dependency{dep(0, 1, 2), dep(1, 0, 2), dep(2, 0, 1)}), signatures(deps))

	deps, stats := discover(t, tane.Config{MaxDeterminantSize: 1}, rel)
	assert.Empty(t, deps)
	assert.True(t, stats.Completed)

	deps, _ = discover(t, tane.Config{MaxDeterminantSize: 2}, rel)
	assert.Len(t, deps, 3)
}

func TestNullPolicy(t *testing.T) {
	rows := [][]any{
		{nil, "x"},
		{nil, "y"},
		{"k", "z"},
	}
	eq := &relation.Table{Attributes: []string{"a", "b"}, Rows: rows, NullEqualsNull: true}
	deps, _ := discover(t, tane.Config{}, eq)
	assert.Equal(t, signatures([]fd.Dependency{dep(0, 1)}), signatures(deps))

	distinct := &relation.Table{Attributes: []string{"a", "b"}, Rows: rows}
	deps, _ = discover(t, tane.Config{}, distinct)
	assert.Equal(t, signatures([]fd.Dependency{dep(0, 1), dep(1, 0)}), signatures(deps))
}

// bruteForce returns every minimal non-trivial exact dependency of rows.
func bruteForce(numAttrs int, rows [][]any) []fd.Dependency {
	holds := func(lhs []int, rhs int) bool {
		seen := make(map[string]any)
		for _, row := range rows {
			key := ""
			for _, a := range lhs {
				key += fmt.Sprintf("%v|", row[a])
			}
			if v, ok := seen[key]; ok && v != row[rhs] {
				return false
			}
			seen[key] = row[rhs]
		}
		return true
	}
	var out []fd.Dependency
	for rhs := 0; rhs < numAttrs; rhs++ {
		var valid []attrset.Set
		for mask := 0; mask < 1<<numAttrs; mask++ {
			if mask&(1<<rhs) != 0 {
				continue
			}
			var lhs []int
			for a := 0; a < numAttrs; a++ {
				if mask&(1<<a) != 0 {
					lhs = append(lhs, a)
				}
			}
			if holds(lhs, rhs) {
				valid = append(valid, attrset.Of(lhs...))
			}
		}
		for _, x := range valid {
			minimal := true
			for _, y := range valid {
				if y != x && y.SubsetOf(x) {
					minimal = false
					break
				}
			}
			if minimal {
				out = append(out, fd.Dependency{Determinant: x, Dependent: rhs})
			}
		}
	}
	fd.Sort(out)
	return out
}

func randomTable(r *rand.Rand) *relation.Table {
	numAttrs := 2 + r.IntN(4)
	numRows := r.IntN(16)
	attrs := make([]string, numAttrs)
	domains := make([]int, numAttrs)
	for i := range attrs {
		attrs[i] = fmt.Sprintf("c%d", i)
		domains[i] = 1 + r.IntN(4)
	}
	rows := make([][]any, numRows)
	for i := range rows {
		rows[i] = make([]any, numAttrs)
		for j := range rows[i] {
			rows[i][j] = r.IntN(domains[j])
		}
	}
	return table(attrs, rows...)
}

func TestMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 7))
	for trial := 0; trial < 200; trial++ {
		rel := randomTable(r)
		want := bruteForce(rel.NumAttributes(), rel.Rows)
		got, stats := discover(t, tane.Config{Workers: 3}, rel)
		if diff := cmp.Diff(signatures(want), signatures(got)); diff != "" {
			t.Fatalf("trial %d rows=%v: dependencies mismatch (-want +got):\n%s", trial, rel.Rows, diff)
		}
		assert.True(t, fd.Minimal(got))
		assert.True(t, stats.Completed)
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	r := rand.New(rand.NewPCG(9, 9))
	for trial := 0; trial < 30; trial++ {
		rel := randomTable(r)
		for _, threshold := range []float64{0, 0.15} {
			serial, _ := discover(t, tane.Config{Workers: 1, ErrorThreshold: threshold}, rel)
			parallel, _ := discover(t, tane.Config{Workers: 8, ErrorThreshold: threshold}, rel)
			assert.Equal(t, serial, parallel, "trial %d threshold %v", trial, threshold)
			assert.True(t, fd.Minimal(parallel))
			for _, d := range parallel {
				assert.LessOrEqual(t, d.Error, threshold)
			}
		}
	}
}

func TestLevelTooLarge(t *testing.T) {
	rel := table([]string{"a", "b", "c", "d"},
		[]any{1, 1, 1, 1},
		[]any{1, 2, 2, 2},
		[]any{2, 1, 2, 1},
		[]any{2, 2, 1, 2},
		[]any{1, 1, 2, 2},
	)
	e, err := tane.New(tane.Config{MaxLevelNodes: 3})
	require.NoError(t, err)
	var c fd.Collector
	stats, err := e.Discover(context.Background(), rel, &c)
	require.Error(t, err)
	assert.ErrorIs(t, err, tane.ErrLevelTooLarge)
	assert.False(t, stats.Completed)
	assert.Equal(t, []int{4}, stats.LevelSizes)
}

func TestCancelKeepsEmittedDependencies(t *testing.T) {
	// d is constant; c = a xor b with one duplicated tuple
	rel := table([]string{"a", "b", "c", "d"},
		[]any{0, 0, 0, 7},
		[]any{0, 1, 1, 7},
		[]any{1, 0, 1, 7},
		[]any{1, 1, 0, 7},
		[]any{1, 1, 0, 7},
	)
	full, _ := discover(t, tane.Config{}, rel)
	assert.Equal(t, signatures([]fd.Dependency{dep(0, 1, 2), dep(1, 0, 2), dep(2, 0, 1), dep(3)}), signatures(full))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e, err := tane.New(tane.Config{})
	require.NoError(t, err)

	var got []fd.Dependency
	stats, err := e.Discover(ctx, rel, fd.SinkFunc(func(d fd.Dependency) error {
		got = append(got, d)
		cancel()
		return nil
	}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, stats.Completed)
	assert.Equal(t, signatures([]fd.Dependency{dep(3)}), signatures(got))

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	stats, err = e.Discover(cancelled, rel, &fd.Collector{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, stats.Completed)
	assert.Zero(t, stats.Dependencies)
}

func TestSinkErrorStopsSearch(t *testing.T) {
	rel := table([]string{"country", "capital"},
		[]any{"Germany", "Berlin"},
		[]any{"Germany", "Berlin"},
		[]any{"France", "Paris"},
	)
	boom := errors.New("disk full")
	e, err := tane.New(tane.Config{})
	require.NoError(t, err)
	stats, err := e.Discover(context.Background(), rel, fd.SinkFunc(func(fd.Dependency) error { return boom }))
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, stats.Dependencies)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := tane.New(tane.Config{ErrorThreshold: -0.5})
	assert.Error(t, err)
	_, err = tane.New(tane.Config{MaxDeterminantSize: -1})
	assert.Error(t, err)
	_, err = tane.New(tane.Config{MaxLevelNodes: -1})
	assert.Error(t, err)
}

type savedState struct {
	numAttrs, numTuples int
	prev, cur           []byte
	emitted             int
}

// recorder snapshots every state through JSON, like a persistent store would.
type recorder struct {
	emitted *[]fd.Dependency
	states  []savedState
}

func (r *recorder) Save(_ context.Context, st *tane.State) error {
	prev, err := json.Marshal(st.Previous.Snapshot())
	if err != nil {
		return err
	}
	cur, err := json.Marshal(st.Current.Snapshot())
	if err != nil {
		return err
	}
	r.states = append(r.states, savedState{
		numAttrs:  st.NumAttributes,
		numTuples: st.NumTuples,
		prev:      prev,
		cur:       cur,
		emitted:   len(*r.emitted),
	})
	return nil
}

func restore(t *testing.T, s savedState) *tane.State {
	t.Helper()
	var prevSnap, curSnap lattice.Snapshot
	require.NoError(t, json.Unmarshal(s.prev, &prevSnap))
	require.NoError(t, json.Unmarshal(s.cur, &curSnap))
	prev, err := lattice.Restore(prevSnap)
	require.NoError(t, err)
	cur, err := lattice.Restore(curSnap)
	require.NoError(t, err)
	return &tane.State{NumAttributes: s.numAttrs, NumTuples: s.numTuples, Previous: prev, Current: cur}
}

func TestResumeFromEveryCheckpoint(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 14))
	for trial := 0; trial < 20; trial++ {
		rel := randomTable(r)
		if rel.NumTuples() == 0 {
			continue
		}
		var emitted []fd.Dependency
		rec := &recorder{emitted: &emitted}
		e, err := tane.New(tane.Config{}, tane.WithCheckpointer(rec))
		require.NoError(t, err)
		_, err = e.Discover(context.Background(), rel, fd.SinkFunc(func(d fd.Dependency) error {
			emitted = append(emitted, d)
			return nil
		}))
		require.NoError(t, err)
		require.NotEmpty(t, rec.states)
		assert.Equal(t, 1, restore(t, rec.states[0]).Current.Height)

		want := signatures(bruteForce(rel.NumAttributes(), rel.Rows))
		plain, err := tane.New(tane.Config{})
		require.NoError(t, err)
		for i, s := range rec.states {
			var resumed fd.Collector
			stats, err := plain.Resume(context.Background(), restore(t, s), &resumed)
			require.NoError(t, err, "trial %d checkpoint %d", trial, i)
			assert.True(t, stats.Completed)

			combined := append(append([]fd.Dependency{}, emitted[:s.emitted]...), resumed.Dependencies()...)
			fd.Sort(combined)
			if diff := cmp.Diff(want, signatures(combined)); diff != "" {
				t.Fatalf("trial %d checkpoint %d: resumed run differs (-want +got):\n%s", trial, i, diff)
			}
		}
	}
}

func TestResumeRejectsBadState(t *testing.T) {
	e, err := tane.New(tane.Config{})
	require.NoError(t, err)
	_, err = e.Resume(context.Background(), &tane.State{
		NumAttributes: 2,
		NumTuples:     3,
		Previous:      lattice.NewLevel(1),
		Current:       lattice.NewLevel(3),
	}, &fd.Collector{})
	assert.Error(t, err)
}
