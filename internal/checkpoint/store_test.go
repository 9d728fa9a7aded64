package checkpoint

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/hurou927/fd-discover/internal/fd"
	"github.com/hurou927/fd-discover/internal/relation"
	"github.com/hurou927/fd-discover/internal/tane"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreAnyFunction("database/sql.(*DB).connectionOpener"))
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:", zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// xor has a constant attribute d and c = a xor b, so dependencies appear at levels 1 and 3.
func xor() *relation.Table {
	return &relation.Table{
		Name:       "xor",
		Attributes: []string{"a", "b", "c", "d"},
		Rows: [][]any{
			{0, 0, 0, 7},
			{0, 1, 1, 7},
			{1, 0, 1, 7},
			{1, 1, 0, 7},
			{1, 1, 0, 7},
		},
		NullEqualsNull: true,
	}
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	run, err := s.NewRun(ctx, Run{Relation: "xor", Attributes: []string{"a", "b"}, Tuples: 5, ErrorThreshold: 0.1})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, run.ID)
	assert.Equal(t, StatusRunning, run.Status)

	got, err := s.Run(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "xor", got.Relation)
	assert.Equal(t, 5, got.Tuples)
	assert.InDelta(t, 0.1, got.ErrorThreshold, 1e-12)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
	assert.Zero(t, got.Level)

	require.NoError(t, s.SetStatus(ctx, run.ID, StatusCompleted))
	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusCompleted, runs[0].Status)
	assert.Equal(t, []string{"a", "b"}, runs[0].Attributes)

	missing := uuid.New()
	_, err = s.Run(ctx, missing)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.SetStatus(ctx, missing, StatusFailed), ErrNotFound)
	_, err = s.Latest(ctx, run.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Rewind(ctx, run.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResumeFromStore(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	rel := xor()

	full := &fd.Collector{}
	plain, err := tane.New(tane.Config{})
	require.NoError(t, err)
	_, err = plain.Discover(ctx, rel, full)
	require.NoError(t, err)

	run, err := s.NewRun(ctx, Run{Relation: rel.Name, Attributes: rel.AttributeNames(), Tuples: rel.NumTuples()})
	require.NoError(t, err)
	rec, err := s.Recorder(ctx, run.ID)
	require.NoError(t, err)
	e, err := tane.New(tane.Config{}, tane.WithCheckpointer(s.Checkpointer(run.ID)))
	require.NoError(t, err)
	_, err = e.Discover(ctx, rel, rec)
	require.NoError(t, err)

	stored, err := s.Run(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Level)
	assert.Equal(t, 4, stored.Dependencies)

	st, err := s.Latest(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Current.Height)
	assert.Equal(t, 4, st.NumAttributes)
	assert.Equal(t, 5, st.NumTuples)

	kept, err := s.Rewind(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, kept)

	rec, err = s.Recorder(ctx, run.ID)
	require.NoError(t, err)
	stats, err := plain.Resume(ctx, st, rec)
	require.NoError(t, err)
	assert.True(t, stats.Completed)
	assert.Equal(t, 3, stats.Dependencies)

	deps, err := s.Dependencies(ctx, run.ID)
	require.NoError(t, err)
	fd.Sort(deps)
	if diff := cmp.Diff(full.Dependencies(), deps, cmp.Comparer(func(x, y fd.Dependency) bool {
		return x.String() == y.String() && x.Error == y.Error
	})); diff != "" {
		t.Errorf("resumed dependencies differ (-want +got):\n%s", diff)
	}
}

func TestCorruptCheckpoint(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	rel := xor()

	run, err := s.NewRun(ctx, Run{Relation: rel.Name, Attributes: rel.AttributeNames(), Tuples: rel.NumTuples()})
	require.NoError(t, err)
	e, err := tane.New(tane.Config{MaxDeterminantSize: 1}, tane.WithCheckpointer(s.Checkpointer(run.ID)))
	require.NoError(t, err)
	_, err = e.Discover(ctx, rel, &fd.Collector{})
	require.NoError(t, err)

	_, err = s.db.ExecContext(ctx, `UPDATE checkpoints SET digest = '0000000000000000' WHERE run_id = ?`, run.ID.String())
	require.NoError(t, err)
	_, err = s.Latest(ctx, run.ID)
	assert.ErrorIs(t, err, ErrCorrupt)

	data := []byte(`{"previous":{"height":1},"current":{"height":1}}`)
	_, err = s.db.ExecContext(ctx, `UPDATE checkpoints SET digest = ?, payload = ? WHERE run_id = ?`,
		digest(data), data, run.ID.String())
	require.NoError(t, err)
	st, err := s.Latest(ctx, run.ID)
	require.NoError(t, err)
	_, err = e.Resume(ctx, st, &fd.Collector{})
	assert.Error(t, err)
}
