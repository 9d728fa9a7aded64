package fd

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hurou927/fd-discover/internal/attrset"
)

func TestFormat(t *testing.T) {
	d := Dependency{Determinant: attrset.Of(0, 2), Dependent: 1}
	assert.Equal(t, "{0,2} -> 1", d.String())
	assert.Equal(t, "[country, zip] -> capital", d.Format([]string{"country", "capital", "zip"}))
	assert.Equal(t, "[country, 2] -> capital", d.Format([]string{"country", "capital"}))
	assert.Equal(t, "[] -> 1", Dependency{Dependent: 1}.Format(nil))
}

func TestCollectorSorts(t *testing.T) {
	var c Collector
	var wg sync.WaitGroup
	for _, d := range []Dependency{
		{Determinant: attrset.Of(1, 2), Dependent: 0},
		{Determinant: attrset.Of(3), Dependent: 0},
		{Determinant: attrset.Empty, Dependent: 2},
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Emit(d)
		}()
	}
	wg.Wait()

	got := c.Dependencies()
	require.Len(t, got, 3)
	assert.Equal(t, attrset.Of(3), got[0].Determinant)
	assert.Equal(t, attrset.Of(1, 2), got[1].Determinant)
	assert.Equal(t, 2, got[2].Dependent)
	assert.Equal(t, 3, c.Len())
}

func TestTeeStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	var after Collector
	sink := Tee(SinkFunc(func(Dependency) error { return boom }), &after)
	err := sink.Emit(Dependency{Dependent: 1})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, after.Len())
}

func TestMinimal(t *testing.T) {
	assert.True(t, Minimal([]Dependency{
		{Determinant: attrset.Of(0), Dependent: 2},
		{Determinant: attrset.Of(1), Dependent: 2},
		{Determinant: attrset.Of(0, 1), Dependent: 3},
	}))
	assert.False(t, Minimal([]Dependency{
		{Determinant: attrset.Of(0), Dependent: 2},
		{Determinant: attrset.Of(0, 1), Dependent: 2},
	}))
}
