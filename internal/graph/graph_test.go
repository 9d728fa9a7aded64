package graph

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hurou927/fd-discover/internal/attrset"
	"github.com/hurou927/fd-discover/internal/fd"
)

// e is constant, a and b are equivalent and b, c together determine d.
func sample() *Graph {
	names := []string{"a", "b", "c", "d", "e"}
	deps := []fd.Dependency{
		{Determinant: attrset.Empty, Dependent: 4},
		{Determinant: attrset.Of(0), Dependent: 1},
		{Determinant: attrset.Of(1), Dependent: 0},
		{Determinant: attrset.Of(1, 2), Dependent: 3, Error: 0.125},
	}
	return Build(names, deps)
}

func TestBuild(t *testing.T) {
	g := sample()
	assert.Len(t, g.Edges, 4)
	assert.Equal(t, []string{"e"}, g.Constants)
	assert.Equal(t, []string{"b"}, g.Children["a"])
	assert.Equal(t, []string{"a"}, g.Parents["b"])
	assert.Empty(t, g.Parents["d"])
	assert.True(t, g.Adjacency["c"]["d"])
	assert.True(t, g.Adjacency["d"]["b"])
	assert.Equal(t, []string{"c", "d", "e"}, g.Roots())
}

func TestBuildUnnamedAttributes(t *testing.T) {
	g := Build(nil, []fd.Dependency{{Determinant: attrset.Of(0), Dependent: 1}})
	assert.Equal(t, []string{"1", "0"}, g.Attributes)
	assert.Equal(t, []string{"1"}, g.Children["0"])
}

func TestFindComponents(t *testing.T) {
	comps := FindComponents(sample())
	require.Len(t, comps, 2)
	assert.Equal(t, []string{"a", "b", "c", "d"}, comps[0].Attributes)
	assert.Equal(t, []string{"e"}, comps[1].Attributes)
}

func TestTopoSort(t *testing.T) {
	g := sample()
	res := TopoSort(g, []string{"a", "b", "c", "d"})
	assert.True(t, res.HasCycle)
	assert.Equal(t, []string{"c", "d"}, res.Order)
	assert.Equal(t, []string{"a", "b"}, res.Cyclic)

	chain := Build([]string{"x", "y", "z"}, []fd.Dependency{
		{Determinant: attrset.Of(1), Dependent: 2},
		{Determinant: attrset.Of(0), Dependent: 1},
	})
	res = TopoSortAll(chain)
	assert.False(t, res.HasCycle)
	assert.Equal(t, []string{"x", "y", "z"}, res.Order)
}

func TestEquivalences(t *testing.T) {
	assert.Equal(t, [][]string{{"a", "b"}}, Equivalences(sample()))

	ring := Build([]string{"x", "y", "z", "w"}, []fd.Dependency{
		{Determinant: attrset.Of(0), Dependent: 1},
		{Determinant: attrset.Of(1), Dependent: 2},
		{Determinant: attrset.Of(2), Dependent: 0},
		{Determinant: attrset.Of(0), Dependent: 3},
	})
	assert.Equal(t, [][]string{{"x", "y", "z"}}, Equivalences(ring))
}

func TestWriteMermaid(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMermaid(&buf, sample()))
	out := buf.String()

	assert.Contains(t, out, "graph LR\n")
	assert.Contains(t, out, `    empty(("∅"))`)
	assert.Contains(t, out, "subgraph component_1\n")
	assert.Contains(t, out, "subgraph component_2\n")
	assert.Contains(t, out, `        a0["a"]`)
	assert.Contains(t, out, "        a0 --> a1\n")
	assert.Contains(t, out, "        a1 & a2 -->|0.1250| a3\n")
	assert.Contains(t, out, "    empty --> a4\n")
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sample()))
	out := buf.String()

	assert.Contains(t, out, "Attributes: 5\n")
	assert.Contains(t, out, "Dependencies: 4\n")
	assert.Contains(t, out, "Connected Components: 2\n")
	assert.Contains(t, out, "Constant attributes: [e]\n")
	assert.Contains(t, out, "Equivalent attributes: [a b]\n")
	assert.Contains(t, out, "Determination order (partial, has cycle):\n")
	assert.Contains(t, out, "    2. d (1 determinants)\n")
	assert.Contains(t, out, "  Cyclic attributes: [a b]\n")
}
