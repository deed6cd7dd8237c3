package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blockql/internal/ir"
)

func TestDefaultTree(t *testing.T) {
	c := Default()

	roots := c.Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, "Risk", roots[0].Name)
	assert.Equal(t, "Trade", roots[1].Name)
	assert.Equal(t, NodeCategory, roots[0].Type)

	rtable1 := roots[0].Children[0]
	assert.Equal(t, NodeTable, rtable1.Type)
	assert.Equal(t, "rtable1", rtable1.Name)
	require.Len(t, rtable1.Children, 2)
	assert.Equal(t, SchemaNode{
		ID:    "rtable1.rcol11",
		Name:  "rcol11",
		Type:  NodeColumn,
		Table: "rtable1",
	}, rtable1.Children[0])
}

func TestDefaultTables(t *testing.T) {
	assert.Equal(t, []string{"rtable1", "rtable2", "ttable1", "ttable2"}, Default().Tables())
}

func TestDefaultColumns(t *testing.T) {
	cols := Default().Columns()
	require.Len(t, cols, 8)
	assert.Equal(t, "rtable1.rcol11", cols[0].ID())
	assert.Equal(t, "ttable2.tcol22", cols[7].ID())
}

func TestColumnLookup(t *testing.T) {
	c := Default()

	ref, ok := c.Column("ttable1.tcol12")
	require.True(t, ok)
	assert.Equal(t, ir.NewColumnRef("tcol12", "ttable1"), ref)

	_, ok = c.Column("ttable1")
	assert.False(t, ok, "table IDs are not columns")

	_, ok = c.Column("nope.nope")
	assert.False(t, ok)
}

func TestSchemaNodeColumnRef(t *testing.T) {
	_, ok := Default().Roots()[0].ColumnRef()
	assert.False(t, ok)
}

func TestFilter(t *testing.T) {
	c := Default()

	t.Run("empty term returns full tree", func(t *testing.T) {
		assert.Equal(t, c.Roots(), c.Filter("  "))
	})

	t.Run("keeps ancestors of matches", func(t *testing.T) {
		got := c.Filter("tcol2")
		require.Len(t, got, 1)
		assert.Equal(t, "Trade", got[0].Name)
		require.Len(t, got[0].Children, 1)
		assert.Equal(t, "ttable2", got[0].Children[0].Name)
		assert.Len(t, got[0].Children[0].Children, 2)
	})

	t.Run("case insensitive", func(t *testing.T) {
		got := c.Filter("RCOL12")
		require.Len(t, got, 1)
		require.Len(t, got[0].Children, 1)
		require.Len(t, got[0].Children[0].Children, 1)
		assert.Equal(t, "rtable1.rcol12", got[0].Children[0].Children[0].ID)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, c.Filter("zzz"))
	})

	t.Run("does not mutate catalog", func(t *testing.T) {
		_ = c.Filter("rcol11")
		assert.Len(t, c.Roots()[0].Children, 2)
		assert.Len(t, c.Roots()[0].Children[0].Children, 2)
	})
}

func TestRulesCopy(t *testing.T) {
	c := Default()
	rules := c.Rules()
	rules[0].On = "mutated"

	assert.Equal(t, "rtable1.rcol11 = ttable1.tcol12", c.Rules()[0].On)
}

func TestResolver(t *testing.T) {
	on, ok := Default().Resolver().Lookup("ttable1", "rtable1")
	require.True(t, ok)
	assert.Equal(t, "rtable1.rcol11 = ttable1.tcol12", on)
}
