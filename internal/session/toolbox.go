package session

import (
	"github.com/roach88/blockql/internal/blockgraph"
	"github.com/roach88/blockql/internal/ir"
)

// ToolboxEntry is one block the editor palette offers.
type ToolboxEntry struct {
	Kind   string `json:"kind"`
	Label  string `json:"label"`
	Column string `json:"column,omitempty"`
	Table  string `json:"table,omitempty"`
	Op     string `json:"op,omitempty"`
}

// ToolboxCategory groups palette entries.
type ToolboxCategory struct {
	Name    string         `json:"name"`
	Entries []ToolboxEntry `json:"entries"`
}

// Toolbox returns the palette for the current selection.
func (s *Session) Toolbox() []ToolboxCategory {
	return toolbox(s.SelectedColumns())
}

// ToolboxGraph returns the palette for the columns g selects. g is not
// modified and the workspace graph is left alone.
func (s *Session) ToolboxGraph(g *blockgraph.Graph) []ToolboxCategory {
	return toolbox(g.Columns())
}

// toolbox builds one column entry per selected column, followed by the
// fixed aggregation and logic blocks.
func toolbox(columns []ir.ColumnRef) []ToolboxCategory {
	selected := ToolboxCategory{Name: "Selected Columns", Entries: []ToolboxEntry{}}
	for _, ref := range columns {
		selected.Entries = append(selected.Entries, ToolboxEntry{
			Kind:   blockgraph.KindColumn.String(),
			Label:  ref.ID(),
			Column: ref.ColumnName,
			Table:  ref.TableName,
		})
	}

	return []ToolboxCategory{
		selected,
		{Name: "Aggregation", Entries: []ToolboxEntry{
			{Kind: blockgraph.KindAggregation.String(), Label: "COUNT", Op: string(blockgraph.AggCount)},
			{Kind: blockgraph.KindAggregation.String(), Label: "SUM", Op: string(blockgraph.AggSum)},
			{Kind: "group_by", Label: "GROUP BY"},
		}},
		{Name: "Logic & Text", Entries: []ToolboxEntry{
			{Kind: blockgraph.KindCompare.String(), Label: "compare", Op: string(blockgraph.OpEQ)},
			{Kind: blockgraph.KindLogic.String(), Label: "and / or", Op: string(blockgraph.LogicAnd)},
			{Kind: blockgraph.KindNot.String(), Label: "not"},
			{Kind: blockgraph.KindText.String(), Label: "text"},
			{Kind: blockgraph.KindNumber.String(), Label: "0"},
			{Kind: blockgraph.KindBoolean.String(), Label: "true"},
		}},
	}
}
