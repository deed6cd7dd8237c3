package sqlgen

import "github.com/roach88/blockql/internal/blockgraph"

// Collection is the result of walking the SELECT chain.
type Collection struct {
	// SelectExpressions are the rendered SELECT items, deduplicated by text.
	SelectExpressions []string `json:"selectExpressions"`

	// Tables are the distinct tables referenced, in first-seen order.
	Tables []string `json:"tables"`
}

// Collect walks the SELECT chain in order.
//
// Column blocks render as table.column and contribute their table.
// Aggregations render as FUNC(table.column), or FUNC(*) when their column
// socket does not resolve to a column block. Other kinds are skipped.
func Collect(g *blockgraph.Graph) Collection {
	c := Collection{
		SelectExpressions: []string{},
		Tables:            []string{},
	}
	seenExpr := make(map[string]bool)
	seenTable := make(map[string]bool)

	addTable := func(table string) {
		if table == "" || seenTable[table] {
			return
		}
		seenTable[table] = true
		c.Tables = append(c.Tables, table)
	}

	for _, id := range g.Query().Select {
		n, ok := g.Node(id)
		if !ok {
			continue
		}

		var expr, table string
		switch n.Kind {
		case blockgraph.KindColumn:
			expr, table = n.Column.ID(), n.Column.TableName
		case blockgraph.KindAggregation:
			expr, table = aggregation(g, n)
		default:
			continue
		}

		if !seenExpr[expr] {
			seenExpr[expr] = true
			c.SelectExpressions = append(c.SelectExpressions, expr)
		}
		addTable(table)
	}
	return c
}

// aggregation renders an aggregation node and returns the table of its column.
func aggregation(g *blockgraph.Graph, n blockgraph.Node) (string, string) {
	col, ok := g.Node(n.Arg)
	if !ok || col.Kind != blockgraph.KindColumn {
		return string(n.Func) + "(*)", ""
	}
	return string(n.Func) + "(" + col.Column.ID() + ")", col.Column.TableName
}
