package catalog

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/blockql/internal/ir"
	"github.com/roach88/blockql/internal/joins"
)

// NodeType identifies the level of a SchemaNode.
type NodeType string

const (
	NodeCategory NodeType = "category"
	NodeTable    NodeType = "table"
	NodeColumn   NodeType = "column"
)

// SchemaNode is one entry of the schema tree.
//
// Column nodes carry their table name in Table and have no children.
type SchemaNode struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Type     NodeType     `json:"type"`
	Table    string       `json:"table,omitempty"`
	Children []SchemaNode `json:"children,omitempty"`
}

// ColumnRef converts a column node to an ir.ColumnRef.
// Returns false for category and table nodes.
func (n SchemaNode) ColumnRef() (ir.ColumnRef, bool) {
	if n.Type != NodeColumn {
		return ir.ColumnRef{}, false
	}
	return ir.NewColumnRef(n.Name, n.Table), true
}

// Catalog is an immutable schema tree plus its join rules.
type Catalog struct {
	roots []SchemaNode
	rules []joins.Rule
	index map[string]ir.ColumnRef
}

// New creates a Catalog from category roots and join rules.
func New(roots []SchemaNode, rules []joins.Rule) *Catalog {
	c := &Catalog{
		roots: roots,
		rules: rules,
		index: make(map[string]ir.ColumnRef),
	}
	walk(roots, func(n SchemaNode) {
		if ref, ok := n.ColumnRef(); ok {
			c.index[n.ID] = ref
		}
	})
	return c
}

// Default returns the built-in sample catalog.
func Default() *Catalog {
	return New([]SchemaNode{
		categoryNode("risk", "Risk",
			tableNode("rtable1", "rcol11", "rcol12"),
			tableNode("rtable2", "rcol21", "rcol22"),
		),
		categoryNode("trade", "Trade",
			tableNode("ttable1", "tcol11", "tcol12"),
			tableNode("ttable2", "tcol21", "tcol22"),
		),
	}, joins.DefaultRules())
}

func categoryNode(id, name string, tables ...SchemaNode) SchemaNode {
	return SchemaNode{ID: id, Name: name, Type: NodeCategory, Children: tables}
}

func tableNode(name string, columns ...string) SchemaNode {
	node := SchemaNode{ID: name, Name: name, Type: NodeTable}
	for _, col := range columns {
		node.Children = append(node.Children, SchemaNode{
			ID:    name + "." + col,
			Name:  col,
			Type:  NodeColumn,
			Table: name,
		})
	}
	return node
}

// Roots returns the category nodes.
func (c *Catalog) Roots() []SchemaNode {
	return c.roots
}

// Rules returns the join rules declared with the catalog.
func (c *Catalog) Rules() []joins.Rule {
	out := make([]joins.Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Resolver returns a join resolver over the catalog's rules.
func (c *Catalog) Resolver() *joins.Resolver {
	return joins.NewResolver(c.rules)
}

// Column looks up a column by its tree ID ("table.column").
func (c *Catalog) Column(id string) (ir.ColumnRef, bool) {
	ref, ok := c.index[id]
	return ref, ok
}

// Columns returns every column in tree order.
func (c *Catalog) Columns() []ir.ColumnRef {
	var refs []ir.ColumnRef
	walk(c.roots, func(n SchemaNode) {
		if ref, ok := n.ColumnRef(); ok {
			refs = append(refs, ref)
		}
	})
	return refs
}

// Tables returns every table name in tree order.
func (c *Catalog) Tables() []string {
	var tables []string
	walk(c.roots, func(n SchemaNode) {
		if n.Type == NodeTable {
			tables = append(tables, n.Name)
		}
	})
	return tables
}

// Filter returns the subtree whose column names contain term, compared
// with Unicode case folding. Ancestors of matching columns are kept with
// only their matching descendants. An empty term returns the full tree.
func (c *Catalog) Filter(term string) []SchemaNode {
	term = strings.TrimSpace(term)
	if term == "" {
		return c.roots
	}
	fold := cases.Fold()
	return filterNodes(c.roots, fold.String(term), fold)
}

func filterNodes(nodes []SchemaNode, term string, fold cases.Caser) []SchemaNode {
	var filtered []SchemaNode
	for _, node := range nodes {
		if node.Type == NodeColumn {
			if strings.Contains(fold.String(node.Name), term) {
				filtered = append(filtered, node)
			}
			continue
		}
		children := filterNodes(node.Children, term, fold)
		if len(children) > 0 {
			node.Children = children
			filtered = append(filtered, node)
		}
	}
	return filtered
}

// walk visits nodes depth-first in declaration order.
func walk(nodes []SchemaNode, visit func(SchemaNode)) {
	for _, n := range nodes {
		visit(n)
		walk(n.Children, visit)
	}
}
