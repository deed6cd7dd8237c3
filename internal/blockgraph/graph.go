package blockgraph

import (
	"slices"

	"github.com/roach88/blockql/internal/ir"
)

// Node is one block. Which fields are meaningful depends on Kind:
//
//	Column       Column
//	Aggregation  Func, Arg (column socket)
//	Text         Text
//	Number       Number
//	Boolean      Bool
//	Compare      Compare, Left, Right
//	Logic        Logic, Left, Right
//	Not          Arg
type Node struct {
	ID      NodeID
	Kind    Kind
	Column  ir.ColumnRef
	Func    AggFunc
	Compare CompareOp
	Logic   LogicOp
	Text    string
	Number  int64
	Bool    bool
	Arg     NodeID
	Left    NodeID
	Right   NodeID
}

// live reports whether the arena slot holds a node.
func (n Node) live() bool {
	return n.Kind != 0
}

// Query is the graph's root: the SELECT chain, the WHERE socket and the
// GROUP BY chain.
type Query struct {
	Select  []NodeID
	Where   NodeID
	GroupBy []NodeID
}

func (q Query) clone() Query {
	return Query{
		Select:  slices.Clone(q.Select),
		Where:   q.Where,
		GroupBy: slices.Clone(q.GroupBy),
	}
}

// Graph is a block workspace. The zero value is not usable; call New.
//
// Graph is not safe for concurrent use. Callers that share one (the
// editor session) serialize access.
type Graph struct {
	// nodes[i] holds the node with ID i+1. Removed nodes are zeroed.
	nodes []Node
	query Query
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{}
}

// FromColumns builds a graph whose SELECT chain holds one column block per
// ref, in order. Duplicate refs are kept once.
func FromColumns(refs []ir.ColumnRef) *Graph {
	g := New()
	for _, ref := range refs {
		g.EnsureColumn(ref)
	}
	return g
}

// Node returns the live node for id.
func (g *Graph) Node(id NodeID) (Node, bool) {
	if id <= NoNode || int(id) > len(g.nodes) {
		return Node{}, false
	}
	n := g.nodes[id-1]
	return n, n.live()
}

// Nodes returns every live node in ID order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		if n.live() {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of live nodes.
func (g *Graph) Len() int {
	count := 0
	for _, n := range g.nodes {
		if n.live() {
			count++
		}
	}
	return count
}

// Query returns a copy of the root.
func (g *Graph) Query() Query {
	return g.query.clone()
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	return &Graph{
		nodes: slices.Clone(g.nodes),
		query: g.query.clone(),
	}
}

func (g *Graph) add(n Node) NodeID {
	n.ID = NodeID(len(g.nodes) + 1)
	g.nodes = append(g.nodes, n)
	return n.ID
}

// socket checks that id is empty or names a live node accepted by ok.
func (g *Graph) socket(id NodeID, socket string, ok func(Kind) bool) error {
	if id == NoNode {
		return nil
	}
	n, found := g.Node(id)
	if !found {
		return errorf(ErrUnknownNode, id, "no such block for %s", socket)
	}
	if !ok(n.Kind) {
		return errorf(ErrWrongKind, id, "%s block cannot fill %s", n.Kind, socket)
	}
	return nil
}

// AddColumn adds a column block.
func (g *Graph) AddColumn(ref ir.ColumnRef) NodeID {
	return g.add(Node{Kind: KindColumn, Column: ref})
}

// AddAggregation adds an aggregation over column, which may be NoNode.
func (g *Graph) AddAggregation(fn AggFunc, column NodeID) (NodeID, error) {
	if !fn.Valid() {
		return NoNode, errorf(ErrInvalidOp, NoNode, "unknown aggregation %q", fn)
	}
	if err := g.socket(column, "aggregation column", func(k Kind) bool { return k == KindColumn }); err != nil {
		return NoNode, err
	}
	return g.add(Node{Kind: KindAggregation, Func: fn, Arg: column}), nil
}

// AddText adds a text block.
func (g *Graph) AddText(text string) NodeID {
	return g.add(Node{Kind: KindText, Text: text})
}

// AddNumber adds an integer literal block.
func (g *Graph) AddNumber(n int64) NodeID {
	return g.add(Node{Kind: KindNumber, Number: n})
}

// AddBoolean adds a boolean literal block.
func (g *Graph) AddBoolean(b bool) NodeID {
	return g.add(Node{Kind: KindBoolean, Bool: b})
}

// AddCompare adds a comparison. Either operand may be NoNode.
func (g *Graph) AddCompare(op CompareOp, left, right NodeID) (NodeID, error) {
	if !op.Valid() {
		return NoNode, errorf(ErrInvalidOp, NoNode, "unknown comparison %q", op)
	}
	if err := g.socket(left, "comparison operand", Kind.IsValue); err != nil {
		return NoNode, err
	}
	if err := g.socket(right, "comparison operand", Kind.IsValue); err != nil {
		return NoNode, err
	}
	return g.add(Node{Kind: KindCompare, Compare: op, Left: left, Right: right}), nil
}

// AddLogic adds an AND/OR block. Either operand may be NoNode.
func (g *Graph) AddLogic(op LogicOp, left, right NodeID) (NodeID, error) {
	if !op.Valid() {
		return NoNode, errorf(ErrInvalidOp, NoNode, "unknown logic operator %q", op)
	}
	if err := g.socket(left, "logic operand", Kind.IsCondition); err != nil {
		return NoNode, err
	}
	if err := g.socket(right, "logic operand", Kind.IsCondition); err != nil {
		return NoNode, err
	}
	return g.add(Node{Kind: KindLogic, Logic: op, Left: left, Right: right}), nil
}

// AddNot adds a negation of operand, which may be NoNode.
func (g *Graph) AddNot(operand NodeID) (NodeID, error) {
	if err := g.socket(operand, "NOT operand", Kind.IsCondition); err != nil {
		return NoNode, err
	}
	return g.add(Node{Kind: KindNot, Arg: operand}), nil
}

// AppendSelect attaches a column or aggregation to the end of the SELECT chain.
func (g *Graph) AppendSelect(id NodeID) error {
	if id == NoNode {
		return errorf(ErrUnknownNode, id, "SELECT requires a block")
	}
	if err := g.socket(id, "SELECT", Kind.IsSelectable); err != nil {
		return err
	}
	g.query.Select = append(g.query.Select, id)
	return nil
}

// SetWhere fills the WHERE socket. NoNode clears it.
func (g *Graph) SetWhere(id NodeID) error {
	if err := g.socket(id, "WHERE", Kind.IsCondition); err != nil {
		return err
	}
	g.query.Where = id
	return nil
}

// AppendGroupBy attaches a column or text block to the GROUP BY chain.
func (g *Graph) AppendGroupBy(id NodeID) error {
	if id == NoNode {
		return errorf(ErrUnknownNode, id, "GROUP BY requires a block")
	}
	if err := g.socket(id, "GROUP BY", Kind.IsGroupable); err != nil {
		return err
	}
	g.query.GroupBy = append(g.query.GroupBy, id)
	return nil
}

// Remove deletes a node and clears every socket that referenced it.
// Blocks plugged into the removed node stay in the arena unattached.
func (g *Graph) Remove(id NodeID) error {
	if _, ok := g.Node(id); !ok {
		return errorf(ErrUnknownNode, id, "no such block")
	}
	g.nodes[id-1] = Node{}

	for i := range g.nodes {
		n := &g.nodes[i]
		if n.Arg == id {
			n.Arg = NoNode
		}
		if n.Left == id {
			n.Left = NoNode
		}
		if n.Right == id {
			n.Right = NoNode
		}
	}

	g.query.Select = slices.DeleteFunc(g.query.Select, func(s NodeID) bool { return s == id })
	g.query.GroupBy = slices.DeleteFunc(g.query.GroupBy, func(s NodeID) bool { return s == id })
	if g.query.Where == id {
		g.query.Where = NoNode
	}
	return nil
}

// FindColumn returns the first column block in the SELECT chain matching ref.
func (g *Graph) FindColumn(ref ir.ColumnRef) (NodeID, bool) {
	for _, id := range g.query.Select {
		if n, ok := g.Node(id); ok && n.Kind == KindColumn && n.Column == ref {
			return id, true
		}
	}
	return NoNode, false
}

// EnsureColumn appends a column block for ref unless the SELECT chain
// already has one. It reports whether a block was added.
func (g *Graph) EnsureColumn(ref ir.ColumnRef) (NodeID, bool) {
	if id, ok := g.FindColumn(ref); ok {
		return id, false
	}
	id := g.AddColumn(ref)
	g.query.Select = append(g.query.Select, id)
	return id, true
}

// RemoveColumn removes every column block for ref from the SELECT chain.
// It reports whether anything was removed.
func (g *Graph) RemoveColumn(ref ir.ColumnRef) bool {
	removed := false
	for {
		id, ok := g.FindColumn(ref)
		if !ok {
			return removed
		}
		// FindColumn only returns live handles.
		_ = g.Remove(id)
		removed = true
	}
}

// Columns returns the distinct columns the SELECT chain reads, in chain
// order. Aggregated columns are included.
func (g *Graph) Columns() []ir.ColumnRef {
	var refs []ir.ColumnRef
	seen := make(map[ir.ColumnRef]bool)
	for _, id := range g.query.Select {
		n, ok := g.Node(id)
		if !ok {
			continue
		}
		if n.Kind == KindAggregation {
			n, ok = g.Node(n.Arg)
			if !ok {
				continue
			}
		}
		if n.Kind != KindColumn || seen[n.Column] {
			continue
		}
		seen[n.Column] = true
		refs = append(refs, n.Column)
	}
	return refs
}
