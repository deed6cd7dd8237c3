package sqlgen

import (
	"strconv"
	"strings"

	"github.com/roach88/blockql/internal/blockgraph"
)

// renderFunc renders one node kind.
type renderFunc func(r *renderer, n blockgraph.Node) string

// renderTable maps every node kind to its renderer. The renderers recurse
// through renderer.table rather than this variable.
var renderTable = map[blockgraph.Kind]renderFunc{
	blockgraph.KindColumn:      renderColumn,
	blockgraph.KindAggregation: renderAggregation,
	blockgraph.KindText:        renderText,
	blockgraph.KindNumber:      renderNumber,
	blockgraph.KindBoolean:     renderBoolean,
	blockgraph.KindCompare:     renderCompare,
	blockgraph.KindLogic:       renderLogic,
	blockgraph.KindNot:         renderNot,
}

// renderer renders WHERE and GROUP BY subtrees of one graph snapshot.
type renderer struct {
	g     *blockgraph.Graph
	table map[blockgraph.Kind]renderFunc
}

func newRenderer(g *blockgraph.Graph) *renderer {
	return &renderer{g: g, table: renderTable}
}

// value renders id as an expression. Empty or dangling sockets render "".
func (r *renderer) value(id blockgraph.NodeID) string {
	n, ok := r.g.Node(id)
	if !ok {
		return ""
	}
	render, ok := r.table[n.Kind]
	if !ok {
		return ""
	}
	return render(r, n)
}

// condition renders id in a boolean position or as a comparison
// operand. Text there loses its bracketing quotes.
func (r *renderer) condition(id blockgraph.NodeID) string {
	n, ok := r.g.Node(id)
	if ok && n.Kind == blockgraph.KindText {
		return StripQuotes(strings.TrimSpace(n.Text))
	}
	return r.value(id)
}

func renderColumn(_ *renderer, n blockgraph.Node) string {
	return n.Column.ID()
}

func renderAggregation(r *renderer, n blockgraph.Node) string {
	expr, _ := aggregation(r.g, n)
	return expr
}

func renderText(_ *renderer, n blockgraph.Node) string {
	return strings.TrimSpace(n.Text)
}

func renderNumber(_ *renderer, n blockgraph.Node) string {
	return strconv.FormatInt(n.Number, 10)
}

func renderBoolean(_ *renderer, n blockgraph.Node) string {
	if n.Bool {
		return "TRUE"
	}
	return "FALSE"
}

func renderCompare(r *renderer, n blockgraph.Node) string {
	left := r.condition(n.Left)
	if left == "" {
		left = "NULL"
	}
	right := r.condition(n.Right)
	if right == "" {
		right = "NULL"
	}
	return left + " " + n.Compare.Symbol() + " " + right
}

func renderLogic(r *renderer, n blockgraph.Node) string {
	s, _ := r.logic(n)
	return s
}

// logic renders a logic node and reports whether both operands rendered,
// in which case the output contains the operator.
func (r *renderer) logic(n blockgraph.Node) (string, bool) {
	left := r.logicOperand(n.Left, n.Logic)
	right := r.logicOperand(n.Right, n.Logic)
	switch {
	case left == "":
		return right, false
	case right == "":
		return left, false
	}
	return left + " " + string(n.Logic) + " " + right, true
}

// logicOperand renders an operand of a logic node with operator op,
// parenthesizing nested logic that uses the other operator.
func (r *renderer) logicOperand(id blockgraph.NodeID, op blockgraph.LogicOp) string {
	n, ok := r.g.Node(id)
	if !ok || n.Kind != blockgraph.KindLogic {
		return r.condition(id)
	}
	s, binary := r.logic(n)
	if binary && n.Logic != op {
		return "(" + s + ")"
	}
	return s
}

func renderNot(r *renderer, n blockgraph.Node) string {
	operand, ok := r.g.Node(n.Arg)
	if !ok {
		return ""
	}
	if operand.Kind == blockgraph.KindLogic {
		s, binary := r.logic(operand)
		switch {
		case s == "":
			return ""
		case binary:
			return "NOT (" + s + ")"
		}
		return "NOT " + s
	}
	s := r.condition(n.Arg)
	if s == "" {
		return ""
	}
	return "NOT " + s
}

// StripQuotes removes one pair of matching single or double quotes when
// they bracket the whole value. Anything else is returned unchanged.
func StripQuotes(s string) string {
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if first == last && (first == '\'' || first == '"') {
		return s[1 : len(s)-1]
	}
	return s
}
