package blockgraph

import "fmt"

// ValidationResult lists problems the SQL emitter tolerates but the user
// should hear about.
type ValidationResult struct {
	// Valid is true when there are no warnings.
	Valid bool

	// Warnings describes each dangling handle or mistyped socket.
	Warnings []string
}

// Validate inspects the graph for dangling handles, wrong kinds in sockets
// and aggregations without a column. It never modifies the graph.
func Validate(g *Graph) ValidationResult {
	v := &validator{g: g, warnings: []string{}}

	for i, id := range g.query.Select {
		v.checkSocket(id, fmt.Sprintf("select[%d]", i), Kind.IsSelectable)
	}
	if g.query.Where != NoNode {
		v.checkSocket(g.query.Where, "where", Kind.IsCondition)
	}
	for i, id := range g.query.GroupBy {
		v.checkSocket(id, fmt.Sprintf("group_by[%d]", i), Kind.IsGroupable)
	}

	for _, n := range g.Nodes() {
		v.checkNode(n)
	}

	return ValidationResult{
		Valid:    len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

type validator struct {
	g        *Graph
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

// checkSocket warns when a non-empty socket points at a missing node or a
// node of the wrong kind.
func (v *validator) checkSocket(id NodeID, socket string, ok func(Kind) bool) {
	n, found := v.g.Node(id)
	if !found {
		v.addWarning("%s: block %d does not exist", socket, id)
		return
	}
	if !ok(n.Kind) {
		v.addWarning("%s: %s block %d is ignored here", socket, n.Kind, id)
	}
}

func (v *validator) checkNode(n Node) {
	socket := func(name string) string {
		return fmt.Sprintf("block %d %s", n.ID, name)
	}

	switch n.Kind {
	case KindAggregation:
		if n.Arg == NoNode {
			v.addWarning("block %d: %s has no column", n.ID, n.Func)
			return
		}
		v.checkSocket(n.Arg, socket("column"), func(k Kind) bool { return k == KindColumn })
	case KindCompare:
		if n.Left == NoNode || n.Right == NoNode {
			v.addWarning("block %d: comparison is missing an operand", n.ID)
		}
		if n.Left != NoNode {
			v.checkSocket(n.Left, socket("left"), Kind.IsValue)
		}
		if n.Right != NoNode {
			v.checkSocket(n.Right, socket("right"), Kind.IsValue)
		}
	case KindLogic:
		if n.Left == NoNode && n.Right == NoNode {
			v.addWarning("block %d: %s has no operands", n.ID, n.Logic)
		}
		if n.Left != NoNode {
			v.checkSocket(n.Left, socket("left"), Kind.IsCondition)
		}
		if n.Right != NoNode {
			v.checkSocket(n.Right, socket("right"), Kind.IsCondition)
		}
	case KindNot:
		if n.Arg == NoNode {
			v.addWarning("block %d: NOT has no operand", n.ID)
			return
		}
		v.checkSocket(n.Arg, socket("operand"), Kind.IsCondition)
	}
}
