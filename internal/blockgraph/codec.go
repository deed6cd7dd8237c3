package blockgraph

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/blockql/internal/ir"
)

// FormatVersion is the serialized graph format version.
const FormatVersion = 1

// maxNodeID bounds handles accepted from serialized graphs so a hostile
// document cannot force a huge arena allocation.
const maxNodeID = 1 << 16

// wireNode is the serialized form of a Node. Only the fields of the node's
// kind are written.
type wireNode struct {
	ID     int    `json:"id"`
	Kind   string `json:"kind"`
	Column string `json:"column,omitempty"`
	Table  string `json:"table,omitempty"`
	Func   string `json:"func,omitempty"`
	Op     string `json:"op,omitempty"`
	Text   string `json:"text,omitempty"`
	Number int64  `json:"number,omitempty"`
	Bool   bool   `json:"bool,omitempty"`
	Arg    int    `json:"arg,omitempty"`
	Left   int    `json:"left,omitempty"`
	Right  int    `json:"right,omitempty"`
}

type wireQuery struct {
	Select  []int `json:"select"`
	Where   int   `json:"where"`
	GroupBy []int `json:"group_by"`
}

type wireGraph struct {
	Version int        `json:"version"`
	Nodes   []wireNode `json:"nodes"`
	Query   wireQuery  `json:"query"`
}

// Marshal serializes the graph as canonical JSON:
//
//	{"nodes":[...],"query":{"group_by":[],"select":[1],"where":0},"version":1}
//
// Output is byte-identical for equal graphs.
func (g *Graph) Marshal() ([]byte, error) {
	nodes := make([]any, 0, len(g.nodes))
	for _, n := range g.nodes {
		if n.live() {
			nodes = append(nodes, nodeObject(n))
		}
	}

	doc := map[string]any{
		"version": FormatVersion,
		"nodes":   nodes,
		"query": map[string]any{
			"select":   handles(g.query.Select),
			"where":    int(g.query.Where),
			"group_by": handles(g.query.GroupBy),
		},
	}
	data, err := ir.MarshalCanonical(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal graph: %w", err)
	}
	return data, nil
}

func nodeObject(n Node) map[string]any {
	obj := map[string]any{
		"id":   int(n.ID),
		"kind": n.Kind.String(),
	}
	switch n.Kind {
	case KindColumn:
		obj["column"] = n.Column.ColumnName
		obj["table"] = n.Column.TableName
	case KindAggregation:
		obj["func"] = string(n.Func)
		obj["arg"] = int(n.Arg)
	case KindText:
		obj["text"] = n.Text
	case KindNumber:
		obj["number"] = n.Number
	case KindBoolean:
		obj["bool"] = n.Bool
	case KindCompare:
		obj["op"] = string(n.Compare)
		obj["left"] = int(n.Left)
		obj["right"] = int(n.Right)
	case KindLogic:
		obj["op"] = string(n.Logic)
		obj["left"] = int(n.Left)
		obj["right"] = int(n.Right)
	case KindNot:
		obj["arg"] = int(n.Arg)
	}
	return obj
}

func handles(ids []NodeID) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}

// Unmarshal decodes a serialized graph, preserving node handles.
//
// Structural problems (bad version, duplicate or out-of-range IDs, unknown
// kinds or operators, reference cycles) are rejected with a *GraphError.
// References to missing nodes and wrong-kind sockets are kept; see Validate.
func Unmarshal(data []byte) (*Graph, error) {
	var doc wireGraph
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, errorf(ErrMalformedData, NoNode, "decode graph: %v", err)
	}
	if doc.Version != FormatVersion {
		return nil, errorf(ErrMalformedData, NoNode, "unsupported graph version %d", doc.Version)
	}

	g := New()
	for _, wn := range doc.Nodes {
		n, err := decodeNode(wn)
		if err != nil {
			return nil, err
		}
		if int(n.ID) > len(g.nodes) {
			grown := make([]Node, n.ID)
			copy(grown, g.nodes)
			g.nodes = grown
		}
		if g.nodes[n.ID-1].live() {
			return nil, errorf(ErrMalformedData, n.ID, "duplicate block id")
		}
		g.nodes[n.ID-1] = n
	}

	var err error
	if g.query.Select, err = decodeHandles(doc.Query.Select, "select"); err != nil {
		return nil, err
	}
	if g.query.GroupBy, err = decodeHandles(doc.Query.GroupBy, "group_by"); err != nil {
		return nil, err
	}
	if g.query.Where, err = decodeHandle(doc.Query.Where, "where"); err != nil {
		return nil, err
	}

	if id, ok := g.findCycle(); ok {
		return nil, errorf(ErrMalformedData, id, "block references itself through its operands")
	}
	return g, nil
}

func decodeNode(wn wireNode) (Node, error) {
	id := NodeID(wn.ID)
	if wn.ID <= 0 || wn.ID > maxNodeID {
		return Node{}, errorf(ErrMalformedData, NoNode, "block id %d out of range", wn.ID)
	}
	kind, err := ParseKind(wn.Kind)
	if err != nil {
		return Node{}, errorf(ErrMalformedData, id, "%v", err)
	}

	n := Node{ID: id, Kind: kind}
	refs := make([]NodeID, 3)
	for i, raw := range []int{wn.Arg, wn.Left, wn.Right} {
		if refs[i], err = decodeHandle(raw, "operand"); err != nil {
			return Node{}, err
		}
	}

	switch kind {
	case KindColumn:
		n.Column = ir.NewColumnRef(norm.NFC.String(wn.Column), norm.NFC.String(wn.Table))
	case KindAggregation:
		n.Func = AggFunc(wn.Func)
		if !n.Func.Valid() {
			return Node{}, errorf(ErrInvalidOp, id, "unknown aggregation %q", wn.Func)
		}
		n.Arg = refs[0]
	case KindText:
		n.Text = norm.NFC.String(wn.Text)
	case KindNumber:
		n.Number = wn.Number
	case KindBoolean:
		n.Bool = wn.Bool
	case KindCompare:
		n.Compare = CompareOp(wn.Op)
		if !n.Compare.Valid() {
			return Node{}, errorf(ErrInvalidOp, id, "unknown comparison %q", wn.Op)
		}
		n.Left, n.Right = refs[1], refs[2]
	case KindLogic:
		n.Logic = LogicOp(wn.Op)
		if !n.Logic.Valid() {
			return Node{}, errorf(ErrInvalidOp, id, "unknown logic operator %q", wn.Op)
		}
		n.Left, n.Right = refs[1], refs[2]
	case KindNot:
		n.Arg = refs[0]
	}
	return n, nil
}

func decodeHandle(raw int, field string) (NodeID, error) {
	if raw < 0 || raw > maxNodeID {
		return NoNode, errorf(ErrMalformedData, NoNode, "%s handle %d out of range", field, raw)
	}
	return NodeID(raw), nil
}

func decodeHandles(raw []int, field string) ([]NodeID, error) {
	var ids []NodeID
	for _, r := range raw {
		id, err := decodeHandle(r, field)
		if err != nil {
			return nil, err
		}
		if id != NoNode {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// operands returns the sockets of n.
func operands(n Node) []NodeID {
	switch n.Kind {
	case KindAggregation, KindNot:
		return []NodeID{n.Arg}
	case KindCompare, KindLogic:
		return []NodeID{n.Left, n.Right}
	}
	return nil
}

// findCycle returns a node that can reach itself through operand sockets.
func (g *Graph) findCycle() (NodeID, bool) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(g.nodes)+1)

	var visit func(id NodeID) (NodeID, bool)
	visit = func(id NodeID) (NodeID, bool) {
		n, ok := g.Node(id)
		if !ok {
			return NoNode, false
		}
		switch state[id] {
		case visiting:
			return id, true
		case done:
			return NoNode, false
		}
		state[id] = visiting
		for _, op := range operands(n) {
			if found, cyclic := visit(op); cyclic {
				return found, true
			}
		}
		state[id] = done
		return NoNode, false
	}

	for _, n := range g.Nodes() {
		if found, cyclic := visit(n.ID); cyclic {
			return found, true
		}
	}
	return NoNode, false
}
