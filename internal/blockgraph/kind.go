package blockgraph

import "fmt"

// NodeID is a handle into a Graph's arena. NoNode marks an empty socket.
type NodeID int

// NoNode is the empty handle.
const NoNode NodeID = 0

// Kind identifies what a node represents.
type Kind uint8

const (
	KindColumn Kind = iota + 1
	KindAggregation
	KindText
	KindNumber
	KindBoolean
	KindCompare
	KindLogic
	KindNot
)

var kindNames = map[Kind]string{
	KindColumn:      "column",
	KindAggregation: "aggregation",
	KindText:        "text",
	KindNumber:      "number",
	KindBoolean:     "boolean",
	KindCompare:     "compare",
	KindLogic:       "logic",
	KindNot:         "not",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown block kind %q", s)
}

// IsValue reports whether the kind can fill a comparison operand.
func (k Kind) IsValue() bool {
	switch k {
	case KindColumn, KindAggregation, KindText, KindNumber, KindBoolean:
		return true
	}
	return false
}

// IsCondition reports whether the kind can fill a WHERE or logic socket.
func (k Kind) IsCondition() bool {
	switch k {
	case KindText, KindBoolean, KindCompare, KindLogic, KindNot:
		return true
	}
	return false
}

// IsSelectable reports whether the kind can sit in the SELECT chain.
func (k Kind) IsSelectable() bool {
	return k == KindColumn || k == KindAggregation
}

// IsGroupable reports whether the kind can sit in the GROUP BY chain.
func (k Kind) IsGroupable() bool {
	return k == KindColumn || k == KindText
}

// AggFunc is an aggregation function.
type AggFunc string

const (
	AggCount AggFunc = "COUNT"
	AggSum   AggFunc = "SUM"
)

// Valid reports whether f is a known function.
func (f AggFunc) Valid() bool {
	return f == AggCount || f == AggSum
}

// CompareOp is a comparison operator.
type CompareOp string

const (
	OpEQ  CompareOp = "EQ"
	OpNEQ CompareOp = "NEQ"
	OpLT  CompareOp = "LT"
	OpLTE CompareOp = "LTE"
	OpGT  CompareOp = "GT"
	OpGTE CompareOp = "GTE"
)

var compareSymbols = map[CompareOp]string{
	OpEQ:  "=",
	OpNEQ: "!=",
	OpLT:  "<",
	OpLTE: "<=",
	OpGT:  ">",
	OpGTE: ">=",
}

// Valid reports whether op is a known operator.
func (op CompareOp) Valid() bool {
	_, ok := compareSymbols[op]
	return ok
}

// Symbol returns the SQL spelling of the operator.
func (op CompareOp) Symbol() string {
	return compareSymbols[op]
}

// LogicOp joins two conditions.
type LogicOp string

const (
	LogicAnd LogicOp = "AND"
	LogicOr  LogicOp = "OR"
)

// Valid reports whether op is AND or OR.
func (op LogicOp) Valid() bool {
	return op == LogicAnd || op == LogicOr
}
