// Package blockgraph provides the block graph a visual query is built from.
//
// A Graph is an arena of nodes addressed by NodeID handles. The zero handle
// (NoNode) marks an empty socket. Node kinds form a closed set:
//
//	Column       table.column reference
//	Aggregation  COUNT or SUM over one column socket
//	Text         free text or a quoted literal
//	Number       integer literal
//	Boolean      TRUE or FALSE
//	Compare      left <op> right
//	Logic        left AND|OR right
//	Not          NOT operand
//
// The query root is not a node. Every Graph carries exactly one Query with
// an ordered SELECT chain, an optional WHERE condition and an ordered GROUP
// BY chain, so there is no way to delete or duplicate it.
//
// Removed nodes leave a tombstone and their handle is never reused. Removal
// clears every socket that pointed at the node.
//
// Construction methods reject unknown handles and wrong-kind operands with
// a *GraphError. Graphs decoded with Unmarshal may still contain dangling
// or mistyped references; Validate reports them as warnings and the SQL
// emitter skips them.
package blockgraph
