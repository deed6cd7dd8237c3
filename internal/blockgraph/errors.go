package blockgraph

import "fmt"

// Graph error codes.
const (
	ErrUnknownNode   = "G001" // handle does not name a live node
	ErrWrongKind     = "G002" // node kind not accepted by the socket
	ErrInvalidOp     = "G003" // unknown function or operator
	ErrMalformedData = "G004" // serialized graph cannot be decoded
)

// GraphError reports an invalid graph operation.
type GraphError struct {
	Code    string
	Message string
	Node    NodeID
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	if e.Node != NoNode {
		return fmt.Sprintf("[%s] node %d: %s", e.Code, e.Node, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func errorf(code string, node NodeID, format string, args ...any) *GraphError {
	return &GraphError{Code: code, Message: fmt.Sprintf(format, args...), Node: node}
}
