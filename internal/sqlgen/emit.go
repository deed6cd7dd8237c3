package sqlgen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/blockql/internal/blockgraph"
	"github.com/roach88/blockql/internal/joins"
)

// PlaceholderSQL is emitted for a graph with nothing in its SELECT chain.
const PlaceholderSQL = "-- Please connect column blocks to SELECT"

// Diagnostic classifies the outcome of an emission.
type Diagnostic int

const (
	// DiagnosticNone means the SQL is a complete statement.
	DiagnosticNone Diagnostic = iota

	// DiagnosticEmptyQuery means the SELECT chain is empty.
	DiagnosticEmptyQuery

	// DiagnosticUnresolvedTable means columns were selected but none
	// named a table.
	DiagnosticUnresolvedTable

	// DiagnosticMissingJoin means two selected tables have no join rule.
	DiagnosticMissingJoin
)

var diagnosticNames = [...]string{
	DiagnosticNone:            "none",
	DiagnosticEmptyQuery:      "empty_query",
	DiagnosticUnresolvedTable: "unresolved_table",
	DiagnosticMissingJoin:     "missing_join",
}

// String returns the wire name of the diagnostic.
func (d Diagnostic) String() string {
	if d < 0 || int(d) >= len(diagnosticNames) {
		return fmt.Sprintf("diagnostic(%d)", int(d))
	}
	return diagnosticNames[d]
}

// MarshalText implements encoding.TextMarshaler.
func (d Diagnostic) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Result is the output of one emission.
type Result struct {
	// SQL is always displayable: a statement, or comment lines explaining
	// what is missing.
	SQL string `json:"sql"`

	Diagnostic Diagnostic `json:"diagnostic"`

	// Collection is what the SELECT chain contributed.
	Collection Collection `json:"collection"`

	// MissingJoins lists "A and B" pairs without a join rule.
	MissingJoins []string `json:"missingJoins,omitempty"`
}

// OK reports whether SQL is a complete statement.
func (r Result) OK() bool {
	return r.Diagnostic == DiagnosticNone
}

// Emitter turns block graphs into SQL using a join resolver.
type Emitter struct {
	resolver *joins.Resolver
}

// NewEmitter creates an emitter. A nil resolver uses the default join rules.
func NewEmitter(resolver *joins.Resolver) *Emitter {
	if resolver == nil {
		resolver = joins.NewDefaultResolver()
	}
	return &Emitter{resolver: resolver}
}

// Emit renders g.
//
// The returned error is non-nil only for a *joins.JoinResolutionError, in
// which case Result.SQL carries the same message as an "-- ERROR:" comment.
func (e *Emitter) Emit(g *blockgraph.Graph) (Result, error) {
	c := Collect(g)
	result := Result{Collection: c}

	if len(c.SelectExpressions) == 0 && len(c.Tables) == 0 {
		result.SQL = PlaceholderSQL
		result.Diagnostic = DiagnosticEmptyQuery
		return result, nil
	}

	selectLine := "SELECT " + strings.Join(c.SelectExpressions, ", ")

	if len(c.Tables) == 0 {
		result.SQL = strings.Join([]string{
			"-- ERROR: No tables could be derived. Ensure column blocks reference a table (e.g., rtable1.rcol11).",
			selectLine,
			"FROM ... (table unknown)",
		}, "\n")
		result.Diagnostic = DiagnosticUnresolvedTable
		return result, nil
	}

	from, err := e.resolver.Resolve(c.Tables)
	if err != nil {
		var joinErr *joins.JoinResolutionError
		if !errors.As(err, &joinErr) {
			return result, fmt.Errorf("resolve joins: %w", err)
		}
		result.SQL = fmt.Sprintf(
			"-- ERROR: Join not defined between tables: %s. Please reach out to dev for support.",
			strings.Join(joinErr.Missing, ", "))
		result.Diagnostic = DiagnosticMissingJoin
		result.MissingJoins = joinErr.Missing
		return result, err
	}

	lines := []string{selectLine}
	lines = append(lines, from.Lines()...)

	r := newRenderer(g)
	q := g.Query()
	if where := strings.TrimSpace(r.condition(q.Where)); where != "" && where != "null" {
		lines = append(lines, "WHERE "+where)
	}
	if groupBy := r.groupBy(q.GroupBy); len(groupBy) > 0 {
		lines = append(lines, "GROUP BY "+strings.Join(groupBy, ", "))
	}

	result.SQL = strings.TrimSpace(strings.Join(lines, "\n"))
	return result, nil
}

// groupBy renders the GROUP BY chain, dropping empty and repeated items.
func (r *renderer) groupBy(ids []blockgraph.NodeID) []string {
	var items []string
	seen := make(map[string]bool)
	for _, id := range ids {
		item := strings.TrimSpace(r.value(id))
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		items = append(items, item)
	}
	return items
}
