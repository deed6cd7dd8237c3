package joins

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoTables is returned when Resolve is called without any table.
var ErrNoTables = errors.New("no tables to resolve")

// JoinResolutionError reports table pairs that have no join rule.
//
// Missing holds each pair formatted as "A and B", in collection order.
// The error is recoverable: the user removes columns from an unjoinable
// table and the query is emitted again.
type JoinResolutionError struct {
	Missing []string
}

func (e *JoinResolutionError) Error() string {
	return fmt.Sprintf("join not defined between tables: %s", strings.Join(e.Missing, ", "))
}

// Join is one INNER JOIN line of a FROM clause.
type Join struct {
	Table string `json:"table"`
	On    string `json:"on"`
}

// SQL renders the join as "INNER JOIN <table> ON <predicate>".
func (j Join) SQL() string {
	return fmt.Sprintf("INNER JOIN %s ON %s", j.Table, j.On)
}

// From is a resolved FROM clause: an anchor table plus its joins.
type From struct {
	Anchor string `json:"anchor"`
	Joins  []Join `json:"joins,omitempty"`
}

// Lines renders the clause as "FROM <anchor>" followed by one line per join.
func (f From) Lines() []string {
	lines := make([]string, 0, len(f.Joins)+1)
	lines = append(lines, "FROM "+f.Anchor)
	for _, j := range f.Joins {
		lines = append(lines, j.SQL())
	}
	return lines
}

// Resolver looks up join rules and builds FROM clauses.
// A Resolver is immutable after construction and safe for concurrent use.
type Resolver struct {
	rules  []Rule
	byPair map[pairKey]string
}

// NewResolver creates a Resolver over the given rules.
// When two rules cover the same directional pair, the first one wins.
func NewResolver(rules []Rule) *Resolver {
	r := &Resolver{
		rules:  make([]Rule, 0, len(rules)),
		byPair: make(map[pairKey]string, len(rules)),
	}
	for _, rule := range rules {
		key := pairKey{left: rule.Left, right: rule.Right}
		if _, exists := r.byPair[key]; exists {
			continue
		}
		r.byPair[key] = rule.On
		r.rules = append(r.rules, rule)
	}
	return r
}

// NewDefaultResolver creates a Resolver over DefaultRules.
func NewDefaultResolver() *Resolver {
	return NewResolver(DefaultRules())
}

// Rules returns the rules in declaration order.
func (r *Resolver) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Lookup returns the predicate joining a and b.
// The rule for (a, b) is preferred, falling back to (b, a).
func (r *Resolver) Lookup(a, b string) (string, bool) {
	if on, ok := r.byPair[pairKey{left: a, right: b}]; ok {
		return on, true
	}
	on, ok := r.byPair[pairKey{left: b, right: a}]
	return on, ok
}

// MissingPairs returns every unordered pair of tables without a rule,
// formatted as "A and B" with A appearing before B in tables.
func (r *Resolver) MissingPairs(tables []string) []string {
	var missing []string
	for i := 0; i < len(tables); i++ {
		for j := i + 1; j < len(tables); j++ {
			if _, ok := r.Lookup(tables[i], tables[j]); !ok {
				missing = append(missing, fmt.Sprintf("%s and %s", tables[i], tables[j]))
			}
		}
	}
	return missing
}

// Resolve builds the FROM clause for distinct tables in collection order.
//
// Returns ErrNoTables for an empty input and *JoinResolutionError when any
// pair lacks a rule.
func (r *Resolver) Resolve(tables []string) (From, error) {
	if len(tables) == 0 {
		return From{}, ErrNoTables
	}

	if missing := r.MissingPairs(tables); len(missing) > 0 {
		return From{}, &JoinResolutionError{Missing: missing}
	}

	from := From{Anchor: tables[0]}
	for _, table := range tables[1:] {
		// Guaranteed present: MissingPairs checked (anchor, table) above.
		on, _ := r.Lookup(from.Anchor, table)
		from.Joins = append(from.Joins, Join{Table: table, On: on})
	}

	return from, nil
}
