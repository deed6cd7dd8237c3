// Package sqlgen renders a block graph as SQL text.
//
// Emission runs in four stages:
//
//	Collect   SELECT chain → expressions + tables (first-seen order)
//	Resolve   tables → FROM anchor + INNER JOIN lines (package joins)
//	Render    WHERE and GROUP BY subtrees through a per-kind render table
//	Assemble  SELECT / FROM / JOIN / WHERE / GROUP BY, trimmed
//
// Emit always returns displayable SQL. Problems the user must fix are
// embedded as "-- ..." comment lines and reported through
// Result.Diagnostic. A missing join rule is additionally returned as a
// *joins.JoinResolutionError so callers can raise a banner.
//
// Emission is pure: the same graph snapshot always yields byte-identical
// output, and the graph is never modified.
package sqlgen
