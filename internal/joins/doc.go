// Package joins decides how the tables referenced by a query are connected
// in the generated FROM clause.
//
// A Rule maps an unordered pair of table names to an equality predicate.
// Lookup is symmetric: a rule declared for (A, B) also serves (B, A).
//
// RESOLUTION:
//
// Resolve takes the distinct tables of a query in collection order:
//
//	1 table   → FROM <table>, no joins
//	N tables  → every unordered pair must have a rule
//	          → anchor = first table
//	          → one INNER JOIN per remaining table, ON rule(anchor, table)
//
// Any pair without a rule fails resolution with a JoinResolutionError that
// lists every missing pair as "A and B".
//
// STAR ANCHOR:
//
// Joins hang off a single anchor table. Because every pair is checked before
// the FROM clause is built, each (anchor, table) pair is guaranteed a rule
// whenever resolution succeeds; no connectivity search is performed.
package joins
