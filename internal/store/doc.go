// Package store provides SQLite-backed storage for saved queries.
//
// A saved query row holds the display name, the SQL captured at save time,
// the selected columns and the serialized block graph:
//   - columns: canonical JSON array of {"id","name","table"} objects
//   - block_data: the graph as written by blockgraph.Graph.Marshal
//   - created_at: fixed-width UTC timestamp, so text order is time order
//
// # Deterministic Listing
//
// List always orders by created_at ASC, id ASC COLLATE BINARY. Two saves in
// the same nanosecond still come back in a stable order.
//
// # Connection
//
// Open sets journal_mode=WAL, synchronous=NORMAL, busy_timeout=5000 and
// foreign_keys=ON on a single pooled connection. The schema version lives
// in PRAGMA user_version; files from a newer blockql are refused.
//
// Store implements session.Repository.
package store
