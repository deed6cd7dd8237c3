// Package server exposes a query-builder session over HTTP.
//
// Routes live under /api:
//
//	GET  /api/schema?q=term   catalog tree, optionally filtered
//	GET  /api/joins           join rules
//	POST /api/toolbox         serialized graph -> block palette for its columns
//	POST /api/emit            serialized graph -> SQL and diagnostic
//	POST /api/preview?page=n  serialized graph -> one page of mocked rows
//	GET  /api/queries         saved queries
//	POST /api/queries         save {name, graph}
//	GET  /api/queries/{id}    saved query with its rebuilt graph
//	DELETE /api/queries/{id}  remove a saved query
//
// Graph bodies use the blockgraph wire format. Emission diagnostics are
// reported in a 200 response; only malformed input and preview validation
// failures are 4xx.
package server
