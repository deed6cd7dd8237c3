// Package session holds one user's editing state: the block graph, the
// SQL emitted from it, and access to saved queries and previews.
//
// Every mutation re-runs the emitter on the new snapshot and notifies
// listeners with the result. Mutations are serialized by a mutex so one
// Session can back concurrent HTTP handlers; listeners run after the lock
// is released and may call back into the Session.
//
// Saved queries go through a Repository. MemoryRepository keeps them in
// process with an optional simulated delay; the store package provides a
// SQLite Repository.
package session
