// Package store keeps a SQLite log of compile runs.
//
// Each run records the program it compiled (path and content hash), the pass
// list, the printed output with its module hash, and the outcome. Runs are
// append-only and identified by a UUIDv7; ordering uses the seq column, a
// logical clock resumed from the highest stored value, never wall time.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: pass stats are deleted with their run
//
// Listing queries order by seq DESC, id COLLATE BINARY ASC so results are
// identical across invocations.
package store
