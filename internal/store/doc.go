// Package store provides SQLite-backed session history for combo.
//
// The store is an append-only log with:
//   - Sessions: one row per run, keyed by a UUIDv7 session ID
//   - Entries: every history entry presented during the session, original
//     input and derived recognitions alike
//   - Markers: clear and stop points, positioned after an entry seq
//
// # Ordering
//
// All queries order by seq (the dispatcher's logical clock), never by wall
// time, so a stored session reads back in exactly the order it was shown.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
