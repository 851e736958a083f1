// Package store provides the SQLite-backed flush journal.
//
// The journal is append-only and records:
//   - Flushes: every patch handed to a host, with the instance that sent it
//   - Events: lifecycle transitions, updated hook runs and host completions
//
// # Critical Patterns
//
// Logical Ordering
//   - All ordering uses seq INTEGER from the registry's logical clock,
//     NEVER timestamps
//   - Flushes and events share one seq space, so a merged timeline is a
//     plain sort
//
// Deterministic Query Results
//   - All queries include ORDER BY seq ASC
//
// Idempotent Writes
//   - INSERT ... ON CONFLICT DO NOTHING; re-journaling a flush is harmless
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Patches are stored as RFC 8785 canonical JSON together with their
// domain-separated hash (ir.PatchHash), so a journal can be verified.
package store
