// Package store provides the SQLite-backed plan journal.
//
// The journal records completed load plan builds for diagnostics: which root
// was built, with which options, the resulting plan signature, and the query
// spaces with their SQL aliases. It is an audit trail, not a plan cache;
// plans are never read back for execution.
//
// # Tables
//
//   - builds: one row per recorded build, keyed by a UUIDv7 build id
//   - build_spaces: the query spaces of a build in creation order
//
// # Patterns
//
// Idempotent writes:
//   - INSERT ... ON CONFLICT(id) DO NOTHING
//   - Recording the same build id twice is a no-op
//
// Deterministic reads:
//   - Ordering uses seq INTEGER (insertion order), never timestamps
//   - All queries include ORDER BY seq or ordinal
//
// # Versioning
//
// A new journal is stamped with SchemaVersion in PRAGMA user_version. Open
// refuses journals stamped with a newer version (ErrNewerJournal) instead of
// writing rows an older layout cannot describe.
//
// # Connection
//
// Settings go through the driver DSN: WAL journal mode, synchronous=NORMAL,
// a 5 second busy timeout and foreign keys on, so a space row always belongs
// to a recorded build.
package store
