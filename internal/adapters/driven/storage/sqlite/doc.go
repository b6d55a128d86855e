// Package sqlite provides SQLite-backed implementations of the tracker ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. A single database connection backs:
//
//   - QueryLedgerTracker: processed query records that survive restarts
//   - CursorStore: the ledger event cursor
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.fathom/data/oracle.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode. Reserve serialises a query id within this process only;
// use the firestore, postgres or redis tracker when several nodes share work.
package sqlite
