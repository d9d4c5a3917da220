// Package ledger keeps the SQLite history of pipeline runs: one row per run,
// one per stage execution with its classified outcome, and one per published
// video. Project state itself stays in the project directory; the ledger is
// a reporting aid and never drives resumption.
package ledger
