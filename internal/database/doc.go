// Package database provides SQLite-based storage for report history.
//
// HistoryDB stores every generated report as JSON together with its
// scorecard, a count of sections per status and the district's raw
// dashboard values per section. The history command lists stored runs
// and compares them.
//
// The database is a single file (modernc.org/sqlite, no cgo) in the XDG
// data directory.
package database
