// Package sqlite provides the SQLite-backed store for simulation records.
//
// One database file holds the scenario catalog, session progress, the
// append-only turn log, and grading reports. Timestamps persist as UTC
// millisecond integers; list-shaped fields persist as JSON text columns.
package sqlite
