// Package sqlite runs the stores on an embedded SQLite database through the
// pure-Go modernc.org/sqlite driver. It is the default backend for local use
// and the backend of the package tests.
package sqlite
