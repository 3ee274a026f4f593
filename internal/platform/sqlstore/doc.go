// Package sqlstore implements the store interfaces on database/sql.
//
// The same card, topic, and settings stores run on PostgreSQL and SQLite; a
// Dialect supplies the placeholder syntax, the time encoding, and the error
// mapping of each engine. Card updates are compare-and-swap on the version
// column. Schema changes are goose migrations embedded by the engine packages.
package sqlstore
