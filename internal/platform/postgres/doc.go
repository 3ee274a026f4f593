// Package postgres runs the stores on PostgreSQL through the pgx driver. It
// provides the sqlstore dialect, the embedded goose migrations, and the
// mapping from PostgreSQL error codes to store errors.
package postgres
