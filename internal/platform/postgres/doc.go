// Package postgres provides a PostgreSQL implementation of store.TaskStore.
//
// It owns the database schema (goose migrations embedded in the binary),
// connection setup through the pgx database/sql driver, and the mapping of
// driver errors onto the store package's sentinel errors. Terminal
// transitions are single conditional UPDATE statements, so concurrent
// readers see either the processing row or the resolved row.
package postgres
