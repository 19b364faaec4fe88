// Package store defines the persistence boundary for generation tasks.
//
// TaskStore is the only shared mutable state in the service. Every
// implementation (in-memory, PostgreSQL, Redis) must make each operation
// atomic: a concurrent Get observes either the record as created or the
// record as resolved, never anything in between.
package store
