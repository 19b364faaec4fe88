// Package task runs generation work in the background. Submit records a task
// in the store and enqueues it; workers call the generation backend, clean
// the output and write exactly one terminal state back to the store.
package task
