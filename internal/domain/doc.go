// Package domain defines the core entity of the service: the generation task,
// its lifecycle states and the rules governing transitions between them.
// It has no dependencies on storage, transport or the generation backend.
package domain
