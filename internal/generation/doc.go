// Package generation defines the boundary between the task runner and
// external text-generation (LLM) backends such as Gemini. The Generator
// interface is all the core knows about a backend: it takes a prompt and
// generation options and returns raw text, or an error classified by the
// sentinel values in errors.go.
package generation
