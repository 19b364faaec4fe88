// Package api exposes the task lifecycle over HTTP: submitting a prompt for
// background generation and polling for the result. It translates store and
// runner errors into status codes and never leaks internal error text.
package api
