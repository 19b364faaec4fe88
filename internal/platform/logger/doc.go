// Package logger provides structured logging for the application.
//
// It builds JSON log/slog loggers at a configured level and carries
// request-scoped loggers (annotated with trace IDs) through contexts.
package logger
