// Package logger wraps zap with a process-wide sugared logger and
// context-scoped named loggers. Components derive a named logger once
// via WithName and log through the package-level helpers, which pull
// the logger back out of the context.
package logger
