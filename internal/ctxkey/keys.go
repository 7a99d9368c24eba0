// Package ctxkey defines context key types shared by packages that must
// not import each other.
package ctxkey

// LoggerKey holds the request-scoped *slog.Logger.
type LoggerKey struct{}

// RequestIDKey holds the request ID string.
type RequestIDKey struct{}

// KeyNameKey holds the name of the API key that authenticated the request.
type KeyNameKey struct{}
