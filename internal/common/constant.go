// Package common contains constants and small helpers shared by the client
// packages and the test backend.
package common

// Metadata keys of the local SQLite store.
const (
	// TokenKey is the single fixed key the bearer token is persisted under.
	TokenKey = "token"
	// UsernameKey remembers who the stored token belongs to (prompt only).
	UsernameKey = "username"
)

// HTTP header names and values used on the wire.
const (
	AuthorizationHeader  = "Authorization"
	BearerScheme         = "Bearer"
	RequestIDHeader      = "X-Request-ID"
	IdempotencyKeyHeader = "Idempotency-Key"
)

// LoginPath is the navigation target of every redirect to login.
const LoginPath = "/login"
