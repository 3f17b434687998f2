// Package ctxkeys holds the request-scoped identity keys of the API layer.
// It is a leaf package so middleware and handlers can share it without cycles.
package ctxkeys

import "context"

// Key is the named type for all API context keys.
// context.Value compares both type and value, so these never collide with
// plain string keys from other packages.
type Key string

const (
	// UserID is the authenticated user. Injected by AuthMiddleware from JWT claims.
	UserID Key = "user_id"

	// Role is the authenticated user's role. Injected by AuthMiddleware from JWT claims.
	Role Key = "role"
)

// WithValue adds a ctxkeys.Key value to the context.
func WithValue(ctx context.Context, key Key, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

// String returns the value stored under key, or "" when absent.
func String(ctx context.Context, key Key) string {
	v, _ := ctx.Value(key).(string)
	return v
}
