package middleware

import "context"

type contextKey string

const UsernameKey contextKey = "username"

// GetUsername returns the authenticated username from the context
// (set by SessionAuth).
func GetUsername(ctx context.Context) string {
	v, _ := ctx.Value(UsernameKey).(string)
	return v
}
