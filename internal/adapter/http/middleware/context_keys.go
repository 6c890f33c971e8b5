package middleware

import "context"

// ContextKey is the type of request context keys set by this package.
type ContextKey string

const (
	// UserIDCtxKey holds the authenticated principal taken from the token's user_id claim.
	UserIDCtxKey = ContextKey("user_id")
	// UserRoleCtxKey holds the token's role claim. The marketplace does not authorize on it.
	UserRoleCtxKey = ContextKey("user_role")
)

// UserIDFrom returns the authenticated principal, or "" on unauthenticated requests.
func UserIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(UserIDCtxKey).(string)
	return id
}
