package auth

import "context"

type contextKey struct{}

// AuthContext is the verified caller identity attached to a request.
type AuthContext struct {
	UserID    string
	ExpiresAt int64
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

// UserID returns the caller's user id, or "" when the request is anonymous.
func UserID(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.UserID
}
