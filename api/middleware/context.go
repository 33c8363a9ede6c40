package middleware

import "context"

type contextKey string

const (
	ctxUserID      contextKey = "user_id"
	ctxRole        contextKey = "actor_role"
	ctxAccessID    contextKey = "access_id"
	ctxCartSession contextKey = "cart_session"
	ctxCartMinted  contextKey = "cart_session_minted"
)

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}

// UserIDFromContext is empty for anonymous shoppers.
func UserIDFromContext(ctx context.Context) string { return stringValue(ctx, ctxUserID) }

func RoleFromContext(ctx context.Context) string { return stringValue(ctx, ctxRole) }

// AccessIDFromContext returns the jti of the access token that authenticated the request.
func AccessIDFromContext(ctx context.Context) string { return stringValue(ctx, ctxAccessID) }

// CartSessionFromContext returns the shopper session that keys the cart store.
func CartSessionFromContext(ctx context.Context) string { return stringValue(ctx, ctxCartSession) }

func WithUserID(ctx context.Context, userID string) context.Context {
	return withString(ctx, ctxUserID, userID)
}

func WithRole(ctx context.Context, role string) context.Context {
	return withString(ctx, ctxRole, role)
}

func withAccessID(ctx context.Context, jti string) context.Context {
	return withString(ctx, ctxAccessID, jti)
}

func WithCartSession(ctx context.Context, session string) context.Context {
	return withString(ctx, ctxCartSession, session)
}

// CartSessionMinted reports whether the cart session was created by this
// request, so nothing can have been stored under it yet.
func CartSessionMinted(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	minted, _ := ctx.Value(ctxCartMinted).(bool)
	return minted
}

func withCartSessionMinted(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxCartMinted, true)
}
