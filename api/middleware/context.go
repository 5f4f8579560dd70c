package middleware

import "context"

type contextKey string

const (
	ctxBuyerID     contextKey = "buyer_id"
	ctxRole        contextKey = "actor_role"
	ctxBearerToken contextKey = "bearer_token"
	ctxProfileID   contextKey = "profile_id"
)

// BuyerIDFromContext returns the backend user id of the authenticated buyer.
func BuyerIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if v, ok := ctx.Value(ctxBuyerID).(int64); ok {
		return v
	}
	return 0
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// BearerTokenFromContext returns the raw token so it can be forwarded to the
// ticketing backend.
func BearerTokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxBearerToken).(string); ok {
		return v
	}
	return ""
}

func ProfileIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxProfileID).(string); ok {
		return v
	}
	return ""
}

// WithProfileID injects the cart profile into the context.
func WithProfileID(ctx context.Context, profileID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxProfileID, profileID)
}

// WithBuyer injects the authenticated buyer into the context.
func WithBuyer(ctx context.Context, buyerID int64, role, token string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxBuyerID, buyerID)
	ctx = context.WithValue(ctx, ctxRole, role)
	return context.WithValue(ctx, ctxBearerToken, token)
}
