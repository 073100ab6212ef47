package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID ctxKey = "user_id"
	CtxKeyRole   ctxKey = "role"
	CtxKeyClaims ctxKey = "claims" // full jwtx.Claims when needed
)

// ContextWithIdentity records the authenticated subject for downstream
// handlers. claims may be any type; the gate stores jwtx.Claims.
func ContextWithIdentity(ctx context.Context, userID, role string, claims any) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, userID)
	ctx = context.WithValue(ctx, CtxKeyRole, role)
	ctx = context.WithValue(ctx, CtxKeyClaims, claims)
	return ctx
}

// IdentityFromContext returns the authenticated subject, or ok=false on an
// unauthenticated request.
func IdentityFromContext(ctx context.Context) (userID, role string, ok bool) {
	userID, ok = ctx.Value(CtxKeyUserID).(string)
	if !ok || userID == "" {
		return "", "", false
	}
	role, _ = ctx.Value(CtxKeyRole).(string)
	return userID, role, true
}

// ClaimsFromContext returns whatever the gate stashed under CtxKeyClaims.
func ClaimsFromContext(ctx context.Context) any {
	return ctx.Value(CtxKeyClaims)
}
