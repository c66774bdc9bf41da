package auth

import "context"

// Principal is the authenticated caller of a request. Handlers read it from the
// request context once and hand it to services explicitly.
type Principal struct {
	UserID string
	Email  string
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok && p.UserID != ""
}
