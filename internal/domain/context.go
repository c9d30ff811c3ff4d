package domain

import "context"

type principalKey struct{}

// ContextPrincipal carries the authenticated caller through request context.
type ContextPrincipal struct {
	Subject string
	Name    string
	Method  string // "jwt" or "oidc"
}

// WithPrincipal stores a ContextPrincipal in the context.
func WithPrincipal(ctx context.Context, p ContextPrincipal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the ContextPrincipal from the context.
func PrincipalFromContext(ctx context.Context) (ContextPrincipal, bool) {
	p, ok := ctx.Value(principalKey{}).(ContextPrincipal)
	return p, ok
}
