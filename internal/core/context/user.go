// Package context provides request-scoped values extraction.
//
// The authenticated principal is carried for logging and for edge checks in the
// HTTP layer only. Lifecycle services receive the acting user as an explicit
// argument and never read it from here.
package context

import (
	"context"
)

// Principal is the caller identified by a validated bearer token.
type Principal struct {
	Subject string
	Roles   []string
}

type principalKey struct{}

// WithPrincipal adds Principal to context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// GetPrincipal returns Principal from context.
func GetPrincipal(ctx context.Context) *Principal {
	if v, ok := ctx.Value(principalKey{}).(*Principal); ok {
		return v
	}
	return nil
}

// GetSubject returns the token subject or empty string.
func GetSubject(ctx context.Context) string {
	if p := GetPrincipal(ctx); p != nil {
		return p.Subject
	}
	return ""
}
