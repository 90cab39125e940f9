// ABOUTME: Principal propagation through request contexts
// ABOUTME: Provides WithPrincipal/FromContext for downstream handlers

package auth

import (
	"context"

	"github.com/keyhaus/partner-gateway/internal/store"
)

// principalKey is the key type for storing the principal in context.Context.
type principalKey struct{}

// WithPrincipal returns a new context with the resolved principal attached.
func WithPrincipal(ctx context.Context, p *store.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext retrieves the principal from the context, returning nil if not present.
func FromContext(ctx context.Context) *store.Principal {
	val := ctx.Value(principalKey{})
	if val == nil {
		return nil
	}
	p, ok := val.(*store.Principal)
	if !ok {
		return nil
	}
	return p
}

// MustFromContext retrieves the principal from the context, panicking if not
// present. Handlers behind a Guard may use this; the guard never invokes a
// handler without attaching a principal first.
func MustFromContext(ctx context.Context) *store.Principal {
	p := FromContext(ctx)
	if p == nil {
		panic("auth: principal not found in context")
	}
	return p
}
