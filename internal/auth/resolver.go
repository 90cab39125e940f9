// ABOUTME: Composite-key principal resolution for verified partner requests
// ABOUTME: Exact-match lookup via the store, failing closed on anything unclear

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/keyhaus/partner-gateway/internal/store"
)

// Resolver errors. All of them translate to the same external 401; the
// distinction exists for logging and metrics only.
var (
	ErrPrincipalNotFound  = errors.New("no principal for criteria")
	ErrPrincipalAmbiguous = errors.New("criteria match multiple principals")
	ErrPrincipalRevoked   = errors.New("principal revoked")
)

// Resolver maps a verified request's composite identifiers to exactly one
// active principal. It owns criteria validation and not-found handling; the
// storage lookup itself is delegated to the store.
type Resolver struct {
	principals store.PrincipalStore
}

// NewResolver creates a resolver backed by the given principal store.
func NewResolver(principals store.PrincipalStore) *Resolver {
	return &Resolver{principals: principals}
}

// Resolve looks up the principal matching the criteria exactly. The API key
// is mandatory; optional tenant fields constrain the match when present.
// Pure read, no side effects. Returns a sentinel error rather than panicking
// for every failure mode; the caller decides whether that is fatal.
func (r *Resolver) Resolve(ctx context.Context, c store.Criteria) (*store.Principal, error) {
	if c.APIKey == "" {
		return nil, ErrPrincipalNotFound
	}
	if !c.Integration.Valid() {
		return nil, ErrPrincipalNotFound
	}

	p, err := r.principals.FindPrincipal(ctx, c)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrPrincipalNotFound
	case errors.Is(err, store.ErrAmbiguous):
		return nil, ErrPrincipalAmbiguous
	case err != nil:
		return nil, fmt.Errorf("principal lookup: %w", err)
	}

	if p.Status != store.PrincipalStatusActive {
		return nil, ErrPrincipalRevoked
	}
	return p, nil
}
