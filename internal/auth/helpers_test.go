// ABOUTME: Shared test fixtures for the auth package
// ABOUTME: In-memory principal store with composite-key semantics

package auth

import (
	"context"

	"github.com/keyhaus/partner-gateway/internal/store"
)

// fakeStore implements store.PrincipalStore in memory with the same
// composite-key semantics as the SQLite store.
type fakeStore struct {
	principals []*store.Principal
	findErr    error
}

func (f *fakeStore) FindPrincipal(_ context.Context, c store.Criteria) (*store.Principal, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var matches []*store.Principal
	for _, p := range f.principals {
		if p.Integration != c.Integration || p.APIKey != c.APIKey {
			continue
		}
		if c.TeamID != "" && p.TeamID != c.TeamID {
			continue
		}
		if c.BrokerID != "" && p.BrokerID != c.BrokerID {
			continue
		}
		if c.ShopID != "" && p.ShopID != c.ShopID {
			continue
		}
		matches = append(matches, p)
	}
	switch len(matches) {
	case 0:
		return nil, store.ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, store.ErrAmbiguous
	}
}

func (f *fakeStore) GetPrincipal(_ context.Context, id string) (*store.Principal, error) {
	for _, p := range f.principals {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreatePrincipal(_ context.Context, p *store.Principal) error {
	f.principals = append(f.principals, p)
	return nil
}

func (f *fakeStore) UpdatePrincipalStatus(_ context.Context, id string, status store.PrincipalStatus) error {
	for _, p := range f.principals {
		if p.ID == id {
			p.Status = status
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) ListPrincipals(context.Context, store.PrincipalFilter) ([]store.Principal, error) {
	out := make([]store.Principal, len(f.principals))
	for i, p := range f.principals {
		out[i] = *p
	}
	return out, nil
}

func (f *fakeStore) DeletePrincipal(_ context.Context, id string) error {
	for i, p := range f.principals {
		if p.ID == id {
			f.principals = append(f.principals[:i], f.principals[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func activePrincipal(id string, integration store.IntegrationType, apiKey, teamID string) *store.Principal {
	return &store.Principal{
		ID:          id,
		Integration: integration,
		APIKey:      apiKey,
		TeamID:      teamID,
		Status:      store.PrincipalStatusActive,
	}
}
