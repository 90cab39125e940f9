// ABOUTME: Store interface and data types for partner-gateway persistence
// ABOUTME: Defines Principal, Criteria and the PrincipalStore interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no principal matches the supplied criteria.
var ErrNotFound = errors.New("principal not found")

// ErrAmbiguous is returned when the supplied criteria match more than one
// principal. Callers must supply the disambiguating tenant fields; the store
// never picks one of several matches.
var ErrAmbiguous = errors.New("criteria match multiple principals")

// ErrDuplicatePrincipal is returned when creating a principal whose composite
// identity tuple is already registered.
var ErrDuplicatePrincipal = errors.New("principal already exists")

// IntegrationType identifies which CRM partner a principal belongs to.
type IntegrationType string

const (
	IntegrationPartnerA IntegrationType = "partner_a"
	IntegrationPartnerB IntegrationType = "partner_b"
)

// Valid reports whether the integration type is one of the known partners.
func (t IntegrationType) Valid() bool {
	return t == IntegrationPartnerA || t == IntegrationPartnerB
}

// PrincipalStatus tracks whether a partner connection may authenticate.
type PrincipalStatus string

const (
	PrincipalStatusActive  PrincipalStatus = "active"
	PrincipalStatusRevoked PrincipalStatus = "revoked"
)

// Principal is the internal identity a verified partner request resolves to.
// Principals are created when a partner account connects to the platform and
// are read-only from the authentication layer's perspective.
type Principal struct {
	ID                string
	Integration       IntegrationType
	IntegrationUserID string // partner-stable user identifier
	APIKey            string
	TeamID            string
	BrokerID          string
	ShopID            string
	Email             string
	Status            PrincipalStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Criteria is the composite key a lookup must match exactly. APIKey is
// mandatory; the tenant identifiers are optional but, when set, constrain the
// match. There is at most one principal per full tuple.
type Criteria struct {
	Integration IntegrationType
	APIKey      string
	TeamID      string
	BrokerID    string
	ShopID      string
}

// PrincipalFilter specifies filtering options for listing principals.
type PrincipalFilter struct {
	Integration *IntegrationType
	Status      *PrincipalStatus
}

// PrincipalStore defines the interface for principal persistence.
type PrincipalStore interface {
	// FindPrincipal performs an exact match across every non-empty criteria
	// field. Returns ErrNotFound when nothing matches and ErrAmbiguous when
	// more than one principal matches.
	FindPrincipal(ctx context.Context, c Criteria) (*Principal, error)

	GetPrincipal(ctx context.Context, id string) (*Principal, error)
	CreatePrincipal(ctx context.Context, p *Principal) error
	UpdatePrincipalStatus(ctx context.Context, id string, status PrincipalStatus) error
	ListPrincipals(ctx context.Context, filter PrincipalFilter) ([]Principal, error)
	DeletePrincipal(ctx context.Context, id string) error
}

// Store is the full persistence surface: principals plus the audit log.
type Store interface {
	PrincipalStore
	AuditStore

	// Close releases any resources held by the store.
	Close() error
}
