// Package store provides persistence for partner-gateway.
//
// The central entity is the Principal: the internal identity a verified
// partner request resolves to. A principal is identified by a composite tuple
// of (integration, api_key, team_id, broker_id, shop_id); the tuple is unique
// and lookups via FindPrincipal match every supplied field exactly. When a
// lookup omits tenant fields and that leaves more than one candidate, the
// store returns ErrAmbiguous instead of picking one, so an API key shared
// across teams can never resolve into the wrong tenant.
//
// Principals are provisioned through the admin surface when a partner account
// connects, and revoked rather than deleted in normal operation. All
// administrative mutations are recorded in the audit log.
//
// The SQLite implementation uses modernc.org/sqlite (pure Go, no cgo) with
// WAL mode and automatic schema creation.
package store
