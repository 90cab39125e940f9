// Package admin exposes the internal operator API for managing partner
// connections.
//
// # Overview
//
// Partner connections (principals) are provisioned out of band by platform
// operators, not by partners themselves. This package provides the HTTP
// surface those operators use, guarded by short-lived HS256 JWTs minted by
// the partner-admin CLI.
//
// # Endpoints
//
// Connection management:
//
//   - GET /admin/connections - List connections, filterable by integration and status
//   - POST /admin/connections - Provision a new connection
//   - GET /admin/connections/{id} - Get a connection
//   - POST /admin/connections/{id}/revoke - Revoke a connection
//   - DELETE /admin/connections/{id} - Delete a connection
//
// Audit:
//
//   - GET /admin/audit - Recent audit log entries, newest first
//
// Every mutating operation appends an audit entry recording the operator
// subject from the JWT.
package admin
