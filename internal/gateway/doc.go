// Package gateway wires the partner-facing HTTP server.
//
// # Overview
//
// The gateway exposes the integration routes for both CRM partners, each
// guarded by exactly one authentication strategy:
//
//   - POST /integrations/partner-a/login - signed login, issues an access token
//   - GET  /integrations/partner-a/session - access token bearer identity
//   - GET  /integrations/partner-a/unlock - embedded cross-window unlock relay page
//   - POST /integrations/partner-a/unlock/exchange - server-side unlock forward
//   - GET  /integrations/partner-b/listings - API key read endpoint
//   - POST /integrations/partner-b/webhooks/* - signed webhook ingestion
//
// The route-to-strategy pairing is declared once, in New, as both the router
// wiring and the guard's policy table. The internal operator API mounts under
// /admin when an admin secret is configured.
package gateway
