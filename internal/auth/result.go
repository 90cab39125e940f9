// ABOUTME: Result value type for authentication outcomes
// ABOUTME: Rejection is an ordinary value, translated to HTTP only at the boundary

package auth

import "github.com/keyhaus/partner-gateway/internal/store"

// Reason classifies why a request was rejected. Reasons are for logs and
// metrics only; the external response is identical for every reason except
// ReasonMalformedRequest, which predates authentication and maps to 422.
type Reason string

const (
	ReasonMissingCredential  Reason = "missing_credential"
	ReasonBadSignature       Reason = "bad_signature"
	ReasonBadToken           Reason = "bad_token"
	ReasonUnknownPrincipal   Reason = "unknown_principal"
	ReasonAmbiguousPrincipal Reason = "ambiguous_principal"
	ReasonRevokedPrincipal   Reason = "revoked_principal"
	ReasonRoutePolicy        Reason = "route_policy_mismatch"
	ReasonMalformedRequest   Reason = "malformed_request"
)

// Result is the outcome of an authentication attempt: either a resolved
// principal or a terminal rejection. The zero value is a rejection with no
// reason and must not be returned by strategies.
type Result struct {
	principal  *store.Principal
	reason     Reason
	credential string // redacted credential for logging, never the raw secret
}

// Authorized constructs a successful result carrying the resolved principal.
func Authorized(p *store.Principal) Result {
	return Result{principal: p}
}

// Rejected constructs a terminal rejection with the given reason.
func Rejected(reason Reason) Result {
	return Result{reason: reason}
}

// WithCredential annotates the result with an already-redacted credential for
// failure logging.
func (r Result) WithCredential(redacted string) Result {
	r.credential = redacted
	return r
}

// OK reports whether the request was authorized.
func (r Result) OK() bool { return r.principal != nil }

// Principal returns the resolved principal, or nil when rejected.
func (r Result) Principal() *store.Principal { return r.principal }

// Reason returns the rejection reason, or the empty string when authorized.
func (r Result) Reason() Reason { return r.reason }

// Credential returns the redacted credential attached for logging.
func (r Result) Credential() string { return r.credential }

// Redact produces a loggable view of a credential: the first four characters
// followed by an ellipsis. Short credentials are fully masked.
func Redact(credential string) string {
	if len(credential) <= 4 {
		return "****"
	}
	return credential[:4] + "..."
}
