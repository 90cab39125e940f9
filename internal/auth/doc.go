// Package auth implements the partner authentication protocol for
// partner-gateway.
//
// # Authentication Strategies
//
// Neither integration partner supports OAuth, so the gateway carries its own
// mutual-authentication scheme. There is a closed set of strategies:
//
//   - API key: Partner B server-to-server calls carry X-Api-Key (an apiKey
//     query parameter is accepted as fallback and copied into the header).
//
//   - Signed webhook: Partner B webhooks carry the API key plus an HMAC
//     signature computed over a canonicalized, URL-encoded rendering of the
//     JSON body. Reordering keys or array elements does not invalidate the
//     signature; changing any value does.
//
//   - Signed login: Partner A's login initiation posts a signed body. On
//     success the gateway issues an opaque access token that stands in for
//     the partner API key across the multi-step browser redirect flow.
//
//   - Access token: Partner A API calls carry "Authorization: AccessToken
//     <opaque>". The token is decrypted (never looked up - there is no
//     server-side session store) to recover the API key.
//
// # Dispatch
//
// Every guarded route declares its strategy, and a static route-policy table
// double-checks the declaration at request time. A credential that is valid
// for webhook routes is therefore rejected when replayed against a login
// route, and vice versa.
//
// Authentication outcomes are values (Result), not errors: a rejection is
// terminal for the request and is translated to an HTTP status only at the
// boundary. All rejections look identical to the caller (generic 401)
// regardless of which sub-check failed.
//
// # Principal Resolution
//
// A verified request's composite identifiers (API key plus optional team,
// broker and shop IDs) resolve to exactly one principal via the store. Exact
// match only: ambiguous lookups fail closed.
package auth
