// ABOUTME: The closed set of partner authentication strategies
// ABOUTME: Each strategy extracts credentials, verifies them and resolves the principal

package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/keyhaus/partner-gateway/internal/store"
)

const (
	// HeaderAPIKey carries the Partner B API key.
	HeaderAPIKey = "X-Api-Key"
	// queryAPIKey is the fallback query parameter for the API key; when the
	// header is absent the value is copied into the header before verification.
	queryAPIKey = "apiKey"
	// accessTokenScheme is the Authorization scheme for Partner A bearer tokens.
	accessTokenScheme = "AccessToken "

	// maxSignedBody bounds how much request body the gateway will parse and
	// hash while authenticating.
	maxSignedBody = 1 << 20 // 1 MiB
)

// Strategy authenticates one class of partner request. Implementations are
// stateless between requests and safe for concurrent use.
type Strategy interface {
	Name() StrategyName
	Authenticate(r *http.Request) Result
}

// extractAPIKey returns the API key from the header, falling back to the
// query parameter. The fallback is copied into the header so downstream
// logging and handlers see one canonical location.
func extractAPIKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get(HeaderAPIKey))
	if key != "" {
		return key
	}
	key = strings.TrimSpace(r.URL.Query().Get(queryAPIKey))
	if key != "" {
		r.Header.Set(HeaderAPIKey, key)
	}
	return key
}

// readSignedBody reads and JSON-decodes the request body, restoring it so the
// downstream handler can read it again. ok=false means the request shape
// could not be parsed at all (malformed, not unauthenticated).
func readSignedBody(r *http.Request) (body map[string]any, ok bool) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxSignedBody+1))
	if err != nil || len(raw) > maxSignedBody {
		return nil, false
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, false
	}
	return body, true
}

// bodyString coerces a body field to its string form. Partner payloads carry
// tenant identifiers as either strings or numbers.
func bodyString(body map[string]any, key string) string {
	switch v := body[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// tenantCriteria builds the optional composite-key fields from a signed body.
func tenantCriteria(integration store.IntegrationType, apiKey string, body map[string]any) store.Criteria {
	return store.Criteria{
		Integration: integration,
		APIKey:      apiKey,
		TeamID:      bodyString(body, "teamId"),
		BrokerID:    bodyString(body, "brokerId"),
		ShopID:      bodyString(body, "shopId"),
	}
}

// resolveResult maps resolver errors onto rejection reasons.
func resolveResult(err error) Result {
	switch err {
	case ErrPrincipalAmbiguous:
		return Rejected(ReasonAmbiguousPrincipal)
	case ErrPrincipalRevoked:
		return Rejected(ReasonRevokedPrincipal)
	default:
		return Rejected(ReasonUnknownPrincipal)
	}
}

// APIKeyStrategy authenticates Partner B server-to-server calls by API key
// alone. Meant for read endpoints the partner polls; webhooks additionally
// require a body signature (WebhookStrategy).
type APIKeyStrategy struct {
	resolver    *Resolver
	integration store.IntegrationType
}

// NewAPIKeyStrategy creates the header API key strategy.
func NewAPIKeyStrategy(resolver *Resolver, integration store.IntegrationType) *APIKeyStrategy {
	return &APIKeyStrategy{resolver: resolver, integration: integration}
}

func (s *APIKeyStrategy) Name() StrategyName { return StrategyAPIKey }

func (s *APIKeyStrategy) Authenticate(r *http.Request) Result {
	apiKey := extractAPIKey(r)
	if apiKey == "" {
		return Rejected(ReasonMissingCredential)
	}
	p, err := s.resolver.Resolve(r.Context(), store.Criteria{Integration: s.integration, APIKey: apiKey})
	if err != nil {
		return resolveResult(err).WithCredential(Redact(apiKey))
	}
	return Authorized(p)
}

// WebhookStrategy authenticates Partner B webhooks: an API key (header or
// query fallback) plus an HMAC signature over the canonicalized JSON body.
type WebhookStrategy struct {
	resolver    *Resolver
	verifier    *SignatureVerifier
	integration store.IntegrationType
}

// NewWebhookStrategy creates the signed webhook strategy.
func NewWebhookStrategy(resolver *Resolver, verifier *SignatureVerifier, integration store.IntegrationType) *WebhookStrategy {
	return &WebhookStrategy{resolver: resolver, verifier: verifier, integration: integration}
}

func (s *WebhookStrategy) Name() StrategyName { return StrategyWebhook }

func (s *WebhookStrategy) Authenticate(r *http.Request) Result {
	apiKey := extractAPIKey(r)
	if apiKey == "" {
		return Rejected(ReasonMissingCredential)
	}

	body, ok := readSignedBody(r)
	if !ok {
		return Rejected(ReasonMalformedRequest).WithCredential(Redact(apiKey))
	}
	signature := bodyString(body, signatureField)
	if signature == "" {
		return Rejected(ReasonMissingCredential).WithCredential(Redact(apiKey))
	}

	env := Envelope{
		Body:      body,
		Signature: signature,
		Timestamp: bodyString(body, "timestamp"),
		RoutePath: r.URL.Path,
	}
	if !s.verifier.Verify(env) {
		return Rejected(ReasonBadSignature).WithCredential(Redact(signature))
	}

	p, err := s.resolver.Resolve(r.Context(), tenantCriteria(s.integration, apiKey, body))
	if err != nil {
		return resolveResult(err).WithCredential(Redact(apiKey))
	}
	return Authorized(p)
}

// SignedLoginStrategy authenticates Partner A's login initiation: a signed
// JSON body carrying the partner API key and tenant identifiers. The login
// handler then issues the opaque access token for the rest of the browser
// flow.
type SignedLoginStrategy struct {
	resolver    *Resolver
	verifier    *SignatureVerifier
	integration store.IntegrationType
}

// NewSignedLoginStrategy creates the signed login strategy.
func NewSignedLoginStrategy(resolver *Resolver, verifier *SignatureVerifier, integration store.IntegrationType) *SignedLoginStrategy {
	return &SignedLoginStrategy{resolver: resolver, verifier: verifier, integration: integration}
}

func (s *SignedLoginStrategy) Name() StrategyName { return StrategySignedLogin }

func (s *SignedLoginStrategy) Authenticate(r *http.Request) Result {
	body, ok := readSignedBody(r)
	if !ok {
		return Rejected(ReasonMalformedRequest)
	}

	apiKey := bodyString(body, "apiKey")
	signature := bodyString(body, signatureField)
	if apiKey == "" || signature == "" {
		return Rejected(ReasonMissingCredential)
	}

	env := Envelope{
		Body:      body,
		Signature: signature,
		Timestamp: bodyString(body, "timestamp"),
		RoutePath: r.URL.Path,
	}
	if !s.verifier.Verify(env) {
		return Rejected(ReasonBadSignature).WithCredential(Redact(signature))
	}

	p, err := s.resolver.Resolve(r.Context(), tenantCriteria(s.integration, apiKey, body))
	if err != nil {
		return resolveResult(err).WithCredential(Redact(apiKey))
	}
	return Authorized(p)
}

// AccessTokenStrategy authenticates Partner A API calls carrying the opaque
// access token issued at login. The token is decrypted, never looked up.
type AccessTokenStrategy struct {
	resolver    *Resolver
	cipher      *TokenCipher
	integration store.IntegrationType
}

// NewAccessTokenStrategy creates the bearer token strategy.
func NewAccessTokenStrategy(resolver *Resolver, cipher *TokenCipher, integration store.IntegrationType) *AccessTokenStrategy {
	return &AccessTokenStrategy{resolver: resolver, cipher: cipher, integration: integration}
}

func (s *AccessTokenStrategy) Name() StrategyName { return StrategyAccessToken }

func (s *AccessTokenStrategy) Authenticate(r *http.Request) Result {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, accessTokenScheme) {
		return Rejected(ReasonMissingCredential)
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, accessTokenScheme))
	if token == "" {
		return Rejected(ReasonMissingCredential)
	}

	apiKey, err := s.cipher.Decrypt(token)
	if err != nil {
		return Rejected(ReasonBadToken).WithCredential(Redact(token))
	}

	p, err := s.resolver.Resolve(r.Context(), store.Criteria{Integration: s.integration, APIKey: apiKey})
	if err != nil {
		return resolveResult(err).WithCredential(Redact(apiKey))
	}
	return Authorized(p)
}
