// ABOUTME: Unit tests for the four authentication strategies
// ABOUTME: Covers credential extraction, verification and principal resolution

package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/keyhaus/partner-gateway/internal/store"
)

func signedBody(t *testing.T, v *SignatureVerifier, body map[string]any) *bytes.Reader {
	t.Helper()
	body[signatureField] = v.Sign(body)
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(raw)
}

func TestAPIKeyStrategy(t *testing.T) {
	fs := &fakeStore{principals: []*store.Principal{
		activePrincipal("p1", store.IntegrationPartnerB, "abc123", ""),
	}}
	s := NewAPIKeyStrategy(NewResolver(fs), store.IntegrationPartnerB)

	t.Run("header key", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/integrations/partner-b/listings", nil)
		r.Header.Set(HeaderAPIKey, "abc123")
		res := s.Authenticate(r)
		if !res.OK() || res.Principal().ID != "p1" {
			t.Errorf("Authenticate() = %+v, want authorized p1", res)
		}
	})

	t.Run("query fallback copied into header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/integrations/partner-b/listings?apiKey=abc123", nil)
		res := s.Authenticate(r)
		if !res.OK() {
			t.Fatalf("Authenticate() rejected: %s", res.Reason())
		}
		if got := r.Header.Get(HeaderAPIKey); got != "abc123" {
			t.Errorf("header after fallback = %q, want abc123", got)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/integrations/partner-b/listings", nil)
		res := s.Authenticate(r)
		if res.OK() || res.Reason() != ReasonMissingCredential {
			t.Errorf("Authenticate() = %+v, want missing_credential", res)
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/integrations/partner-b/listings", nil)
		r.Header.Set(HeaderAPIKey, "nope")
		res := s.Authenticate(r)
		if res.OK() || res.Reason() != ReasonUnknownPrincipal {
			t.Errorf("Authenticate() = %+v, want unknown_principal", res)
		}
	})
}

func TestWebhookStrategy(t *testing.T) {
	verifier := NewSignatureVerifier(testSharedSecret, nil)
	fs := &fakeStore{principals: []*store.Principal{
		activePrincipal("p1", store.IntegrationPartnerB, "abc123", "t1"),
	}}
	s := NewWebhookStrategy(NewResolver(fs), verifier, store.IntegrationPartnerB)

	t.Run("valid signed webhook", func(t *testing.T) {
		body := signedBody(t, verifier, map[string]any{
			"event": "listing.updated", "teamId": "t1", "timestamp": "1700000000",
		})
		r := httptest.NewRequest("POST", "/integrations/partner-b/webhooks/listings", body)
		r.Header.Set(HeaderAPIKey, "abc123")
		res := s.Authenticate(r)
		if !res.OK() || res.Principal().ID != "p1" {
			t.Errorf("Authenticate() = reason %s, want authorized p1", res.Reason())
		}
	})

	t.Run("body readable downstream", func(t *testing.T) {
		body := signedBody(t, verifier, map[string]any{"event": "x", "teamId": "t1"})
		r := httptest.NewRequest("POST", "/integrations/partner-b/webhooks/listings", body)
		r.Header.Set(HeaderAPIKey, "abc123")
		if res := s.Authenticate(r); !res.OK() {
			t.Fatalf("Authenticate() rejected: %s", res.Reason())
		}
		raw, err := io.ReadAll(r.Body)
		if err != nil || len(raw) == 0 {
			t.Errorf("body not restored for downstream handler: %v (%d bytes)", err, len(raw))
		}
	})

	t.Run("tampered body", func(t *testing.T) {
		body := map[string]any{"event": "listing.updated", "teamId": "t1"}
		body[signatureField] = verifier.Sign(body)
		body["event"] = "listing.deleted" // mutate after signing
		raw, _ := json.Marshal(body)
		r := httptest.NewRequest("POST", "/integrations/partner-b/webhooks/listings", bytes.NewReader(raw))
		r.Header.Set(HeaderAPIKey, "abc123")
		res := s.Authenticate(r)
		if res.OK() || res.Reason() != ReasonBadSignature {
			t.Errorf("Authenticate() = %+v, want bad_signature", res)
		}
	})

	t.Run("missing signature field", func(t *testing.T) {
		raw, _ := json.Marshal(map[string]any{"event": "x"})
		r := httptest.NewRequest("POST", "/integrations/partner-b/webhooks/listings", bytes.NewReader(raw))
		r.Header.Set(HeaderAPIKey, "abc123")
		res := s.Authenticate(r)
		if res.OK() || res.Reason() != ReasonMissingCredential {
			t.Errorf("Authenticate() = %+v, want missing_credential", res)
		}
	})

	t.Run("unparseable body is malformed not unauthenticated", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/integrations/partner-b/webhooks/listings", bytes.NewReader([]byte("{not json")))
		r.Header.Set(HeaderAPIKey, "abc123")
		res := s.Authenticate(r)
		if res.OK() || res.Reason() != ReasonMalformedRequest {
			t.Errorf("Authenticate() = %+v, want malformed_request", res)
		}
	})
}

func TestSignedLoginStrategy(t *testing.T) {
	verifier := NewSignatureVerifier(testSharedSecret, nil)
	fs := &fakeStore{principals: []*store.Principal{
		activePrincipal("p1", store.IntegrationPartnerA, "ka-1", ""),
	}}
	s := NewSignedLoginStrategy(NewResolver(fs), verifier, store.IntegrationPartnerA)

	t.Run("valid login", func(t *testing.T) {
		body := signedBody(t, verifier, map[string]any{
			"apiKey": "ka-1", "timestamp": "1700000000",
		})
		r := httptest.NewRequest("POST", "/integrations/partner-a/login", body)
		res := s.Authenticate(r)
		if !res.OK() || res.Principal().ID != "p1" {
			t.Errorf("Authenticate() = reason %s, want authorized p1", res.Reason())
		}
	})

	t.Run("missing api key in body", func(t *testing.T) {
		body := signedBody(t, verifier, map[string]any{"timestamp": "1700000000"})
		r := httptest.NewRequest("POST", "/integrations/partner-a/login", body)
		res := s.Authenticate(r)
		if res.OK() || res.Reason() != ReasonMissingCredential {
			t.Errorf("Authenticate() = %+v, want missing_credential", res)
		}
	})

	t.Run("bad signature", func(t *testing.T) {
		raw, _ := json.Marshal(map[string]any{"apiKey": "ka-1", "signature": "deadbeef"})
		r := httptest.NewRequest("POST", "/integrations/partner-a/login", bytes.NewReader(raw))
		res := s.Authenticate(r)
		if res.OK() || res.Reason() != ReasonBadSignature {
			t.Errorf("Authenticate() = %+v, want bad_signature", res)
		}
	})
}

func TestAccessTokenStrategy(t *testing.T) {
	cipher, err := NewTokenCipher("strategy-test-secret", 0)
	if err != nil {
		t.Fatalf("NewTokenCipher() error = %v", err)
	}
	fs := &fakeStore{principals: []*store.Principal{
		activePrincipal("p1", store.IntegrationPartnerA, "ka-1", ""),
	}}
	s := NewAccessTokenStrategy(NewResolver(fs), cipher, store.IntegrationPartnerA)

	t.Run("valid token", func(t *testing.T) {
		token, err := cipher.Encrypt("ka-1")
		if err != nil {
			t.Fatalf("Encrypt() error = %v", err)
		}
		r := httptest.NewRequest("GET", "/integrations/partner-a/session", nil)
		r.Header.Set("Authorization", "AccessToken "+token)
		res := s.Authenticate(r)
		if !res.OK() || res.Principal().ID != "p1" {
			t.Errorf("Authenticate() = reason %s, want authorized p1", res.Reason())
		}
	})

	t.Run("wrong scheme", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/integrations/partner-a/session", nil)
		r.Header.Set("Authorization", "Bearer something")
		res := s.Authenticate(r)
		if res.OK() || res.Reason() != ReasonMissingCredential {
			t.Errorf("Authenticate() = %+v, want missing_credential", res)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/integrations/partner-a/session", nil)
		r.Header.Set("Authorization", "AccessToken not-a-token")
		res := s.Authenticate(r)
		if res.OK() || res.Reason() != ReasonBadToken {
			t.Errorf("Authenticate() = %+v, want bad_token", res)
		}
	})

	t.Run("token for unknown key", func(t *testing.T) {
		token, _ := cipher.Encrypt("deleted-key")
		r := httptest.NewRequest("GET", "/integrations/partner-a/session", nil)
		r.Header.Set("Authorization", "AccessToken "+token)
		res := s.Authenticate(r)
		if res.OK() || res.Reason() != ReasonUnknownPrincipal {
			t.Errorf("Authenticate() = %+v, want unknown_principal", res)
		}
	})
}
