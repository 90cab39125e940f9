// ABOUTME: HMAC signature verification over canonicalized request bodies
// ABOUTME: Recomputes the partner's signature and compares in constant time

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/keyhaus/partner-gateway/internal/canonical"
)

// signatureField is the body field carrying the partner-supplied signature.
// It is excluded from the signed material.
const signatureField = "signature"

// Envelope is the ephemeral, per-request view of a signed partner request.
// It exists only for the duration of request handling and is never persisted.
type Envelope struct {
	Body      map[string]any // decoded JSON body, including the signature field
	Signature string         // hex HMAC supplied by the partner
	Timestamp string         // informational; signed as part of the body
	RoutePath string
}

// SignatureVerifier recomputes partner signatures from the canonical request
// representation and a shared secret. Immutable after construction.
type SignatureVerifier struct {
	secret      []byte
	literalKeys map[string]bool
}

// NewSignatureVerifier builds a verifier for one partner's shared secret.
// literalKeys names body fields the partner hashes without URL-decoding.
func NewSignatureVerifier(secret string, literalKeys []string) *SignatureVerifier {
	lk := make(map[string]bool, len(literalKeys))
	for _, k := range literalKeys {
		lk[k] = true
	}
	return &SignatureVerifier{secret: []byte(secret), literalKeys: lk}
}

// Sign computes the hex HMAC-SHA256 signature for a request body, excluding
// any signature field it already carries. Exposed for tests and for partner
// simulators; the gateway itself only verifies.
func (v *SignatureVerifier) Sign(body map[string]any) string {
	material := make(map[string]any, len(body))
	for k, val := range body {
		if k == signatureField {
			continue
		}
		material[k] = val
	}
	payload := canonical.Encode(canonical.Canonicalize(material), v.literalKeys)
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the expected signature for the envelope and compares it
// to the supplied one in constant time. Returns false, never an error, for
// any mismatch or structurally malformed input; the caller turns false into
// an authentication failure.
func (v *SignatureVerifier) Verify(env Envelope) bool {
	supplied := strings.ToLower(strings.TrimSpace(env.Signature))
	if supplied == "" || env.Body == nil {
		return false
	}
	suppliedBytes, err := hex.DecodeString(supplied)
	if err != nil {
		return false
	}
	expected, err := hex.DecodeString(v.Sign(env.Body))
	if err != nil {
		return false
	}
	return hmac.Equal(suppliedBytes, expected)
}
