// ABOUTME: Symmetric token cipher bridging the Partner A browser redirect flow
// ABOUTME: AES-256-GCM over a compact payload carrying only the partner API key

package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

// Cipher errors
var (
	// ErrDecryption is returned for any token not produced by Encrypt with the
	// same secret: wrong encoding, truncation, bit flips, foreign keys. The
	// cipher never returns a plausible-looking wrong key.
	ErrDecryption = errors.New("token decryption failed")

	// ErrTokenExpired is returned when a token decrypts correctly but falls
	// outside the configured validity window.
	ErrTokenExpired = errors.New("token expired")
)

// hkdfInfo domain-separates the derived key from any other use of the secret.
const hkdfInfo = "partner-gateway access token v1"

// TokenCipher encrypts and decrypts the opaque access token that stands in
// for a Partner A API key across the multi-step browser flow. Tokens carry no
// session state beyond the API key and issue time; there is no server-side
// token store and no revocation list.
//
// The cipher is immutable after construction and safe for concurrent use.
type TokenCipher struct {
	aead cipher.AEAD
	ttl  time.Duration
	now  func() time.Time
}

// tokenPayload is the plaintext carried inside a token.
type tokenPayload struct {
	APIKey   string `json:"api_key"`
	IssuedAt int64  `json:"iat"`
}

// NewTokenCipher derives an AES-256-GCM key from the configured secret via
// HKDF-SHA256. ttl bounds token validity; zero disables the expiry check.
func NewTokenCipher(secret string, ttl time.Duration) (*TokenCipher, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token cipher secret is required")
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("deriving cipher key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("initializing cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("initializing GCM: %w", err)
	}

	return &TokenCipher{aead: aead, ttl: ttl, now: time.Now}, nil
}

// Encrypt produces an opaque token embedding the given API key.
func (c *TokenCipher) Encrypt(apiKey string) (string, error) {
	if apiKey == "" {
		return "", errors.New("api key is required")
	}

	plaintext, err := json.Marshal(tokenPayload{
		APIKey:   apiKey,
		IssuedAt: c.now().Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("marshaling token payload: %w", err)
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt recovers the API key from a token. Any input not produced by a
// matching Encrypt call fails with ErrDecryption; a structurally valid token
// outside the validity window fails with ErrTokenExpired.
func (c *TokenCipher) Decrypt(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return "", ErrDecryption
	}
	if len(raw) < c.aead.NonceSize() {
		return "", ErrDecryption
	}

	nonce, ciphertext := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryption
	}

	var payload tokenPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return "", ErrDecryption
	}
	if payload.APIKey == "" {
		return "", ErrDecryption
	}

	if c.ttl > 0 {
		issued := time.Unix(payload.IssuedAt, 0)
		if c.now().Sub(issued) > c.ttl {
			return "", ErrTokenExpired
		}
	}

	return payload.APIKey, nil
}
