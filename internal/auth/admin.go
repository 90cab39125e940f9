// ABOUTME: JWT verification for the internal admin API
// ABOUTME: Uses HS256 signing with the configured admin secret

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Admin token errors
var (
	ErrInvalidAdminToken = errors.New("invalid admin token")
	ErrExpiredAdminToken = errors.New("admin token expired")
	ErrMissingClaim      = errors.New("missing required claim")
)

// AdminTokenVerifier issues and validates HS256 JWTs for the internal admin
// surface. This is operator tooling only; partner traffic never carries these
// tokens.
type AdminTokenVerifier struct {
	secret []byte
}

// NewAdminTokenVerifier creates a verifier with the given secret.
func NewAdminTokenVerifier(secret []byte) *AdminTokenVerifier {
	return &AdminTokenVerifier{secret: secret}
}

// Verify validates the token and extracts the operator subject from "sub".
func (v *AdminTokenVerifier) Verify(tokenString string) (subject string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredAdminToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidAdminToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidAdminToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidAdminToken
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	return sub, nil
}

// Generate creates a new admin token for the given subject with expiration.
func (v *AdminTokenVerifier) Generate(subject string, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(expiresIn).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
