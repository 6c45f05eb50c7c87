package security

import "time"

// testSigningKey is a 64-byte HS512 key for unit tests only. Do not use in production.
const testSigningKey = "test-signing-key-0123456789abcdef-test-signing-key-0123456789abc"

// NewTestTokenProvider returns a TokenProvider using the embedded test key.
// For unit tests only. Callers must not use in production.
func NewTestTokenProvider() *TokenProvider {
	return NewTokenProvider([]byte(testSigningKey), "test-issuer", "test-audience", 20*time.Minute)
}
