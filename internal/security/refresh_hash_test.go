package security

import (
	"encoding/base64"
	"testing"
)

func TestNewRefreshToken(t *testing.T) {
	a, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	b, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	if a == b {
		t.Error("NewRefreshToken returned the same token twice")
	}
	raw, err := base64.RawURLEncoding.DecodeString(a)
	if err != nil {
		t.Fatalf("token is not base64url: %v", err)
	}
	if len(raw) != 64 {
		t.Errorf("decoded length = %d, want 64", len(raw))
	}
}

func TestHashToken_Consistent(t *testing.T) {
	token := "test-refresh-token-123"
	hash1 := HashToken(token)
	hash2 := HashToken(token)

	if hash1 != hash2 {
		t.Errorf("HashToken not consistent: hash1 = %q, hash2 = %q", hash1, hash2)
	}
	if len(hash1) != 64 {
		t.Errorf("hash length = %d, want 64 (SHA-256 hex)", len(hash1))
	}
	if HashToken("token-1") == HashToken("token-2") {
		t.Error("HashToken produced same hash for different tokens")
	}
}

func TestTokenHashEqual(t *testing.T) {
	token := "test-refresh-token-456"
	storedHash := HashToken(token)

	if !TokenHashEqual(token, storedHash) {
		t.Error("TokenHashEqual should match correct token")
	}
	if TokenHashEqual("wrong-token", storedHash) {
		t.Error("TokenHashEqual should reject incorrect token")
	}
	if TokenHashEqual(token, "a"+storedHash) {
		t.Error("TokenHashEqual should reject hash with different length")
	}
	if TokenHashEqual("", "") {
		t.Error("TokenHashEqual should not match empty inputs")
	}
	if TokenHashEqual("", HashToken("")) {
		t.Error("TokenHashEqual should not match empty token")
	}
}
