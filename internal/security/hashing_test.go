package security

import (
	"testing"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(4)
	password := []byte("secret123")
	hash, err := h.Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" {
		t.Fatal("Hash returned empty")
	}
	if err := h.Compare(hash, password); err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if err := h.Compare(hash, []byte("wrong")); err == nil {
		t.Fatal("Compare with wrong password should fail")
	}
}

func TestHasher_Verify(t *testing.T) {
	h := NewHasher(4)
	hash, err := h.Hash([]byte("Demo@321"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	testCases := []struct {
		name      string
		plaintext string
		hash      string
		want      bool
	}{
		{"match", "Demo@321", hash, true},
		{"mismatch", "wrong", hash, false},
		{"empty plaintext", "", hash, false},
		{"empty hash", "Demo@321", "", false},
		{"corrupt hash", "Demo@321", "not-a-bcrypt-hash", false},
		{"case sensitive", "demo@321", hash, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := h.Verify(tc.plaintext, tc.hash); got != tc.want {
				t.Errorf("Verify = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHasher_Cost(t *testing.T) {
	if h := NewHasher(12); h.Cost != 12 {
		t.Errorf("Cost want 12, got %d", h.Cost)
	}
	if h := NewHasher(0); h.Cost != 10 {
		t.Errorf("zero cost should select bcrypt.DefaultCost, got %d", h.Cost)
	}
	if h := NewHasher(2); h.Cost != 4 {
		t.Errorf("low cost should clamp to MinCost, got %d", h.Cost)
	}
	if h := NewHasher(40); h.Cost != 31 {
		t.Errorf("high cost should clamp to MaxCost, got %d", h.Cost)
	}
}
