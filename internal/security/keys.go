package security

import (
	"encoding/base64"
	"errors"
	"os"
	"strings"
)

// MinSigningKeyLen is the shortest HMAC key accepted for HS512 signing.
const MinSigningKeyLen = 32

var (
	// ErrMissingSigningKey is returned when no signing key is configured.
	ErrMissingSigningKey = errors.New("security: signing key not configured")
	// ErrWeakSigningKey is returned when the signing key is shorter than MinSigningKeyLen bytes.
	ErrWeakSigningKey = errors.New("security: signing key too short")
)

const base64KeyPrefix = "base64:"

// LoadSigningKey resolves the symmetric signing key from configuration.
// s may be "base64:<std-encoded bytes>", a path to a file holding the key, or the key itself.
func LoadSigningKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrMissingSigningKey
	}
	var key []byte
	switch {
	case strings.HasPrefix(s, base64KeyPrefix):
		b, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, base64KeyPrefix))
		if err != nil {
			return nil, err
		}
		key = b
	case isRegularFile(s):
		b, err := os.ReadFile(s)
		if err != nil {
			return nil, err
		}
		key = []byte(strings.TrimSpace(string(b)))
	default:
		key = []byte(s)
	}
	if len(key) == 0 {
		return nil, ErrMissingSigningKey
	}
	if len(key) < MinSigningKeyLen {
		return nil, ErrWeakSigningKey
	}
	return key, nil
}

func isRegularFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
