package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func signTestClaims(t *testing.T, method jwt.SigningMethod, key interface{}, claims AccessClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return tok
}

func TestTokenProvider_IssueAndParseAccess(t *testing.T) {
	p := NewTestTokenProvider()
	userID := uuid.NewString()
	sessionID := uuid.NewString()

	token, exp, err := p.Issue(userID, sessionID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("token empty")
	}
	if !exp.After(time.Now()) {
		t.Fatal("expires at in the past")
	}
	if d := time.Until(exp); d > 20*time.Minute || d < 19*time.Minute {
		t.Errorf("expiry = %v, want ~20m", d)
	}

	claims, err := p.ParseAccess(token)
	if err != nil {
		t.Fatalf("ParseAccess: %v", err)
	}
	if claims.Subject != userID || claims.SessionID != sessionID {
		t.Errorf("ParseAccess: got sub=%q sid=%q", claims.Subject, claims.SessionID)
	}
	if claims.Issuer != "test-issuer" {
		t.Errorf("iss = %q", claims.Issuer)
	}
	if claims.ID == "" {
		t.Error("jti should be set")
	}
}

func TestTokenProvider_IssueDistinctTokens(t *testing.T) {
	p := NewTestTokenProvider()
	userID := uuid.NewString()
	a, _, err := p.Issue(userID, "s1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	b, _, err := p.Issue(userID, "s1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if a == b {
		t.Error("two issuances for the same session should differ")
	}
}

func TestTokenProvider_IssueRejectsNonUUIDSubject(t *testing.T) {
	p := NewTestTokenProvider()
	_, _, err := p.Issue("not-a-uuid", "s1")
	if err != ErrInvalidSubject {
		t.Errorf("Issue: want ErrInvalidSubject, got %v", err)
	}
}

func TestTokenProvider_IssueMissingKey(t *testing.T) {
	p := NewTokenProvider(nil, "iss", "aud", time.Minute)
	_, _, err := p.Issue(uuid.NewString(), "s1")
	if err != ErrMissingSigningKey {
		t.Errorf("Issue: want ErrMissingSigningKey, got %v", err)
	}
}

func TestTokenProvider_DefaultExpiry(t *testing.T) {
	p := NewTokenProvider([]byte(testSigningKey), "iss", "aud", 0)
	if p.Expiry() != DefaultTokenExpiry {
		t.Errorf("Expiry = %v, want %v", p.Expiry(), DefaultTokenExpiry)
	}
}

func TestTokenProvider_Validate(t *testing.T) {
	p := NewTestTokenProvider()
	valid, _, err := p.Issue(uuid.NewString(), "s1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	past := time.Now().Add(-time.Hour)
	expired := signTestClaims(t, jwt.SigningMethodHS512, []byte(testSigningKey), AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Issuer:    "test-issuer",
			Audience:  jwt.ClaimStrings{"test-audience"},
			IssuedAt:  jwt.NewNumericDate(past.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(past),
		},
	})
	wrongAlg := signTestClaims(t, jwt.SigningMethodHS256, []byte(testSigningKey), AccessClaims{})
	otherKey := signTestClaims(t, jwt.SigningMethodHS512, []byte(strings.Repeat("k", 64)), AccessClaims{})
	unsigned := signTestClaims(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, AccessClaims{})

	testCases := []struct {
		name  string
		token string
		want  error
	}{
		{"valid", valid, nil},
		{"expired but well formed", expired, nil},
		{"empty", "", ErrMissingToken},
		{"whitespace", "   ", ErrMissingToken},
		{"garbage", "not-a-jwt", ErrMalformedToken},
		{"tampered", valid + "x", ErrMalformedToken},
		{"wrong algorithm", wrongAlg, ErrMalformedToken},
		{"other key", otherKey, ErrMalformedToken},
		{"alg none", unsigned, ErrMalformedToken},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := p.Validate(tc.token); err != tc.want {
				t.Errorf("Validate = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestTokenProvider_ParseAccessRejects(t *testing.T) {
	p := NewTestTokenProvider()
	now := time.Now()
	base := func() AccessClaims {
		return AccessClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   uuid.NewString(),
				Issuer:    "test-issuer",
				Audience:  jwt.ClaimStrings{"test-audience"},
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			},
			SessionID: "s1",
		}
	}

	expired := base()
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
	wrongIss := base()
	wrongIss.Issuer = "someone-else"
	wrongAud := base()
	wrongAud.Audience = jwt.ClaimStrings{"other-api"}
	noExp := base()
	noExp.ExpiresAt = nil
	noSub := base()
	noSub.Subject = ""

	testCases := []struct {
		name   string
		claims AccessClaims
	}{
		{"expired", expired},
		{"wrong issuer", wrongIss},
		{"wrong audience", wrongAud},
		{"missing exp", noExp},
		{"missing subject", noSub},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tok := signTestClaims(t, jwt.SigningMethodHS512, []byte(testSigningKey), tc.claims)
			if _, err := p.ParseAccess(tok); err != ErrInvalidToken {
				t.Errorf("ParseAccess: want ErrInvalidToken, got %v", err)
			}
		})
	}

	if _, err := p.ParseAccess("invalid-token"); err != ErrInvalidToken {
		t.Errorf("ParseAccess garbage: want ErrInvalidToken, got %v", err)
	}
	okTok := signTestClaims(t, jwt.SigningMethodHS512, []byte(testSigningKey), base())
	if _, err := p.ParseAccess(okTok); err != nil {
		t.Errorf("ParseAccess valid: %v", err)
	}
}
