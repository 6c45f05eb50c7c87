package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when a token fails full validation (signature, exp, iss, aud).
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingToken is returned by Validate for an empty token.
	ErrMissingToken = errors.New("security: token is empty")
	// ErrMalformedToken is returned by Validate when the token cannot be parsed or its signature does not verify.
	ErrMalformedToken = errors.New("security: malformed token")
	// ErrInvalidSubject is returned when the subject passed to Issue is not a UUID.
	ErrInvalidSubject = errors.New("security: subject must be a uuid")
)

// DefaultTokenExpiry is used when NewTokenProvider receives a non-positive expiry.
const DefaultTokenExpiry = 20 * time.Minute

// AccessClaims holds JWT claims for the access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid,omitempty"`
}

// TokenProvider issues and validates HS512 access tokens signed with a symmetric key.
type TokenProvider struct {
	key      []byte
	issuer   string
	audience string
	expiry   time.Duration
}

// NewTokenProvider returns a TokenProvider signing with key. An empty key is accepted here
// so the service can start; Issue then fails with ErrMissingSigningKey.
func NewTokenProvider(key []byte, issuer, audience string, expiry time.Duration) *TokenProvider {
	if expiry <= 0 {
		expiry = DefaultTokenExpiry
	}
	return &TokenProvider{
		key:      key,
		issuer:   issuer,
		audience: audience,
		expiry:   expiry,
	}
}

// Expiry returns the access token lifetime.
func (p *TokenProvider) Expiry() time.Duration { return p.expiry }

// Issue signs an access token for userID carrying sessionID as the sid claim.
// Returns the token string and its expiration time.
func (p *TokenProvider) Issue(userID, sessionID string) (token string, expiresAt time.Time, err error) {
	if len(p.key) == 0 {
		return "", time.Time{}, ErrMissingSigningKey
	}
	if _, err := uuid.Parse(userID); err != nil {
		return "", time.Time{}, ErrInvalidSubject
	}
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(p.expiry)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(p.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate checks that token is a well-formed JWT signed by this provider.
// Expiry, issuer and audience are not checked; logout must accept expired tokens.
func (p *TokenProvider) Validate(token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrMissingToken
	}
	if len(p.key) == 0 {
		return ErrMissingSigningKey
	}
	_, err := jwt.ParseWithClaims(token, &AccessClaims{}, p.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return ErrMalformedToken
	}
	return nil
}

// ParseAccess fully validates an access token (signature, exp, nbf, iss, aud) and returns its claims.
func (p *TokenProvider) ParseAccess(token string) (*AccessClaims, error) {
	if len(p.key) == 0 {
		return nil, ErrMissingSigningKey
	}
	parsed, err := jwt.ParseWithClaims(token, &AccessClaims{}, p.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (p *TokenProvider) keyFunc(*jwt.Token) (interface{}, error) {
	return p.key, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
