package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"nextgenrdp/api/internal/ids"
)

var (
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMalformedToken   = errors.New("malformed token")
	ErrEmptySecret      = errors.New("token secret is empty")
)

// SessionClaims is the payload of the auth_token cookie. Profile fields are
// copied at issuance and may go stale until the next login.
type SessionClaims struct {
	Email         string `json:"email"`
	FullName      string `json:"fullName"`
	EmailVerified bool   `json:"emailVerified"`
	IsAdmin       bool   `json:"isAdmin"`
	// LegacyID is the subject claim used by tokens minted before sub was
	// standardized. Never written.
	LegacyID string `json:"id,omitempty"`
	jwt.RegisteredClaims
}

// UserID resolves the subject, falling back to the legacy id claim.
func (c SessionClaims) UserID() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.LegacyID
}

// Expired reports whether the token is temporally invalid at now. A token
// without exp is treated as expired.
func (c SessionClaims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return !now.Before(c.ExpiresAt.Time)
}

// TokenCodec signs and verifies HS256 session tokens with one process-wide key.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

func NewTokenCodec(secret string) (*TokenCodec, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &TokenCodec{secret: []byte(secret), now: time.Now}, nil
}

// WithClock returns a copy of the codec stamping iat from clock.
func (tc *TokenCodec) WithClock(clock func() time.Time) *TokenCodec {
	return &TokenCodec{secret: tc.secret, now: clock}
}

// Issue signs a token for subject; exp is iat + ttl.
func (tc *TokenCodec) Issue(subject string, claims SessionClaims, ttl time.Duration) (string, error) {
	now := tc.now()
	claims.LegacyID = ""
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		ID:        ids.NewTokenID(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tc.secret)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// Verify checks the signature only. Callers compare exp themselves through
// SessionClaims.Expired so that expiry and forgery stay distinguishable.
func (tc *TokenCodec) Verify(tokenStr string) (*SessionClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &SessionClaims{}
	_, err := parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return tc.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	}
	if claims.UserID() == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrMalformedToken)
	}
	return claims, nil
}
