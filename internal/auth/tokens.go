package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails parsing, signature
// or expiry checks.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims issued to users. Subject carries the user id.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 bearer tokens. The HTTP middleware and the
// realtime handshake share one instance so both accept the same credentials.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret []byte, ttl time.Duration) *Tokens {
	return &Tokens{secret: secret, ttl: ttl, now: time.Now}
}

// Issue signs a token for userID.
func (t *Tokens) Issue(userID string) (string, error) {
	now := t.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token and returns the identity it carries.
func (t *Tokens) Verify(token string) (AuthContext, error) {
	if token == "" {
		return AuthContext{}, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return AuthContext{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return AuthContext{}, ErrInvalidToken
	}
	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return AuthContext{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	ac := AuthContext{UserID: userID}
	if claims.ExpiresAt != nil {
		ac.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return ac, nil
}
