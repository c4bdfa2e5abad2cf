package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vedran77/campusnet/internal/domain"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Tokens are issued by the university identity provider. Sign exists for
// local development and tests.
type Tokens struct {
	secret []byte
}

func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret)}
}

func (t *Tokens) Sign(id domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": id.String(),
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse verifies raw and returns the identity in its subject claim.
func (t *Tokens) Parse(raw string) (domain.Identity, error) {
	token, err := jwt.Parse(raw, func(tok *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", ErrInvalidToken
	}
	id, err := domain.ParseIdentity(sub)
	if err != nil {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return id, nil
}
