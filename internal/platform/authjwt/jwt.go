// Package authjwt issues and validates the HS256 operator tokens that guard
// the check endpoint.
package authjwt

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("authjwt: empty secret")
)

type Service struct {
	secret []byte
	issuer string
}

func New(secret []byte, issuer string) (*Service, error) {
	if len(secret) == 0 {
		return nil, ErrNoSecret
	}
	return &Service{secret: secret, issuer: issuer}, nil
}

type Claims struct {
	jwt.RegisteredClaims
}

// NewToken signs a token for subject valid for ttl.
func (s *Service) NewToken(subject string, ttl time.Duration) (token string, exp time.Time, err error) {
	if subject == "" {
		return "", time.Time{}, errors.New("authjwt: empty subject")
	}
	now := time.Now().UTC()
	exp = now.Add(ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign: %w", err)
	}
	return signed, exp, nil
}

// Parse validates signature, expiry and issuer. Every failure is ErrInvalidToken.
func (s *Service) Parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
