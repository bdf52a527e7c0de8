// ABOUTME: JWT token issuing and verification for bearer authentication
// ABOUTME: HMAC signing (HS256/HS384/HS512) with the method pinned at verification

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
	ErrEmptySecret  = errors.New("secret key must not be empty")
)

// SupportedAlgorithms lists the accepted signing algorithm names.
var SupportedAlgorithms = []string{"HS256", "HS384", "HS512"}

// TokenIssuer issues and verifies subject-bearing tokens.
type TokenIssuer interface {
	Issue(subject string, ttl time.Duration) (string, error)
	Verify(tokenString string) (subject string, err error)
}

// JWTIssuer implements TokenIssuer using HMAC signed JWTs
type JWTIssuer struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	now    func() time.Time
}

// NewJWTIssuer creates a JWT issuer for the given secret and algorithm.
// An empty algorithm selects HS256.
func NewJWTIssuer(secret []byte, algorithm string) (*JWTIssuer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	method, err := signingMethod(algorithm)
	if err != nil {
		return nil, err
	}

	return &JWTIssuer{secret: secret, method: method, now: time.Now}, nil
}

func signingMethod(algorithm string) (*jwt.SigningMethodHMAC, error) {
	switch algorithm {
	case "", "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
}

// Algorithm returns the name of the signing method in use.
func (j *JWTIssuer) Algorithm() string {
	return j.method.Alg()
}

// Issue creates a signed token whose "sub" claim is subject.
func (j *JWTIssuer) Issue(subject string, ttl time.Duration) (string, error) {
	now := j.now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(j.method, claims)
	return token.SignedString(j.secret)
}

// Verify validates the token and extracts the "sub" claim.
// Tokens signed with any other algorithm are rejected.
func (j *JWTIssuer) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)

	if err != nil {
		// Check if it's specifically an expiration error
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("%w: %w: sub", ErrInvalidToken, ErrMissingClaim)
	}

	return sub, nil
}
