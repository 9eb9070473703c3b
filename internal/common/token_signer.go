package common

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// APIClaims are the claims carried by API bearer tokens
type APIClaims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// TokenSigner issues and validates HS256 bearer tokens for the API
type TokenSigner struct {
	secretKey []byte
	issuer    string
}

// NewTokenSigner creates a new token signer
func NewTokenSigner(secretKey []byte, issuer string) *TokenSigner {
	return &TokenSigner{
		secretKey: secretKey,
		issuer:    issuer,
	}
}

// Issue signs a token for subject valid for ttl
func (s *TokenSigner) Issue(subject, scope string, ttl time.Duration) (string, error) {
	if len(s.secretKey) == 0 {
		return "", errors.New("token signer has no secret")
	}
	if subject == "" {
		return "", errors.New("subject is required")
	}

	now := time.Now()
	claims := APIClaims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Validate parses tokenString and checks its signature, expiry and issuer
func (s *TokenSigner) Validate(tokenString string) (*APIClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &APIClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secretKey, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("missing sub claim")
	}
	return claims, nil
}
