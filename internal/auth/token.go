// Package auth verifies the signed access tokens presented at websocket
// handshake. Token issuance and revocation live in the credential service;
// this side only maps token -> identity.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("auth: missing token")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Identity is the decoded principal of a verified token. TokenID carries
// the jti claim, used elsewhere for revocation.
type Identity struct {
	UserID  string
	TokenID string
}

// Verifier validates HS256 access tokens.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify parses and validates the token, returning the caller's identity.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrMissingToken
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	userID, _ := claims["userId"].(string)
	if userID == "" {
		return Identity{}, ErrInvalidToken
	}
	tokenID, _ := claims["jti"].(string)

	return Identity{UserID: userID, TokenID: tokenID}, nil
}
