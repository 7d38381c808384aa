package utils // package utils provides helpers for token signing, hashing and password checks

import (
	"crypto/sha256" // refresh tokens are stored as SHA-256 digests
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// Claims is the payload of both access and refresh tokens.  The two kinds
// differ only in the secret that signs them and their lifetime.
type Claims struct {
	UserID uint64     `json:"uid"`
	Name   string     `json:"name"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// SignToken signs claims with HS256.
func SignToken(secret string, claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// ErrTokenExpired is returned by ParseToken for a well-formed token whose
// signature checks out but whose exp is in the past.
var ErrTokenExpired = errors.New("token expired")

// ParseToken verifies raw against secret using now as the clock.  Only HS256
// is accepted and exp is mandatory.  Expired tokens yield ErrTokenExpired;
// every other failure is returned wrapped.
func ParseToken(secret, raw string, now func() time.Time) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}

// NewClaims builds claims for one user with the given lifetime.
func NewClaims(userID uint64, name, email string, role model.Role, issuedAt time.Time, ttl time.Duration, id string) Claims {
	return Claims{
		UserID: userID,
		Name:   name,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(userID),
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
}

// HashRefreshRaw returns the SHA-256 hex digest of a raw refresh token.
// Only the digest is persisted.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
