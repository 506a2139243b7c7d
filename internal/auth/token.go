// Package auth implements the token subsystem: stateless HS256 signing and
// verification of access/refresh tokens, and the Redis-backed logout
// blacklist.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Claims is the signed claim set carried by both token kinds. Access tokens
// carry the full identity so that authorization never needs a user lookup;
// refresh tokens carry only the user id.
type Claims struct {
	ID       uint64 `json:"id"`
	RoleID   uint64 `json:"role_id,omitempty"`
	RoleName string `json:"role_name,omitempty"`
	jwt.RegisteredClaims
}

// Default lifetimes. Web refresh tokens live 30 days, mobile sessions 180.
const (
	AccessTokenTTL        = time.Hour
	RefreshTokenTTL       = 30 * 24 * time.Hour
	MobileRefreshTokenTTL = 180 * 24 * time.Hour
)

// TokenService signs and verifies time-bound claim sets with a single
// symmetric secret held for the process lifetime.
type TokenService struct {
	secret []byte
}

// NewTokenService builds a service around the configured secret. When the
// secret is empty a random one is generated, which keeps the service usable
// but invalidates all tokens across restarts.
func NewTokenService(secret string) *TokenService {
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			logrus.WithError(err).Fatal("jwt: cannot generate fallback secret")
		}
		secret = hex.EncodeToString(buf)
		logrus.Warn("jwt: JWT_SECRET not set, using generated secret; tokens will not survive restarts")
	}
	return &TokenService{secret: []byte(secret)}
}

// CreateAccessToken signs the caller's identity claims with iat/nbf set to
// now and exp to now+ttl.
func (s *TokenService) CreateAccessToken(userID, roleID uint64, roleName string, ttl time.Duration) (string, error) {
	return s.sign(Claims{ID: userID, RoleID: roleID, RoleName: roleName}, ttl)
}

// CreateRefreshToken signs a minimal claim set holding only the user id.
func (s *TokenService) CreateRefreshToken(userID uint64, ttl time.Duration) (string, error) {
	return s.sign(Claims{ID: userID}, ttl)
}

func (s *TokenService) sign(c Claims, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	// jti makes every token unique. Timestamps alone have one-second
	// granularity, and rotation relies on the new refresh token never
	// equaling the one it replaces.
	c.RegisteredClaims.ID = uuid.NewString()
	c.IssuedAt = jwt.NewNumericDate(now)
	c.NotBefore = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

// Decode verifies the signature and the nbf/exp claims. Every failure mode
// (expired, tampered, malformed, wrong algorithm) is logged and collapses
// to nil; callers treat nil uniformly as "invalid".
func (s *TokenService) Decode(token string) *Claims {
	var claims Claims
	tok, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !tok.Valid {
		logrus.WithError(err).Debug("jwt: token rejected")
		return nil
	}
	return &claims
}

// IsValid reports whether the token decodes cleanly.
func (s *TokenService) IsValid(token string) bool {
	return s.Decode(token) != nil
}

// RemainingLifetime returns how long the token stays valid, or fallback when
// the token cannot be decoded. Used to size blacklist TTLs.
func (s *TokenService) RemainingLifetime(token string, fallback time.Duration) time.Duration {
	c := s.Decode(token)
	if c == nil || c.ExpiresAt == nil {
		return fallback
	}
	if d := time.Until(c.ExpiresAt.Time); d > 0 {
		return d
	}
	return fallback
}

// Lifetime returns the total issued lifetime (exp - iat) of the claims, or
// fallback when either bound is missing. Refresh rotation reuses the
// original session length so mobile sessions keep their longer window.
func (c *Claims) Lifetime(fallback time.Duration) time.Duration {
	if c.ExpiresAt == nil || c.IssuedAt == nil {
		return fallback
	}
	if d := c.ExpiresAt.Sub(c.IssuedAt.Time); d > 0 {
		return d
	}
	return fallback
}
