package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.CreateAccessToken(42, 3, "teacher", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims := svc.Decode(token)
	require.NotNil(t, claims)
	assert.Equal(t, uint64(42), claims.ID)
	assert.Equal(t, uint64(3), claims.RoleID)
	assert.Equal(t, "teacher", claims.RoleName)
	assert.True(t, svc.IsValid(token))
}

func TestRefreshTokenCarriesOnlyUserID(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.CreateRefreshToken(42, time.Hour)
	require.NoError(t, err)

	claims := svc.Decode(token)
	require.NotNil(t, claims)
	assert.Equal(t, uint64(42), claims.ID)
	assert.Zero(t, claims.RoleID)
	assert.Empty(t, claims.RoleName)
}

func TestTokensAreUnique(t *testing.T) {
	svc := NewTokenService("test-secret")

	// Two tokens for the same identity and TTL minted within the same
	// second must still differ: rotation stores the new refresh token and
	// retires the presented one, which only works when they are never equal.
	r1, err := svc.CreateRefreshToken(42, time.Hour)
	require.NoError(t, err)
	r2, err := svc.CreateRefreshToken(42, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, r1, r2)

	a1, err := svc.CreateAccessToken(42, 3, "teacher", time.Hour)
	require.NoError(t, err)
	a2, err := svc.CreateAccessToken(42, 3, "teacher", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, a1, a2)
}

func TestDecodeRejectsExpiredToken(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.CreateAccessToken(1, 1, "admin", -time.Minute)
	require.NoError(t, err)

	assert.Nil(t, svc.Decode(token))
	assert.False(t, svc.IsValid(token))
}

func TestDecodeRejectsTamperedToken(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.CreateAccessToken(1, 1, "admin", time.Hour)
	require.NoError(t, err)

	// Flip one byte of the signature.
	raw := []byte(token)
	raw[len(raw)-1] ^= 0x01
	assert.Nil(t, svc.Decode(string(raw)))
}

func TestDecodeRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenService("secret-a")
	verifier := NewTokenService("secret-b")

	token, err := issuer.CreateAccessToken(1, 1, "admin", time.Hour)
	require.NoError(t, err)

	assert.Nil(t, verifier.Decode(token))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	svc := NewTokenService("test-secret")
	assert.Nil(t, svc.Decode(""))
	assert.Nil(t, svc.Decode("not.a.jwt"))
}

func TestRemainingLifetime(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.CreateAccessToken(1, 1, "admin", time.Hour)
	require.NoError(t, err)

	d := svc.RemainingLifetime(token, time.Minute)
	assert.Greater(t, d, 50*time.Minute)
	assert.LessOrEqual(t, d, time.Hour)

	// Undecodable token falls back.
	assert.Equal(t, time.Minute, svc.RemainingLifetime("garbage", time.Minute))
}

func TestClaimsLifetime(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.CreateRefreshToken(7, 180*24*time.Hour)
	require.NoError(t, err)

	claims := svc.Decode(token)
	require.NotNil(t, claims)
	assert.Equal(t, 180*24*time.Hour, claims.Lifetime(time.Hour))

	var empty Claims
	assert.Equal(t, time.Hour, empty.Lifetime(time.Hour))
}
