package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBlacklist(t *testing.T) (*Blacklist, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewBlacklist(rdb), mr
}

func TestBlacklistAddAndContains(t *testing.T) {
	bl, _ := newTestBlacklist(t)
	ctx := context.Background()

	assert.False(t, bl.Contains(ctx, "tok-1"))
	require.NoError(t, bl.Add(ctx, "tok-1", time.Hour))
	assert.True(t, bl.Contains(ctx, "tok-1"))
	assert.False(t, bl.Contains(ctx, "tok-2"))
}

func TestBlacklistEntryExpires(t *testing.T) {
	bl, mr := newTestBlacklist(t)
	ctx := context.Background()

	require.NoError(t, bl.Add(ctx, "tok-1", 5*time.Second))
	assert.True(t, bl.Contains(ctx, "tok-1"))

	mr.FastForward(6 * time.Second)
	assert.False(t, bl.Contains(ctx, "tok-1"))
}

func TestBlacklistMinimumTTL(t *testing.T) {
	bl, mr := newTestBlacklist(t)
	ctx := context.Background()

	// Near-expired tokens still get a short revocation window.
	require.NoError(t, bl.Add(ctx, "tok-1", 0))
	ttl := mr.TTL(blacklistPrefix + "tok-1")
	assert.Equal(t, time.Second, ttl)
}

func TestBlacklistNilClientIsInert(t *testing.T) {
	bl := NewBlacklist(nil)
	ctx := context.Background()

	assert.NoError(t, bl.Add(ctx, "tok-1", time.Hour))
	assert.False(t, bl.Contains(ctx, "tok-1"))
}

func TestBlacklistFailsOpenOnStoreError(t *testing.T) {
	bl, mr := newTestBlacklist(t)
	ctx := context.Background()

	require.NoError(t, bl.Add(ctx, "tok-1", time.Hour))
	mr.Close()
	assert.False(t, bl.Contains(ctx, "tok-1"))
}
