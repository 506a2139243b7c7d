package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const blacklistPrefix = "auth:blacklist:"

// Blacklist marks access tokens unusable before their natural expiry.
// Entries carry a TTL equal to the token's remaining lifetime so the set
// never outgrows the tokens it revokes. Writes are atomic SETs, so
// concurrent logouts cannot lose entries.
type Blacklist struct {
	rdb *redis.Client
}

func NewBlacklist(rdb *redis.Client) *Blacklist {
	return &Blacklist{rdb: rdb}
}

// Add records the token as revoked. Idempotent: re-adding overwrites the
// revocation timestamp and refreshes the TTL.
func (b *Blacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	if b.rdb == nil {
		return nil
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	return b.rdb.Set(ctx, blacklistPrefix+token, time.Now().UTC().Unix(), ttl).Err()
}

// Contains reports whether the token has been revoked. Store errors are
// logged and treated as "not blacklisted" so a cache outage does not lock
// every session out; signature and expiry checks still apply downstream.
func (b *Blacklist) Contains(ctx context.Context, token string) bool {
	if b.rdb == nil {
		return false
	}
	n, err := b.rdb.Exists(ctx, blacklistPrefix+token).Result()
	if err != nil {
		logrus.WithError(err).Error("blacklist: lookup failed")
		return false
	}
	return n > 0
}
