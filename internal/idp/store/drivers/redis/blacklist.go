// Package redis keeps the revoked token blacklist in Redis so several IdP
// replicas share it. Entries expire with the tokens they block.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
	goredis "github.com/redis/go-redis/v9"
)

const (
	DefaultKeyPrefix   = "idp:"
	DefaultDialTimeout = 5 * time.Second
)

var _ store.BlacklistedTokens = (*Blacklist)(nil)

type Blacklist struct {
	client    goredis.UniversalClient
	keyPrefix string
}

// NewBlacklist connects to the Redis at url (redis://...) and pings it.
func NewBlacklist(ctx context.Context, url string) (*Blacklist, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = DefaultDialTimeout
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewBlacklistWithClient(client, DefaultKeyPrefix), nil
}

// NewBlacklistWithClient wraps a configured client.
func NewBlacklistWithClient(client goredis.UniversalClient, keyPrefix string) *Blacklist {
	return &Blacklist{client: client, keyPrefix: keyPrefix}
}

func (b *Blacklist) Close() error { return b.client.Close() }

func (b *Blacklist) Ping(ctx context.Context) error { return b.client.Ping(ctx).Err() }

func (b *Blacklist) key(fingerprint string) string {
	return b.keyPrefix + "blacklist:" + fingerprint
}

// Add stores the expiry as the value and lets Redis drop the key with it.
func (b *Blacklist) Add(ctx context.Context, t domain.BlacklistedToken) error {
	ttl := time.Until(t.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	err := b.client.SetNX(ctx, b.key(t.Fingerprint), t.ExpiresAt.Unix(), ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

func (b *Blacklist) Contains(ctx context.Context, fingerprint string, now time.Time) (bool, error) {
	raw, err := b.client.Get(ctx, b.key(fingerprint)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	exp, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("corrupt blacklist entry: %w", err)
	}
	return now.Unix() < exp, nil
}

// SweepExpired is a no-op; Redis expires the keys itself.
func (b *Blacklist) SweepExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}
