// Package revocation keeps the ids of admin tokens that were revoked before
// their expiry. Entries expire with the token they revoke.
package revocation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedTokenKeyPrefix = "gatekeeper:trl:jti:"

// RedisList shares revocations between every gatekeeper instance using the
// same Redis.
type RedisList struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *RedisList {
	return &RedisList{client: client}
}

func (l *RedisList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return errors.New("token id is required")
	}
	if ttl <= 0 {
		return nil
	}
	return l.client.Set(ctx, revokedTokenKeyPrefix+jti, "1", ttl).Err()
}

func (l *RedisList) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	n, err := l.client.Exists(ctx, revokedTokenKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryList is the single-process fallback used when Redis is not configured.
type MemoryList struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemory() *MemoryList {
	return &MemoryList{revoked: make(map[string]time.Time), now: time.Now}
}

func (l *MemoryList) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return errors.New("token id is required")
	}
	if ttl <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[jti] = l.now().Add(ttl)
	return nil
}

func (l *MemoryList) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	until, ok := l.revoked[jti]
	if !ok {
		return false, nil
	}
	if !l.now().Before(until) {
		delete(l.revoked, jti)
		return false, nil
	}
	return true, nil
}
