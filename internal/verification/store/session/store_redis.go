package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gatekeeper/internal/verification/models"
	"gatekeeper/pkg/platform/sentinel"
)

const keyPrefix = "gatekeeper:challenge:"

// RedisStore keeps challenge sessions in Redis so they survive restarts and
// can be shared between replicas. Redis key expiry does the pruning.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func key(id string) string {
	return keyPrefix + id
}

func (s *RedisStore) Create(ctx context.Context, session *models.ChallengeSession) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session id is required")
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal challenge session: %w", err)
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	ok, err := s.client.SetNX(ctx, key(session.ID), payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("create challenge session: %w", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *RedisStore) Peek(ctx context.Context, id string) (*models.ChallengeSession, error) {
	raw, err := s.client.Get(ctx, key(id)).Bytes()
	return decode(raw, err, "peek")
}

// Consume uses GETDEL so exactly one caller observes the session.
func (s *RedisStore) Consume(ctx context.Context, id string) (*models.ChallengeSession, error) {
	raw, err := s.client.GetDel(ctx, key(id)).Bytes()
	return decode(raw, err, "consume")
}

// Prune is a no-op: keys carry a TTL matching the session expiry.
func (s *RedisStore) Prune(context.Context, time.Time) (int, error) {
	return 0, nil
}

func decode(raw []byte, err error, op string) (*models.ChallengeSession, error) {
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s challenge session: %w", op, err)
	}
	var session models.ChallengeSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal challenge session: %w", err)
	}
	return &session, nil
}
