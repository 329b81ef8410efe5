//go:build integration

package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatekeeper/pkg/testutil/containers"
)

type RedisListSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	list  *RedisList
}

func TestRedisListSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisListSuite))
}

func (s *RedisListSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.list = NewRedis(s.redis.Client)
}

func (s *RedisListSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisListSuite) TestRevoke() {
	ctx := context.Background()

	revoked, err := s.list.IsTokenRevoked(ctx, "jti-1")
	s.Require().NoError(err)
	s.False(revoked)

	s.Require().NoError(s.list.Revoke(ctx, "jti-1", time.Minute))
	revoked, err = s.list.IsTokenRevoked(ctx, "jti-1")
	s.Require().NoError(err)
	s.True(revoked)

	ttl, err := s.redis.Client.TTL(ctx, revokedTokenKeyPrefix+"jti-1").Result()
	s.Require().NoError(err)
	s.Positive(ttl)
}
