//go:build integration

package state_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatekeeper/internal/verification/models"
	"gatekeeper/internal/verification/store/guildconfig"
	"gatekeeper/internal/verification/store/state"
	"gatekeeper/pkg/requestcontext"
	"gatekeeper/pkg/testutil/containers"
)

type PostgresStateStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *state.PostgresStore
	configs  *guildconfig.PostgresStore
	now      time.Time
}

func TestPostgresStateStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStateStoreSuite))
}

func (s *PostgresStateStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = state.NewPostgres(s.postgres.DB)
	s.configs = guildconfig.NewPostgres(s.postgres.DB)
}

func (s *PostgresStateStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "verification_state", "guild_config"))
	s.now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
}

func (s *PostgresStateStoreSuite) ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *PostgresStateStoreSuite) seed(guildID, userID string, status models.Status, createdAt time.Time) {
	_, err := s.store.Upsert(s.ctxAt(createdAt), guildID, userID, func(st *models.VerificationState) error {
		st.Status = status
		st.CreatedAt = createdAt
		return nil
	})
	s.Require().NoError(err)
}

func (s *PostgresStateStoreSuite) TestRoundTripFullRecord() {
	ctx := s.ctxAt(s.now)
	last := s.now.Add(-time.Minute)
	_, err := s.store.Upsert(ctx, "g1", "u1", func(st *models.VerificationState) error {
		st.Status = models.StatusManualReview
		st.Attempts = 3
		st.LastChallengeAt = &last
		st.RiskScore = 4
		st.RiskReasons = []string{"Account has no avatar.", "Reached max attempts (3)."}
		st.InviteCode = "abc"
		st.ReviewMessageRef = &models.MessageRef{ChannelID: "c1", MessageID: "m1"}
		st.ManualReason = "max attempts reached"
		return nil
	})
	s.Require().NoError(err)

	got, err := s.store.Get(context.Background(), "g1", "u1")
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(models.StatusManualReview, got.Status)
	s.True(got.ManualRequired)
	s.Equal(3, got.Attempts)
	s.WithinDuration(last, *got.LastChallengeAt, time.Millisecond)
	s.Equal([]string{"Account has no avatar.", "Reached max attempts (3)."}, got.RiskReasons)
	s.Equal("abc", got.InviteCode)
	s.Equal(&models.MessageRef{ChannelID: "c1", MessageID: "m1"}, got.ReviewMessageRef)
}

func (s *PostgresStateStoreSuite) TestGetMissingReturnsNil() {
	got, err := s.store.Get(context.Background(), "g1", "nobody")
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *PostgresStateStoreSuite) TestMutateErrorRollsBackPlaceholder() {
	_, err := s.store.Upsert(s.ctxAt(s.now), "g1", "u1", func(*models.VerificationState) error {
		return errors.New("abort")
	})
	s.Require().Error(err)

	got, err := s.store.Get(context.Background(), "g1", "u1")
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *PostgresStateStoreSuite) TestConcurrentUpsertsSerialize() {
	const writers = 20
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Upsert(s.ctxAt(s.now), "g1", "u1", func(st *models.VerificationState) error {
				st.Attempts++
				return nil
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	got, err := s.store.Get(context.Background(), "g1", "u1")
	s.Require().NoError(err)
	s.Equal(writers, got.Attempts)
}

func (s *PostgresStateStoreSuite) TestSweepQueriesHonourGuildTimeouts() {
	_, err := s.configs.Update(context.Background(), "g1", func(cfg *models.GuildConfig) error {
		cfg.ChallengeTimeout = time.Hour
		cfg.ReviewTimeout = 8 * time.Hour
		return nil
	})
	s.Require().NoError(err)

	s.seed("g1", "stale", models.StatusPending, s.now.Add(-2*time.Hour))
	s.seed("g1", "fresh", models.StatusChallenge, s.now.Add(-time.Minute))
	s.seed("g1", "remind", models.StatusManualReview, s.now.Add(-6*time.Hour))
	s.seed("g1", "expired", models.StatusManualReview, s.now.Add(-9*time.Hour))
	s.seed("g1", "rejected", models.StatusRejected, s.now)
	s.seed("g2", "unconfigured", models.StatusPending, s.now.Add(-1000*time.Hour))

	stale, err := s.store.ListStalePending(context.Background(), s.now, 0)
	s.Require().NoError(err)
	s.Require().Len(stale, 1)
	s.Equal("stale", stale[0].UserID)

	remind, err := s.store.ListRemindableReviews(context.Background(), s.now, 0.75, 50)
	s.Require().NoError(err)
	s.Require().Len(remind, 1)
	s.Equal("remind", remind[0].UserID)

	expired, err := s.store.ListExpiredReviews(context.Background(), s.now, 50)
	s.Require().NoError(err)
	s.Require().Len(expired, 1)
	s.Equal("expired", expired[0].UserID)

	terminal, err := s.store.ListStaleTerminal(context.Background(), s.now, 50)
	s.Require().NoError(err)
	s.Require().Len(terminal, 1)
	s.Equal("rejected", terminal[0].UserID)
}

func (s *PostgresStateStoreSuite) TestDeferRemovalHidesRowsUntilBackoffEnds() {
	s.seed("g1", "rejected", models.StatusRejected, s.now)
	s.seed("g1", "verified", models.StatusVerified, s.now)
	until := s.now.Add(10 * time.Minute)

	s.Require().NoError(s.store.DeferRemoval(context.Background(), "g1", "rejected", until))
	s.Require().NoError(s.store.DeferRemoval(context.Background(), "g1", "verified", until))
	s.Require().NoError(s.store.DeferRemoval(context.Background(), "g1", "missing", until))

	terminal, err := s.store.ListStaleTerminal(context.Background(), s.now, 50)
	s.Require().NoError(err)
	s.Empty(terminal)

	terminal, err = s.store.ListStaleTerminal(context.Background(), until, 50)
	s.Require().NoError(err)
	s.Require().Len(terminal, 1)
	s.WithinDuration(until, *terminal[0].RemovalDeferredUntil, time.Millisecond)

	verified, err := s.store.Get(context.Background(), "g1", "verified")
	s.Require().NoError(err)
	s.Nil(verified.RemovalDeferredUntil)
	missing, err := s.store.Get(context.Background(), "g1", "missing")
	s.Require().NoError(err)
	s.Nil(missing)
}
