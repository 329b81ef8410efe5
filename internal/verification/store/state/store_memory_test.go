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
)

type InMemoryStateStoreSuite struct {
	suite.Suite
	configs *guildconfig.InMemoryStore
	store   *state.InMemoryStore
	now     time.Time
}

func TestInMemoryStateStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStateStoreSuite))
}

func (s *InMemoryStateStoreSuite) SetupTest() {
	s.configs = guildconfig.NewInMemory()
	s.store = state.NewInMemory(s.configs)
	s.now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStateStoreSuite) ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

// seed writes a row whose current cycle started at createdAt.
func (s *InMemoryStateStoreSuite) seed(guildID, userID string, status models.Status, createdAt time.Time) {
	_, err := s.store.Upsert(s.ctxAt(createdAt), guildID, userID, func(st *models.VerificationState) error {
		st.Status = status
		st.CreatedAt = createdAt
		return nil
	})
	s.Require().NoError(err)
}

func (s *InMemoryStateStoreSuite) setTimeouts(guildID string, challenge, review time.Duration) {
	_, err := s.configs.Update(context.Background(), guildID, func(cfg *models.GuildConfig) error {
		cfg.ChallengeTimeout = challenge
		cfg.ReviewTimeout = review
		return nil
	})
	s.Require().NoError(err)
}

func ids(rows []*models.VerificationState) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.GuildID+"/"+r.UserID)
	}
	return out
}

// =============================================================================
// Upsert
// =============================================================================
// Justification: every lifecycle transition is a read-modify-write through
// Upsert; it must be atomic and must enforce the row invariants on write.

func (s *InMemoryStateStoreSuite) TestGetMissingReturnsNil() {
	st, err := s.store.Get(context.Background(), "g1", "u1")
	s.Require().NoError(err)
	s.Nil(st)
}

func (s *InMemoryStateStoreSuite) TestUpsertCreatesPendingRow() {
	st, err := s.store.Upsert(s.ctxAt(s.now), "g1", "u1", nil)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, st.Status)
	s.Equal(s.now, st.CreatedAt)
	s.Equal(s.now, st.UpdatedAt)
	s.Equal(1, s.store.Len())
}

func (s *InMemoryStateStoreSuite) TestUpsertNormalizes() {
	s.Run("manual flag follows MANUAL_REVIEW", func() {
		st, err := s.store.Upsert(s.ctxAt(s.now), "g1", "u1", func(st *models.VerificationState) error {
			st.Status = models.StatusManualReview
			st.ReviewMessageRef = &models.MessageRef{ChannelID: "c", MessageID: "m"}
			return nil
		})
		s.Require().NoError(err)
		s.True(st.ManualRequired)
		s.NotNil(st.ReviewMessageRef)
	})

	s.Run("leaving review clears review data", func() {
		st, err := s.store.Upsert(s.ctxAt(s.now), "g1", "u1", func(st *models.VerificationState) error {
			st.Status = models.StatusVerified
			st.ReviewReminded = true
			st.ManualRequired = true
			return nil
		})
		s.Require().NoError(err)
		s.False(st.ManualRequired)
		s.False(st.ReviewReminded)
		s.Nil(st.ReviewMessageRef)
	})
}

func (s *InMemoryStateStoreSuite) TestUpsertMutateErrorAbortsWrite() {
	s.seed("g1", "u1", models.StatusPending, s.now)

	sentinelErr := errors.New("stop")
	_, err := s.store.Upsert(s.ctxAt(s.now), "g1", "u1", func(st *models.VerificationState) error {
		st.Status = models.StatusVerified
		return sentinelErr
	})
	s.ErrorIs(err, sentinelErr)

	st, err := s.store.Get(context.Background(), "g1", "u1")
	s.Require().NoError(err)
	s.Equal(models.StatusPending, st.Status)

	_, err = s.store.Upsert(s.ctxAt(s.now), "g1", "u2", func(*models.VerificationState) error {
		return sentinelErr
	})
	s.ErrorIs(err, sentinelErr)
	missing, err := s.store.Get(context.Background(), "g1", "u2")
	s.Require().NoError(err)
	s.Nil(missing, "aborted first write must not leave a row behind")
}

func (s *InMemoryStateStoreSuite) TestUpsertIsAtomicUnderContention() {
	const writers = 50
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

	st, err := s.store.Get(context.Background(), "g1", "u1")
	s.Require().NoError(err)
	s.Equal(writers, st.Attempts)
}

func (s *InMemoryStateStoreSuite) TestReturnedRowsAreCopies() {
	s.seed("g1", "u1", models.StatusPending, s.now)
	st, err := s.store.Get(context.Background(), "g1", "u1")
	s.Require().NoError(err)
	st.Status = models.StatusKicked
	st.RiskReasons = append(st.RiskReasons, "x")

	again, err := s.store.Get(context.Background(), "g1", "u1")
	s.Require().NoError(err)
	s.Equal(models.StatusPending, again.Status)
	s.Empty(again.RiskReasons)
}

func (s *InMemoryStateStoreSuite) TestDelete() {
	s.seed("g1", "u1", models.StatusPending, s.now)
	s.Require().NoError(s.store.Delete(context.Background(), "g1", "u1"))
	s.Require().NoError(s.store.Delete(context.Background(), "g1", "u1"), "deleting a missing row is not an error")
	s.Equal(0, s.store.Len())
}

// =============================================================================
// Sweep queries
// =============================================================================
// Justification: the sweep only ever sees what these queries return, so
// their timeout arithmetic decides who gets reminded, expired and removed.

func (s *InMemoryStateStoreSuite) TestListStalePending() {
	s.setTimeouts("g1", time.Hour, 0)
	s.setTimeouts("g2", 0, 0)

	s.seed("g1", "old-pending", models.StatusPending, s.now.Add(-2*time.Hour))
	s.seed("g1", "old-challenge", models.StatusChallenge, s.now.Add(-90*time.Minute))
	s.seed("g1", "exact", models.StatusPending, s.now.Add(-time.Hour))
	s.seed("g1", "fresh", models.StatusPending, s.now.Add(-59*time.Minute))
	s.seed("g1", "review", models.StatusManualReview, s.now.Add(-5*time.Hour))
	s.seed("g2", "disabled", models.StatusPending, s.now.Add(-100*time.Hour))
	s.seed("g3", "unconfigured", models.StatusPending, s.now.Add(-1000*time.Hour))

	rows, err := s.store.ListStalePending(context.Background(), s.now, 0)
	s.Require().NoError(err)
	s.Equal([]string{"g1/old-pending", "g1/old-challenge", "g1/exact"}, ids(rows))

	limited, err := s.store.ListStalePending(context.Background(), s.now, 2)
	s.Require().NoError(err)
	s.Equal([]string{"g1/old-pending", "g1/old-challenge"}, ids(limited))
}

func (s *InMemoryStateStoreSuite) TestListStaleTerminal() {
	s.seed("g1", "rejected", models.StatusRejected, s.now)
	s.seed("g1", "expired", models.StatusReviewExpired, s.now.Add(-time.Minute))
	s.seed("g1", "kicked", models.StatusKicked, s.now.Add(-time.Hour))
	s.seed("g1", "verified", models.StatusVerified, s.now.Add(-time.Hour))

	rows, err := s.store.ListStaleTerminal(context.Background(), s.now, 0)
	s.Require().NoError(err)
	s.Equal([]string{"g1/expired", "g1/rejected"}, ids(rows))
}

func (s *InMemoryStateStoreSuite) TestDeferRemoval() {
	s.setTimeouts("g1", time.Hour, 0)
	s.seed("g1", "pending", models.StatusPending, s.now.Add(-2*time.Hour))
	s.seed("g1", "rejected", models.StatusRejected, s.now.Add(-time.Hour))
	s.seed("g1", "verified", models.StatusVerified, s.now.Add(-time.Hour))
	until := s.now.Add(10 * time.Minute)

	for _, user := range []string{"pending", "rejected", "verified", "missing"} {
		s.Require().NoError(s.store.DeferRemoval(context.Background(), "g1", user, until))
	}

	s.Run("hidden until the backoff ends", func() {
		pending, err := s.store.ListStalePending(context.Background(), s.now, 0)
		s.Require().NoError(err)
		s.Empty(pending)
		terminal, err := s.store.ListStaleTerminal(context.Background(), s.now, 0)
		s.Require().NoError(err)
		s.Empty(terminal)

		pending, err = s.store.ListStalePending(context.Background(), until, 0)
		s.Require().NoError(err)
		s.Equal([]string{"g1/pending"}, ids(pending))
		terminal, err = s.store.ListStaleTerminal(context.Background(), until, 0)
		s.Require().NoError(err)
		s.Equal([]string{"g1/rejected"}, ids(terminal))
	})

	s.Run("rows that do not await removal are untouched", func() {
		st, err := s.store.Get(context.Background(), "g1", "verified")
		s.Require().NoError(err)
		s.Nil(st.RemovalDeferredUntil)
		s.Equal(3, s.store.Len())
	})
}

func (s *InMemoryStateStoreSuite) TestListExpiredReviews() {
	s.setTimeouts("g1", 0, 10*time.Hour)
	s.setTimeouts("g2", 0, 0)

	s.seed("g1", "expired", models.StatusManualReview, s.now.Add(-11*time.Hour))
	s.seed("g1", "open", models.StatusManualReview, s.now.Add(-9*time.Hour))
	s.seed("g1", "pending", models.StatusPending, s.now.Add(-11*time.Hour))
	s.seed("g2", "never", models.StatusManualReview, s.now.Add(-1000*time.Hour))

	rows, err := s.store.ListExpiredReviews(context.Background(), s.now, 50)
	s.Require().NoError(err)
	s.Equal([]string{"g1/expired"}, ids(rows))
}

func (s *InMemoryStateStoreSuite) TestListRemindableReviews() {
	s.setTimeouts("g1", 0, 8*time.Hour)

	s.seed("g1", "at-75", models.StatusManualReview, s.now.Add(-6*time.Hour))
	s.seed("g1", "before-75", models.StatusManualReview, s.now.Add(-5*time.Hour))
	s.seed("g1", "expired", models.StatusManualReview, s.now.Add(-8*time.Hour))
	s.seed("g1", "reminded", models.StatusManualReview, s.now.Add(-7*time.Hour))
	_, err := s.store.Upsert(s.ctxAt(s.now), "g1", "reminded", func(st *models.VerificationState) error {
		st.ReviewReminded = true
		return nil
	})
	s.Require().NoError(err)

	rows, err := s.store.ListRemindableReviews(context.Background(), s.now, 0.75, 50)
	s.Require().NoError(err)
	s.Equal([]string{"g1/at-75"}, ids(rows))
}
